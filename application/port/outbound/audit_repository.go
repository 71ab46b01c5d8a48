package outbound

import (
	"context"

	"github.com/civiport/civiport/domain"
)

// AuditRepository is the persistence port for the append-only audit log.
// Case mutations write their entries through CaseRepository inside the same
// transaction; Append is for actions with no accompanying case write, such
// as account creation.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error)
}
