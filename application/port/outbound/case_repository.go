package outbound

import (
	"context"

	"github.com/civiport/civiport/domain"
)

// CaseRepository is the persistence port for cases. Create and Update take
// the audit entry recording the change so the implementation can commit the
// case write and the audit append as a single transactional unit; a mutation
// is never persisted without its audit record, and vice versa.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case, entry *domain.AuditEntry) error
	FindByID(ctx context.Context, id string) (*domain.Case, error)
	FindAll(ctx context.Context) ([]*domain.Case, error)
	Update(ctx context.Context, c *domain.Case, entry *domain.AuditEntry) error
}
