package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/domain"
	"github.com/civiport/civiport/infrastructure/metrics"
)

// AuditRepository implements the append-only audit log on PostgreSQL.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) outbound.AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := insertAuditEntry(ctx, tx, entry); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit entry: %w", err)
	}
	metrics.RecordAuditEntry()
	return nil
}

// insertAuditEntry writes an entry inside an existing transaction. Shared
// with CaseRepository, which pairs the insert with a case write.
func insertAuditEntry(ctx context.Context, tx *sql.Tx, entry *domain.AuditEntry) error {
	if entry == nil {
		return nil
	}
	var detailsJSON interface{}
	if len(entry.Details) > 0 {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
		detailsJSON = string(data)
	}

	query := `
		INSERT INTO audit_entries (id, action, actor_id, actor_role, target_type, target_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecContext(ctx, query,
		entry.ID,
		string(entry.Action),
		entry.ActorID,
		entry.ActorRole,
		entry.TargetType,
		entry.TargetID,
		detailsJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	where, args := buildAuditWhere(filter)
	argIndex := len(args) + 1

	countQuery := "SELECT COUNT(*) FROM audit_entries" + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	query := `
		SELECT id, action, actor_id, actor_role, target_type, target_id, details, created_at
		FROM audit_entries
	` + where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var detailsJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.ActorID,
			&entry.ActorRole,
			&entry.TargetType,
			&entry.TargetID,
			&detailsJSON,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &entry.Details); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, total, nil
}

func buildAuditWhere(filter domain.AuditFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	idx := 1
	if filter.Action != nil {
		conditions = append(conditions, fmt.Sprintf("action = $%d", idx))
		args = append(args, string(*filter.Action))
		idx++
	}
	if filter.TargetID != nil {
		conditions = append(conditions, fmt.Sprintf("target_id = $%d", idx))
		args = append(args, *filter.TargetID)
		idx++
	}
	if filter.ActorID != nil {
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", idx))
		args = append(args, *filter.ActorID)
		idx++
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
