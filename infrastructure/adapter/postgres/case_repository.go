package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/domain"
	"github.com/civiport/civiport/infrastructure/metrics"
)

// CaseRepository implements the case persistence port on PostgreSQL. The
// case write and its audit entry are committed in one transaction, so a
// mutation can never land without its audit record.
type CaseRepository struct {
	db *sql.DB
}

func NewCaseRepository(db *sql.DB) outbound.CaseRepository {
	return &CaseRepository{db: db}
}

const caseColumns = `id, type, description, complainant_name, complainant_email, status, priority, assigned_officer, location, created_at, updated_at`

func (r *CaseRepository) Create(ctx context.Context, c *domain.Case, entry *domain.AuditEntry) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO cases (` + caseColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err := tx.ExecContext(ctx, query,
			c.ID,
			string(c.Type),
			c.Description,
			c.ComplainantName,
			c.ComplainantEmail,
			string(c.Status),
			string(c.Priority),
			c.AssignedOfficer,
			c.Location,
			c.CreatedAt,
			c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create case: %w", err)
		}
		return insertAuditEntry(ctx, tx, entry)
	})
}

func (r *CaseRepository) FindByID(ctx context.Context, id string) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`

	c, err := scanCase(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to find case: %w", err)
	}
	return c, nil
}

func (r *CaseRepository) FindAll(ctx context.Context) ([]*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	var cases []*domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cases: %w", err)
	}
	return cases, nil
}

func (r *CaseRepository) Update(ctx context.Context, c *domain.Case, entry *domain.AuditEntry) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE cases
			SET status = $2, priority = $3, assigned_officer = $4, description = $5, location = $6, updated_at = $7
			WHERE id = $1
		`
		result, err := tx.ExecContext(ctx, query,
			c.ID,
			string(c.Status),
			string(c.Priority),
			c.AssignedOfficer,
			c.Description,
			c.Location,
			c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update case: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return domain.ErrCaseNotFound
		}
		return insertAuditEntry(ctx, tx, entry)
	})
}

func (r *CaseRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	metrics.RecordAuditEntry()
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row rowScanner) (*domain.Case, error) {
	var c domain.Case
	var assignedOfficer sql.NullString
	err := row.Scan(
		&c.ID,
		&c.Type,
		&c.Description,
		&c.ComplainantName,
		&c.ComplainantEmail,
		&c.Status,
		&c.Priority,
		&assignedOfficer,
		&c.Location,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if assignedOfficer.Valid {
		c.AssignedOfficer = &assignedOfficer.String
	}
	return &c, nil
}
