package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/domain/entity"
)

// RefreshTokenRepository stores refresh tokens hashed; the raw token never
// touches the database.
type RefreshTokenRepository struct {
	db   *sql.DB
	salt string
}

func NewRefreshTokenRepository(db *sql.DB, salt string) outbound.RefreshTokenRepository {
	return &RefreshTokenRepository{
		db:   db,
		salt: salt,
	}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	if token == nil {
		return fmt.Errorf("refresh token cannot be nil")
	}
	if token.ID == "" || token.UserID == "" || token.Token == "" {
		return fmt.Errorf("refresh token ID, user ID, and token are required")
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		r.hashToken(token.Token),
		token.ExpiresAt,
		token.CreatedAt,
		token.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*entity.RefreshToken, error) {
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	query := `
		SELECT id, user_id, expires_at, created_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1
		LIMIT 1
	`
	var refreshToken entity.RefreshToken
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, r.hashToken(token)).Scan(
		&refreshToken.ID,
		&refreshToken.UserID,
		&refreshToken.ExpiresAt,
		&refreshToken.CreatedAt,
		&revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	refreshToken.Token = token
	if revokedAt.Valid {
		refreshToken.RevokedAt = &revokedAt.Time
	}
	return &refreshToken, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, r.hashToken(token), time.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return outbound.ErrRefreshTokenNotFound
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeByUserID(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens by user: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) hashToken(token string) string {
	sum := sha256.Sum256([]byte(r.salt + token))
	return hex.EncodeToString(sum[:])
}
