package config

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// ---------------------------------------------------------------------------
// Refresh tokens
// ---------------------------------------------------------------------------

// RefreshToken is a stored refresh token. Only the SHA-256 hash of the token
// is kept.
type RefreshToken struct {
	ID        int64      `db:"id"`
	AdminID   int64      `db:"admin_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// CreateRefreshToken stores the hash of a newly issued refresh token.
func (s *Store) CreateRefreshToken(ctx context.Context, adminID int64, tokenHash string, expiresAt time.Time) error {
	_, err := s.insert(ctx, s.db, s.sb.Insert("refresh_tokens").
		Columns("admin_id", "token_hash", "expires_at", "created_at").
		Values(adminID, tokenHash, expiresAt.UTC(), time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken looks up a refresh token by hash.
func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	var t RefreshToken
	err := s.get(ctx, s.db, &t, s.sb.Select("id", "admin_id", "token_hash", "expires_at", "revoked_at", "created_at").
		From("refresh_tokens").Where(sq.Eq{"token_hash": tokenHash}))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RevokeRefreshToken marks a refresh token as revoked. Revoking an already
// revoked token returns ErrNotFound.
func (s *Store) RevokeRefreshToken(ctx context.Context, id int64) error {
	return s.execAffected(ctx, s.db, s.sb.Update("refresh_tokens").
		Set("revoked_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "revoked_at": nil}))
}

// RevokeAdminRefreshTokens revokes every live refresh token of an admin.
func (s *Store) RevokeAdminRefreshTokens(ctx context.Context, adminID int64) error {
	_, err := s.exec(ctx, s.db, s.sb.Update("refresh_tokens").
		Set("revoked_at", time.Now().UTC()).
		Where(sq.Eq{"admin_id": adminID, "revoked_at": nil}))
	return err
}
