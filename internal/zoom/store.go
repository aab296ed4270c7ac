// Package zoom handles the Zoom side of the hub: OAuth tokens, webhook
// validation, and transcript retrieval.
package zoom

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/contexthub/pkg/models"
)

// TokenStore persists OAuth tokens per Zoom user.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Upsert stores tokens for a user, replacing any existing row.
func (s *TokenStore) Upsert(ctx context.Context, user models.ZoomUser) error {
	query := `
		INSERT INTO zoom_users (zoom_user_id, email, access_token, refresh_token, token_expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (zoom_user_id)
		DO UPDATE SET
			email = EXCLUDED.email,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.ZoomUserID, user.Email, user.AccessToken, user.RefreshToken,
		user.TokenExpiresAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("zoom: failed to store tokens for %s: %w", user.ZoomUserID, err)
	}
	return nil
}

// Get returns the stored tokens for a Zoom user.
func (s *TokenStore) Get(ctx context.Context, zoomUserID string) (models.ZoomUser, error) {
	query := `
		SELECT zoom_user_id, email, access_token, refresh_token, token_expires_at, updated_at
		FROM zoom_users
		WHERE zoom_user_id = $1`

	var user models.ZoomUser
	err := s.db.QueryRowContext(ctx, query, zoomUserID).Scan(
		&user.ZoomUserID, &user.Email, &user.AccessToken, &user.RefreshToken,
		&user.TokenExpiresAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.ZoomUser{}, fmt.Errorf("zoom: no tokens stored for user %s", zoomUserID)
	}
	if err != nil {
		return models.ZoomUser{}, fmt.Errorf("zoom: failed to fetch tokens for %s: %w", zoomUserID, err)
	}
	return user, nil
}

// UpdateTokens replaces the token fields after a refresh.
func (s *TokenStore) UpdateTokens(ctx context.Context, zoomUserID, accessToken, refreshToken string, expiresAt, updatedAt time.Time) error {
	query := `
		UPDATE zoom_users
		SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = $5
		WHERE zoom_user_id = $1`

	res, err := s.db.ExecContext(ctx, query, zoomUserID, accessToken, refreshToken, expiresAt, updatedAt)
	if err != nil {
		return fmt.Errorf("zoom: failed to update tokens for %s: %w", zoomUserID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("zoom: no tokens stored for user %s", zoomUserID)
	}
	return nil
}

// EnsureSchema creates the zoom_users table if missing.
func (s *TokenStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS zoom_users (
			zoom_user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			token_expires_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("zoom: failed to ensure schema: %w", err)
	}
	return nil
}
