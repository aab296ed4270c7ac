package zoom

import (
	"context"
	"log"
	"time"

	"github.com/contexthub/pkg/models"
)

// refreshMargin refreshes tokens that expire within this window so in-flight
// downloads never race the expiry.
const refreshMargin = 5 * time.Minute

// Refresher is the slice of OAuthClient the token manager needs.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (TokenResponse, error)
}

// Tokens is the storage interface the manager works against.
type Tokens interface {
	Get(ctx context.Context, zoomUserID string) (models.ZoomUser, error)
	UpdateTokens(ctx context.Context, zoomUserID, accessToken, refreshToken string, expiresAt, updatedAt time.Time) error
}

// TokenManager hands out valid access tokens, refreshing stale ones on the
// way through.
type TokenManager struct {
	store Tokens
	oauth Refresher
	now   func() time.Time
}

func NewTokenManager(store Tokens, oauth Refresher) *TokenManager {
	return &TokenManager{store: store, oauth: oauth, now: time.Now}
}

// ValidAccessToken returns an access token guaranteed to outlive the
// refresh margin, refreshing and persisting a new pair if needed.
func (m *TokenManager) ValidAccessToken(ctx context.Context, zoomUserID string) (string, error) {
	user, err := m.store.Get(ctx, zoomUserID)
	if err != nil {
		return "", err
	}

	now := m.now()
	if user.TokenExpiresAt.Sub(now) >= refreshMargin {
		return user.AccessToken, nil
	}

	log.Printf("[INFO] zoom: refreshing access token for user %s", zoomUserID)
	tokens, err := m.oauth.RefreshToken(ctx, user.RefreshToken)
	if err != nil {
		return "", err
	}

	expiresAt := now.Add(time.Duration(tokens.ExpiresIn) * time.Second)
	if err := m.store.UpdateTokens(ctx, zoomUserID, tokens.AccessToken, tokens.RefreshToken, expiresAt, now); err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}
