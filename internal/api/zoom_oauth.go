package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/contexthub/pkg/models"
)

const (
	stateCookieName = "zoom_oauth_state"
	stateTTL        = 10 * time.Minute
)

// signState wraps a nonce in a short-lived signed token so the callback can
// verify it without server-side session state.
func (s *Server) signState(nonce string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"nonce": nonce,
		"exp":   time.Now().Add(stateTTL).Unix(),
	})
	return token.SignedString([]byte(s.deps.Config.Auth.StateSecret))
}

// verifyState checks the signed cookie and returns the nonce it carries.
func (s *Server) verifyState(signed string) (string, error) {
	token, err := jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.deps.Config.Auth.StateSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid state token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid state claims")
	}
	nonce, _ := claims["nonce"].(string)
	if nonce == "" {
		return "", fmt.Errorf("state token missing nonce")
	}
	return nonce, nil
}

// handleZoomAuth starts the OAuth flow: random state, signed state cookie,
// redirect to Zoom's consent page.
func (s *Server) handleZoomAuth(c echo.Context) error {
	if !s.deps.ZoomOAuth.Configured() {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "zoom oauth not configured"})
	}

	state := uuid.NewString()
	signed, err := s.signState(state)
	if err != nil {
		log.Printf("[ERROR] zoom auth: failed to sign state: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to initiate OAuth"})
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusFound, s.deps.ZoomOAuth.AuthorizeURL(state))
}

// handleZoomCallback finishes the flow: state check, code exchange,
// identity fetch, token upsert.
func (s *Server) handleZoomCallback(c echo.Context) error {
	if errParam := c.QueryParam("error"); errParam != "" {
		log.Printf("[ERROR] zoom callback: provider returned error %q", errParam)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": errParam})
	}

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing code or state"})
	}

	cookie, err := c.Cookie(stateCookieName)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing state cookie"})
	}
	nonce, err := s.verifyState(cookie.Value)
	if err != nil || nonce != state {
		log.Printf("[INFO] zoom callback: state mismatch")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid state"})
	}

	ctx := c.Request().Context()
	tokens, err := s.deps.ZoomOAuth.ExchangeCode(ctx, code)
	if err != nil {
		log.Printf("[ERROR] zoom callback: code exchange failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "token exchange failed"})
	}

	identity, err := s.deps.ZoomOAuth.FetchIdentity(ctx, tokens.AccessToken)
	if err != nil {
		log.Printf("[ERROR] zoom callback: identity fetch failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to resolve user"})
	}

	now := time.Now()
	user := models.ZoomUser{
		ZoomUserID:     identity.ID,
		Email:          identity.Email,
		AccessToken:    tokens.AccessToken,
		RefreshToken:   tokens.RefreshToken,
		TokenExpiresAt: now.Add(time.Duration(tokens.ExpiresIn) * time.Second),
		UpdatedAt:      now,
	}
	if err := s.deps.ZoomUsers.Upsert(ctx, user); err != nil {
		log.Printf("[ERROR] zoom callback: token store failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to store tokens"})
	}

	// Burn the state cookie.
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	log.Printf("[INFO] zoom callback: connected zoom user %s", identity.ID)
	return c.JSON(http.StatusOK, map[string]string{"status": "connected", "zoom_user_id": identity.ID})
}
