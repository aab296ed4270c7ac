package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAuthorizeURL = "https://zoom.us/oauth/authorize"
	defaultTokenURL     = "https://zoom.us/oauth/token"
	defaultAPIBaseURL   = "https://api.zoom.us"

	// RequiredScopes covers recording downloads and reading the user's
	// identity during the OAuth callback.
	RequiredScopes = "cloud_recording:read:recording user:read:email user:read:user"
)

// TokenResponse is Zoom's OAuth token grant payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// OAuthClient talks to Zoom's OAuth and user endpoints.
type OAuthClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	authorizeURL string
	tokenURL     string
	apiBaseURL   string
	httpClient   *http.Client
}

func NewOAuthClient(clientID, clientSecret, redirectURI string) *OAuthClient {
	return &OAuthClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		authorizeURL: defaultAuthorizeURL,
		tokenURL:     defaultTokenURL,
		apiBaseURL:   defaultAPIBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether OAuth credentials are present.
func (c *OAuthClient) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// AuthorizeURL builds the Zoom consent URL with the given CSRF state.
func (c *OAuthClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("state", state)
	q.Set("scope", RequiredScopes)
	return c.authorizeURL + "?" + q.Encode()
}

// ExchangeCode swaps an authorization code for tokens.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	return c.tokenRequest(ctx, form)
}

// RefreshToken exchanges a refresh token for a fresh token pair. Zoom may
// rotate the refresh token on every exchange, callers must store the one
// that comes back.
func (c *OAuthClient) RefreshToken(ctx context.Context, refreshToken string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.tokenRequest(ctx, form)
}

func (c *OAuthClient) tokenRequest(ctx context.Context, form url.Values) (TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("zoom: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return TokenResponse{}, fmt.Errorf("zoom: token grant rejected (%d): %s", resp.StatusCode, string(errBody))
	}

	var tokens TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return TokenResponse{}, fmt.Errorf("zoom: bad token response: %w", err)
	}
	if tokens.AccessToken == "" {
		return TokenResponse{}, fmt.Errorf("zoom: token response missing access_token")
	}
	return tokens, nil
}

// UserIdentity is the slice of /v2/users/me the callback needs.
type UserIdentity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// FetchIdentity resolves who the freshly issued access token belongs to.
func (c *OAuthClient) FetchIdentity(ctx context.Context, accessToken string) (UserIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/v2/users/me", nil)
	if err != nil {
		return UserIdentity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UserIdentity{}, fmt.Errorf("zoom: identity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UserIdentity{}, fmt.Errorf("zoom: identity request rejected (%d)", resp.StatusCode)
	}

	var identity UserIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return UserIdentity{}, fmt.Errorf("zoom: bad identity response: %w", err)
	}
	if identity.ID == "" {
		return UserIdentity{}, fmt.Errorf("zoom: identity response missing user id")
	}
	return identity, nil
}
