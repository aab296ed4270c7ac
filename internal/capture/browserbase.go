// Package capture drives a remote headless browser through Browserbase to
// screenshot web pages and slide decks over CDP.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultSessionsURL = "https://www.browserbase.com/v1/sessions"
	defaultConnectHost = "wss://connect.browserbase.com"
)

// SessionClient creates Browserbase browser sessions. Each capture gets a
// fresh session; Browserbase reaps them when the CDP connection drops.
type SessionClient struct {
	apiKey      string
	projectID   string
	sessionsURL string
	connectHost string
	httpClient  *http.Client
}

func NewSessionClient(apiKey, projectID string) *SessionClient {
	return &SessionClient{
		apiKey:      apiKey,
		projectID:   projectID,
		sessionsURL: defaultSessionsURL,
		connectHost: defaultConnectHost,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateSession provisions a remote browser and returns its session ID.
func (c *SessionClient) CreateSession(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{"projectId": c.projectID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sessionsURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-bb-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("capture: session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("capture: failed to create session: %s", string(errBody))
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("capture: bad session response: %w", err)
	}
	if session.ID == "" {
		return "", fmt.Errorf("capture: no session ID returned from Browserbase")
	}

	log.Debug().Str("session_id", session.ID).Msg("Created Browserbase session")
	return session.ID, nil
}

// ConnectURL builds the CDP websocket endpoint for a session.
func (c *SessionClient) ConnectURL(sessionID string) string {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("sessionId", sessionID)
	return c.connectHost + "?" + q.Encode()
}
