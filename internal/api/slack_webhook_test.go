package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contexthub/internal/config"
	"github.com/contexthub/internal/docs"
	"github.com/contexthub/internal/jobqueue"
	"github.com/contexthub/internal/policy"
	"github.com/contexthub/internal/slack"
	"github.com/contexthub/internal/tracking"
	"github.com/contexthub/internal/zoom"
	"github.com/contexthub/pkg/models"
)

const testSigningSecret = "test-signing-secret"

type fakeQueue struct {
	jobs []jobqueue.SlackMessageJobArgs
	err  error
}

func (f *fakeQueue) EnqueueSlackMessage(_ context.Context, args jobqueue.SlackMessageJobArgs) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, args)
	return nil
}

type fakeChatModel struct {
	reply      string
	imgReply   string
	structured string // raw model output fed to structured decoding
	err        error
	turns      []models.ConversationTurn
	prompts    []string
}

func (f *fakeChatModel) Chat(_ context.Context, _ string, turns []models.ConversationTurn) (string, error) {
	f.turns = turns
	return f.reply, f.err
}

func (f *fakeChatModel) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeChatModel) AnalyzeImages(_ context.Context, prompt string, _ [][]byte) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.imgReply != "" {
		return f.imgReply, f.err
	}
	return f.reply, f.err
}

func (f *fakeChatModel) AnalyzeImagesStructured(_ context.Context, prompt string, _ [][]byte, target interface{}) error {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.structured), target)
}

type fakeCapturer struct {
	shot string
	err  error
}

func (f *fakeCapturer) CaptureScreenshot(context.Context, string) (string, error) {
	return f.shot, f.err
}

func (f *fakeCapturer) CapturePage(_ context.Context, _ string, page int) (models.PageScreenshot, error) {
	return models.PageScreenshot{PageNumber: page, Base64Image: f.shot}, f.err
}

func (f *fakeCapturer) PageCount(context.Context, string) (int, error) {
	return 3, f.err
}

func (f *fakeCapturer) CaptureDeck(context.Context, string) (models.DeckCaptureResult, error) {
	return models.DeckCaptureResult{
		Screenshots: []models.PageScreenshot{{PageNumber: 1, Base64Image: f.shot}},
		Captured:    1,
		Total:       3,
	}, f.err
}

type fakeDocs struct{}

func (fakeDocs) Fetch(context.Context, string) (docs.Document, error) {
	return docs.Document{ID: "doc-1", Content: "text"}, nil
}

type fakeZoomStore struct {
	upserted []models.ZoomUser
}

func (f *fakeZoomStore) Upsert(_ context.Context, u models.ZoomUser) error {
	f.upserted = append(f.upserted, u)
	return nil
}

type fakeZoomOAuth struct{}

func (fakeZoomOAuth) Configured() bool               { return true }
func (fakeZoomOAuth) AuthorizeURL(state string) string {
	return "https://zoom.us/oauth/authorize?state=" + state
}
func (fakeZoomOAuth) ExchangeCode(context.Context, string) (zoom.TokenResponse, error) {
	return zoom.TokenResponse{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600}, nil
}
func (fakeZoomOAuth) FetchIdentity(context.Context, string) (zoom.UserIdentity, error) {
	return zoom.UserIdentity{ID: "zu-1", Email: "host@example.com"}, nil
}

type fakeTranscripts struct{}

func (fakeTranscripts) HandleTranscriptCompleted(context.Context, zoom.EventPayload) (string, error) {
	return "WEBVTT", nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Slack.SigningSecret = testSigningSecret
	cfg.Zoom.WebhookSecretToken = "zoom-secret"
	cfg.Auth.StateSecret = "state-secret"
	return cfg
}

func newTestServer(t *testing.T) (*Server, *fakeQueue, *tracking.MemoryStore) {
	t.Helper()
	store := tracking.NewMemoryStore()
	queue := &fakeQueue{}
	srv := NewServer(Deps{
		Config:      testConfig(),
		Verifier:    slack.NewVerifier(testSigningSecret),
		Policy:      policy.NewEngine(store),
		Tracker:     store,
		Queue:       queue,
		ChatLLM:     &fakeChatModel{reply: "hello", structured: `{"summary":"hello"}`},
		AnalysisLLM: &fakeChatModel{reply: "analysis", structured: `{"summary":"analysis"}`},
		Capturer:    &fakeCapturer{shot: "aW1n"},
		Docs:        fakeDocs{},
		ZoomOAuth:   fakeZoomOAuth{},
		ZoomUsers:   &fakeZoomStore{},
		Transcripts: fakeTranscripts{},
	})
	return srv, queue, store
}

func signBody(t *testing.T, body []byte) (timestamp, signature string) {
	t.Helper()
	timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	return timestamp, "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func postSlack(t *testing.T, srv *Server, body []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/slack/chat", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if sign {
		ts, sig := signBody(t, body)
		req.Header.Set("X-Slack-Request-Timestamp", ts)
		req.Header.Set("X-Slack-Signature", sig)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestSlackWebhookURLVerification(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := []byte(`{"type":"url_verification","challenge":"challenge-123"}`)
	rec := postSlack(t, srv, body, false) // no signature needed

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "challenge-123", resp["challenge"])
}

func TestSlackWebhookRejectsBadSignature(t *testing.T) {
	srv, queue, _ := newTestServer(t)

	body := []byte(`{"type":"event_callback","event":{"type":"app_mention","channel":"C1","ts":"1.1","text":"hi"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/slack/chat", strings.NewReader(string(body)))
	req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, queue.jobs)
}

func TestSlackWebhookMentionIsQueued(t *testing.T) {
	srv, queue, _ := newTestServer(t)

	body := []byte(`{"type":"event_callback","event":{"type":"app_mention","channel":"C1","ts":"1700000000.000100","event_ts":"1700000000.000100","text":"<@U1> hello"}}`)
	rec := postSlack(t, srv, body, true)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, "C1", job.ChannelID)
	assert.Equal(t, "1700000000.000100", job.TS)
	assert.True(t, job.IsMention)
}

func TestSlackWebhookMentionActivatesThread(t *testing.T) {
	srv, _, store := newTestServer(t)

	body := []byte(`{"type":"event_callback","event":{"type":"app_mention","channel":"C1","ts":"1700000000.000100","text":"hi"}}`)
	rec := postSlack(t, srv, body, true)
	require.Equal(t, http.StatusOK, rec.Code)

	active, err := store.IsThreadActive(context.Background(), "C1", "1700000000.000100")
	require.NoError(t, err)
	assert.True(t, active, "mention should activate its own thread")
}

func TestSlackWebhookDuplicateQueuedOnce(t *testing.T) {
	srv, queue, _ := newTestServer(t)

	body := []byte(`{"type":"event_callback","event":{"type":"app_mention","channel":"C1","ts":"1700000000.000100","event_ts":"1700000000.000100","text":"hi"}}`)
	rec1 := postSlack(t, srv, body, true)
	rec2 := postSlack(t, srv, body, true)

	assert.Equal(t, http.StatusOK, rec1.Code)
	assert.Equal(t, http.StatusOK, rec2.Code, "redelivery must still ack")
	assert.Len(t, queue.jobs, 1, "redelivery must not enqueue twice")
}

func TestSlackWebhookDiscardsBotAndSubtypeEvents(t *testing.T) {
	srv, queue, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{
			name: "bot message in dm",
			body: `{"type":"event_callback","event":{"type":"message","channel":"D1","channel_type":"im","ts":"1.1","bot_id":"B1","text":"echo"}}`,
		},
		{
			name: "edited message",
			body: `{"type":"event_callback","event":{"type":"message","channel":"D1","channel_type":"im","ts":"1.2","subtype":"message_changed","text":"edit"}}`,
		},
		{
			name: "missing channel",
			body: `{"type":"event_callback","event":{"type":"message","channel_type":"im","ts":"1.3","text":"hi"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postSlack(t, srv, []byte(tt.body), true)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
	assert.Empty(t, queue.jobs)
}

func TestSlackWebhookIgnoresPlainChannelMessage(t *testing.T) {
	srv, queue, _ := newTestServer(t)

	body := []byte(`{"type":"event_callback","event":{"type":"message","channel":"C1","channel_type":"channel","ts":"1.5","text":"just chatting"}}`)
	rec := postSlack(t, srv, body, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, queue.jobs)
}

func TestSlackWebhookBotMentionActivatesThreadWithoutReply(t *testing.T) {
	srv, queue, store := newTestServer(t)

	// A mention authored by a bot gets no reply, but its thread activation
	// still happens, so later human replies in that thread are answered.
	botMention := []byte(`{"type":"event_callback","event":{"type":"app_mention","channel":"C9","ts":"9.1","bot_id":"B1","text":"<@U1> summarize"}}`)
	rec := postSlack(t, srv, botMention, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, queue.jobs, "bot-authored mention must not be answered")

	active, err := store.IsThreadActive(context.Background(), "C9", "9.1")
	require.NoError(t, err)
	assert.True(t, active, "bot-authored mention must still activate its thread")

	humanReply := []byte(`{"type":"event_callback","event":{"type":"message","channel":"C9","channel_type":"channel","ts":"9.2","thread_ts":"9.1","text":"yes please"}}`)
	rec = postSlack(t, srv, humanReply, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, queue.jobs, 1, "human reply in the activated thread must be queued")
	assert.Equal(t, "9.1", queue.jobs[0].ThreadTS)
}

func TestSlackWebhookThreadReplyFollowsActivation(t *testing.T) {
	srv, queue, store := newTestServer(t)

	reply := []byte(`{"type":"event_callback","event":{"type":"message","channel":"C1","channel_type":"channel","ts":"2.2","thread_ts":"2.1","text":"follow-up"}}`)

	// Inactive thread: ignored.
	rec := postSlack(t, srv, reply, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, queue.jobs)

	require.NoError(t, store.ActivateThread(context.Background(), "C1", "2.1"))

	rec = postSlack(t, srv, reply, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "2.1", queue.jobs[0].ThreadTS)
	assert.False(t, queue.jobs[0].IsMention)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
