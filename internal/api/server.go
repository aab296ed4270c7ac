// Package api wires the HTTP surface of the hub: the Slack and Zoom
// webhooks, the Zoom OAuth flow, and the internal chat, capture, and
// analysis endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/contexthub/internal/config"
	"github.com/contexthub/internal/docs"
	"github.com/contexthub/internal/jobqueue"
	"github.com/contexthub/internal/slack"
	"github.com/contexthub/internal/tracking"
	"github.com/contexthub/internal/zoom"
	"github.com/contexthub/pkg/models"
)

// Enqueuer defers accepted Slack messages to the job queue.
type Enqueuer interface {
	EnqueueSlackMessage(ctx context.Context, args jobqueue.SlackMessageJobArgs) error
}

// ResponsePolicy decides whether an event deserves a reply.
type ResponsePolicy interface {
	ShouldRespond(ctx context.Context, event models.Event) (bool, error)
}

// ChatModel is the model surface the chat and extraction endpoints use.
// AnalyzeImagesStructured carries the JSON-repair pipeline, so callers get a
// decoded value even when the model wraps or truncates its output.
type ChatModel interface {
	Chat(ctx context.Context, systemPrompt string, turns []models.ConversationTurn) (string, error)
	Generate(ctx context.Context, prompt string) (string, error)
	AnalyzeImages(ctx context.Context, prompt string, pngImages [][]byte) (string, error)
	AnalyzeImagesStructured(ctx context.Context, prompt string, pngImages [][]byte, target interface{}) error
}

// PageCapturer is the capture surface the browse endpoints use.
type PageCapturer interface {
	CaptureScreenshot(ctx context.Context, pageURL string) (string, error)
	CapturePage(ctx context.Context, deckURL string, pageNumber int) (models.PageScreenshot, error)
	PageCount(ctx context.Context, deckURL string) (int, error)
	CaptureDeck(ctx context.Context, deckURL string) (models.DeckCaptureResult, error)
}

// DocFetcher downloads Google Doc text.
type DocFetcher interface {
	Fetch(ctx context.Context, docURL string) (docs.Document, error)
}

// ZoomUserStore persists OAuth token rows.
type ZoomUserStore interface {
	Upsert(ctx context.Context, user models.ZoomUser) error
}

// ZoomOAuth is the OAuth surface the auth handlers use.
type ZoomOAuth interface {
	Configured() bool
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (zoom.TokenResponse, error)
	FetchIdentity(ctx context.Context, accessToken string) (zoom.UserIdentity, error)
}

// TranscriptHandler consumes recording.transcript_completed events.
type TranscriptHandler interface {
	HandleTranscriptCompleted(ctx context.Context, payload zoom.EventPayload) (string, error)
}

// Deps bundles every collaborator the server routes to.
type Deps struct {
	Config      *config.Config
	Verifier    *slack.Verifier
	Policy      ResponsePolicy
	Tracker     tracking.Store
	Queue       Enqueuer
	ChatLLM     ChatModel // conversational + vision model
	AnalysisLLM ChatModel // document analysis model
	Capturer    PageCapturer
	Docs        DocFetcher
	ZoomOAuth   ZoomOAuth
	ZoomUsers   ZoomUserStore
	Transcripts TranscriptHandler
}

// Server is the HTTP server.
type Server struct {
	echo *echo.Echo
	deps Deps
	port int
}

// NewServer builds the echo server and registers all routes.
func NewServer(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo: e,
		deps: deps,
		port: deps.Config.Server.Port,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	api := s.echo.Group("/api")

	// Inbound webhooks
	api.POST("/slack/chat", s.handleSlackChat)
	api.POST("/notification", s.handleZoomNotification)

	// Zoom OAuth
	api.GET("/zoom/auth", s.handleZoomAuth)
	api.GET("/zoom/callback", s.handleZoomCallback)

	// Internal endpoints
	api.POST("/chat", s.handleChat)
	api.POST("/extract", s.handleExtract)
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/analyze-pdf", s.handleAnalyzePDF)
	api.POST("/browse", s.handleBrowse)
	api.POST("/capture-page", s.handleCapturePage)
	api.POST("/page-count", s.handlePageCount)
	api.POST("/docs", s.handleDocs)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves until interrupted, then shuts down gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
