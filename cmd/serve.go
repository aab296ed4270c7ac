package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/contexthub/internal/api"
	"github.com/contexthub/internal/capture"
	"github.com/contexthub/internal/config"
	"github.com/contexthub/internal/conversation"
	"github.com/contexthub/internal/database"
	"github.com/contexthub/internal/docs"
	"github.com/contexthub/internal/jobqueue"
	"github.com/contexthub/internal/llm"
	"github.com/contexthub/internal/policy"
	"github.com/contexthub/internal/slack"
	"github.com/contexthub/internal/tracking"
	"github.com/contexthub/internal/zoom"
)

// ServeCommand returns the CLI command for starting the hub server.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the ContextHub server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the HTTP server (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	// Local development keeps secrets in .env; missing file is fine.
	if err := godotenv.Load(); err == nil {
		log.Printf("[INFO] serve: loaded environment from .env")
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if port := c.Int("port"); port != 0 {
		cfg.Server.Port = port
	}

	ctx := c.Context

	db, err := database.NewDB()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := tracking.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to prepare tracking schema: %w", err)
	}
	tracker := tracking.NewPostgresStore(db)

	zoomUsers := zoom.NewTokenStore(db)
	if err := zoomUsers.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare zoom schema: %w", err)
	}

	sweeper, err := tracking.NewSweeper(tracker, cfg.Tracking.SweepSchedule)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	chatLLM, analysisLLM, err := buildModels(ctx, cfg)
	if err != nil {
		return err
	}

	slackClient := slack.NewClient(cfg.Slack.BotToken)
	assembler := conversation.NewAssembler(slackClient)

	capturer := capture.NewCapturer(
		capture.NewSessionClient(cfg.Browserbase.APIKey, cfg.Browserbase.ProjectID),
		1, 2)

	responder := api.NewResponder(assembler, capturer, chatLLM, slackClient, cfg.LLM.SystemPrompt)

	databaseURL, err := database.LoadDatabaseURL()
	if err != nil {
		return fmt.Errorf("failed to resolve database url: %w", err)
	}
	queue, err := jobqueue.NewJobQueue(databaseURL, responder)
	if err != nil {
		return fmt.Errorf("failed to build job queue: %w", err)
	}
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	defer func() {
		if err := queue.Stop(context.Background()); err != nil {
			log.Printf("[ERROR] serve: job queue shutdown: %v", err)
		}
	}()

	zoomOAuth := zoom.NewOAuthClient(cfg.Zoom.ClientID, cfg.Zoom.ClientSecret, cfg.Zoom.RedirectURI)
	transcripts := zoom.NewTranscriptFetcher(zoom.NewTokenManager(zoomUsers, zoomOAuth))

	server := api.NewServer(api.Deps{
		Config:      cfg,
		Verifier:    slack.NewVerifier(cfg.Slack.SigningSecret),
		Policy:      policy.NewEngine(tracker),
		Tracker:     tracker,
		Queue:       queue,
		ChatLLM:     chatLLM,
		AnalysisLLM: analysisLLM,
		Capturer:    capturer,
		Docs:        docs.NewFetcher(),
		ZoomOAuth:   zoomOAuth,
		ZoomUsers:   zoomUsers,
		Transcripts: transcripts,
	})

	log.Printf("[INFO] serve: starting ContextHub on port %d", cfg.Server.Port)
	return server.Start()
}

// buildModels connects the chat model and the analysis model. The analysis
// model reuses the chat model unless [analysis] is configured with its own
// key.
func buildModels(ctx context.Context, cfg *config.Config) (api.ChatModel, api.ChatModel, error) {
	chatModel, err := llm.NewModel(ctx, llm.ConnectorOptions{
		Provider:    llm.Provider(strings.ToLower(cfg.LLM.Provider)),
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect chat model: %w", err)
	}
	chatLLM := llm.NewResilientClientWithDefaults(
		llm.NewClient(chatModel, cfg.LLM.MaxTokens, cfg.LLM.Temperature))

	if cfg.Analysis.APIKey == "" {
		return chatLLM, chatLLM, nil
	}

	analysisModel, err := llm.NewModel(ctx, llm.ConnectorOptions{
		Provider:  llm.Provider(strings.ToLower(cfg.Analysis.Provider)),
		APIKey:    cfg.Analysis.APIKey,
		Model:     cfg.Analysis.Model,
		MaxTokens: cfg.Analysis.MaxTokens,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect analysis model: %w", err)
	}
	analysisLLM := llm.NewResilientClientWithDefaults(
		llm.NewClient(analysisModel, cfg.Analysis.MaxTokens, cfg.LLM.Temperature))

	return chatLLM, analysisLLM, nil
}
