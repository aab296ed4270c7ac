package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/contexthub/internal/retry"
	"github.com/contexthub/pkg/models"
)

// Generator is the slice of Client the resilient wrapper needs. The chat
// worker and the analysis handlers hold this interface, not the concrete
// client, so tests can substitute a fake.
type Generator interface {
	Chat(ctx context.Context, systemPrompt string, turns []models.ConversationTurn) (string, error)
	Generate(ctx context.Context, prompt string) (string, error)
	AnalyzeImages(ctx context.Context, prompt string, pngImages [][]byte) (string, error)
}

// ResilientClient wraps a Generator with retry and JSON repair.
type ResilientClient struct {
	client      Generator
	retryConfig retry.Config
}

func NewResilientClient(client Generator, config retry.Config) *ResilientClient {
	return &ResilientClient{client: client, retryConfig: config}
}

func NewResilientClientWithDefaults(client Generator) *ResilientClient {
	return NewResilientClient(client, retry.LLMConfig())
}

// Chat retries the underlying chat call on transient failures.
func (rc *ResilientClient) Chat(ctx context.Context, systemPrompt string, turns []models.ConversationTurn) (string, error) {
	var out string
	result := retry.Do(ctx, rc.retryConfig, "llm chat", func() error {
		var err error
		out, err = rc.client.Chat(ctx, systemPrompt, turns)
		return err
	})
	if !result.Success {
		return "", fmt.Errorf("llm: chat failed after %d attempts: %w", result.Attempts, result.LastError)
	}
	return out, nil
}

// Generate retries a single-prompt completion.
func (rc *ResilientClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	result := retry.Do(ctx, rc.retryConfig, "llm generate", func() error {
		var err error
		out, err = rc.client.Generate(ctx, prompt)
		return err
	})
	if !result.Success {
		return "", fmt.Errorf("llm: generate failed after %d attempts: %w", result.Attempts, result.LastError)
	}
	return out, nil
}

// AnalyzeImages retries a multimodal image analysis call.
func (rc *ResilientClient) AnalyzeImages(ctx context.Context, prompt string, pngImages [][]byte) (string, error) {
	var out string
	result := retry.Do(ctx, rc.retryConfig, "llm analyze images", func() error {
		var err error
		out, err = rc.client.AnalyzeImages(ctx, prompt, pngImages)
		return err
	})
	if !result.Success {
		return "", fmt.Errorf("llm: image analysis failed after %d attempts: %w", result.Attempts, result.LastError)
	}
	return out, nil
}

// GenerateStructured asks the model for JSON and unmarshals the (repaired)
// document into target. Prose around the JSON and the usual model formatting
// mistakes are tolerated.
func (rc *ResilientClient) GenerateStructured(ctx context.Context, prompt string, target interface{}) error {
	raw, err := rc.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return decodeModelJSON(raw, target)
}

// AnalyzeImagesStructured is GenerateStructured for multimodal calls.
func (rc *ResilientClient) AnalyzeImagesStructured(ctx context.Context, prompt string, pngImages [][]byte, target interface{}) error {
	raw, err := rc.AnalyzeImages(ctx, prompt, pngImages)
	if err != nil {
		return err
	}
	return decodeModelJSON(raw, target)
}

func decodeModelJSON(raw string, target interface{}) error {
	jsonStr := ExtractJSON(raw)
	if jsonStr == "" {
		return fmt.Errorf("llm: no JSON found in model response (%d bytes)", len(raw))
	}

	repaired, stats, err := RepairJSON(jsonStr)
	if err != nil {
		return fmt.Errorf("llm: response unparseable: %w", err)
	}
	if stats.WasRepaired {
		log.Printf("[INFO] llm: repaired model JSON (%d strategies, %v)",
			len(stats.RepairStrategies), stats.RepairTime.Round(time.Microsecond))
	}

	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return fmt.Errorf("llm: failed to decode model JSON: %w", err)
	}
	return nil
}
