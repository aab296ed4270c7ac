// Package llm wraps the langchaingo model providers behind a small chat
// client used by the Slack responder and the document analysis endpoints.
package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// ConnectorOptions configures a model connection.
type ConnectorOptions struct {
	Provider    Provider
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// NewModel builds a langchaingo model for the given provider.
func NewModel(ctx context.Context, options ConnectorOptions) (llms.Model, error) {
	if options.APIKey == "" {
		return nil, fmt.Errorf("llm: missing API key for provider %s", options.Provider)
	}

	log.Debug().
		Str("provider", string(options.Provider)).
		Str("model", options.Model).
		Msg("Creating LLM connector")

	switch options.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithModel(options.Model),
			openai.WithToken(options.APIKey),
		}
		if options.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(options.BaseURL))
		}
		return openai.New(opts...)
	case ProviderAnthropic:
		return anthropic.New(
			anthropic.WithToken(options.APIKey),
			anthropic.WithModel(options.Model),
		)
	case ProviderGemini:
		model, err := googleai.New(ctx, googleai.WithAPIKey(options.APIKey))
		if err != nil {
			return nil, fmt.Errorf("llm: failed to create Gemini model: %w", err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider: %s", options.Provider)
	}
}
