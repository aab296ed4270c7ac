package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/contexthub/pkg/models"
)

// Client runs chat completions against a configured model.
type Client struct {
	model       llms.Model
	maxTokens   int
	temperature float64
}

func NewClient(model llms.Model, maxTokens int, temperature float64) *Client {
	return &Client{model: model, maxTokens: maxTokens, temperature: temperature}
}

// Chat sends a system prompt plus the assembled conversation turns and
// returns the model's reply text. Turns carrying base64 screenshots become
// multimodal messages with image parts.
func (c *Client) Chat(ctx context.Context, systemPrompt string, turns []models.ConversationTurn) (string, error) {
	messages := make([]llms.MessageContent, 0, len(turns)+1)
	if systemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	}

	for _, turn := range turns {
		msg, err := turnToMessage(turn)
		if err != nil {
			return "", err
		}
		messages = append(messages, msg)
	}

	return c.generate(ctx, messages)
}

// Generate runs a single user prompt without history.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, "", []models.ConversationTurn{{Role: models.RoleUser, Text: prompt}})
}

// AnalyzeImages sends a prompt alongside the given PNG images as one
// multimodal user message. Used for slide extraction and page analysis.
func (c *Client) AnalyzeImages(ctx context.Context, prompt string, pngImages [][]byte) (string, error) {
	parts := make([]llms.ContentPart, 0, len(pngImages)+1)
	parts = append(parts, llms.TextPart(prompt))
	for _, img := range pngImages {
		parts = append(parts, llms.BinaryPart("image/png", img))
	}

	messages := []llms.MessageContent{{
		Role:  llms.ChatMessageTypeHuman,
		Parts: parts,
	}}
	return c.generate(ctx, messages)
}

func (c *Client) generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	opts := []llms.CallOption{}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	if c.temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.temperature))
	}

	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("llm: generate failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func turnToMessage(turn models.ConversationTurn) (llms.MessageContent, error) {
	role := llms.ChatMessageTypeHuman
	switch turn.Role {
	case models.RoleAssistant:
		role = llms.ChatMessageTypeAI
	case models.RoleSystem:
		role = llms.ChatMessageTypeSystem
	}

	if len(turn.Images) == 0 {
		return llms.TextParts(role, turn.Text), nil
	}

	parts := make([]llms.ContentPart, 0, len(turn.Images)+1)
	if turn.Text != "" {
		parts = append(parts, llms.TextPart(turn.Text))
	}
	for _, encoded := range turn.Images {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return llms.MessageContent{}, fmt.Errorf("llm: bad base64 image in turn: %w", err)
		}
		parts = append(parts, llms.BinaryPart("image/png", raw))
	}
	return llms.MessageContent{Role: role, Parts: parts}, nil
}
