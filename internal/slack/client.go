package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// HistoryMessage is one fetched conversation message, reduced to what context
// assembly needs.
type HistoryMessage struct {
	Text    string
	FromBot bool
	TS      string
}

// Client wraps the Slack Web API for history fetches and message posting.
type Client struct {
	api *slackapi.Client
}

// NewClient creates a Slack Web API client using the given bot token.
func NewClient(botToken string) *Client {
	return &Client{api: slackapi.New(botToken)}
}

// ChannelHistory fetches up to limit most recent messages of a channel,
// newest first, as the Slack API returns them.
func (c *Client) ChannelHistory(ctx context.Context, channelID string, limit int) ([]HistoryMessage, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slackapi.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
		Inclusive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel history: %w", err)
	}
	if !resp.Ok {
		return nil, fmt.Errorf("channel history fetch error: %s", resp.Error)
	}

	messages := make([]HistoryMessage, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		messages = append(messages, HistoryMessage{
			Text:    msg.Text,
			FromBot: msg.BotID != "",
			TS:      msg.Timestamp,
		})
	}
	return messages, nil
}

// ThreadReplies fetches up to limit replies of a thread, inclusive of the
// root message, in the chronological order the Slack API returns them.
func (c *Client) ThreadReplies(ctx context.Context, channelID, threadTS string, limit int) ([]HistoryMessage, error) {
	msgs, _, _, err := c.api.GetConversationRepliesContext(ctx, &slackapi.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Limit:     limit,
		Inclusive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread replies: %w", err)
	}

	messages := make([]HistoryMessage, 0, len(msgs))
	for _, msg := range msgs {
		messages = append(messages, HistoryMessage{
			Text:    msg.Text,
			FromBot: msg.BotID != "",
			TS:      msg.Timestamp,
		})
	}
	return messages, nil
}

// PostMessage posts text into a channel. A non-empty threadTS anchors the
// message to that thread; an empty one posts to the channel top level.
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	opts := []slackapi.MsgOption{
		slackapi.MsgOptionText(text, false),
		slackapi.MsgOptionDisableLinkUnfurl(),
	}
	if threadTS != "" {
		opts = append(opts, slackapi.MsgOptionTS(threadTS))
	}

	_, _, err := c.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	return nil
}
