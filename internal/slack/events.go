package slack

import (
	"encoding/json"
	"fmt"

	"github.com/contexthub/pkg/models"
)

// EventPayload is the outer envelope of a Slack Events API request.
type EventPayload struct {
	Type      string        `json:"type"`
	Event     *RawEvent     `json:"event,omitempty"`
	Challenge string        `json:"challenge,omitempty"`
	EventID   string        `json:"event_id,omitempty"`
	Token     string        `json:"token,omitempty"`
	AuthedIDs []interface{} `json:"authed_users,omitempty"`
}

// RawEvent is the inner event as Slack delivers it.
type RawEvent struct {
	Type        string `json:"type"`
	Subtype     string `json:"subtype,omitempty"`
	User        string `json:"user,omitempty"`
	Text        string `json:"text,omitempty"`
	Channel     string `json:"channel,omitempty"`
	ChannelType string `json:"channel_type,omitempty"`
	TS          string `json:"ts,omitempty"`
	ThreadTS    string `json:"thread_ts,omitempty"`
	BotID       string `json:"bot_id,omitempty"`
	EventTS     string `json:"event_ts,omitempty"`
}

// ParsePayload decodes the raw webhook body into the event envelope.
func ParsePayload(body []byte) (*EventPayload, error) {
	var payload EventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse event payload: %w", err)
	}
	return &payload, nil
}

// Classify maps a raw Slack event onto the closed EventKind variant. The
// classification happens exactly once at the boundary; everything downstream
// matches on the result instead of re-inspecting strings.
func Classify(raw *RawEvent) models.Event {
	event := models.Event{
		ChannelID: raw.Channel,
		ThreadID:  raw.ThreadTS,
		TS:        raw.TS,
		Text:      raw.Text,
		IsFromBot: raw.BotID != "",
		Subtype:   raw.Subtype,
	}

	// Prefer the server-assigned event timestamp over the user-facing message
	// timestamp: the latter can collide across distinct logical events.
	event.EventID = raw.EventTS
	if event.EventID == "" {
		event.EventID = raw.TS
	}

	switch {
	case raw.Type == "app_mention":
		event.Kind = models.EventMention
	case raw.ChannelType == "im":
		event.Kind = models.EventDirectMessage
	case raw.ThreadTS != "":
		event.Kind = models.EventThreadReply
	default:
		event.Kind = models.EventOther
	}

	return event
}
