package models

import (
	"time"
)

// Event classification

// EventKind is a closed classification of inbound chat events, assigned once
// at the webhook boundary so downstream code never switches on raw strings.
type EventKind int

const (
	// EventOther is anything the bot has no interest in (channel chatter,
	// join/leave noise, unknown event types).
	EventOther EventKind = iota
	// EventMention is a message that explicitly addresses the bot.
	EventMention
	// EventThreadReply is a plain reply inside an existing thread.
	EventThreadReply
	// EventDirectMessage is a 1:1 message to the bot.
	EventDirectMessage
)

func (k EventKind) String() string {
	switch k {
	case EventMention:
		return "mention"
	case EventThreadReply:
		return "thread_reply"
	case EventDirectMessage:
		return "direct_message"
	default:
		return "other"
	}
}

// Event is an inbound chat notification, immutable once received.
type Event struct {
	Kind      EventKind `json:"kind"`
	ChannelID string    `json:"channel_id"`
	ThreadID  string    `json:"thread_id,omitempty"` // root timestamp, empty outside threads
	EventID   string    `json:"event_id"`            // server-assigned id, preferred dedup key
	TS        string    `json:"ts"`                  // message timestamp
	Text      string    `json:"text"`
	IsFromBot bool      `json:"is_from_bot"`
	Subtype   string    `json:"subtype,omitempty"` // edits, deletes, joins
}

// Tracking records

// RecordType distinguishes the two kinds of tracked state.
type RecordType string

const (
	// RecordMessage marks an event id as already processed (dedup).
	RecordMessage RecordType = "message"
	// RecordThread marks a thread the bot has opted in to.
	RecordThread RecordType = "thread"
)

// TrackedRecord is a time-windowed dedup/activation entry. A record whose
// ExpiresAt has passed is treated as absent on read; no sweep is needed for
// correctness.
type TrackedRecord struct {
	RecordType RecordType `json:"record_type" db:"record_type"`
	Identifier string     `json:"identifier" db:"identifier"`
	ChannelID  string     `json:"channel_id" db:"channel_id"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the record is logically dead at the given instant.
func (r TrackedRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Conversation turns

// Role identifies the author side of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationTurn is one entry of the prompt history sent to the language
// model. Built per request, discarded after the call.
type ConversationTurn struct {
	Role   Role     `json:"role"`
	Text   string   `json:"content"`
	Images []string `json:"images,omitempty"` // base64-encoded screenshots
}

// Capture results

// PageScreenshot is one captured slide page.
type PageScreenshot struct {
	PageNumber  int    `json:"pageNumber"`
	Base64Image string `json:"base64Image"`
}

// DeckCaptureResult reports a parallel deck capture, distinguishing partial
// success from total failure so callers can decide whether partial is
// acceptable.
type DeckCaptureResult struct {
	Screenshots []PageScreenshot `json:"screenshots"`
	Captured    int              `json:"captured"`
	Total       int              `json:"total"`
}

// PageExtraction is the vision-extraction result for one slide page.
type PageExtraction struct {
	PageNumber int    `json:"pageNumber"`
	Text       string `json:"text,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Zoom OAuth

// ZoomUser is a persisted OAuth token pair keyed by the external Zoom user id.
type ZoomUser struct {
	ZoomUserID     string    `json:"zoom_user_id" db:"zoom_user_id"`
	Email          string    `json:"email" db:"email"`
	AccessToken    string    `json:"-" db:"access_token"`
	RefreshToken   string    `json:"-" db:"refresh_token"`
	TokenExpiresAt time.Time `json:"token_expires_at" db:"token_expires_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
