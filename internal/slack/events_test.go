package slack

import (
	"testing"

	"github.com/contexthub/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := map[string]struct {
		raw  RawEvent
		want models.EventKind
	}{
		"app mention": {
			raw:  RawEvent{Type: "app_mention", Channel: "C1", TS: "100"},
			want: models.EventMention,
		},
		"direct message": {
			raw:  RawEvent{Type: "message", ChannelType: "im", Channel: "D1", TS: "100"},
			want: models.EventDirectMessage,
		},
		"thread reply": {
			raw:  RawEvent{Type: "message", Channel: "C1", TS: "101", ThreadTS: "100"},
			want: models.EventThreadReply,
		},
		"plain channel message": {
			raw:  RawEvent{Type: "message", Channel: "C1", TS: "100"},
			want: models.EventOther,
		},
		"unknown event type": {
			raw:  RawEvent{Type: "reaction_added", Channel: "C1"},
			want: models.EventOther,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := Classify(&tt.raw)
			if got.Kind != tt.want {
				t.Errorf("Classify kind = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_PrefersEventTSForDedupKey(t *testing.T) {
	raw := RawEvent{Type: "message", Channel: "C1", TS: "100.1", EventTS: "100.2"}
	if got := Classify(&raw).EventID; got != "100.2" {
		t.Errorf("EventID = %q, want server-assigned event_ts", got)
	}

	raw = RawEvent{Type: "message", Channel: "C1", TS: "100.1"}
	if got := Classify(&raw).EventID; got != "100.1" {
		t.Errorf("EventID = %q, want fallback to ts", got)
	}
}

func TestClassify_BotAndSubtypeCarriedThrough(t *testing.T) {
	raw := RawEvent{Type: "message", Channel: "C1", TS: "100", BotID: "B1", Subtype: "message_changed"}
	got := Classify(&raw)
	if !got.IsFromBot {
		t.Error("expected IsFromBot for bot-authored event")
	}
	if got.Subtype != "message_changed" {
		t.Errorf("Subtype = %q, want message_changed", got.Subtype)
	}
}

func TestParsePayload(t *testing.T) {
	body := []byte(`{"type":"event_callback","event_id":"Ev1","event":{"type":"app_mention","channel":"C1","ts":"100","text":"hi"}}`)
	payload, err := ParsePayload(body)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if payload.Type != "event_callback" || payload.Event == nil || payload.Event.Channel != "C1" {
		t.Errorf("unexpected payload: %+v", payload)
	}

	if _, err := ParsePayload([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
