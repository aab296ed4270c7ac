package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/contexthub/internal/tracking"
	"github.com/contexthub/pkg/models"
)

func TestShouldRespond_DirectMessageAlwaysTrue(t *testing.T) {
	engine := NewEngine(tracking.NewMemoryStore())
	ctx := context.Background()

	event := models.Event{Kind: models.EventDirectMessage, ChannelID: "D1", TS: "100", EventID: "100"}
	for i := 0; i < 3; i++ {
		got, err := engine.ShouldRespond(ctx, event)
		if err != nil || !got {
			t.Fatalf("DM ShouldRespond = (%v, %v), want (true, nil)", got, err)
		}
	}
}

func TestShouldRespond_MentionActivatesOwnThread(t *testing.T) {
	store := tracking.NewMemoryStore()
	engine := NewEngine(store)
	ctx := context.Background()

	// Mention with no thread context opens a self-thread at its own TS.
	mention := models.Event{Kind: models.EventMention, ChannelID: "C1", TS: "100", EventID: "100"}
	got, err := engine.ShouldRespond(ctx, mention)
	if err != nil || !got {
		t.Fatalf("mention ShouldRespond = (%v, %v), want (true, nil)", got, err)
	}

	active, _ := store.IsThreadActive(ctx, "C1", "100")
	if !active {
		t.Error("mention should have activated thread C1/100")
	}
}

func TestShouldRespond_MentionInsideThreadActivatesThatThread(t *testing.T) {
	store := tracking.NewMemoryStore()
	engine := NewEngine(store)
	ctx := context.Background()

	mention := models.Event{Kind: models.EventMention, ChannelID: "C1", TS: "105", ThreadID: "100", EventID: "105"}
	if got, err := engine.ShouldRespond(ctx, mention); err != nil || !got {
		t.Fatalf("threaded mention ShouldRespond = (%v, %v), want (true, nil)", got, err)
	}

	if active, _ := store.IsThreadActive(ctx, "C1", "100"); !active {
		t.Error("threaded mention should activate the enclosing thread, not its own TS")
	}
	if active, _ := store.IsThreadActive(ctx, "C1", "105"); active {
		t.Error("threaded mention must not activate a thread at its own TS")
	}
}

func TestShouldRespond_ThreadReplyFollowsActivation(t *testing.T) {
	store := tracking.NewMemoryStore()
	engine := NewEngine(store)
	ctx := context.Background()

	reply := models.Event{Kind: models.EventThreadReply, ChannelID: "C1", TS: "106", ThreadID: "100", EventID: "106"}

	// Never-activated thread: stay quiet.
	if got, _ := engine.ShouldRespond(ctx, reply); got {
		t.Error("reply in a never-activated thread must not be answered")
	}

	// After a mention opens the line, plain replies are answered.
	mention := models.Event{Kind: models.EventMention, ChannelID: "C1", TS: "100", EventID: "100"}
	engine.ShouldRespond(ctx, mention)

	if got, _ := engine.ShouldRespond(ctx, reply); !got {
		t.Error("reply inside an activated thread should be answered")
	}
}

func TestShouldRespond_OtherEventsIgnored(t *testing.T) {
	engine := NewEngine(tracking.NewMemoryStore())
	ctx := context.Background()

	event := models.Event{Kind: models.EventOther, ChannelID: "C1", TS: "100", EventID: "100"}
	if got, err := engine.ShouldRespond(ctx, event); err != nil || got {
		t.Errorf("other event ShouldRespond = (%v, %v), want (false, nil)", got, err)
	}
}

type failingStore struct {
	tracking.Store
	err error
}

func (f *failingStore) ActivateThread(ctx context.Context, channelID, threadID string) error {
	return f.err
}

func (f *failingStore) IsThreadActive(ctx context.Context, channelID, threadID string) (bool, error) {
	return false, f.err
}

func TestShouldRespond_StoreErrorsSurface(t *testing.T) {
	storeErr := errors.New("connection refused")
	engine := NewEngine(&failingStore{Store: tracking.NewMemoryStore(), err: storeErr})
	ctx := context.Background()

	mention := models.Event{Kind: models.EventMention, ChannelID: "C1", TS: "100"}
	if _, err := engine.ShouldRespond(ctx, mention); !errors.Is(err, storeErr) {
		t.Errorf("mention error = %v, want wrapped store error", err)
	}

	reply := models.Event{Kind: models.EventThreadReply, ChannelID: "C1", ThreadID: "100", TS: "101"}
	if _, err := engine.ShouldRespond(ctx, reply); !errors.Is(err, storeErr) {
		t.Errorf("reply error = %v, want wrapped store error", err)
	}
}
