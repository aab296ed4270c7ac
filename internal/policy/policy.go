// Package policy decides whether the bot must respond to an inbound event.
//
// The rules: direct messages are always answered; mentions are always
// answered and open (or refresh) a thread activation so later plain replies
// in the same thread keep getting answered without re-mentioning; plain
// thread replies are answered only while the thread activation is live;
// everything else is ignored.
package policy

import (
	"context"
	"fmt"

	"github.com/contexthub/internal/tracking"
	"github.com/contexthub/pkg/models"
)

// Engine evaluates the response decision for classified events. Its only
// state lives in the tracking store.
type Engine struct {
	store tracking.Store
}

// NewEngine creates a policy engine over the given tracking store.
func NewEngine(store tracking.Store) *Engine {
	return &Engine{store: store}
}

// ShouldRespond reports whether the bot responds to the event, activating the
// relevant thread as a side effect for mentions. A mention outside any thread
// activates a thread anchored at the mention's own timestamp, since the reply
// will open that thread.
func (e *Engine) ShouldRespond(ctx context.Context, event models.Event) (bool, error) {
	switch event.Kind {
	case models.EventDirectMessage:
		return true, nil

	case models.EventMention:
		threadID := event.ThreadID
		if threadID == "" {
			threadID = event.TS
		}
		if err := e.store.ActivateThread(ctx, event.ChannelID, threadID); err != nil {
			return false, fmt.Errorf("failed to activate thread: %w", err)
		}
		return true, nil

	case models.EventThreadReply:
		active, err := e.store.IsThreadActive(ctx, event.ChannelID, event.ThreadID)
		if err != nil {
			return false, fmt.Errorf("failed to check thread activation: %w", err)
		}
		return active, nil

	default:
		return false, nil
	}
}
