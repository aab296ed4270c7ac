// Package tracking implements the time-windowed dedup/activation store.
//
// Two kinds of records live in one table: message records remember event ids
// the bot has already fully processed (short window, absorbs at-least-once
// redelivery), and thread records remember threads the bot has opted in to
// (long window, a thread cools down if inactive). Expiry is lazy: a read
// after expiry treats the record as absent. Sweeping expired rows is storage
// hygiene only, never required for correctness.
package tracking

import (
	"context"
	"time"
)

const (
	// MessageWindow is how long a processed event id is remembered. Long
	// enough to absorb redelivery, short enough not to accumulate forever.
	MessageWindow = 5 * time.Minute

	// ThreadWindow is how long a thread activation lasts without refresh.
	ThreadWindow = 24 * time.Hour
)

// Store is the dedup/activation state consumed by the response policy and
// the webhook dispatcher.
type Store interface {
	// HasProcessed reports whether eventID was already processed within the
	// message window. If it was not, the check atomically records it as
	// processed and returns false: two concurrent deliveries of the same
	// event can never both observe false.
	HasProcessed(ctx context.Context, eventID string) (bool, error)

	// ActivateThread inserts or refreshes the thread activation for
	// (channelID, threadID) with a full ThreadWindow expiry.
	ActivateThread(ctx context.Context, channelID, threadID string) error

	// IsThreadActive reports whether a live activation exists for the pair.
	IsThreadActive(ctx context.Context, channelID, threadID string) (bool, error)
}
