package tracking

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestStore(start time.Time) (*MemoryStore, *time.Time) {
	clock := start
	store := NewMemoryStore()
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestHasProcessed_DedupWindow(t *testing.T) {
	store, clock := newTestStore(time.Unix(1700000000, 0))
	ctx := context.Background()

	// First delivery claims the id, second within the window is a duplicate.
	dup, err := store.HasProcessed(ctx, "ev-1")
	if err != nil || dup {
		t.Fatalf("first check = (%v, %v), want (false, nil)", dup, err)
	}

	dup, err = store.HasProcessed(ctx, "ev-1")
	if err != nil || !dup {
		t.Fatalf("second check = (%v, %v), want (true, nil)", dup, err)
	}

	// After the window elapses the id is forgotten.
	*clock = clock.Add(MessageWindow + time.Second)
	dup, err = store.HasProcessed(ctx, "ev-1")
	if err != nil || dup {
		t.Fatalf("post-expiry check = (%v, %v), want (false, nil)", dup, err)
	}
}

func TestHasProcessed_DistinctIDsIndependent(t *testing.T) {
	store, _ := newTestStore(time.Unix(1700000000, 0))
	ctx := context.Background()

	if dup, _ := store.HasProcessed(ctx, "ev-1"); dup {
		t.Fatal("ev-1 should start unprocessed")
	}
	if dup, _ := store.HasProcessed(ctx, "ev-2"); dup {
		t.Fatal("ev-2 must not be shadowed by ev-1")
	}
}

func TestHasProcessed_ConcurrentDeliveries(t *testing.T) {
	store, _ := newTestStore(time.Unix(1700000000, 0))
	ctx := context.Background()

	const deliveries = 32
	var wg sync.WaitGroup
	results := make([]bool, deliveries)

	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dup, err := store.HasProcessed(ctx, "ev-race")
			if err != nil {
				t.Errorf("HasProcessed: %v", err)
			}
			results[i] = dup
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, dup := range results {
		if !dup {
			fresh++
		}
	}
	if fresh != 1 {
		t.Errorf("exactly one delivery should win the claim, got %d", fresh)
	}
}

func TestThreadActivationWindow(t *testing.T) {
	store, clock := newTestStore(time.Unix(1700000000, 0))
	ctx := context.Background()

	active, err := store.IsThreadActive(ctx, "C1", "100")
	if err != nil || active {
		t.Fatalf("never-activated thread = (%v, %v), want (false, nil)", active, err)
	}

	if err := store.ActivateThread(ctx, "C1", "100"); err != nil {
		t.Fatalf("ActivateThread: %v", err)
	}

	// Active throughout the window.
	*clock = clock.Add(ThreadWindow - time.Minute)
	if active, _ := store.IsThreadActive(ctx, "C1", "100"); !active {
		t.Error("thread should still be active before the window ends")
	}

	// Cooled down after the window.
	*clock = clock.Add(2 * time.Minute)
	if active, _ := store.IsThreadActive(ctx, "C1", "100"); active {
		t.Error("thread should have cooled down after 24h")
	}
}

func TestThreadActivationKeyedByChannelAndThread(t *testing.T) {
	store, _ := newTestStore(time.Unix(1700000000, 0))
	ctx := context.Background()

	if err := store.ActivateThread(ctx, "C1", "100"); err != nil {
		t.Fatalf("ActivateThread: %v", err)
	}

	if active, _ := store.IsThreadActive(ctx, "C2", "100"); active {
		t.Error("activation must not leak across channels")
	}
	if active, _ := store.IsThreadActive(ctx, "C1", "200"); active {
		t.Error("activation must not leak across threads")
	}
}

func TestActivateThread_RefreshesExpiry(t *testing.T) {
	store, clock := newTestStore(time.Unix(1700000000, 0))
	ctx := context.Background()

	store.ActivateThread(ctx, "C1", "100")
	*clock = clock.Add(ThreadWindow - time.Minute)
	store.ActivateThread(ctx, "C1", "100")

	// Re-activation restarted the window.
	*clock = clock.Add(ThreadWindow - time.Minute)
	if active, _ := store.IsThreadActive(ctx, "C1", "100"); !active {
		t.Error("refresh should have extended the activation window")
	}
}

func TestSweep_Hygiene(t *testing.T) {
	store, clock := newTestStore(time.Unix(1700000000, 0))
	ctx := context.Background()

	store.HasProcessed(ctx, "ev-1")
	store.ActivateThread(ctx, "C1", "100")

	*clock = clock.Add(MessageWindow + time.Second)
	removed, err := store.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Errorf("swept %d records, want 1 (thread record still live)", removed)
	}

	// Sweeping never changes observable behavior, only storage.
	if active, _ := store.IsThreadActive(ctx, "C1", "100"); !active {
		t.Error("live thread record must survive the sweep")
	}
}
