package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/contexthub/pkg/models"
)

// MemoryStore is an in-process Store with the same lazy-expiry semantics as
// the Postgres one. It backs tests and single-node setups that run without a
// database.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]models.TrackedRecord
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.TrackedRecord),
		now:     time.Now,
	}
}

func key(recordType models.RecordType, identifier, channelID string) string {
	return string(recordType) + "\x00" + identifier + "\x00" + channelID
}

// HasProcessed implements the atomic check-then-insert under the store mutex.
func (s *MemoryStore) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	k := key(models.RecordMessage, eventID, "")
	if rec, ok := s.records[k]; ok && !rec.Expired(now) {
		return true, nil
	}

	s.records[k] = models.TrackedRecord{
		RecordType: models.RecordMessage,
		Identifier: eventID,
		ExpiresAt:  now.Add(MessageWindow),
	}
	return false, nil
}

// ActivateThread inserts or refreshes the activation record.
func (s *MemoryStore) ActivateThread(ctx context.Context, channelID, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key(models.RecordThread, threadID, channelID)] = models.TrackedRecord{
		RecordType: models.RecordThread,
		Identifier: threadID,
		ChannelID:  channelID,
		ExpiresAt:  s.now().Add(ThreadWindow),
	}
	return nil
}

// IsThreadActive reports a live activation for the channel/thread pair.
func (s *MemoryStore) IsThreadActive(ctx context.Context, channelID, threadID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key(models.RecordThread, threadID, channelID)]
	return ok && !rec.Expired(s.now()), nil
}

// Sweep drops expired records.
func (s *MemoryStore) Sweep(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for k, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, k)
			removed++
		}
	}
	return removed, nil
}
