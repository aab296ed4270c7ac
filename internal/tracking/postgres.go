package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// PostgresStore persists tracked records in the slack_tracking table.
// Atomicity of the dedup check-then-insert rides on the table's unique
// constraint over (record_type, identifier, channel_id).
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore creates a store over an existing database connection.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: time.Now,
	}
}

// HasProcessed performs the atomic dedup check. The upsert claims the event
// id if no row exists or only an expired one does; a conflict with a live row
// yields no returned id, which means a concurrent or earlier delivery already
// claimed it.
func (s *PostgresStore) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	now := s.now()
	query := `
		INSERT INTO slack_tracking (record_type, identifier, channel_id, expires_at)
		VALUES ('message', $1, '', $2)
		ON CONFLICT (record_type, identifier, channel_id)
		DO UPDATE SET expires_at = EXCLUDED.expires_at
		WHERE slack_tracking.expires_at <= $3
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query, eventID, now.Add(MessageWindow), now).Scan(&id)
	if err == sql.ErrNoRows {
		// Live row already present: this event was processed before.
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim event id: %w", err)
	}
	return false, nil
}

// ActivateThread inserts or refreshes a thread activation record.
func (s *PostgresStore) ActivateThread(ctx context.Context, channelID, threadID string) error {
	query := `
		INSERT INTO slack_tracking (record_type, identifier, channel_id, expires_at)
		VALUES ('thread', $1, $2, $3)
		ON CONFLICT (record_type, identifier, channel_id)
		DO UPDATE SET expires_at = EXCLUDED.expires_at
	`

	_, err := s.db.ExecContext(ctx, query, threadID, channelID, s.now().Add(ThreadWindow))
	if err != nil {
		return fmt.Errorf("failed to activate thread %s/%s: %w", channelID, threadID, err)
	}
	return nil
}

// IsThreadActive checks for a live thread record. The expiry comparison is
// explicit in the read path, so expired rows behave as absent whether or not
// the sweeper has removed them yet.
func (s *PostgresStore) IsThreadActive(ctx context.Context, channelID, threadID string) (bool, error) {
	query := `
		SELECT 1 FROM slack_tracking
		WHERE record_type = 'thread' AND identifier = $1 AND channel_id = $2 AND expires_at > $3
		LIMIT 1
	`

	var one int
	err := s.db.QueryRowContext(ctx, query, threadID, channelID, s.now()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check thread activation: %w", err)
	}
	return true, nil
}

// Sweep deletes expired rows. Purely operational: correctness never depends
// on it because every read path compares expires_at itself.
func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM slack_tracking WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired records: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	if removed > 0 {
		log.Printf("[INFO] tracking: swept %d expired records", removed)
	}
	return removed, nil
}

// EnsureSchema creates the tracking table and its uniqueness constraint if
// they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS slack_tracking (
			id BIGSERIAL PRIMARY KEY,
			record_type TEXT NOT NULL,
			identifier TEXT NOT NULL,
			channel_id TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (record_type, identifier, channel_id)
		)
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create slack_tracking table: %w", err)
	}
	return nil
}
