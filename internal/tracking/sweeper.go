package tracking

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Sweepable is implemented by stores that can drop expired rows in bulk.
type Sweepable interface {
	Sweep(ctx context.Context) (int64, error)
}

// Sweeper periodically compacts expired records out of a store.
type Sweeper struct {
	cron *cron.Cron
}

// NewSweeper schedules store sweeps on the given cron spec (for example
// "@every 1h"). The sweeper has no bearing on correctness; it only keeps the
// table from growing without bound.
func NewSweeper(store Sweepable, spec string) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := store.Sweep(context.Background()); err != nil {
			log.Printf("[ERROR] tracking sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule sweep %q: %w", spec, err)
	}

	return &Sweeper{cron: c}, nil
}

// Start begins running scheduled sweeps in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts scheduling; a sweep already in flight finishes.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}
