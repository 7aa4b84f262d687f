package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the retention purge on a cron schedule. Purge is a
// background concern only; reads already exclude expired rows.
type Sweeper struct {
	store *SQLiteStore
	cron  *cron.Cron
}

// NewSweeper schedules PurgeExpired on the given cron spec
// (e.g. "17 3 * * *" for a nightly sweep).
func NewSweeper(s *SQLiteStore, spec string) (*Sweeper, error) {
	c := cron.New()
	sw := &Sweeper{store: s, cron: c}

	_, err := c.AddFunc(spec, sw.sweep)
	if err != nil {
		return nil, err
	}
	return sw, nil
}

func (sw *Sweeper) sweep() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := sw.store.PurgeExpired(ctx)
	if err != nil {
		slog.Error("retention sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("retention sweep complete", "purged", n, "elapsed", time.Since(start))
	}
}

// Start begins the schedule in its own goroutine.
func (sw *Sweeper) Start() { sw.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (sw *Sweeper) Stop() {
	ctx := sw.cron.Stop()
	<-ctx.Done()
}
