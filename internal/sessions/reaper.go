package sessions

import (
	"context"
	"time"

	"github.com/haasonsaas/claudebridge/internal/observability"
)

// Reaper periodically sweeps expired sessions out of a store. It holds no
// store-wide lock across a sweep, so it never blocks in-flight requests.
type Reaper struct {
	store   *Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewReaper creates a reaper for the store. Logger and metrics may be nil.
func NewReaper(store *Store, logger *observability.Logger, metrics *observability.Metrics) *Reaper {
	return &Reaper{store: store, logger: logger, metrics: metrics}
}

// Run sweeps at the store's cleanup interval until ctx is cancelled. It is
// intended to run as a goroutine and performs one final sweep on shutdown.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.store.CleanupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.sweep(ctx)
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	removed := r.store.Sweep(r.store.now())
	active := r.store.Stats().ActiveSessions

	if r.metrics != nil {
		r.metrics.AddReapedSessions(removed)
		r.metrics.SetActiveSessions(active)
	}
	if removed > 0 && r.logger != nil {
		r.logger.Debug(ctx, "reaped expired sessions",
			"removed", removed,
			"active", active,
		)
	}
}
