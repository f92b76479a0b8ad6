// Package scheduler runs the relay's background jobs: the periodic
// authorization-cache reload and the inactivity pruning sweep. Jobs own
// their failure handling, talk to the cache and store only through the same
// interfaces the event pipeline uses, and never hold a lock the pipeline
// needs.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/authcache"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/metrics"
)

// PruneStore is the store capability the pruning job needs.
type PruneStore interface {
	Connected() bool
	DeleteInactiveUsers(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReloadStore is the store capability the reload job needs.
type ReloadStore interface {
	authcache.Lister
	Connected() bool
}

// Scheduler owns the background jobs. Each Run* method blocks until ctx is
// done, so callers start them in their own goroutines.
type Scheduler struct {
	log zerolog.Logger
}

// New constructs a Scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{log: log.With().Str("component", "scheduler").Logger()}
}

// RunCacheReload refreshes the authorization cache every interval, absorbing
// activations performed by other running instances. Staleness between
// instances is bounded by the interval. Reload failures keep the previous
// membership (the cache enforces that) and the loop keeps going.
func (s *Scheduler) RunCacheReload(ctx context.Context, cache *authcache.Cache, st ReloadStore, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	s.log.Info().Dur("interval", interval).Msg("cache reload job started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !st.Connected() {
				continue
			}
			if err := cache.Reload(ctx, st); err == nil {
				metrics.AuthCacheSize.Set(float64(cache.Len()))
			}
		}
	}
}

// RunPruning deletes participant activity records idle longer than
// threshold, once per interval. The first sweep is delayed so a fresh
// deployment has time to establish its store connection.
func (s *Scheduler) RunPruning(ctx context.Context, st PruneStore, initialDelay, interval, threshold time.Duration) {
	s.log.Info().
		Dur("interval", interval).
		Dur("threshold", threshold).
		Msg("activity pruning job started")

	select {
	case <-ctx.Done():
		return
	case <-time.After(initialDelay):
	}
	s.pruneOnce(ctx, st, threshold)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.pruneOnce(ctx, st, threshold)
		}
	}
}

func (s *Scheduler) pruneOnce(ctx context.Context, st PruneStore, threshold time.Duration) {
	if !st.Connected() {
		return
	}
	cutoff := time.Now().UTC().Add(-threshold)
	n, err := st.DeleteInactiveUsers(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("pruning sweep failed")
		return
	}
	if n > 0 {
		metrics.PrunedUsersTotal.Add(float64(n))
		s.log.Info().Int64("pruned", n).Msg("inactive users pruned")
	}
}
