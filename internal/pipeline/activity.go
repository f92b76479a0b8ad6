package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/metrics"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// ActivityStore is the store capability the recorder needs.
type ActivityStore interface {
	UpsertUser(ctx context.Context, userID int64, username string, seenAt time.Time) error
	Connected() bool
}

// ActivityRecorder is the second pipeline stage: a best-effort upsert of the
// sender's activity record for group-context events. It always proceeds —
// a failed write is logged, never a reason to hold up the event. When the
// store is known disconnected the stage is a no-op rather than queueing
// doomed writes.
type ActivityRecorder struct {
	store ActivityStore
	log   zerolog.Logger
}

// NewActivityRecorder constructs the recorder.
func NewActivityRecorder(st ActivityStore, log zerolog.Logger) *ActivityRecorder {
	return &ActivityRecorder{
		store: st,
		log:   log.With().Str("component", "activity").Logger(),
	}
}

// Name implements Stage.
func (r *ActivityRecorder) Name() string { return "activity" }

// Process implements Stage.
func (r *ActivityRecorder) Process(ctx context.Context, ev *transport.Event) bool {
	if ev.Private() || ev.SenderID == 0 {
		return true
	}
	if !r.store.Connected() {
		return true
	}

	seenAt := ev.Time
	if seenAt.IsZero() {
		seenAt = time.Now().UTC()
	}

	if err := r.store.UpsertUser(ctx, ev.SenderID, ev.SenderName, seenAt); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("upsert_user").Inc()
		r.log.Error().Err(err).
			Int64("user_id", ev.SenderID).
			Msg("activity upsert failed")
	}
	return true
}
