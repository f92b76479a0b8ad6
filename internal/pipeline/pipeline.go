// Package pipeline implements the ordered gating chain every inbound event
// passes through before any feature handler runs: authorization gate →
// activity recorder → content shield.
//
// A stage either lets the event proceed or terminates it; a dropped event is
// a normal terminal outcome, not an error. The order is significant and
// fixed: authorization must come first so unauthorized groups receive no
// side effects at all.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/metrics"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// Stage is one gating step. Process returns true when the event should
// continue down the chain and false when the event is done (dropped or fully
// handled by the stage).
type Stage interface {
	// Name identifies the stage in logs and metrics.
	Name() string
	// Process inspects the event, performs the stage's side effects, and
	// decides whether the event proceeds.
	Process(ctx context.Context, ev *transport.Event) bool
}

// Pipeline is an explicit, ordered list of stages. Composition is plain
// sequential invocation; there are no ambient "next" callbacks.
type Pipeline struct {
	stages []Stage
	log    zerolog.Logger
}

// New builds a pipeline over the given stages, run in argument order.
func New(log zerolog.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages: stages,
		log:    log.With().Str("component", "pipeline").Logger(),
	}
}

// Admit runs the event through every stage in order. It returns true when
// the event cleared all stages and should reach the feature handlers.
func (p *Pipeline) Admit(ctx context.Context, ev *transport.Event) bool {
	metrics.EventsTotal.Inc()
	for _, st := range p.stages {
		if !st.Process(ctx, ev) {
			metrics.DroppedTotal.WithLabelValues(st.Name()).Inc()
			p.log.Debug().
				Str("stage", st.Name()).
				Int64("chat_id", ev.ChatID).
				Int64("update_id", ev.UpdateID).
				Msg("event dropped")
			return false
		}
	}
	return true
}
