// Package bot ties the event pipeline to the feature layer. Every inbound
// event flows through here exactly once: pipeline gates first, then command
// dispatch, then the remaining feature handlers. Each event is isolated —
// a panic or failure while handling one event is logged and never takes the
// process or the stream down.
package bot

import (
	"context"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/commands"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/handlers"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/pipeline"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// Dispatcher routes admitted events to features.
type Dispatcher struct {
	pipe  *pipeline.Pipeline
	cmds  *commands.Handler
	feats *handlers.Handler
	log   zerolog.Logger
}

// New constructs a Dispatcher.
func New(pipe *pipeline.Pipeline, cmds *commands.Handler, feats *handlers.Handler, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		pipe:  pipe,
		cmds:  cmds,
		feats: feats,
		log:   log.With().Str("component", "dispatcher").Logger(),
	}
}

// HandleUpdate processes one inbound event end to end. Safe for concurrent
// use; independent events may be handled concurrently by the caller.
func (d *Dispatcher) HandleUpdate(ctx context.Context, ev *transport.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Interface("panic", r).
				Int64("update_id", ev.UpdateID).
				Bytes("stack", debug.Stack()).
				Msg("event handling panicked")
		}
	}()

	if !d.pipe.Admit(ctx, ev) {
		return
	}

	if d.cmds.Dispatch(ctx, ev) {
		return
	}
	d.feats.Handle(ctx, ev)
}
