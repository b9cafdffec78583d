package events

import (
	"context"
	"log/slog"

	"github.com/mcoot/chiptourney/internal/dependencies/clock"
	"github.com/mcoot/chiptourney/internal/model"
)

// Emitter stamps events and hands them to a sink, logging and swallowing
// any delivery error
type Emitter struct {
	sink   Sink
	clock  clock.Clock
	logger *slog.Logger
}

// NewEmitter creates an Emitter. A nil sink discards events.
func NewEmitter(sink Sink, clock clock.Clock, logger *slog.Logger) *Emitter {
	return &Emitter{
		sink:   sink,
		clock:  clock,
		logger: logger.With(slog.String("component", "emitter")),
	}
}

// Emit delivers the event. It never fails.
func (e *Emitter) Emit(ctx context.Context, event model.Event) {
	if e == nil || e.sink == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.clock.Now()
	}
	if err := e.sink.Emit(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "event delivery failed",
			slog.String("type", string(event.Type)),
			slog.String("tournament_id", string(event.TournamentID)),
			slog.String("error", err.Error()),
		)
	}
}
