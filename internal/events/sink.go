// Package events delivers core events to best-effort sinks. Delivery never
// affects the outcome of the operation that produced the event.
package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mcoot/chiptourney/internal/model"
)

// Sink receives emitted events
type Sink interface {
	Emit(ctx context.Context, event model.Event) error
}

// LogSink writes every event as a structured log line
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With(slog.String("component", "events"))}
}

func (s *LogSink) Emit(ctx context.Context, event model.Event) error {
	s.logger.InfoContext(ctx, "event",
		slog.String("type", string(event.Type)),
		slog.String("tournament_id", string(event.TournamentID)),
		slog.String("match_id", string(event.MatchID)),
		slog.String("player_id", string(event.PlayerID)),
		slog.Any("payload", event.Payload),
	)
	return nil
}

// PrometheusSink counts events by type
type PrometheusSink struct {
	emitted *prometheus.CounterVec
}

// NewPrometheusSink registers the event counter with reg
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	return &PrometheusSink{
		emitted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chiptourney_events_total",
				Help: "Total number of core events emitted",
			},
			[]string{"type"},
		),
	}
}

func (s *PrometheusSink) Emit(ctx context.Context, event model.Event) error {
	s.emitted.WithLabelValues(string(event.Type)).Inc()
	return nil
}

// MultiSink fans an event out to every sink, joining their errors
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event model.Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ensure sinks implement the interface
var (
	_ Sink = (*LogSink)(nil)
	_ Sink = (*PrometheusSink)(nil)
	_ Sink = MultiSink(nil)
)
