package cutoff

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/chiptourney/internal/dependencies/clock"
	"github.com/mcoot/chiptourney/internal/events"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/tournamentlock"
	"github.com/mcoot/chiptourney/internal/storage"
)

// MaxCommitAttempts bounds retries when another writer changes the field
// between the read and the commit
const MaxCommitAttempts = 5

var tracer = otel.Tracer("chiptourney/cutoff")

// Service applies the finals cutoff
type Service struct {
	storage storage.Storage
	locks   *tournamentlock.Registry
	clock   clock.Clock
	emitter *events.Emitter
	logger  *slog.Logger
}

// New creates a new cutoff Service. locks must be the registry the queue
// uses so assignments and the cutoff exclude each other in-process.
func New(
	storage storage.Storage,
	locks *tournamentlock.Registry,
	clock clock.Clock,
	emitter *events.Emitter,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage: storage,
		locks:   locks,
		clock:   clock,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "cutoff")),
	}
}

// ApplyCutoff partitions the field into finalists and eliminated players
// and finalizes the tournament. Calling it again returns the stored result
// without writing anything.
//
// Requires no pending or active matches and every remaining player to have
// played cfg.QualificationRounds matches.
func (s *Service) ApplyCutoff(ctx context.Context, tid model.TournamentID, cfg model.ChipConfig) (*model.CutoffResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "cutoff.ApplyCutoff",
		trace.WithAttributes(
			attribute.String("tournament_id", string(tid)),
			attribute.Int("finals_count", cfg.FinalsCount),
		))
	defer span.End()

	unlock, err := s.locks.Lock(ctx, tid)
	if err != nil {
		return nil, fail(span, err)
	}
	defer unlock()

	for attempt := 1; attempt <= MaxCommitAttempts; attempt++ {
		snap, err := s.storage.Snapshot(ctx, tid)
		if err != nil {
			return nil, fail(span, err)
		}

		if snap.Tournament.IsFinalized() {
			span.SetAttributes(attribute.Bool("replayed", true))
			s.logger.Debug("cutoff already applied, replaying",
				slog.String("tournament_id", string(tid)),
			)
			if snap.Tournament.Cutoff == nil {
				return &model.CutoffResult{}, nil
			}
			return snap.Tournament.Cutoff.Clone(), nil
		}

		if err := checkReady(snap, cfg); err != nil {
			return nil, fail(span, err)
		}

		now := s.clock.Now()
		result := Partition(snap.Players, snap.Matches, cfg, now)

		commit := storage.Commit{Tournament: snap.Tournament}
		commit.Tournament.Phase = model.PhaseFinalized
		commit.Tournament.Cutoff = result
		commit.Tournament.UpdatedAt = now
		commit.Players = assignStatuses(snap.Players, result, now)

		err = s.storage.Commit(ctx, tid, commit)
		if errors.Is(err, model.ErrConcurrencyConflict) {
			s.logger.Debug("cutoff conflict, retrying",
				slog.String("tournament_id", string(tid)),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, fail(span, err)
		}

		span.SetAttributes(
			attribute.Int("finalists", len(result.Finalists)),
			attribute.Int("eliminated", len(result.Eliminated)),
			attribute.Int("tiebreaks", len(result.Tiebreaks)),
		)
		s.logger.Info("cutoff applied",
			slog.String("tournament_id", string(tid)),
			slog.Int("finalists", len(result.Finalists)),
			slog.Int("eliminated", len(result.Eliminated)),
			slog.Int("tiebreaks", len(result.Tiebreaks)),
		)
		s.emit(ctx, tid, result)
		return result.Clone(), nil
	}

	return nil, fail(span, model.ErrConcurrencyConflict)
}

// GetCutoff returns the stored result, or ErrNotFound before the cutoff
func (s *Service) GetCutoff(ctx context.Context, tid model.TournamentID) (*model.CutoffResult, error) {
	tournament, err := s.storage.GetTournament(ctx, tid)
	if err != nil {
		return nil, err
	}
	if tournament.Cutoff == nil {
		return nil, model.ErrNotFound
	}
	return tournament.Cutoff, nil
}

func checkReady(snap *storage.Snapshot, cfg model.ChipConfig) error {
	for _, m := range snap.Matches {
		if m.State.IsOpen() {
			return model.ErrMatchesInFlight
		}
	}
	for _, p := range snap.Players {
		if p.Status == model.PlayerWithdrawn {
			continue
		}
		if p.MatchesPlayed < cfg.QualificationRounds {
			return model.ErrQualificationIncomplete
		}
	}
	return nil
}

// assignStatuses moves every non-terminal player to finalist or eliminated
// and returns the rows to write
func assignStatuses(players []*model.Player, result *model.CutoffResult, now time.Time) []*model.Player {
	finalists := make(map[model.PlayerID]bool, len(result.Finalists))
	for _, id := range result.Finalists {
		finalists[id] = true
	}

	changed := make([]*model.Player, 0, len(players))
	for _, p := range players {
		if p.Status.IsTerminal() {
			continue
		}
		if finalists[p.ID] {
			p.Status = model.PlayerFinalist
		} else {
			p.Status = model.PlayerEliminated
		}
		p.UpdatedAt = now
		changed = append(changed, p)
	}
	return changed
}

func (s *Service) emit(ctx context.Context, tid model.TournamentID, result *model.CutoffResult) {
	s.emitter.Emit(ctx, model.Event{
		Type:         model.EventCutoffApplied,
		TournamentID: tid,
		Payload: model.CutoffAppliedPayload{
			Finalists:  len(result.Finalists),
			Eliminated: len(result.Eliminated),
			Tiebreaks:  len(result.Tiebreaks),
		},
	})
	s.emitter.Emit(ctx, model.Event{
		Type:         model.EventStandingsUpdated,
		TournamentID: tid,
		Payload:      model.StandingsUpdatedPayload{Cause: model.EventCutoffApplied},
	})
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
