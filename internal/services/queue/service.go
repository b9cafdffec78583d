package queue

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/chiptourney/internal/dependencies/clock"
	"github.com/mcoot/chiptourney/internal/dependencies/ids"
	"github.com/mcoot/chiptourney/internal/events"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/pairing"
	"github.com/mcoot/chiptourney/internal/services/stats"
	"github.com/mcoot/chiptourney/internal/services/tournamentlock"
	"github.com/mcoot/chiptourney/internal/storage"
)

// MaxReservationAttempts bounds retries of a reservation that lost a race
const MaxReservationAttempts = 5

var tracer = otel.Tracer("chiptourney/queue")

// Assignment identifies a newly created match
type Assignment struct {
	MatchID   model.MatchID
	PlayerAID model.PlayerID
	PlayerBID model.PlayerID
	Round     int
}

// Service owns player availability and match creation
type Service struct {
	storage  storage.Storage
	resolver *pairing.Resolver
	ratings  model.RatingSource
	locks    *tournamentlock.Registry
	stats    *stats.Service
	clock    clock.Clock
	ids      ids.Generator
	emitter  *events.Emitter
	logger   *slog.Logger
}

// New creates a new queue Service. ratings may be nil, in which case the
// rating strategy sees no rated players and always falls back to random.
func New(
	storage storage.Storage,
	resolver *pairing.Resolver,
	ratings model.RatingSource,
	locks *tournamentlock.Registry,
	stats *stats.Service,
	clock clock.Clock,
	ids ids.Generator,
	emitter *events.Emitter,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:  storage,
		resolver: resolver,
		ratings:  ratings,
		locks:    locks,
		stats:    stats,
		clock:    clock,
		ids:      ids,
		emitter:  emitter,
		logger:   logger.With(slog.String("component", "queue")),
	}
}

// AssignNext reserves two available players and creates a pending match.
// Returns ErrQueueExhausted when fewer than two players are available and
// ErrPairingConstraint when no legal pair remains.
func (s *Service) AssignNext(ctx context.Context, tid model.TournamentID, cfg model.ChipConfig) (*Assignment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "queue.AssignNext",
		trace.WithAttributes(attribute.String("tournament_id", string(tid))))
	defer span.End()

	unlock, err := s.locks.Lock(ctx, tid)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	defer unlock()

	assignment, err := s.assignLocked(ctx, tid, cfg)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	s.emitAssigned(ctx, tid, assignment)
	return assignment, nil
}

// AssignBatch assigns up to count matches under one hold of the tournament
// lock. Running out of players or legal pairs ends the batch early and is
// not an error; any other failure returns the matches created so far.
func (s *Service) AssignBatch(ctx context.Context, tid model.TournamentID, cfg model.ChipConfig, count int) ([]Assignment, error) {
	if count < 0 {
		return nil, model.NewValidationError("count must be non-negative")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "queue.AssignBatch",
		trace.WithAttributes(
			attribute.String("tournament_id", string(tid)),
			attribute.Int("requested", count),
		))
	defer span.End()

	assignments := make([]Assignment, 0, count)
	if count == 0 {
		return assignments, nil
	}

	unlock, err := s.locks.Lock(ctx, tid)
	if err != nil {
		return assignments, recordSpanError(span, err)
	}
	defer unlock()

	for len(assignments) < count {
		assignment, err := s.assignLocked(ctx, tid, cfg)
		if errors.Is(err, model.ErrQueueExhausted) || errors.Is(err, model.ErrPairingConstraint) {
			s.logger.Debug("batch stopped early",
				slog.String("tournament_id", string(tid)),
				slog.Int("created", len(assignments)),
				slog.String("reason", err.Error()),
			)
			break
		}
		if err != nil {
			return assignments, recordSpanError(span, err)
		}
		assignments = append(assignments, *assignment)
		s.emitAssigned(ctx, tid, assignment)
	}

	span.SetAttributes(attribute.Int("created", len(assignments)))
	return assignments, nil
}

// GetQueueStats returns the read-only pool rollup
func (s *Service) GetQueueStats(ctx context.Context, tid model.TournamentID) (*stats.QueueStats, error) {
	return s.stats.GetQueueStats(ctx, tid)
}

// assignLocked runs one reservation. The caller holds the tournament lock;
// the commit still compare-and-swaps every row it touches, so writers in
// other processes are detected and the attempt is retried.
func (s *Service) assignLocked(ctx context.Context, tid model.TournamentID, cfg model.ChipConfig) (*Assignment, error) {
	for attempt := 1; attempt <= MaxReservationAttempts; attempt++ {
		snap, err := s.storage.Snapshot(ctx, tid)
		if err != nil {
			return nil, err
		}
		if snap.Tournament.IsFinalized() {
			return nil, model.ErrAlreadyFinalized
		}

		pool := make([]*model.Player, 0, len(snap.Players))
		for _, p := range snap.Players {
			if p.Status == model.PlayerAvailable {
				pool = append(pool, p)
			}
		}
		if len(pool) < 2 {
			return nil, model.ErrQueueExhausted
		}

		candidates := s.candidates(ctx, tid, cfg.PairingStrategy, pool)
		pair, ok, err := s.resolver.SelectPair(cfg.PairingStrategy, candidates, snap.History, cfg.AllowDuplicatePairings)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, model.ErrPairingConstraint
		}

		now := s.clock.Now()
		match := &model.Match{
			TournamentID: tid,
			ID:           model.MatchID(s.ids.NewID()),
			PlayerA:      pair.A.ID,
			PlayerB:      pair.B.ID,
			State:        model.MatchPending,
			Round:        1 + max(pair.A.MatchesPlayed, pair.B.MatchesPlayed),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		for _, p := range []*model.Player{pair.A, pair.B} {
			p.Status = model.PlayerReserved
			p.UpdatedAt = now
		}
		snap.Tournament.UpdatedAt = now

		err = s.storage.Commit(ctx, tid, storage.Commit{
			Tournament: snap.Tournament,
			Players:    []*model.Player{pair.A, pair.B},
			Matches:    []*model.Match{match},
			Pairs:      []model.PairKey{pair.Key()},
		})
		if errors.Is(err, model.ErrConcurrencyConflict) {
			s.logger.Debug("reservation conflict, retrying",
				slog.String("tournament_id", string(tid)),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("match assigned",
			slog.String("tournament_id", string(tid)),
			slog.String("match_id", string(match.ID)),
			slog.String("player_a", string(match.PlayerA)),
			slog.String("player_b", string(match.PlayerB)),
			slog.Int("round", match.Round),
		)
		return &Assignment{
			MatchID:   match.ID,
			PlayerAID: match.PlayerA,
			PlayerBID: match.PlayerB,
			Round:     match.Round,
		}, nil
	}

	s.logger.Warn("reservation attempts exhausted",
		slog.String("tournament_id", string(tid)),
		slog.Int("attempts", MaxReservationAttempts),
	)
	return nil, model.ErrConcurrencyConflict
}

// candidates wraps the pool for the strategy, looking up ratings only when
// the rating strategy needs them. A failed lookup leaves the player unrated.
func (s *Service) candidates(ctx context.Context, tid model.TournamentID, strategy model.PairingStrategy, pool []*model.Player) []pairing.Candidate {
	candidates := make([]pairing.Candidate, len(pool))
	for i, p := range pool {
		candidates[i] = pairing.Candidate{Player: p}
		if strategy != model.PairingRating || s.ratings == nil {
			continue
		}
		rating, ok, err := s.ratings.Rating(ctx, tid, p.ID)
		if err != nil {
			s.logger.Warn("rating lookup failed",
				slog.String("tournament_id", string(tid)),
				slog.String("player_id", string(p.ID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		candidates[i].Rating = rating
		candidates[i].HasRating = ok
	}
	return candidates
}

func (s *Service) emitAssigned(ctx context.Context, tid model.TournamentID, a *Assignment) {
	s.emitter.Emit(ctx, model.Event{
		Type:         model.EventMatchAssigned,
		TournamentID: tid,
		MatchID:      a.MatchID,
		Payload: model.MatchAssignedPayload{
			PlayerA: a.PlayerAID,
			PlayerB: a.PlayerBID,
			Round:   a.Round,
		},
	})
}

// recordSpanError marks the span failed for unexpected errors and returns err.
// Exhausted pools are an expected outcome and leave the span status unset.
func recordSpanError(span trace.Span, err error) error {
	if errors.Is(err, model.ErrQueueExhausted) || errors.Is(err, model.ErrPairingConstraint) {
		span.SetAttributes(attribute.String("outcome", err.Error()))
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
