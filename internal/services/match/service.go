package match

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/chiptourney/internal/dependencies/clock"
	"github.com/mcoot/chiptourney/internal/dependencies/ids"
	"github.com/mcoot/chiptourney/internal/events"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/ledger"
	"github.com/mcoot/chiptourney/internal/storage"
)

// MaxCommitAttempts bounds retries of a transition that lost a race
const MaxCommitAttempts = 5

// Service drives matches from pending through to a result
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     ids.Generator
	emitter *events.Emitter
	logger  *slog.Logger
}

// New creates a new match Service
func New(
	storage storage.Storage,
	clock clock.Clock,
	ids ids.Generator,
	emitter *events.Emitter,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		ids:     ids,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "match")),
	}
}

// Result is the outcome of a completed match
type Result struct {
	Match  *model.Match
	Winner *model.Player
	Loser  *model.Player
	Awards []*model.ChipAward
}

// participants is the working set of one transition attempt
type participants struct {
	tournament *model.Tournament
	match      *model.Match
	a          *model.Player
	b          *model.Player
}

// GetMatch retrieves a match by ID
func (s *Service) GetMatch(ctx context.Context, tid model.TournamentID, id model.MatchID) (*model.Match, error) {
	return s.storage.GetMatch(ctx, tid, id)
}

// ListMatches returns every match of the tournament in creation order
func (s *Service) ListMatches(ctx context.Context, tid model.TournamentID) ([]*model.Match, error) {
	return s.storage.ListMatches(ctx, tid)
}

// StartMatch moves a pending match to active and its players to in_match
func (s *Service) StartMatch(ctx context.Context, tid model.TournamentID, id model.MatchID) (*model.Match, error) {
	var started *model.Match
	err := s.transition(ctx, tid, id, func(p *participants) (storage.Commit, error) {
		if p.match.State != model.MatchPending {
			return storage.Commit{}, model.ErrInvalidTransition
		}
		for _, player := range []*model.Player{p.a, p.b} {
			if player.Status != model.PlayerReserved {
				return storage.Commit{}, model.ErrInvalidTransition
			}
		}

		now := s.clock.Now()
		p.match.State = model.MatchActive
		p.match.StartedAt = &now
		p.match.UpdatedAt = now
		for _, player := range []*model.Player{p.a, p.b} {
			player.Status = model.PlayerInMatch
			player.UpdatedAt = now
		}

		started = p.match
		return storage.Commit{
			Players: []*model.Player{p.a, p.b},
			Matches: []*model.Match{p.match},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match started",
		slog.String("tournament_id", string(tid)),
		slog.String("match_id", string(id)),
	)
	return started, nil
}

// CompleteMatch records the winner, awards both players from the tournament
// config and returns them to the pool. Awards, the state change and the
// status changes land in one commit, so a match pays out exactly once.
func (s *Service) CompleteMatch(ctx context.Context, tid model.TournamentID, id model.MatchID, winnerID model.PlayerID) (*Result, error) {
	if winnerID == "" {
		return nil, model.NewValidationError("winner is required")
	}

	var result *Result
	err := s.transition(ctx, tid, id, func(p *participants) (storage.Commit, error) {
		if !p.match.State.IsOpen() {
			return storage.Commit{}, model.ErrMatchNotActive
		}
		if !p.match.HasPlayer(winnerID) {
			return storage.Commit{}, model.NewValidationError("player %s is not in match %s", winnerID, id)
		}

		winner, loser := p.a, p.b
		if winnerID == p.b.ID {
			winner, loser = p.b, p.a
		}

		for _, player := range []*model.Player{winner, loser} {
			existing, err := s.storage.ListAwards(ctx, tid, player.ID)
			if err != nil {
				return storage.Commit{}, err
			}
			if err := ledger.CheckMatchAward(p.match, player.ID, existing); err != nil {
				return storage.Commit{}, err
			}
		}

		now := s.clock.Now()
		cfg := p.tournament.Config
		awards := []*model.ChipAward{
			ledger.Apply(winner, id, cfg.WinnerChips, model.ReasonMatchWin, model.AwardID(s.ids.NewID()), now),
			ledger.Apply(loser, id, cfg.LoserChips, model.ReasonMatchLoss, model.AwardID(s.ids.NewID()), now),
		}
		for _, player := range []*model.Player{winner, loser} {
			player.MatchesPlayed++
			player.Status = model.PlayerAvailable
			player.AvailableSince = now
		}

		p.match.State = model.MatchCompleted
		p.match.Winner = winnerID
		p.match.CompletedAt = &now
		p.match.UpdatedAt = now

		result = &Result{Match: p.match, Winner: winner, Loser: loser, Awards: awards}
		return storage.Commit{
			Players: []*model.Player{winner, loser},
			Matches: []*model.Match{p.match},
			Awards:  awards,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match completed",
		slog.String("tournament_id", string(tid)),
		slog.String("match_id", string(id)),
		slog.String("winner", string(result.Winner.ID)),
		slog.Int("winner_chips", result.Winner.ChipCount),
		slog.Int("loser_chips", result.Loser.ChipCount),
	)
	s.emitter.Emit(ctx, model.Event{
		Type:         model.EventMatchCompleted,
		TournamentID: tid,
		MatchID:      id,
		PlayerID:     result.Winner.ID,
		Payload: model.MatchCompletedPayload{
			Winner:      result.Winner.ID,
			Loser:       result.Loser.ID,
			WinnerChips: result.Awards[0].Amount,
			LoserChips:  result.Awards[1].Amount,
		},
	})
	s.emitter.Emit(ctx, model.Event{
		Type:         model.EventStandingsUpdated,
		TournamentID: tid,
		Payload:      model.StandingsUpdatedPayload{Cause: model.EventMatchCompleted},
	})
	return result, nil
}

// CancelMatch abandons an open match without a result. Both players go back
// to the pool; the pairing stays in history.
func (s *Service) CancelMatch(ctx context.Context, tid model.TournamentID, id model.MatchID) (*model.Match, error) {
	var cancelled *model.Match
	err := s.transition(ctx, tid, id, func(p *participants) (storage.Commit, error) {
		if !p.match.State.IsOpen() {
			return storage.Commit{}, model.ErrMatchNotActive
		}

		now := s.clock.Now()
		p.match.State = model.MatchCancelled
		p.match.CompletedAt = &now
		p.match.UpdatedAt = now
		for _, player := range []*model.Player{p.a, p.b} {
			player.Status = model.PlayerAvailable
			player.AvailableSince = now
			player.UpdatedAt = now
		}

		cancelled = p.match
		return storage.Commit{
			Players: []*model.Player{p.a, p.b},
			Matches: []*model.Match{p.match},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match cancelled",
		slog.String("tournament_id", string(tid)),
		slog.String("match_id", string(id)),
	)
	s.emitter.Emit(ctx, model.Event{
		Type:         model.EventMatchCancelled,
		TournamentID: tid,
		MatchID:      id,
	})
	return cancelled, nil
}

// transition loads the match and its players, lets apply mutate them and
// commits the result, retrying when another writer got there first
func (s *Service) transition(
	ctx context.Context,
	tid model.TournamentID,
	id model.MatchID,
	apply func(p *participants) (storage.Commit, error),
) error {
	for attempt := 1; attempt <= MaxCommitAttempts; attempt++ {
		p, err := s.load(ctx, tid, id)
		if err != nil {
			return err
		}
		if p.tournament.IsFinalized() {
			return model.ErrAlreadyFinalized
		}

		commit, err := apply(p)
		if err != nil {
			return err
		}

		err = s.storage.Commit(ctx, tid, commit)
		if errors.Is(err, model.ErrConcurrencyConflict) {
			s.logger.Debug("match transition conflict, retrying",
				slog.String("match_id", string(id)),
				slog.Int("attempt", attempt),
			)
			continue
		}
		return err
	}
	return model.ErrConcurrencyConflict
}

func (s *Service) load(ctx context.Context, tid model.TournamentID, id model.MatchID) (*participants, error) {
	tournament, err := s.storage.GetTournament(ctx, tid)
	if err != nil {
		return nil, err
	}
	match, err := s.storage.GetMatch(ctx, tid, id)
	if err != nil {
		return nil, err
	}
	a, err := s.storage.GetPlayer(ctx, tid, match.PlayerA)
	if err != nil {
		return nil, err
	}
	b, err := s.storage.GetPlayer(ctx, tid, match.PlayerB)
	if err != nil {
		return nil, err
	}
	return &participants{tournament: tournament, match: match, a: a, b: b}, nil
}
