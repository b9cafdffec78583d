package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/chiptourney/internal/dependencies/clock"
	"github.com/mcoot/chiptourney/internal/dependencies/ids"
	"github.com/mcoot/chiptourney/internal/events"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
)

// MaxCommitAttempts bounds retries of a ledger write that lost a race
const MaxCommitAttempts = 5

// Service maintains the append-only chip ledger and the running totals
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     ids.Generator
	emitter *events.Emitter
	logger  *slog.Logger
}

// New creates a new ledger Service
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
		logger:  logger.With(slog.String("component", "ledger")),
	}
}

// Adjustment is the result of a manual chip adjustment
type Adjustment struct {
	PlayerID      model.PlayerID
	NewChipCount  int
	MatchesPlayed int
	Award         *model.ChipAward
}

// Apply adds requested chips to the player's total with the floor at zero
// and returns the award recording the change. The player is modified in place.
func Apply(player *model.Player, matchID model.MatchID, requested int, reason string, id model.AwardID, now time.Time) *model.ChipAward {
	applied := requested
	if player.ChipCount+applied < 0 {
		applied = -player.ChipCount
	}
	player.ChipCount += applied
	player.UpdatedAt = now

	return &model.ChipAward{
		ID:              id,
		TournamentID:    player.TournamentID,
		MatchID:         matchID,
		PlayerID:        player.ID,
		Amount:          applied,
		RequestedAmount: requested,
		Reason:          reason,
		Manual:          model.IsManualReason(reason),
		Timestamp:       now,
	}
}

// CheckMatchAward reports whether playerID may be credited for m given the
// player's existing awards: the player must have played in the match and
// must not already hold an award for it. Match completion applies the same
// rule inside its own commit.
func CheckMatchAward(m *model.Match, playerID model.PlayerID, existing []*model.ChipAward) error {
	if !m.HasPlayer(playerID) {
		return model.NewValidationError("player %s is not in match %s", playerID, m.ID)
	}
	for _, a := range existing {
		if a.MatchID == m.ID && a.PlayerID == playerID {
			return model.NewValidationError("player %s already awarded for match %s", playerID, m.ID)
		}
	}
	return nil
}

// RecordAward appends an award and updates the player's total atomically.
// It is the entry point for scoring that happens outside the match
// lifecycle; match completion pays out through match.Service instead.
// Negative amounts are only accepted with a manual reason. An award naming
// a match requires that match to be completed, the player to have played in
// it, and no earlier award for the same match and player.
func (s *Service) RecordAward(
	ctx context.Context,
	tid model.TournamentID,
	matchID model.MatchID,
	playerID model.PlayerID,
	amount int,
	reason string,
) (*model.ChipAward, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, model.NewValidationError("reason is required")
	}
	if amount < 0 && !model.IsManualReason(reason) {
		return nil, model.NewValidationError("negative award %d requires a manual reason", amount)
	}

	award, player, err := s.write(ctx, tid, matchID, playerID, amount, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("award recorded",
		slog.String("tournament_id", string(tid)),
		slog.String("player_id", string(playerID)),
		slog.String("match_id", string(matchID)),
		slog.Int("amount", award.Amount),
		slog.Int("chip_count", player.ChipCount),
	)
	s.emitAdjusted(ctx, award, player)
	return award, nil
}

// AdjustChips applies a manual out-of-band change. The reason is stored
// with the manual prefix; the resulting total never drops below zero.
func (s *Service) AdjustChips(
	ctx context.Context,
	tid model.TournamentID,
	playerID model.PlayerID,
	delta int,
	reason string,
) (*Adjustment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, model.NewValidationError("reason is required")
	}
	if delta == 0 {
		return nil, model.NewValidationError("delta must be non-zero")
	}

	award, player, err := s.write(ctx, tid, "", playerID, delta, model.ManualReason(reason))
	if err != nil {
		return nil, err
	}

	s.logger.Info("chips adjusted",
		slog.String("tournament_id", string(tid)),
		slog.String("player_id", string(playerID)),
		slog.Int("requested", delta),
		slog.Int("applied", award.Amount),
		slog.Int("chip_count", player.ChipCount),
		slog.String("reason", award.Reason),
	)
	s.emitAdjusted(ctx, award, player)

	return &Adjustment{
		PlayerID:      player.ID,
		NewChipCount:  player.ChipCount,
		MatchesPlayed: player.MatchesPlayed,
		Award:         award,
	}, nil
}

// write performs the read-modify-write of one player's total, retrying on
// version conflicts
func (s *Service) write(
	ctx context.Context,
	tid model.TournamentID,
	matchID model.MatchID,
	playerID model.PlayerID,
	amount int,
	reason string,
) (*model.ChipAward, *model.Player, error) {
	for attempt := 1; attempt <= MaxCommitAttempts; attempt++ {
		tournament, err := s.storage.GetTournament(ctx, tid)
		if err != nil {
			return nil, nil, err
		}
		if tournament.IsFinalized() {
			return nil, nil, model.ErrAlreadyFinalized
		}

		player, err := s.storage.GetPlayer(ctx, tid, playerID)
		if err != nil {
			return nil, nil, err
		}
		// Checked on every attempt: a racing award for the same match bumps
		// the player's version, so the retry sees it here
		if matchID != "" {
			if err := s.checkMatch(ctx, tid, matchID, playerID); err != nil {
				return nil, nil, err
			}
		}

		award := Apply(player, matchID, amount, reason, model.AwardID(s.ids.NewID()), s.clock.Now())
		err = s.storage.Commit(ctx, tid, storage.Commit{
			Players: []*model.Player{player},
			Awards:  []*model.ChipAward{award},
		})
		if errors.Is(err, model.ErrConcurrencyConflict) {
			s.logger.Debug("ledger write conflict, retrying",
				slog.String("player_id", string(playerID)),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return award, player, nil
	}
	return nil, nil, model.ErrConcurrencyConflict
}

func (s *Service) checkMatch(ctx context.Context, tid model.TournamentID, matchID model.MatchID, playerID model.PlayerID) error {
	m, err := s.storage.GetMatch(ctx, tid, matchID)
	if err != nil {
		return err
	}
	if m.State != model.MatchCompleted {
		return model.NewValidationError("match %s is %s, not completed", matchID, m.State)
	}
	existing, err := s.storage.ListAwards(ctx, tid, playerID)
	if err != nil {
		return err
	}
	return CheckMatchAward(m, playerID, existing)
}

func (s *Service) emitAdjusted(ctx context.Context, award *model.ChipAward, player *model.Player) {
	s.emitter.Emit(ctx, model.Event{
		Type:         model.EventChipsAdjusted,
		TournamentID: award.TournamentID,
		MatchID:      award.MatchID,
		PlayerID:     award.PlayerID,
		Payload: model.ChipsAdjustedPayload{
			Requested:    award.RequestedAmount,
			Applied:      award.Amount,
			NewChipCount: player.ChipCount,
			Reason:       award.Reason,
		},
	})
	s.emitter.Emit(ctx, model.Event{
		Type:         model.EventStandingsUpdated,
		TournamentID: award.TournamentID,
		Payload:      model.StandingsUpdatedPayload{Cause: model.EventChipsAdjusted},
	})
}

// Awards returns a player's audit trail in append order
func (s *Service) Awards(ctx context.Context, tid model.TournamentID, playerID model.PlayerID) ([]*model.ChipAward, error) {
	if _, err := s.storage.GetPlayer(ctx, tid, playerID); err != nil {
		return nil, err
	}
	return s.storage.ListAwards(ctx, tid, playerID)
}
