package roster

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mcoot/chiptourney/internal/dependencies/clock"
	"github.com/mcoot/chiptourney/internal/dependencies/ids"
	"github.com/mcoot/chiptourney/internal/events"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
)

// MaxDisplayNameLength caps player display names
const MaxDisplayNameLength = 64

// maxCommitAttempts bounds retries of a roster write that lost a race
const maxCommitAttempts = 5

// Service manages tournaments and their entrants
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     ids.Generator
	emitter *events.Emitter
	logger  *slog.Logger
}

// New creates a new roster Service
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
		logger:  logger.With(slog.String("component", "roster")),
	}
}

// Ensure Service can serve as the config source
var _ model.ConfigSource = (*Service)(nil)

// CreateTournament validates the config and creates a qualifying tournament
func (s *Service) CreateTournament(ctx context.Context, name string, cfg model.ChipConfig) (*model.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("tournament name is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	tournament := &model.Tournament{
		ID:        model.TournamentID(s.ids.NewID()),
		Name:      name,
		Config:    cfg,
		Phase:     model.PhaseQualifying,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.Commit(ctx, tournament.ID, storage.Commit{Tournament: tournament}); err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.String("tournament_id", string(tournament.ID)),
		slog.String("name", name),
		slog.String("pairing_strategy", string(cfg.PairingStrategy)),
		slog.Int("finals_count", cfg.FinalsCount),
	)
	return tournament, nil
}

// GetTournament retrieves a tournament by ID
func (s *Service) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return s.storage.GetTournament(ctx, id)
}

// ListTournaments returns every tournament
func (s *Service) ListTournaments(ctx context.Context) ([]*model.Tournament, error) {
	return s.storage.ListTournaments(ctx)
}

// ChipConfig returns the immutable config of a tournament
func (s *Service) ChipConfig(ctx context.Context, id model.TournamentID) (model.ChipConfig, error) {
	tournament, err := s.storage.GetTournament(ctx, id)
	if err != nil {
		return model.ChipConfig{}, err
	}
	return tournament.Config, nil
}

// RegisterPlayer adds an available player with no chips
func (s *Service) RegisterPlayer(ctx context.Context, tid model.TournamentID, displayName string) (*model.Player, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, model.NewValidationError("display name is required")
	}
	if len(displayName) > MaxDisplayNameLength {
		return nil, model.NewValidationError("display name exceeds %d characters", MaxDisplayNameLength)
	}

	now := s.clock.Now()
	player := &model.Player{
		TournamentID:   tid,
		ID:             model.PlayerID(s.ids.NewID()),
		DisplayName:    displayName,
		Status:         model.PlayerAvailable,
		AvailableSince: now,
		RegisteredAt:   now,
		UpdatedAt:      now,
	}

	// Registration bumps the tournament row so it cannot interleave with the cutoff
	var committed bool
	for attempt := 1; attempt <= maxCommitAttempts && !committed; attempt++ {
		tournament, err := s.storage.GetTournament(ctx, tid)
		if err != nil {
			return nil, err
		}
		if tournament.IsFinalized() {
			return nil, model.ErrAlreadyFinalized
		}

		tournament.UpdatedAt = now
		err = s.storage.Commit(ctx, tid, storage.Commit{
			Tournament: tournament,
			Players:    []*model.Player{player},
		})
		switch {
		case err == nil:
			committed = true
		case errors.Is(err, model.ErrConcurrencyConflict):
			continue
		default:
			return nil, err
		}
	}
	if !committed {
		return nil, model.ErrConcurrencyConflict
	}

	s.logger.Info("player registered",
		slog.String("tournament_id", string(tid)),
		slog.String("player_id", string(player.ID)),
	)
	s.emitter.Emit(ctx, model.Event{
		Type:         model.EventPlayerRegistered,
		TournamentID: tid,
		PlayerID:     player.ID,
	})
	return player, nil
}

// Withdraw removes an available player from the pool permanently. Players
// reserved for or playing a match must finish or cancel it first.
func (s *Service) Withdraw(ctx context.Context, tid model.TournamentID, playerID model.PlayerID) (*model.Player, error) {
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		player, err := s.storage.GetPlayer(ctx, tid, playerID)
		if err != nil {
			return nil, err
		}
		if player.Status != model.PlayerAvailable {
			return nil, model.ErrInvalidTransition
		}

		player.Status = model.PlayerWithdrawn
		player.UpdatedAt = s.clock.Now()
		err = s.storage.Commit(ctx, tid, storage.Commit{Players: []*model.Player{player}})
		if errors.Is(err, model.ErrConcurrencyConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("player withdrawn",
			slog.String("tournament_id", string(tid)),
			slog.String("player_id", string(playerID)),
		)
		s.emitter.Emit(ctx, model.Event{
			Type:         model.EventPlayerWithdrawn,
			TournamentID: tid,
			PlayerID:     playerID,
		})
		return player, nil
	}
	return nil, model.ErrConcurrencyConflict
}

// GetPlayer retrieves a player by ID
func (s *Service) GetPlayer(ctx context.Context, tid model.TournamentID, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, tid, id)
}

// ListPlayers returns every player in the tournament, withdrawn included
func (s *Service) ListPlayers(ctx context.Context, tid model.TournamentID) ([]*model.Player, error) {
	return s.storage.ListPlayers(ctx, tid)
}
