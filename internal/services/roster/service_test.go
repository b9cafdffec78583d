package roster

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chiptourney/internal/dependencies/mocks"
	"github.com/mcoot/chiptourney/internal/events"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
	"github.com/mcoot/chiptourney/internal/storage/memory"
	"github.com/mcoot/chiptourney/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	sink    *mocks.MockSink
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(testutil.Epoch)
	s.sink = mocks.NewMockSink()
	logger := testutil.NopLogger()
	s.service = New(s.storage, s.clock, mocks.NewMockIDs(), events.NewEmitter(s.sink, s.clock, logger), logger)
	s.ctx = context.Background()
}

func (s *ServiceSuite) createTournament() *model.Tournament {
	t, err := s.service.CreateTournament(s.ctx, "Spring Open", model.DefaultChipConfig())
	s.Require().NoError(err)
	return t
}

// Tournament tests

func (s *ServiceSuite) TestCreateTournament() {
	t := s.createTournament()

	s.Equal(model.TournamentID("id-1"), t.ID)
	s.Equal(model.PhaseQualifying, t.Phase)
	s.Equal(testutil.Epoch, t.CreatedAt)

	retrieved, err := s.service.GetTournament(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("Spring Open", retrieved.Name)
}

func (s *ServiceSuite) TestCreateTournamentValidatesConfig() {
	cfg := model.DefaultChipConfig()
	cfg.FinalsCount = 0
	_, err := s.service.CreateTournament(s.ctx, "Bad", cfg)
	s.ErrorIs(err, model.ErrValidation)

	cfg = model.DefaultChipConfig()
	cfg.PairingStrategy = "swiss"
	_, err = s.service.CreateTournament(s.ctx, "Bad", cfg)
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.CreateTournament(s.ctx, " ", model.DefaultChipConfig())
	s.ErrorIs(err, model.ErrValidation)

	tournaments, err := s.service.ListTournaments(s.ctx)
	s.Require().NoError(err)
	s.Empty(tournaments)
}

func (s *ServiceSuite) TestChipConfigSource() {
	t := s.createTournament()

	cfg, err := s.service.ChipConfig(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(model.DefaultChipConfig(), cfg)

	_, err = s.service.ChipConfig(s.ctx, "missing")
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

// Registration tests

func (s *ServiceSuite) TestRegisterPlayer() {
	t := s.createTournament()

	player, err := s.service.RegisterPlayer(s.ctx, t.ID, "  Alice  ")
	s.Require().NoError(err)
	s.Equal("Alice", player.DisplayName)
	s.Equal(model.PlayerAvailable, player.Status)
	s.Equal(0, player.ChipCount)
	s.Equal(0, player.MatchesPlayed)
	s.Equal(testutil.Epoch, player.AvailableSince)

	players, err := s.service.ListPlayers(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Len(players, 1)

	s.Len(s.sink.OfType(model.EventPlayerRegistered), 1)
}

func (s *ServiceSuite) TestRegisterPlayerValidation() {
	t := s.createTournament()

	_, err := s.service.RegisterPlayer(s.ctx, t.ID, "")
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.RegisterPlayer(s.ctx, t.ID, strings.Repeat("x", MaxDisplayNameLength+1))
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.RegisterPlayer(s.ctx, "missing", "Alice")
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

func (s *ServiceSuite) TestRegisterAfterFinalizeRejected() {
	t := s.createTournament()
	t.Phase = model.PhaseFinalized
	s.Require().NoError(s.storage.Commit(s.ctx, t.ID, storage.Commit{Tournament: t}))

	_, err := s.service.RegisterPlayer(s.ctx, t.ID, "Late")
	s.ErrorIs(err, model.ErrAlreadyFinalized)
}

// Withdraw tests

func (s *ServiceSuite) TestWithdrawAvailablePlayer() {
	t := s.createTournament()
	player, err := s.service.RegisterPlayer(s.ctx, t.ID, "Alice")
	s.Require().NoError(err)

	withdrawn, err := s.service.Withdraw(s.ctx, t.ID, player.ID)
	s.Require().NoError(err)
	s.Equal(model.PlayerWithdrawn, withdrawn.Status)

	stored, err := s.service.GetPlayer(s.ctx, t.ID, player.ID)
	s.Require().NoError(err)
	s.Equal(model.PlayerWithdrawn, stored.Status)
	s.Len(s.sink.OfType(model.EventPlayerWithdrawn), 1)
}

func (s *ServiceSuite) TestWithdrawRequiresAvailable() {
	testutil.SeedTournament(s.T(), s.storage, "t1", model.DefaultChipConfig())
	testutil.SeedPlayers(s.T(), s.storage, "t1",
		testutil.PlayerSpec{ID: "busy", Status: model.PlayerInMatch},
		testutil.PlayerSpec{ID: "done", Status: model.PlayerFinalist},
	)

	_, err := s.service.Withdraw(s.ctx, "t1", "busy")
	s.ErrorIs(err, model.ErrInvalidTransition)

	_, err = s.service.Withdraw(s.ctx, "t1", "done")
	s.ErrorIs(err, model.ErrInvalidTransition)

	_, err = s.service.Withdraw(s.ctx, "t1", "ghost")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}
