package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chiptourney/internal/dependencies/mocks"
	"github.com/mcoot/chiptourney/internal/events"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/ledger"
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
	s.clock = mocks.NewMockClock(testutil.Epoch.Add(time.Hour))
	s.sink = mocks.NewMockSink()
	logger := testutil.NopLogger()
	s.service = New(s.storage, s.clock, mocks.NewMockIDs(), events.NewEmitter(s.sink, s.clock, logger), logger)
	s.ctx = context.Background()

	cfg := model.DefaultChipConfig()
	cfg.WinnerChips = 3
	cfg.LoserChips = 1
	testutil.SeedTournament(s.T(), s.storage, "t1", cfg)
	testutil.SeedPlayers(s.T(), s.storage, "t1",
		testutil.PlayerSpec{ID: "alice", Chips: 4, Status: model.PlayerReserved},
		testutil.PlayerSpec{ID: "bob", Chips: 2, Status: model.PlayerReserved, WaitRank: 1},
	)
	s.seedMatch("m1", "alice", "bob", model.MatchPending)
}

func (s *ServiceSuite) seedMatch(id model.MatchID, a, b model.PlayerID, state model.MatchState) {
	testutil.SeedMatch(s.T(), s.storage, "t1", id, a, b, state)
}

func (s *ServiceSuite) player(id model.PlayerID) *model.Player {
	p, err := s.storage.GetPlayer(s.ctx, "t1", id)
	s.Require().NoError(err)
	return p
}

func (s *ServiceSuite) awardSum(id model.PlayerID) int {
	awards, err := s.storage.ListAwards(s.ctx, "t1", id)
	s.Require().NoError(err)
	total := 0
	for _, a := range awards {
		total += a.Amount
	}
	return total
}

func (s *ServiceSuite) TestStartMatch() {
	m, err := s.service.StartMatch(s.ctx, "t1", "m1")
	s.Require().NoError(err)
	s.Equal(model.MatchActive, m.State)
	s.Require().NotNil(m.StartedAt)

	s.Equal(model.PlayerInMatch, s.player("alice").Status)
	s.Equal(model.PlayerInMatch, s.player("bob").Status)

	_, err = s.service.StartMatch(s.ctx, "t1", "m1")
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *ServiceSuite) TestCompleteMatchAwardsBothPlayers() {
	_, err := s.service.StartMatch(s.ctx, "t1", "m1")
	s.Require().NoError(err)

	result, err := s.service.CompleteMatch(s.ctx, "t1", "m1", "bob")
	s.Require().NoError(err)
	s.Equal(model.MatchCompleted, result.Match.State)
	s.Equal(model.PlayerID("bob"), result.Match.Winner)
	s.Equal(model.PlayerID("alice"), result.Match.Loser())

	bob := s.player("bob")
	s.Equal(5, bob.ChipCount)
	s.Equal(1, bob.MatchesPlayed)
	s.Equal(model.PlayerAvailable, bob.Status)
	s.True(bob.AvailableSince.After(testutil.Epoch))

	alice := s.player("alice")
	s.Equal(5, alice.ChipCount)
	s.Equal(1, alice.MatchesPlayed)
	s.Equal(model.PlayerAvailable, alice.Status)

	s.Equal(bob.ChipCount, s.awardSum("bob"))
	s.Equal(alice.ChipCount, s.awardSum("alice"))

	awards, err := s.storage.ListAwards(s.ctx, "t1", "bob")
	s.Require().NoError(err)
	last := awards[len(awards)-1]
	s.Equal(model.ReasonMatchWin, last.Reason)
	s.Equal(model.MatchID("m1"), last.MatchID)
	s.False(last.Manual)

	completed := s.sink.OfType(model.EventMatchCompleted)
	s.Require().Len(completed, 1)
	payload, ok := completed[0].Payload.(model.MatchCompletedPayload)
	s.Require().True(ok)
	s.Equal(3, payload.WinnerChips)
	s.Equal(1, payload.LoserChips)
	s.Len(s.sink.OfType(model.EventStandingsUpdated), 1)
}

func (s *ServiceSuite) TestCompletePendingMatchDirectly() {
	_, err := s.service.CompleteMatch(s.ctx, "t1", "m1", "alice")
	s.Require().NoError(err)
	s.Equal(7, s.player("alice").ChipCount)
}

func (s *ServiceSuite) TestCompleteTwiceAwardsOnce() {
	_, err := s.service.CompleteMatch(s.ctx, "t1", "m1", "alice")
	s.Require().NoError(err)

	_, err = s.service.CompleteMatch(s.ctx, "t1", "m1", "alice")
	s.ErrorIs(err, model.ErrMatchNotActive)
	s.Equal(7, s.player("alice").ChipCount)
	s.Equal(1, s.player("alice").MatchesPlayed)
}

func (s *ServiceSuite) TestCompleteRejectsMatchAlreadyCredited() {
	// A stray award naming m1 blocks completion rather than paying twice
	s.Require().NoError(s.storage.Commit(s.ctx, "t1", storage.Commit{
		Awards: []*model.ChipAward{{
			ID:           "stray",
			TournamentID: "t1",
			MatchID:      "m1",
			PlayerID:     "bob",
			Reason:       model.ReasonMatchLoss,
			Timestamp:    testutil.Epoch,
		}},
	}))

	_, err := s.service.CompleteMatch(s.ctx, "t1", "m1", "alice")
	s.ErrorIs(err, model.ErrValidation)

	m, err := s.service.GetMatch(s.ctx, "t1", "m1")
	s.Require().NoError(err)
	s.Equal(model.MatchPending, m.State)
	s.Equal(4, s.player("alice").ChipCount)
}

func (s *ServiceSuite) TestConcurrentCompletionsAwardOnce() {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.CompleteMatch(s.ctx, "t1", "m1", "alice")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			s.True(errors.Is(err, model.ErrMatchNotActive) || errors.Is(err, model.ErrConcurrencyConflict), "unexpected error %v", err)
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(7, s.player("alice").ChipCount)
	s.Equal(7, s.awardSum("alice"))
}

func (s *ServiceSuite) TestCompleteRejectsOutsider() {
	_, err := s.service.CompleteMatch(s.ctx, "t1", "m1", "carol")
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.CompleteMatch(s.ctx, "t1", "m1", "")
	s.ErrorIs(err, model.ErrValidation)
	s.Equal(model.PlayerReserved, s.player("alice").Status)
}

func (s *ServiceSuite) TestCompleteUnknownMatch() {
	_, err := s.service.CompleteMatch(s.ctx, "t1", "missing", "alice")
	s.ErrorIs(err, model.ErrMatchNotFound)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *ServiceSuite) TestLoserAwardRespectsFloor() {
	t, err := s.storage.GetTournament(s.ctx, "t1")
	s.Require().NoError(err)
	t.Config.LoserChips = 0
	s.Require().NoError(s.storage.Commit(s.ctx, "t1", storage.Commit{Tournament: t}))

	result, err := s.service.CompleteMatch(s.ctx, "t1", "m1", "alice")
	s.Require().NoError(err)
	s.Equal(0, result.Awards[1].Amount)
	s.Equal(2, s.player("bob").ChipCount)
}

func (s *ServiceSuite) TestCancelMatch() {
	_, err := s.service.StartMatch(s.ctx, "t1", "m1")
	s.Require().NoError(err)

	m, err := s.service.CancelMatch(s.ctx, "t1", "m1")
	s.Require().NoError(err)
	s.Equal(model.MatchCancelled, m.State)

	alice := s.player("alice")
	s.Equal(model.PlayerAvailable, alice.Status)
	s.Equal(4, alice.ChipCount)
	s.Equal(0, alice.MatchesPlayed)

	history, err := s.storage.GetPairingHistory(s.ctx, "t1")
	s.Require().NoError(err)
	s.True(history.Contains("alice", "bob"))

	_, err = s.service.CancelMatch(s.ctx, "t1", "m1")
	s.ErrorIs(err, model.ErrMatchNotActive)
	s.Len(s.sink.OfType(model.EventMatchCancelled), 1)
}

func (s *ServiceSuite) TestFinalizedTournamentRejectsTransitions() {
	t, err := s.storage.GetTournament(s.ctx, "t1")
	s.Require().NoError(err)
	t.Phase = model.PhaseFinalized
	s.Require().NoError(s.storage.Commit(s.ctx, "t1", storage.Commit{Tournament: t}))

	_, err = s.service.CompleteMatch(s.ctx, "t1", "m1", "alice")
	s.ErrorIs(err, model.ErrAlreadyFinalized)
}

func (s *ServiceSuite) TestLedgerInvariantHoldsAfterMatchesAndAdjustments() {
	logger := testutil.NopLogger()
	adjustmentIDs := mocks.NewMockIDs()
	adjustmentIDs.Prefix = "adj"
	ledgerService := ledger.New(s.storage, s.clock, adjustmentIDs, events.NewEmitter(s.sink, s.clock, logger), logger)

	_, err := s.service.CompleteMatch(s.ctx, "t1", "m1", "bob")
	s.Require().NoError(err)
	_, err = ledgerService.AdjustChips(s.ctx, "t1", "alice", -100, "penalty")
	s.Require().NoError(err)

	discrepancies, err := ledgerService.Reconcile(s.ctx, "t1")
	s.Require().NoError(err)
	s.Empty(discrepancies)
	s.Equal(0, s.player("alice").ChipCount)
}
