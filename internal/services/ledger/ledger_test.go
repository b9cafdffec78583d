package ledger

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chiptourney/internal/dependencies/mocks"
	"github.com/mcoot/chiptourney/internal/events"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
	"github.com/mcoot/chiptourney/internal/storage/memory"
	"github.com/mcoot/chiptourney/internal/testutil"
)

type LedgerSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	sink    *mocks.MockSink
	service *Service
	ctx     context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(testutil.Epoch)
	s.sink = mocks.NewMockSink()
	logger := testutil.NopLogger()
	emitter := events.NewEmitter(s.sink, s.clock, logger)
	s.service = New(s.storage, s.clock, mocks.NewMockIDs(), emitter, logger)
	s.ctx = context.Background()

	testutil.SeedTournament(s.T(), s.storage, "t1", model.DefaultChipConfig())
}

func (s *LedgerSuite) player(id model.PlayerID) *model.Player {
	p, err := s.storage.GetPlayer(s.ctx, "t1", id)
	s.Require().NoError(err)
	return p
}

func (s *LedgerSuite) assertInvariant() {
	discrepancies, err := s.service.Reconcile(s.ctx, "t1")
	s.Require().NoError(err)
	s.Empty(discrepancies)
}

// RecordAward tests

func (s *LedgerSuite) TestRecordAwardAddsChips() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	testutil.SeedMatch(s.T(), s.storage, "t1", "m1", "alice", "bob", model.MatchCompleted)

	award, err := s.service.RecordAward(s.ctx, "t1", "m1", "alice", 3, model.ReasonMatchWin)
	s.Require().NoError(err)
	s.Equal(3, award.Amount)
	s.Equal(model.MatchID("m1"), award.MatchID)
	s.False(award.Manual)

	s.Equal(3, s.player("alice").ChipCount)
	s.assertInvariant()
}

func (s *LedgerSuite) TestRecordAwardRejectsNegativeMatchAward() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.PlayerSpec{ID: "alice", Chips: 5})

	_, err := s.service.RecordAward(s.ctx, "t1", "m1", "alice", -2, model.ReasonMatchLoss)
	s.ErrorIs(err, model.ErrValidation)

	s.Equal(5, s.player("alice").ChipCount)
	awards, err := s.service.Awards(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	s.Len(awards, 1, "only the seed award")
}

func (s *LedgerSuite) TestRecordAwardAcceptsNegativeManualAward() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.PlayerSpec{ID: "alice", Chips: 5})

	award, err := s.service.RecordAward(s.ctx, "t1", "", "alice", -2, "manual: scoring correction")
	s.Require().NoError(err)
	s.True(award.Manual)
	s.Equal(3, s.player("alice").ChipCount)
}

func (s *LedgerSuite) TestRecordAwardRequiresReason() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice")...)

	_, err := s.service.RecordAward(s.ctx, "t1", "m1", "alice", 1, "   ")
	s.ErrorIs(err, model.ErrValidation)
}

func (s *LedgerSuite) TestRecordAwardUnknownPlayer() {
	_, err := s.service.RecordAward(s.ctx, "t1", "m1", "ghost", 1, model.ReasonMatchWin)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *LedgerSuite) TestRecordAwardUnknownMatch() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice")...)

	_, err := s.service.RecordAward(s.ctx, "t1", "no-such-match", "alice", 3, model.ReasonMatchWin)
	s.ErrorIs(err, model.ErrMatchNotFound)
	s.Equal(0, s.player("alice").ChipCount)
}

func (s *LedgerSuite) TestRecordAwardOncePerMatchAndPlayer() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	testutil.SeedMatch(s.T(), s.storage, "t1", "m1", "alice", "bob", model.MatchCompleted)

	_, err := s.service.RecordAward(s.ctx, "t1", "m1", "alice", 3, model.ReasonMatchWin)
	s.Require().NoError(err)
	_, err = s.service.RecordAward(s.ctx, "t1", "m1", "alice", 3, model.ReasonMatchWin)
	s.ErrorIs(err, model.ErrValidation)

	// The opponent is still owed their own award
	_, err = s.service.RecordAward(s.ctx, "t1", "m1", "bob", 1, model.ReasonMatchLoss)
	s.Require().NoError(err)

	s.Equal(3, s.player("alice").ChipCount)
	s.Equal(1, s.player("bob").ChipCount)
	s.assertInvariant()
}

func (s *LedgerSuite) TestRecordAwardRequiresCompletedMatch() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	testutil.SeedMatch(s.T(), s.storage, "t1", "m1", "alice", "bob", model.MatchActive)

	_, err := s.service.RecordAward(s.ctx, "t1", "m1", "alice", 3, model.ReasonMatchWin)
	s.ErrorIs(err, model.ErrValidation)
	s.Equal(0, s.player("alice").ChipCount)
}

func (s *LedgerSuite) TestRecordAwardRejectsPlayerOutsideMatch() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob", "carol")...)
	testutil.SeedMatch(s.T(), s.storage, "t1", "m1", "alice", "bob", model.MatchCompleted)

	_, err := s.service.RecordAward(s.ctx, "t1", "m1", "carol", 3, model.ReasonMatchWin)
	s.ErrorIs(err, model.ErrValidation)
	s.Equal(0, s.player("carol").ChipCount)
}

func (s *LedgerSuite) TestConcurrentMatchAwardsRecordedOnce() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	testutil.SeedMatch(s.T(), s.storage, "t1", "m1", "alice", "bob", model.MatchCompleted)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.RecordAward(s.ctx, "t1", "m1", "alice", 3, model.ReasonMatchWin)
			if err != nil {
				s.True(errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrConcurrencyConflict), "unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(3, s.player("alice").ChipCount)
	awards, err := s.service.Awards(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	s.Len(awards, 1)
}

// AdjustChips tests

func (s *LedgerSuite) TestAdjustChipsClampsAtZero() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.PlayerSpec{ID: "p", Chips: 3, MatchesPlayed: 2})

	result, err := s.service.AdjustChips(s.ctx, "t1", "p", -5, "penalty")
	s.Require().NoError(err)

	s.Equal(model.PlayerID("p"), result.PlayerID)
	s.Equal(0, result.NewChipCount)
	s.Equal(2, result.MatchesPlayed)
	s.Equal(-3, result.Award.Amount)
	s.Equal(-5, result.Award.RequestedAmount)
	s.True(result.Award.Clamped())
	s.True(result.Award.Manual)
	s.Equal("manual: penalty", result.Award.Reason)
	s.Empty(result.Award.MatchID)

	s.Equal(0, s.player("p").ChipCount)
	s.assertInvariant()
}

func (s *LedgerSuite) TestAdjustChipsPositive() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("p")...)

	result, err := s.service.AdjustChips(s.ctx, "t1", "p", 4, "bonus for hosting")
	s.Require().NoError(err)
	s.Equal(4, result.NewChipCount)
	s.False(result.Award.Clamped())
}

func (s *LedgerSuite) TestAdjustChipsKeepsExistingManualPrefix() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("p")...)

	result, err := s.service.AdjustChips(s.ctx, "t1", "p", 1, "Manual override")
	s.Require().NoError(err)
	s.Equal("Manual override", result.Award.Reason)
}

func (s *LedgerSuite) TestAdjustChipsValidation() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("p")...)

	_, err := s.service.AdjustChips(s.ctx, "t1", "p", 1, "")
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.AdjustChips(s.ctx, "t1", "p", 0, "nothing")
	s.ErrorIs(err, model.ErrValidation)

	awards, err := s.service.Awards(s.ctx, "t1", "p")
	s.Require().NoError(err)
	s.Empty(awards)
}

func (s *LedgerSuite) TestAdjustChipsOnFinalizedTournament() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("p")...)
	t, err := s.storage.GetTournament(s.ctx, "t1")
	s.Require().NoError(err)
	t.Phase = model.PhaseFinalized
	s.Require().NoError(s.storage.Commit(s.ctx, "t1", storage.Commit{Tournament: t}))

	_, err = s.service.AdjustChips(s.ctx, "t1", "p", 1, "late bonus")
	s.ErrorIs(err, model.ErrAlreadyFinalized)
}

func (s *LedgerSuite) TestAdjustChipsEmitsEvents() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.PlayerSpec{ID: "p", Chips: 3})

	_, err := s.service.AdjustChips(s.ctx, "t1", "p", -5, "penalty")
	s.Require().NoError(err)

	adjusted := s.sink.OfType(model.EventChipsAdjusted)
	s.Require().Len(adjusted, 1)
	payload, ok := adjusted[0].Payload.(model.ChipsAdjustedPayload)
	s.Require().True(ok)
	s.Equal(-5, payload.Requested)
	s.Equal(-3, payload.Applied)
	s.Equal(0, payload.NewChipCount)

	s.Len(s.sink.OfType(model.EventStandingsUpdated), 1)
}

func (s *LedgerSuite) TestSinkFailureDoesNotFailAdjustment() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("p")...)
	s.sink.Err = errors.New("sink down")

	result, err := s.service.AdjustChips(s.ctx, "t1", "p", 2, "bonus")
	s.Require().NoError(err)
	s.Equal(2, result.NewChipCount)
	s.Equal(2, s.player("p").ChipCount)
}

// Invariant tests

func (s *LedgerSuite) TestChipCountEqualsAwardSumAfterRandomSequence() {
	ids := []model.PlayerID{"a", "b", "c", "d"}
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available(ids...)...)
	rng := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 200; i++ {
		id := ids[rng.IntN(len(ids))]
		delta := rng.IntN(11) - 5
		var err error
		if rng.IntN(2) == 0 && delta >= 0 {
			_, err = s.service.RecordAward(s.ctx, "t1", "", id, delta, model.ReasonMatchWin)
		} else if delta != 0 {
			_, err = s.service.AdjustChips(s.ctx, "t1", id, delta, "random")
		}
		s.Require().NoError(err)
	}

	for _, id := range ids {
		awards, err := s.service.Awards(s.ctx, "t1", id)
		s.Require().NoError(err)
		sum := 0
		for _, a := range awards {
			sum += a.Amount
		}
		p := s.player(id)
		s.Equal(sum, p.ChipCount, "player %s", id)
		s.GreaterOrEqual(p.ChipCount, 0)
	}
	s.assertInvariant()
}

func (s *LedgerSuite) TestConcurrentAwardsToOnePlayer() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("p")...)

	const writers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.RecordAward(s.ctx, "t1", "", "p", 1, model.ReasonMatchWin)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			s.ErrorIs(err, model.ErrConcurrencyConflict)
		}()
	}
	wg.Wait()

	s.Positive(successes)
	s.Equal(successes, s.player("p").ChipCount)
	s.assertInvariant()
}

func (s *LedgerSuite) TestConcurrentAwardsToDifferentPlayers() {
	ids := []model.PlayerID{"a", "b", "c", "d", "e", "f"}
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available(ids...)...)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.RecordAward(s.ctx, "t1", "", id, 2, model.ReasonMatchWin)
			s.NoError(err)
		}()
	}
	wg.Wait()

	for _, id := range ids {
		s.Equal(2, s.player(id).ChipCount)
	}
}

// Standings tests

func (s *LedgerSuite) TestStandingsOrder() {
	testutil.SeedPlayers(s.T(), s.storage, "t1",
		testutil.PlayerSpec{ID: "dave", Chips: 10, MatchesPlayed: 4},
		testutil.PlayerSpec{ID: "carol", Chips: 12, MatchesPlayed: 4},
		testutil.PlayerSpec{ID: "bob", Chips: 10, MatchesPlayed: 3},
		testutil.PlayerSpec{ID: "alice", Chips: 10, MatchesPlayed: 4},
		testutil.PlayerSpec{ID: "erin", Chips: 20, MatchesPlayed: 4, Status: model.PlayerWithdrawn},
	)

	standings, err := s.service.Standings(s.ctx, "t1")
	s.Require().NoError(err)

	s.Require().Len(standings.Entries, 4)
	order := make([]model.PlayerID, len(standings.Entries))
	for i, e := range standings.Entries {
		order[i] = e.PlayerID
		s.Equal(i+1, e.Rank)
	}
	s.Equal([]model.PlayerID{"carol", "bob", "alice", "dave"}, order)

	s.Equal(4, standings.Stats.Count)
	s.Equal(10, standings.Stats.MinChips)
	s.Equal(12, standings.Stats.MaxChips)
	s.InDelta(10.5, standings.Stats.AverageChips, 1e-9)
	s.InDelta(3.75, standings.Stats.AverageMatchesPlayed, 1e-9)
}

func (s *LedgerSuite) TestStandingsTiesAreStableAcrossCalls() {
	testutil.SeedPlayers(s.T(), s.storage, "t1",
		testutil.PlayerSpec{ID: "zed", Chips: 5, MatchesPlayed: 2, WaitRank: 0},
		testutil.PlayerSpec{ID: "amy", Chips: 5, MatchesPlayed: 2, WaitRank: 1},
		testutil.PlayerSpec{ID: "kim", Chips: 5, MatchesPlayed: 2, WaitRank: 2},
	)

	var first []model.PlayerID
	for i := 0; i < 10; i++ {
		standings, err := s.service.Standings(s.ctx, "t1")
		s.Require().NoError(err)
		var order []model.PlayerID
		for _, e := range standings.Entries {
			order = append(order, e.PlayerID)
		}
		if first == nil {
			first = order
		}
		s.Equal(first, order)
	}
	s.Equal([]model.PlayerID{"amy", "kim", "zed"}, first)
}

func (s *LedgerSuite) TestStandingsEmptyField() {
	standings, err := s.service.Standings(s.ctx, "t1")
	s.Require().NoError(err)
	s.Empty(standings.Entries)
	s.Equal(Stats{}, standings.Stats)
}

func (s *LedgerSuite) TestStandingsUnknownTournament() {
	_, err := s.service.Standings(s.ctx, "missing")
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

// Reconcile tests

func (s *LedgerSuite) TestReconcileReportsTamperedTotal() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.PlayerSpec{ID: "p", Chips: 4})
	p := s.player("p")
	p.ChipCount = 9
	p.UpdatedAt = s.clock.Now().Add(time.Minute)
	s.Require().NoError(s.storage.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{p}}))

	discrepancies, err := s.service.Reconcile(s.ctx, "t1")
	s.Require().NoError(err)
	s.Equal([]Discrepancy{{PlayerID: "p", ChipCount: 9, AwardTotal: 4}}, discrepancies)
}
