package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chiptourney/internal/dependencies/mocks"
	"github.com/mcoot/chiptourney/internal/dependencies/random"
	"github.com/mcoot/chiptourney/internal/events"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/pairing"
	"github.com/mcoot/chiptourney/internal/services/stats"
	"github.com/mcoot/chiptourney/internal/services/tournamentlock"
	"github.com/mcoot/chiptourney/internal/storage"
	"github.com/mcoot/chiptourney/internal/storage/memory"
	"github.com/mcoot/chiptourney/internal/testutil"
)

// conflictingStorage fails the first n commits with a version conflict
type conflictingStorage struct {
	storage.Storage
	remaining atomic.Int32
}

func (c *conflictingStorage) Commit(ctx context.Context, tid model.TournamentID, commit storage.Commit) error {
	if c.remaining.Add(-1) >= 0 {
		return model.ErrConcurrencyConflict
	}
	return c.Storage.Commit(ctx, tid, commit)
}

// failingRatings errors on every lookup
type failingRatings struct{}

func (failingRatings) Rating(ctx context.Context, tid model.TournamentID, pid model.PlayerID) (float64, bool, error) {
	return 0, false, errors.New("rating service down")
}

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	ratings *memory.Ratings
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	sink    *mocks.MockSink
	service *Service
	cfg     model.ChipConfig
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.ratings = memory.NewRatings()
	s.clock = mocks.NewMockClock(testutil.Epoch.Add(time.Hour))
	s.clock.Step = time.Second
	s.random = mocks.NewMockRandom()
	s.sink = mocks.NewMockSink()
	s.service = s.newService(s.storage, s.random, s.ratings, tournamentlock.New())
	s.cfg = model.DefaultChipConfig()
	s.ctx = context.Background()

	testutil.SeedTournament(s.T(), s.storage, "t1", s.cfg)
}

func (s *ServiceSuite) newService(store storage.Storage, rnd random.Random, ratings model.RatingSource, locks *tournamentlock.Registry) *Service {
	logger := testutil.NopLogger()
	return New(
		store,
		pairing.NewResolver(rnd),
		ratings,
		locks,
		stats.New(store),
		s.clock,
		mocks.NewMockIDs(),
		events.NewEmitter(s.sink, s.clock, logger),
		logger,
	)
}

func (s *ServiceSuite) player(id model.PlayerID) *model.Player {
	p, err := s.storage.GetPlayer(s.ctx, "t1", id)
	s.Require().NoError(err)
	return p
}

// completeAll finishes every open match with PlayerA winning and returns
// both players to the pool
func (s *ServiceSuite) completeAll() {
	snap, err := s.storage.Snapshot(s.ctx, "t1")
	s.Require().NoError(err)
	players := make(map[model.PlayerID]*model.Player)
	for _, p := range snap.Players {
		players[p.ID] = p
	}
	for _, m := range snap.Matches {
		if !m.State.IsOpen() {
			continue
		}
		now := s.clock.Now()
		m.State = model.MatchCompleted
		m.Winner = m.PlayerA
		var touched []*model.Player
		for _, id := range []model.PlayerID{m.PlayerA, m.PlayerB} {
			p := players[id]
			p.Status = model.PlayerAvailable
			p.MatchesPlayed++
			p.AvailableSince = now
			touched = append(touched, p)
		}
		s.Require().NoError(s.storage.Commit(s.ctx, "t1", storage.Commit{
			Players: touched,
			Matches: []*model.Match{m},
		}))
	}
}

// assertNoDoubleBooking checks no player sits in two open matches and every
// open match holds reserved or playing players
func (s *ServiceSuite) assertNoDoubleBooking() {
	snap, err := s.storage.Snapshot(s.ctx, "t1")
	s.Require().NoError(err)
	status := make(map[model.PlayerID]model.PlayerStatus)
	for _, p := range snap.Players {
		status[p.ID] = p.Status
	}
	open := make(map[model.PlayerID]model.MatchID)
	for _, m := range snap.Matches {
		if !m.State.IsOpen() {
			continue
		}
		for _, id := range []model.PlayerID{m.PlayerA, m.PlayerB} {
			prev, dup := open[id]
			s.False(dup, "player %s in matches %s and %s", id, prev, m.ID)
			open[id] = m.ID
			s.Contains([]model.PlayerStatus{model.PlayerReserved, model.PlayerInMatch}, status[id])
		}
	}
}

// AssignNext tests

func (s *ServiceSuite) TestAssignNextCreatesPendingMatch() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)

	a, err := s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), a.PlayerAID, "alice waited longest")
	s.Equal(model.PlayerID("bob"), a.PlayerBID)
	s.Equal(1, a.Round)

	match, err := s.storage.GetMatch(s.ctx, "t1", a.MatchID)
	s.Require().NoError(err)
	s.Equal(model.MatchPending, match.State)
	s.Empty(match.Winner)

	s.Equal(model.PlayerReserved, s.player("alice").Status)
	s.Equal(model.PlayerReserved, s.player("bob").Status)

	history, err := s.storage.GetPairingHistory(s.ctx, "t1")
	s.Require().NoError(err)
	s.True(history.Contains("alice", "bob"))

	assigned := s.sink.OfType(model.EventMatchAssigned)
	s.Require().Len(assigned, 1)
	s.Equal(a.MatchID, assigned[0].MatchID)
}

func (s *ServiceSuite) TestAssignNextBumpsTournamentVersion() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	before, err := s.storage.GetTournament(s.ctx, "t1")
	s.Require().NoError(err)

	_, err = s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.Require().NoError(err)

	after, err := s.storage.GetTournament(s.ctx, "t1")
	s.Require().NoError(err)
	s.Equal(before.Version+1, after.Version)
}

func (s *ServiceSuite) TestRoundFollowsMatchesPlayed() {
	testutil.SeedPlayers(s.T(), s.storage, "t1",
		testutil.PlayerSpec{ID: "alice", MatchesPlayed: 2},
		testutil.PlayerSpec{ID: "bob", MatchesPlayed: 4},
	)

	a, err := s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.Require().NoError(err)
	s.Equal(5, a.Round)
}

func (s *ServiceSuite) TestQueueExhausted() {
	_, err := s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.ErrorIs(err, model.ErrQueueExhausted)

	testutil.SeedPlayers(s.T(), s.storage, "t1",
		testutil.PlayerSpec{ID: "alice"},
		testutil.PlayerSpec{ID: "bob", Status: model.PlayerInMatch},
		testutil.PlayerSpec{ID: "carol", Status: model.PlayerWithdrawn},
	)
	_, err = s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.ErrorIs(err, model.ErrQueueExhausted)
}

func (s *ServiceSuite) TestPairingConstraintViolation() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	s.Require().NoError(s.storage.Commit(s.ctx, "t1", storage.Commit{Pairs: []model.PairKey{model.NewPairKey("alice", "bob")}}))

	_, err := s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.ErrorIs(err, model.ErrPairingConstraint)
	s.Equal(model.PlayerAvailable, s.player("alice").Status)

	s.cfg.AllowDuplicatePairings = true
	_, err = s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.NoError(err)
}

func (s *ServiceSuite) TestInvalidConfigRejectedBeforeMutation() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	s.cfg.PairingStrategy = "swiss"

	_, err := s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.AssignBatch(s.ctx, "t1", s.cfg, 1)
	s.ErrorIs(err, model.ErrValidation)

	matches, err := s.storage.ListMatches(s.ctx, "t1")
	s.Require().NoError(err)
	s.Empty(matches)
}

func (s *ServiceSuite) TestFinalizedTournamentRejectsAssignment() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	t, err := s.storage.GetTournament(s.ctx, "t1")
	s.Require().NoError(err)
	t.Phase = model.PhaseFinalized
	s.Require().NoError(s.storage.Commit(s.ctx, "t1", storage.Commit{Tournament: t}))

	_, err = s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.ErrorIs(err, model.ErrAlreadyFinalized)
}

func (s *ServiceSuite) TestUnknownTournament() {
	_, err := s.service.AssignNext(s.ctx, "missing", s.cfg)
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

func (s *ServiceSuite) TestRetriesLostReservation() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	flaky := &conflictingStorage{Storage: s.storage}
	flaky.remaining.Store(MaxReservationAttempts - 1)
	service := s.newService(flaky, s.random, nil, tournamentlock.New())

	_, err := service.AssignNext(s.ctx, "t1", s.cfg)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestSurfacesConflictAfterBoundedRetries() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	flaky := &conflictingStorage{Storage: s.storage}
	flaky.remaining.Store(MaxReservationAttempts)
	service := s.newService(flaky, s.random, nil, tournamentlock.New())

	_, err := service.AssignNext(s.ctx, "t1", s.cfg)
	s.ErrorIs(err, model.ErrConcurrencyConflict)
	s.Equal(model.PlayerAvailable, s.player("alice").Status)
}

func (s *ServiceSuite) TestSinkFailureDoesNotFailAssignment() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("alice", "bob")...)
	s.sink.Err = errors.New("sink down")

	_, err := s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.Require().NoError(err)
	s.Equal(model.PlayerReserved, s.player("alice").Status)
}

// Strategy wiring tests

func (s *ServiceSuite) TestChipDiffStrategy() {
	s.cfg.PairingStrategy = model.PairingChipDiff
	testutil.SeedPlayers(s.T(), s.storage, "t1",
		testutil.PlayerSpec{ID: "a", Chips: 12, WaitRank: 0},
		testutil.PlayerSpec{ID: "b", Chips: 3, WaitRank: 1},
		testutil.PlayerSpec{ID: "c", Chips: 11, WaitRank: 2},
	)

	a, err := s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("a"), a.PlayerAID)
	s.Equal(model.PlayerID("c"), a.PlayerBID)
}

func (s *ServiceSuite) TestRatingStrategyUsesRatingSource() {
	s.cfg.PairingStrategy = model.PairingRating
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("a", "b", "c")...)
	s.Require().NoError(s.ratings.SetRating(s.ctx, "t1", "a", 1500))
	s.Require().NoError(s.ratings.SetRating(s.ctx, "t1", "b", 2100))
	s.Require().NoError(s.ratings.SetRating(s.ctx, "t1", "c", 1550))

	a, err := s.service.AssignNext(s.ctx, "t1", s.cfg)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("a"), a.PlayerAID)
	s.Equal(model.PlayerID("c"), a.PlayerBID)
	s.Empty(s.random.Calls)
}

func (s *ServiceSuite) TestRatingSourceFailureFallsBackToRandom() {
	s.cfg.PairingStrategy = model.PairingRating
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("a", "b", "c")...)
	service := s.newService(s.storage, s.random, failingRatings{}, tournamentlock.New())
	s.random.QueueIntn(1, 1) // b, then partners of b are [a,c]: c

	a, err := service.AssignNext(s.ctx, "t1", s.cfg)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("b"), a.PlayerAID)
	s.Equal(model.PlayerID("c"), a.PlayerBID)
}

// AssignBatch tests

func (s *ServiceSuite) TestAssignBatchStopsWhenPoolExhausted() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("a", "b", "c")...)

	assignments, err := s.service.AssignBatch(s.ctx, "t1", s.cfg, 5)
	s.Require().NoError(err)
	s.Len(assignments, 1)

	qs, err := s.service.GetQueueStats(s.ctx, "t1")
	s.Require().NoError(err)
	s.Equal(1, qs.AvailableCount)
	s.Equal(2, qs.PlayersByStatus[model.PlayerReserved])
	s.Equal(1, qs.ActiveMatchesCount)
}

func (s *ServiceSuite) TestAssignBatchStopsOnPairingConstraint() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("a", "b", "c", "d")...)
	s.Require().NoError(s.storage.Commit(s.ctx, "t1", storage.Commit{Pairs: []model.PairKey{
		model.NewPairKey("c", "d"),
	}}))

	// With the mock source always drawing index 0: a pairs with b, leaving c and d
	assignments, err := s.service.AssignBatch(s.ctx, "t1", s.cfg, 2)
	s.Require().NoError(err)
	s.Require().Len(assignments, 1)
	s.Equal(model.PlayerID("a"), assignments[0].PlayerAID)
	s.Equal(model.PlayerID("b"), assignments[0].PlayerBID)
}

func (s *ServiceSuite) TestAssignBatchFillsWholePool() {
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available("a", "b", "c", "d", "e", "f")...)

	assignments, err := s.service.AssignBatch(s.ctx, "t1", s.cfg, 10)
	s.Require().NoError(err)
	s.Len(assignments, 3)
	s.Len(s.sink.OfType(model.EventMatchAssigned), 3)
	s.assertNoDoubleBooking()
}

func (s *ServiceSuite) TestAssignBatchCountValidation() {
	assignments, err := s.service.AssignBatch(s.ctx, "t1", s.cfg, 0)
	s.Require().NoError(err)
	s.Empty(assignments)

	_, err = s.service.AssignBatch(s.ctx, "t1", s.cfg, -1)
	s.ErrorIs(err, model.ErrValidation)
}

// Property tests

func (s *ServiceSuite) TestConcurrentAssignmentsNeverDoubleBook() {
	var specs []testutil.PlayerSpec
	for i := 0; i < 40; i++ {
		specs = append(specs, testutil.PlayerSpec{ID: model.PlayerID(fmt.Sprintf("p%02d", i)), WaitRank: i})
	}
	testutil.SeedPlayers(s.T(), s.storage, "t1", specs...)
	service := s.newService(s.storage, random.NewSeeded(1), nil, tournamentlock.New())

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assignments, err := service.AssignBatch(s.ctx, "t1", s.cfg, 3)
			s.NoError(err)
			mu.Lock()
			total += len(assignments)
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Equal(20, total)
	s.assertNoDoubleBooking()
}

func (s *ServiceSuite) TestSeparateProcessesNeverDoubleBook() {
	var specs []testutil.PlayerSpec
	for i := 0; i < 30; i++ {
		specs = append(specs, testutil.PlayerSpec{ID: model.PlayerID(fmt.Sprintf("p%02d", i)), WaitRank: i})
	}
	testutil.SeedPlayers(s.T(), s.storage, "t1", specs...)

	// Each service has its own lock registry, so only storage CAS separates them
	services := make([]*Service, 4)
	for i := range services {
		services[i] = s.newService(s.storage, random.NewSeeded(uint64(i+1)), nil, tournamentlock.New())
	}

	var wg sync.WaitGroup
	for _, svc := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 6; j++ {
				_, err := svc.AssignNext(s.ctx, "t1", s.cfg)
				if err != nil {
					s.True(errors.Is(err, model.ErrQueueExhausted) || errors.Is(err, model.ErrConcurrencyConflict), "unexpected error %v", err)
				}
			}
		}()
	}
	wg.Wait()

	s.assertNoDoubleBooking()
}

func (s *ServiceSuite) TestNoDuplicatePairsAcrossRounds() {
	ids := []model.PlayerID{"a", "b", "c", "d", "e", "f"}
	testutil.SeedPlayers(s.T(), s.storage, "t1", testutil.Available(ids...)...)
	service := s.newService(s.storage, random.NewSeeded(99), nil, tournamentlock.New())

	seen := make(map[model.PairKey]bool)
	for round := 0; round < 10; round++ {
		assignments, err := service.AssignBatch(s.ctx, "t1", s.cfg, 3)
		s.Require().NoError(err)
		if len(assignments) == 0 {
			break
		}
		for _, a := range assignments {
			key := model.NewPairKey(a.PlayerAID, a.PlayerBID)
			s.False(seen[key], "pair %s assigned twice", key)
			seen[key] = true
		}
		s.completeAll()
	}

	// Six players have fifteen possible pairs
	s.LessOrEqual(len(seen), 15)
	s.GreaterOrEqual(len(seen), 3)
}
