// Package storagetest holds the behavioural contract every storage backend
// must satisfy. Backend packages run these suites from their own tests.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
)

// ContractSuite exercises storage.Storage. Set NewStorage before running.
type ContractSuite struct {
	suite.Suite
	NewStorage func() storage.Storage

	store storage.Storage
	ctx   context.Context
	now   time.Time
}

func (s *ContractSuite) SetupTest() {
	s.store = s.NewStorage()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ContractSuite) createTournament(id model.TournamentID) *model.Tournament {
	t := &model.Tournament{
		ID:        id,
		Name:      "Spring Open",
		Config:    model.DefaultChipConfig(),
		Phase:     model.PhaseQualifying,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.store.Commit(s.ctx, id, storage.Commit{Tournament: t}))
	return t
}

func (s *ContractSuite) newPlayer(tid model.TournamentID, id model.PlayerID) *model.Player {
	return &model.Player{
		TournamentID:   tid,
		ID:             id,
		DisplayName:    string(id),
		Status:         model.PlayerAvailable,
		AvailableSince: s.now,
		RegisteredAt:   s.now,
		UpdatedAt:      s.now,
	}
}

// Tournament tests

func (s *ContractSuite) TestCreateAndGetTournament() {
	created := s.createTournament("t1")
	s.Equal(int64(1), created.Version)

	retrieved, err := s.store.GetTournament(s.ctx, "t1")
	s.Require().NoError(err)
	s.Equal("Spring Open", retrieved.Name)
	s.Equal(model.PhaseQualifying, retrieved.Phase)
	s.Equal(int64(1), retrieved.Version)
	s.Equal(model.DefaultChipConfig(), retrieved.Config)
}

func (s *ContractSuite) TestGetTournamentNotFound() {
	_, err := s.store.GetTournament(s.ctx, "missing")
	s.ErrorIs(err, model.ErrTournamentNotFound)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *ContractSuite) TestCreateTournamentTwiceConflicts() {
	s.createTournament("t1")

	again := &model.Tournament{ID: "t1", Name: "Duplicate", Phase: model.PhaseQualifying}
	err := s.store.Commit(s.ctx, "t1", storage.Commit{Tournament: again})
	s.ErrorIs(err, model.ErrConcurrencyConflict)

	retrieved, err := s.store.GetTournament(s.ctx, "t1")
	s.Require().NoError(err)
	s.Equal("Spring Open", retrieved.Name)
}

func (s *ContractSuite) TestListTournaments() {
	s.createTournament("t2")
	s.createTournament("t1")

	tournaments, err := s.store.ListTournaments(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tournaments, 2)
	s.Equal(model.TournamentID("t1"), tournaments[0].ID)
	s.Equal(model.TournamentID("t2"), tournaments[1].ID)
}

func (s *ContractSuite) TestCutoffResultRoundTrips() {
	t := s.createTournament("t1")
	t.Phase = model.PhaseFinalized
	t.Cutoff = &model.CutoffResult{
		Finalists:  []model.PlayerID{"a", "b"},
		Eliminated: []model.PlayerID{"c"},
		Tiebreaks: []model.TiebreakRecord{{
			ChipCount:      10,
			Tied:           []model.PlayerID{"b", "c"},
			Slots:          1,
			Method:         model.TiebreakHeadToHead,
			Advanced:       []model.PlayerID{"b"},
			Eliminated:     []model.PlayerID{"c"},
			HeadToHeadWins: map[model.PlayerID]int{"b": 1, "c": 0},
		}},
		AppliedAt: s.now,
	}
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Tournament: t}))

	retrieved, err := s.store.GetTournament(s.ctx, "t1")
	s.Require().NoError(err)
	s.Require().NotNil(retrieved.Cutoff)
	s.Equal(t.Cutoff.Finalists, retrieved.Cutoff.Finalists)
	s.Equal(t.Cutoff.Tiebreaks[0].HeadToHeadWins, retrieved.Cutoff.Tiebreaks[0].HeadToHeadWins)
	s.True(t.Cutoff.AppliedAt.Equal(retrieved.Cutoff.AppliedAt))
}

// Player tests

func (s *ContractSuite) TestCommitAndGetPlayer() {
	s.createTournament("t1")
	alice := s.newPlayer("t1", "alice")

	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{alice}}))
	s.Equal(int64(1), alice.Version)

	retrieved, err := s.store.GetPlayer(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	s.Equal("alice", retrieved.DisplayName)
	s.Equal(model.PlayerAvailable, retrieved.Status)
	s.Equal(int64(1), retrieved.Version)
}

func (s *ContractSuite) TestGetPlayerNotFound() {
	s.createTournament("t1")

	_, err := s.store.GetPlayer(s.ctx, "t1", "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.store.GetPlayer(s.ctx, "missing", "nobody")
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

func (s *ContractSuite) TestListPlayersSortedByID() {
	s.createTournament("t1")
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{
		s.newPlayer("t1", "carol"),
		s.newPlayer("t1", "alice"),
		s.newPlayer("t1", "bob"),
	}}))

	players, err := s.store.ListPlayers(s.ctx, "t1")
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	s.Equal(model.PlayerID("alice"), players[0].ID)
	s.Equal(model.PlayerID("bob"), players[1].ID)
	s.Equal(model.PlayerID("carol"), players[2].ID)
}

func (s *ContractSuite) TestReturnedRecordsAreCopies() {
	s.createTournament("t1")
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{s.newPlayer("t1", "alice")}}))

	first, err := s.store.GetPlayer(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	first.ChipCount = 99

	second, err := s.store.GetPlayer(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	s.Equal(0, second.ChipCount)
}

// Compare-and-swap tests

func (s *ContractSuite) TestStaleVersionConflicts() {
	s.createTournament("t1")
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{s.newPlayer("t1", "alice")}}))

	first, err := s.store.GetPlayer(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	second, err := s.store.GetPlayer(s.ctx, "t1", "alice")
	s.Require().NoError(err)

	first.ChipCount = 3
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{first}}))

	second.ChipCount = 5
	err = s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{second}})
	s.ErrorIs(err, model.ErrConcurrencyConflict)

	stored, err := s.store.GetPlayer(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	s.Equal(3, stored.ChipCount)
	s.Equal(int64(2), stored.Version)
}

func (s *ContractSuite) TestCreatePlayerTwiceConflicts() {
	s.createTournament("t1")
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{s.newPlayer("t1", "alice")}}))

	err := s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{s.newPlayer("t1", "alice")}})
	s.ErrorIs(err, model.ErrConcurrencyConflict)
}

func (s *ContractSuite) TestFailedCommitWritesNothing() {
	t := s.createTournament("t1")
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{
		s.newPlayer("t1", "alice"),
		s.newPlayer("t1", "bob"),
	}}))

	alice, err := s.store.GetPlayer(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	bob, err := s.store.GetPlayer(s.ctx, "t1", "bob")
	s.Require().NoError(err)
	bob.Version = 7 // stale

	alice.Status = model.PlayerReserved
	bob.Status = model.PlayerReserved
	match := &model.Match{TournamentID: "t1", ID: "m1", PlayerA: "alice", PlayerB: "bob", State: model.MatchPending, CreatedAt: s.now}
	award := &model.ChipAward{ID: "aw1", TournamentID: "t1", PlayerID: "alice", Amount: 1, RequestedAmount: 1, Reason: "test", Timestamp: s.now}

	err = s.store.Commit(s.ctx, "t1", storage.Commit{
		Tournament: t,
		Players:    []*model.Player{alice, bob},
		Matches:    []*model.Match{match},
		Awards:     []*model.ChipAward{award},
		Pairs:      []model.PairKey{model.NewPairKey("alice", "bob")},
	})
	s.ErrorIs(err, model.ErrConcurrencyConflict)
	s.Equal(int64(1), alice.Version, "versions are only bumped on success")

	stored, err := s.store.GetPlayer(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerAvailable, stored.Status)

	_, err = s.store.GetMatch(s.ctx, "t1", "m1")
	s.ErrorIs(err, model.ErrMatchNotFound)

	awards, err := s.store.ListAwards(s.ctx, "t1", "")
	s.Require().NoError(err)
	s.Empty(awards)

	history, err := s.store.GetPairingHistory(s.ctx, "t1")
	s.Require().NoError(err)
	s.Empty(history)

	tournament, err := s.store.GetTournament(s.ctx, "t1")
	s.Require().NoError(err)
	s.Equal(int64(1), tournament.Version)
}

func (s *ContractSuite) TestCommitToMissingTournament() {
	err := s.store.Commit(s.ctx, "missing", storage.Commit{Players: []*model.Player{s.newPlayer("missing", "alice")}})
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

func (s *ContractSuite) TestCommitRejectsForeignRows() {
	s.createTournament("t1")
	err := s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{s.newPlayer("t2", "alice")}})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ContractSuite) TestConcurrentCommitsExactlyOneWins() {
	s.createTournament("t1")
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{s.newPlayer("t1", "alice")}}))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		p, err := s.store.GetPlayer(s.ctx, "t1", "alice")
		s.Require().NoError(err)
		p.ChipCount = i + 1

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := s.store.Commit(s.ctx, "t1", storage.Commit{Players: []*model.Player{p}})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, model.ErrConcurrencyConflict) {
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(writers-1, conflicts)
}

// Match, award and history tests

func (s *ContractSuite) TestMatchesListedInCreationOrder() {
	s.createTournament("t1")
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Matches: []*model.Match{
		{TournamentID: "t1", ID: "m-b", State: model.MatchPending, CreatedAt: s.now.Add(time.Minute)},
		{TournamentID: "t1", ID: "m-a", State: model.MatchPending, CreatedAt: s.now.Add(2 * time.Minute)},
		{TournamentID: "t1", ID: "m-c", State: model.MatchPending, CreatedAt: s.now},
	}}))

	matches, err := s.store.ListMatches(s.ctx, "t1")
	s.Require().NoError(err)
	s.Require().Len(matches, 3)
	s.Equal(model.MatchID("m-c"), matches[0].ID)
	s.Equal(model.MatchID("m-b"), matches[1].ID)
	s.Equal(model.MatchID("m-a"), matches[2].ID)
}

func (s *ContractSuite) TestAwardsAppendInOrder() {
	s.createTournament("t1")
	for i, pid := range []model.PlayerID{"alice", "bob", "alice"} {
		award := &model.ChipAward{
			ID:              model.AwardID("aw" + string(rune('1'+i))),
			TournamentID:    "t1",
			PlayerID:        pid,
			Amount:          i + 1,
			RequestedAmount: i + 1,
			Reason:          model.ReasonMatchWin,
			Timestamp:       s.now,
		}
		s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Awards: []*model.ChipAward{award}}))
	}

	all, err := s.store.ListAwards(s.ctx, "t1", "")
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(model.AwardID("aw1"), all[0].ID)
	s.Equal(model.AwardID("aw3"), all[2].ID)

	alice, err := s.store.ListAwards(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	s.Require().Len(alice, 2)
	s.Equal(1, alice[0].Amount)
	s.Equal(3, alice[1].Amount)
}

func (s *ContractSuite) TestPairingHistoryGrows() {
	s.createTournament("t1")
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Pairs: []model.PairKey{model.NewPairKey("bob", "alice")}}))
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{Pairs: []model.PairKey{model.NewPairKey("alice", "bob"), model.NewPairKey("carol", "alice")}}))

	history, err := s.store.GetPairingHistory(s.ctx, "t1")
	s.Require().NoError(err)
	s.Len(history, 2)
	s.True(history.Contains("alice", "bob"))
	s.True(history.Contains("alice", "carol"))
	s.False(history.Contains("bob", "carol"))
}

func (s *ContractSuite) TestSnapshot() {
	s.createTournament("t1")
	s.Require().NoError(s.store.Commit(s.ctx, "t1", storage.Commit{
		Players: []*model.Player{s.newPlayer("t1", "bob"), s.newPlayer("t1", "alice")},
		Matches: []*model.Match{{TournamentID: "t1", ID: "m1", PlayerA: "alice", PlayerB: "bob", State: model.MatchPending, CreatedAt: s.now}},
		Pairs:   []model.PairKey{model.NewPairKey("alice", "bob")},
	}))

	snap, err := s.store.Snapshot(s.ctx, "t1")
	s.Require().NoError(err)
	s.Equal(model.TournamentID("t1"), snap.Tournament.ID)
	s.Require().Len(snap.Players, 2)
	s.Equal(model.PlayerID("alice"), snap.Players[0].ID)
	s.Require().Len(snap.Matches, 1)
	s.True(snap.History.Contains("alice", "bob"))
}

func (s *ContractSuite) TestSnapshotNotFound() {
	_, err := s.store.Snapshot(s.ctx, "missing")
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

// RatingSuite exercises storage.RatingStore. Set NewRatings before running.
type RatingSuite struct {
	suite.Suite
	NewRatings func() storage.RatingStore

	ratings storage.RatingStore
	ctx     context.Context
}

func (s *RatingSuite) SetupTest() {
	s.ratings = s.NewRatings()
	s.ctx = context.Background()
}

func (s *RatingSuite) TestSetAndGetRating() {
	s.Require().NoError(s.ratings.SetRating(s.ctx, "t1", "alice", 1520.5))

	rating, ok, err := s.ratings.Rating(s.ctx, "t1", "alice")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(1520.5, rating)
}

func (s *RatingSuite) TestMissingRating() {
	_, ok, err := s.ratings.Rating(s.ctx, "t1", "nobody")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RatingSuite) TestRatingsScopedByTournament() {
	s.Require().NoError(s.ratings.SetRating(s.ctx, "t1", "alice", 1500))
	s.Require().NoError(s.ratings.SetRating(s.ctx, "t2", "alice", 1700))
	s.Require().NoError(s.ratings.SetRating(s.ctx, "t1", "alice", 1550))

	all, err := s.ratings.ListRatings(s.ctx, "t1")
	s.Require().NoError(err)
	s.Equal(map[model.PlayerID]float64{"alice": 1550}, all)
}
