package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
)

// Epoch is the fixed start time used by fixtures
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// SeedTournament writes a qualifying tournament with the given config
func SeedTournament(t testing.TB, store storage.Storage, tid model.TournamentID, cfg model.ChipConfig) *model.Tournament {
	t.Helper()
	tournament := &model.Tournament{
		ID:        tid,
		Name:      string(tid),
		Config:    cfg,
		Phase:     model.PhaseQualifying,
		CreatedAt: Epoch,
		UpdatedAt: Epoch,
	}
	require.NoError(t, store.Commit(context.Background(), tid, storage.Commit{Tournament: tournament}))
	return tournament
}

// PlayerSpec describes a player to seed. Zero Status means available; a
// lower WaitRank means the player became available earlier.
type PlayerSpec struct {
	ID            model.PlayerID
	Chips         int
	MatchesPlayed int
	Status        model.PlayerStatus
	WaitRank      int
}

// SeedPlayers writes the players along with one opening award per player
// carrying their chips, so the ledger invariant holds from the start
func SeedPlayers(t testing.TB, store storage.Storage, tid model.TournamentID, specs ...PlayerSpec) []*model.Player {
	t.Helper()
	players := make([]*model.Player, 0, len(specs))
	awards := make([]*model.ChipAward, 0, len(specs))
	for _, spec := range specs {
		status := spec.Status
		if status == "" {
			status = model.PlayerAvailable
		}
		players = append(players, &model.Player{
			TournamentID:   tid,
			ID:             spec.ID,
			DisplayName:    string(spec.ID),
			ChipCount:      spec.Chips,
			MatchesPlayed:  spec.MatchesPlayed,
			Status:         status,
			AvailableSince: Epoch.Add(time.Duration(spec.WaitRank) * time.Second),
			RegisteredAt:   Epoch,
			UpdatedAt:      Epoch,
		})
		if spec.Chips != 0 {
			awards = append(awards, &model.ChipAward{
				ID:              model.AwardID("seed-" + string(spec.ID)),
				TournamentID:    tid,
				PlayerID:        spec.ID,
				Amount:          spec.Chips,
				RequestedAmount: spec.Chips,
				Reason:          model.ManualReason("seed"),
				Manual:          true,
				Timestamp:       Epoch,
			})
		}
	}
	require.NoError(t, store.Commit(context.Background(), tid, storage.Commit{Players: players, Awards: awards}))
	return players
}

// Available builds specs for available players with no chips, waiting in
// the order given
func Available(ids ...model.PlayerID) []PlayerSpec {
	specs := make([]PlayerSpec, len(ids))
	for i, id := range ids {
		specs[i] = PlayerSpec{ID: id, WaitRank: i}
	}
	return specs
}

// SeedMatch writes a round-one match between a and b in the given state and
// records the pair in the pairing history
func SeedMatch(t testing.TB, store storage.Storage, tid model.TournamentID, id model.MatchID, a, b model.PlayerID, state model.MatchState) *model.Match {
	t.Helper()
	m := &model.Match{
		TournamentID: tid,
		ID:           id,
		PlayerA:      a,
		PlayerB:      b,
		State:        state,
		Round:        1,
		CreatedAt:    Epoch,
		UpdatedAt:    Epoch,
	}
	if state == model.MatchCompleted {
		m.Winner = a
		m.CompletedAt = &Epoch
	}
	require.NoError(t, store.Commit(context.Background(), tid, storage.Commit{
		Matches: []*model.Match{m},
		Pairs:   []model.PairKey{model.NewPairKey(a, b)},
	}))
	return m
}
