package storage

import (
	"context"

	"github.com/mcoot/chiptourney/internal/model"
)

// Storage defines the interface for data persistence.
//
// Reads return copies; mutating a returned record has no effect until it is
// written back through Commit.
type Storage interface {
	// Tournament operations
	GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error)
	ListTournaments(ctx context.Context) ([]*model.Tournament, error)

	// Player operations
	GetPlayer(ctx context.Context, tid model.TournamentID, id model.PlayerID) (*model.Player, error)
	ListPlayers(ctx context.Context, tid model.TournamentID) ([]*model.Player, error)

	// Match operations
	GetMatch(ctx context.Context, tid model.TournamentID, id model.MatchID) (*model.Match, error)
	ListMatches(ctx context.Context, tid model.TournamentID) ([]*model.Match, error)

	// Ledger and history operations
	GetPairingHistory(ctx context.Context, tid model.TournamentID) (model.PairingHistory, error)
	// ListAwards returns awards in append order; an empty player ID lists all
	ListAwards(ctx context.Context, tid model.TournamentID, playerID model.PlayerID) ([]*model.ChipAward, error)

	// Snapshot reads the tournament with all of its players, matches and
	// pairing history as of a single point in time
	Snapshot(ctx context.Context, tid model.TournamentID) (*Snapshot, error)

	// Commit atomically applies a set of conditional writes for one tournament.
	// Either every write lands or none do.
	Commit(ctx context.Context, tid model.TournamentID, c Commit) error
}

// Snapshot is a consistent read of one tournament's state
type Snapshot struct {
	Tournament *model.Tournament
	Players    []*model.Player
	Matches    []*model.Match
	History    model.PairingHistory
}

// Commit is a batch of writes applied by Storage.Commit.
//
// Each record's Version must equal the currently stored version (0 meaning
// the record must not exist yet), otherwise the whole commit fails with
// model.ErrConcurrencyConflict. On success the stored version and the
// Version field of every passed record are incremented.
type Commit struct {
	// Tournament is optional. Including it serializes the commit against
	// every other commit that also includes it.
	Tournament *model.Tournament
	Players    []*model.Player
	Matches    []*model.Match

	// Awards are appended unconditionally once the version checks pass
	Awards []*model.ChipAward
	// Pairs are added to the pairing history
	Pairs []model.PairKey
}

// IsEmpty returns true if the commit writes nothing
func (c Commit) IsEmpty() bool {
	return c.Tournament == nil && len(c.Players) == 0 && len(c.Matches) == 0 &&
		len(c.Awards) == 0 && len(c.Pairs) == 0
}

// Validate checks every record in the commit belongs to the tournament
func (c Commit) Validate(tid model.TournamentID) error {
	if c.Tournament != nil && c.Tournament.ID != tid {
		return model.NewValidationError("tournament %s does not match commit tournament %s", c.Tournament.ID, tid)
	}
	seenPlayers := make(map[model.PlayerID]bool, len(c.Players))
	for _, p := range c.Players {
		if p.TournamentID != tid {
			return model.NewValidationError("player %s belongs to tournament %s", p.ID, p.TournamentID)
		}
		if seenPlayers[p.ID] {
			return model.NewValidationError("player %s written twice in one commit", p.ID)
		}
		seenPlayers[p.ID] = true
	}
	seenMatches := make(map[model.MatchID]bool, len(c.Matches))
	for _, m := range c.Matches {
		if m.TournamentID != tid {
			return model.NewValidationError("match %s belongs to tournament %s", m.ID, m.TournamentID)
		}
		if seenMatches[m.ID] {
			return model.NewValidationError("match %s written twice in one commit", m.ID)
		}
		seenMatches[m.ID] = true
	}
	for _, a := range c.Awards {
		if a.TournamentID != tid {
			return model.NewValidationError("award %s belongs to tournament %s", a.ID, a.TournamentID)
		}
	}
	return nil
}

// RatingStore holds the external rating metric used by the rating pairing strategy
type RatingStore interface {
	model.RatingSource
	SetRating(ctx context.Context, tid model.TournamentID, playerID model.PlayerID, rating float64) error
	ListRatings(ctx context.Context, tid model.TournamentID) (map[model.PlayerID]float64, error)
}
