package ledger

import (
	"context"
	"sort"

	"github.com/mcoot/chiptourney/internal/model"
)

// StandingsEntry is one ranked row of the standings
type StandingsEntry struct {
	PlayerID      model.PlayerID
	DisplayName   string
	ChipCount     int
	MatchesPlayed int
	Status        model.PlayerStatus
	Rank          int
}

// Stats summarizes the ranked field
type Stats struct {
	Count                int
	AverageChips         float64
	MinChips             int
	MaxChips             int
	AverageMatchesPlayed float64
}

// Standings is the ranked field with aggregate stats
type Standings struct {
	Entries []StandingsEntry
	Stats   Stats
}

// Standings ranks every non-withdrawn player from one consistent read
func (s *Service) Standings(ctx context.Context, tid model.TournamentID) (*Standings, error) {
	players, err := s.storage.ListPlayers(ctx, tid)
	if err != nil {
		return nil, err
	}
	entries := Rank(players)
	return &Standings{Entries: entries, Stats: ComputeStats(entries)}, nil
}

// Less is the standings order: chips descending, then matches played
// ascending, then player ID
func Less(a, b *model.Player) bool {
	if a.ChipCount != b.ChipCount {
		return a.ChipCount > b.ChipCount
	}
	if a.MatchesPlayed != b.MatchesPlayed {
		return a.MatchesPlayed < b.MatchesPlayed
	}
	return a.ID < b.ID
}

// Rank orders the players and assigns 1-based ranks. Withdrawn players are
// left out.
func Rank(players []*model.Player) []StandingsEntry {
	ranked := make([]*model.Player, 0, len(players))
	for _, p := range players {
		if p.Status != model.PlayerWithdrawn {
			ranked = append(ranked, p)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return Less(ranked[i], ranked[j]) })

	entries := make([]StandingsEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = StandingsEntry{
			PlayerID:      p.ID,
			DisplayName:   p.DisplayName,
			ChipCount:     p.ChipCount,
			MatchesPlayed: p.MatchesPlayed,
			Status:        p.Status,
			Rank:          i + 1,
		}
	}
	return entries
}

// ComputeStats aggregates the entries; an empty field yields zero stats
func ComputeStats(entries []StandingsEntry) Stats {
	if len(entries) == 0 {
		return Stats{}
	}
	stats := Stats{
		Count:    len(entries),
		MinChips: entries[0].ChipCount,
		MaxChips: entries[0].ChipCount,
	}
	var chips, matches int
	for _, e := range entries {
		chips += e.ChipCount
		matches += e.MatchesPlayed
		stats.MinChips = min(stats.MinChips, e.ChipCount)
		stats.MaxChips = max(stats.MaxChips, e.ChipCount)
	}
	stats.AverageChips = float64(chips) / float64(len(entries))
	stats.AverageMatchesPlayed = float64(matches) / float64(len(entries))
	return stats
}
