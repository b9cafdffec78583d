package pairing

import (
	"sort"

	"github.com/mcoot/chiptourney/internal/dependencies/random"
	"github.com/mcoot/chiptourney/internal/model"
)

// RandomStrategy draws two distinct players uniformly without replacement
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

// SelectPair draws a first player, then a partner uniformly among that
// player's legal partners. A first player with no legal partner is removed
// from the draw and another is drawn.
func (s *RandomStrategy) SelectPair(pool []Candidate, history model.PairingHistory, allowDuplicates bool) (Pair, bool) {
	players := sortedPlayers(pool)

	remaining := make([]int, len(players))
	for i := range players {
		remaining[i] = i
	}

	for len(remaining) >= 2 {
		pick := s.random.Intn(len(remaining))
		first := players[remaining[pick]]

		var partners []*model.Player
		for _, other := range players {
			if Legal(first, other, history, allowDuplicates) {
				partners = append(partners, other)
			}
		}
		if len(partners) == 0 {
			remaining = append(remaining[:pick], remaining[pick+1:]...)
			continue
		}

		second := partners[s.random.Intn(len(partners))]
		return orient(first, second), true
	}
	return Pair{}, false
}

// sortedPlayers fixes the pool order so draws are reproducible for a given source
func sortedPlayers(pool []Candidate) []*model.Player {
	players := make([]*model.Player, len(pool))
	for i, c := range pool {
		players[i] = c.Player
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}
