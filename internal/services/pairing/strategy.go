package pairing

import "github.com/mcoot/chiptourney/internal/model"

// Candidate is an available player offered to a strategy
type Candidate struct {
	Player    *model.Player
	Rating    float64
	HasRating bool
}

// Pair is a selected pairing. A is the player who has waited longer.
type Pair struct {
	A *model.Player
	B *model.Player
}

// Key returns the unordered history key for the pair
func (p Pair) Key() model.PairKey {
	return model.NewPairKey(p.A.ID, p.B.ID)
}

// Strategy chooses the next pair from the available pool
type Strategy interface {
	// SelectPair returns the chosen pair, or false if no legal pair exists.
	// When allowDuplicates is false, pairs in history are never returned.
	SelectPair(pool []Candidate, history model.PairingHistory, allowDuplicates bool) (Pair, bool)
}

// Legal reports whether two distinct players may be paired
func Legal(a, b *model.Player, history model.PairingHistory, allowDuplicates bool) bool {
	if a.ID == b.ID {
		return false
	}
	return allowDuplicates || !history.Contains(a.ID, b.ID)
}

// orient puts the longer-waiting player first
func orient(a, b *model.Player) Pair {
	if b.WaitedLonger(a) {
		return Pair{A: b, B: a}
	}
	return Pair{A: a, B: b}
}
