package model

import (
	"sort"
	"time"
)

// MatchID uniquely identifies a match
type MatchID string

// MatchState represents the lifecycle phase of a match
type MatchState string

const (
	MatchPending   MatchState = "pending"   // Created by the queue, players reserved
	MatchActive    MatchState = "active"    // Being played
	MatchCompleted MatchState = "completed" // Result recorded, chips awarded
	MatchCancelled MatchState = "cancelled" // Abandoned without result
)

// IsOpen returns true while the match still holds its players
func (s MatchState) IsOpen() bool {
	return s == MatchPending || s == MatchActive
}

// AllMatchStates lists every match state in lifecycle order
func AllMatchStates() []MatchState {
	return []MatchState{MatchPending, MatchActive, MatchCompleted, MatchCancelled}
}

// Match is a single head-to-head pairing drawn from the pool
type Match struct {
	TournamentID TournamentID
	ID           MatchID
	PlayerA      PlayerID
	PlayerB      PlayerID
	State        MatchState
	Winner       PlayerID // Empty until completed
	Round        int      // 1 + the higher matchesPlayed of the two players at creation

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time

	Version int64
}

// Clone returns a deep copy of the match
func (m *Match) Clone() *Match {
	c := *m
	if m.StartedAt != nil {
		t := *m.StartedAt
		c.StartedAt = &t
	}
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// HasPlayer returns true if the player is one of the two participants
func (m *Match) HasPlayer(id PlayerID) bool {
	return m.PlayerA == id || m.PlayerB == id
}

// Opponent returns the other participant, or empty if id is not in the match
func (m *Match) Opponent(id PlayerID) PlayerID {
	switch id {
	case m.PlayerA:
		return m.PlayerB
	case m.PlayerB:
		return m.PlayerA
	default:
		return ""
	}
}

// Loser returns the non-winning participant of a completed match
func (m *Match) Loser() PlayerID {
	if m.Winner == "" {
		return ""
	}
	return m.Opponent(m.Winner)
}

// PairKey is an unordered pair of player IDs, normalized so A < B
type PairKey struct {
	A PlayerID
	B PlayerID
}

// NewPairKey builds the normalized key for two players
func NewPairKey(x, y PlayerID) PairKey {
	if y < x {
		x, y = y, x
	}
	return PairKey{A: x, B: y}
}

// String renders the key as "a|b"
func (k PairKey) String() string {
	return string(k.A) + "|" + string(k.B)
}

// PairingHistory is the set of player pairs already matched in a tournament
type PairingHistory map[PairKey]struct{}

// Contains reports whether the two players have already been paired
func (h PairingHistory) Contains(x, y PlayerID) bool {
	_, ok := h[NewPairKey(x, y)]
	return ok
}

// Add records a pairing
func (h PairingHistory) Add(x, y PlayerID) {
	h[NewPairKey(x, y)] = struct{}{}
}

// Keys returns all pairs in a stable order
func (h PairingHistory) Keys() []PairKey {
	keys := make([]PairKey, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	return keys
}
