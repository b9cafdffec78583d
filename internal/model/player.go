package model

import "time"

// PlayerID uniquely identifies a player within a tournament
type PlayerID string

// PlayerStatus is a player's position in the queue state machine
type PlayerStatus string

const (
	PlayerAvailable  PlayerStatus = "available"  // In the pool, eligible for pairing
	PlayerReserved   PlayerStatus = "reserved"   // Claimed by a pending match
	PlayerInMatch    PlayerStatus = "in_match"   // Playing an active match
	PlayerFinalist   PlayerStatus = "finalist"   // Terminal: advanced past the cutoff
	PlayerEliminated PlayerStatus = "eliminated" // Terminal: cut at the cutoff
	PlayerWithdrawn  PlayerStatus = "withdrawn"  // Terminal: left the tournament
)

// IsTerminal returns true for statuses that never re-enter the queue
func (s PlayerStatus) IsTerminal() bool {
	switch s {
	case PlayerFinalist, PlayerEliminated, PlayerWithdrawn:
		return true
	default:
		return false
	}
}

// AllPlayerStatuses lists every status in state machine order
func AllPlayerStatuses() []PlayerStatus {
	return []PlayerStatus{
		PlayerAvailable,
		PlayerReserved,
		PlayerInMatch,
		PlayerFinalist,
		PlayerEliminated,
		PlayerWithdrawn,
	}
}

// Player is one entrant of a tournament. Rows are keyed by tournament+player.
type Player struct {
	TournamentID  TournamentID
	ID            PlayerID
	DisplayName   string
	ChipCount     int // Always equals the sum of the player's ChipAward amounts
	MatchesPlayed int
	Status        PlayerStatus

	// AvailableSince is when the player last entered the available state.
	// Earlier means waited longer.
	AvailableSince time.Time

	RegisteredAt time.Time
	UpdatedAt    time.Time

	// Version is the compare-and-swap token; storage bumps it on every write
	Version int64
}

// Clone returns a copy that can be mutated without touching the original
func (p *Player) Clone() *Player {
	c := *p
	return &c
}

// WaitedLonger reports whether p has been available longer than other.
// Ties fall back to player ID so the order is total.
func (p *Player) WaitedLonger(other *Player) bool {
	if !p.AvailableSince.Equal(other.AvailableSince) {
		return p.AvailableSince.Before(other.AvailableSince)
	}
	return p.ID < other.ID
}
