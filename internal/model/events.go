package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Queue events
	EventMatchAssigned  EventType = "match_assigned"
	EventMatchCompleted EventType = "match_completed"
	EventMatchCancelled EventType = "match_cancelled"

	// Ledger events
	EventChipsAdjusted    EventType = "chips_adjusted"
	EventStandingsUpdated EventType = "standings_updated"

	// Cutoff events
	EventCutoffApplied EventType = "cutoff_applied"

	// Roster events
	EventPlayerRegistered EventType = "player_registered"
	EventPlayerWithdrawn  EventType = "player_withdrawn"
)

// Event is the base structure for all events
type Event struct {
	Type         EventType
	Timestamp    time.Time
	TournamentID TournamentID
	MatchID      MatchID  // Empty for non-match events
	PlayerID     PlayerID // The player affected, if any
	Payload      any      // Type-specific data
}

// MatchAssignedPayload contains data for match assigned events
type MatchAssignedPayload struct {
	PlayerA PlayerID
	PlayerB PlayerID
	Round   int
}

// MatchCompletedPayload contains data for match completed events
type MatchCompletedPayload struct {
	Winner      PlayerID
	Loser       PlayerID
	WinnerChips int
	LoserChips  int
}

// ChipsAdjustedPayload contains data for chips adjusted events
type ChipsAdjustedPayload struct {
	Requested    int
	Applied      int
	NewChipCount int
	Reason       string
}

// StandingsUpdatedPayload contains data for standings updated events
type StandingsUpdatedPayload struct {
	Cause EventType
}

// CutoffAppliedPayload contains data for cutoff applied events
type CutoffAppliedPayload struct {
	Finalists  int
	Eliminated int
	Tiebreaks  int
}
