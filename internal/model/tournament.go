package model

import (
	"slices"
	"time"
)

// TournamentID uniquely identifies a tournament
type TournamentID string

// TournamentPhase is the overall state of a tournament
type TournamentPhase string

const (
	PhaseQualifying TournamentPhase = "qualifying" // Pool is open, matches are assigned
	PhaseFinalized  TournamentPhase = "finalized"  // Cutoff applied, no further queue activity
)

// Tournament holds the configuration and phase of one event.
// Every assignment and the cutoff bump its Version, so the row doubles as
// the per-tournament serialization point in storage.
type Tournament struct {
	ID        TournamentID
	Name      string
	Config    ChipConfig
	Phase     TournamentPhase
	Cutoff    *CutoffResult // Set once finalized
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// IsFinalized returns true once the cutoff has been applied
func (t *Tournament) IsFinalized() bool {
	return t.Phase == PhaseFinalized
}

// Clone returns a deep copy of the tournament
func (t *Tournament) Clone() *Tournament {
	c := *t
	if t.Cutoff != nil {
		c.Cutoff = t.Cutoff.Clone()
	}
	return &c
}

// CutoffResult is the stored outcome of the finals cutoff
type CutoffResult struct {
	Finalists  []PlayerID
	Eliminated []PlayerID
	Tiebreaks  []TiebreakRecord
	AppliedAt  time.Time
}

// Clone returns a deep copy of the result
func (r *CutoffResult) Clone() *CutoffResult {
	c := *r
	c.Finalists = slices.Clone(r.Finalists)
	c.Eliminated = slices.Clone(r.Eliminated)
	c.Tiebreaks = make([]TiebreakRecord, len(r.Tiebreaks))
	for i, tb := range r.Tiebreaks {
		c.Tiebreaks[i] = tb.Clone()
	}
	return &c
}

// TiebreakRecord describes how a tie across the finals boundary was resolved
type TiebreakRecord struct {
	ChipCount      int
	Tied           []PlayerID // In standings order
	Slots          int        // Finalist places available to the tied group
	Method         Tiebreaker
	Advanced       []PlayerID
	Eliminated     []PlayerID
	HeadToHeadWins map[PlayerID]int // Only set for head_to_head
}

// Clone returns a deep copy of the record
func (r TiebreakRecord) Clone() TiebreakRecord {
	c := r
	c.Tied = slices.Clone(r.Tied)
	c.Advanced = slices.Clone(r.Advanced)
	c.Eliminated = slices.Clone(r.Eliminated)
	if r.HeadToHeadWins != nil {
		c.HeadToHeadWins = make(map[PlayerID]int, len(r.HeadToHeadWins))
		for k, v := range r.HeadToHeadWins {
			c.HeadToHeadWins[k] = v
		}
	}
	return c
}
