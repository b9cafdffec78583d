package model

import (
	"strings"
	"time"
)

// AwardID uniquely identifies a chip award
type AwardID string

// Award reasons written by the match lifecycle
const (
	ReasonMatchWin  = "match_win"
	ReasonMatchLoss = "match_loss"

	// ManualReasonPrefix marks an out-of-band adjustment
	ManualReasonPrefix = "manual"
)

// IsManualReason returns true if the reason marks a manual adjustment
func IsManualReason(reason string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(reason)), ManualReasonPrefix)
}

// ManualReason tags a free-form reason as a manual adjustment
func ManualReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if IsManualReason(reason) {
		return reason
	}
	return ManualReasonPrefix + ": " + reason
}

// ChipAward is one immutable entry of the chip ledger
type ChipAward struct {
	ID           AwardID
	TournamentID TournamentID
	MatchID      MatchID // Empty for manual adjustments
	PlayerID     PlayerID

	// Amount is the delta actually applied to the player's total after the
	// floor clamp. RequestedAmount is what the caller asked for.
	Amount          int
	RequestedAmount int

	Reason    string
	Manual    bool
	Timestamp time.Time
}

// Clamped returns true if the floor changed the requested delta
func (a *ChipAward) Clamped() bool {
	return a.Amount != a.RequestedAmount
}

// PairingStrategy selects how the queue picks the next pair
type PairingStrategy string

const (
	PairingRandom   PairingStrategy = "random"
	PairingRating   PairingStrategy = "rating"
	PairingChipDiff PairingStrategy = "chip_diff"
)

// Tiebreaker selects how ties across the finals boundary are resolved
type Tiebreaker string

const (
	TiebreakHeadToHead     Tiebreaker = "head_to_head"
	TiebreakStandingsOrder Tiebreaker = "standings_order"
)

// ChipConfig is the immutable per-tournament configuration
type ChipConfig struct {
	WinnerChips            int
	LoserChips             int
	QualificationRounds    int
	FinalsCount            int
	PairingStrategy        PairingStrategy
	AllowDuplicatePairings bool
	Tiebreaker             Tiebreaker
}

// DefaultChipConfig returns a config suitable for a casual event
func DefaultChipConfig() ChipConfig {
	return ChipConfig{
		WinnerChips:         3,
		LoserChips:          1,
		QualificationRounds: 3,
		FinalsCount:         8,
		PairingStrategy:     PairingRandom,
		Tiebreaker:          TiebreakHeadToHead,
	}
}

// Validate checks the config is usable
func (c ChipConfig) Validate() error {
	if c.WinnerChips < 0 || c.LoserChips < 0 {
		return NewValidationError("match awards must be non-negative")
	}
	if c.QualificationRounds < 0 {
		return NewValidationError("qualification rounds must be non-negative")
	}
	if c.FinalsCount < 1 {
		return NewValidationError("finals count must be at least 1")
	}
	switch c.PairingStrategy {
	case PairingRandom, PairingRating, PairingChipDiff:
	default:
		return NewValidationError("unknown pairing strategy %q", c.PairingStrategy)
	}
	switch c.Tiebreaker {
	case TiebreakHeadToHead, TiebreakStandingsOrder:
	default:
		return NewValidationError("unknown tiebreaker %q", c.Tiebreaker)
	}
	return nil
}
