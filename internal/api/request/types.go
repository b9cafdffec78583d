package request

import "github.com/mcoot/chiptourney/internal/model"

// ChipConfig is the JSON form of model.ChipConfig
type ChipConfig struct {
	WinnerChips            int    `json:"winner_chips"`
	LoserChips             int    `json:"loser_chips"`
	QualificationRounds    int    `json:"qualification_rounds"`
	FinalsCount            int    `json:"finals_count"`
	PairingStrategy        string `json:"pairing_strategy"`
	AllowDuplicatePairings bool   `json:"allow_duplicate_pairings"`
	Tiebreaker             string `json:"tiebreaker"`
}

// ChipConfigFromModel converts a model config, used to prefill defaults
// before decoding a partial body
func ChipConfigFromModel(c model.ChipConfig) ChipConfig {
	return ChipConfig{
		WinnerChips:            c.WinnerChips,
		LoserChips:             c.LoserChips,
		QualificationRounds:    c.QualificationRounds,
		FinalsCount:            c.FinalsCount,
		PairingStrategy:        string(c.PairingStrategy),
		AllowDuplicatePairings: c.AllowDuplicatePairings,
		Tiebreaker:             string(c.Tiebreaker),
	}
}

// ToModel converts to model.ChipConfig
func (c ChipConfig) ToModel() model.ChipConfig {
	return model.ChipConfig{
		WinnerChips:            c.WinnerChips,
		LoserChips:             c.LoserChips,
		QualificationRounds:    c.QualificationRounds,
		FinalsCount:            c.FinalsCount,
		PairingStrategy:        model.PairingStrategy(c.PairingStrategy),
		AllowDuplicatePairings: c.AllowDuplicatePairings,
		Tiebreaker:             model.Tiebreaker(c.Tiebreaker),
	}
}

// CreateTournamentRequest is the request body for creating a tournament.
// Config fields left out keep their defaults.
type CreateTournamentRequest struct {
	Name   string     `json:"name"`
	Config ChipConfig `json:"config"`
}

// RegisterPlayerRequest is the request body for registering a player
type RegisterPlayerRequest struct {
	DisplayName string `json:"display_name"`
}

// AssignRequest is the request body for creating matches. A missing count
// assigns a single match.
type AssignRequest struct {
	Count *int `json:"count,omitempty"`
}

// AdjustChipsRequest is the request body for a manual chip adjustment
type AdjustChipsRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// CompleteMatchRequest is the request body for recording a result
type CompleteMatchRequest struct {
	WinnerID string `json:"winner_id"`
}

// SetRatingRequest is the request body for setting a player's rating
type SetRatingRequest struct {
	Rating float64 `json:"rating"`
}
