package model

import "context"

// ConfigSource provides the read-only chip config of a tournament
type ConfigSource interface {
	ChipConfig(ctx context.Context, id TournamentID) (ChipConfig, error)
}

// RatingSource provides an external rating metric per player.
// ok is false when the player has no rating.
type RatingSource interface {
	Rating(ctx context.Context, tournamentID TournamentID, playerID PlayerID) (rating float64, ok bool, err error)
}
