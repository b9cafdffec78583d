package redis

import (
	"fmt"

	"github.com/mcoot/chiptourney/internal/model"
)

// keys builds every Redis key under one prefix
type keys struct {
	prefix string
}

// tournament returns the key for a Tournament
func (k keys) tournament(id model.TournamentID) string {
	return fmt.Sprintf("%s:tournament:%s", k.prefix, id)
}

// tournamentIndex returns the key for the SET of tournament IDs
func (k keys) tournamentIndex() string {
	return fmt.Sprintf("%s:idx:tournaments", k.prefix)
}

// player returns the key for a Player
func (k keys) player(tid model.TournamentID, id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s:%s", k.prefix, tid, id)
}

// playerIndex returns the key for the SET of player keys in a tournament
func (k keys) playerIndex(tid model.TournamentID) string {
	return fmt.Sprintf("%s:idx:players:%s", k.prefix, tid)
}

// match returns the key for a Match
func (k keys) match(tid model.TournamentID, id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s:%s", k.prefix, tid, id)
}

// matchIndex returns the key for the SET of match keys in a tournament
func (k keys) matchIndex(tid model.TournamentID) string {
	return fmt.Sprintf("%s:idx:matches:%s", k.prefix, tid)
}

// history returns the key for the SET of paired players in a tournament
func (k keys) history(tid model.TournamentID) string {
	return fmt.Sprintf("%s:history:%s", k.prefix, tid)
}

// awards returns the key for the LIST of chip awards in a tournament
func (k keys) awards(tid model.TournamentID) string {
	return fmt.Sprintf("%s:awards:%s", k.prefix, tid)
}

// ratings returns the key for the ZSET of player ratings in a tournament
func (k keys) ratings(tid model.TournamentID) string {
	return fmt.Sprintf("%s:ratings:%s", k.prefix, tid)
}
