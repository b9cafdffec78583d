package stats

import (
	"context"

	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
)

// QueueStats is a read-only rollup of pool and match counts
type QueueStats struct {
	TournamentID          model.TournamentID
	Phase                 model.TournamentPhase
	AvailableCount        int
	ActiveMatchesCount    int // Pending plus active
	CompletedMatchesCount int
	PlayersByStatus       map[model.PlayerStatus]int
	MatchesByState        map[model.MatchState]int
}

// Service aggregates queue stats. It never takes the assignment lock.
type Service struct {
	storage storage.Storage
}

// New creates a new stats Service
func New(storage storage.Storage) *Service {
	return &Service{
		storage: storage,
	}
}

// GetQueueStats counts players by status and matches by state from one snapshot
func (s *Service) GetQueueStats(ctx context.Context, tid model.TournamentID) (*QueueStats, error) {
	snap, err := s.storage.Snapshot(ctx, tid)
	if err != nil {
		return nil, err
	}
	return Aggregate(snap), nil
}

// Aggregate computes stats from a snapshot. Every known status and state
// is present in the maps, zero or not.
func Aggregate(snap *storage.Snapshot) *QueueStats {
	result := &QueueStats{
		TournamentID:    snap.Tournament.ID,
		Phase:           snap.Tournament.Phase,
		PlayersByStatus: make(map[model.PlayerStatus]int),
		MatchesByState:  make(map[model.MatchState]int),
	}
	for _, status := range model.AllPlayerStatuses() {
		result.PlayersByStatus[status] = 0
	}
	for _, state := range model.AllMatchStates() {
		result.MatchesByState[state] = 0
	}

	for _, p := range snap.Players {
		result.PlayersByStatus[p.Status]++
	}
	for _, m := range snap.Matches {
		result.MatchesByState[m.State]++
	}

	result.AvailableCount = result.PlayersByStatus[model.PlayerAvailable]
	result.ActiveMatchesCount = result.MatchesByState[model.MatchPending] + result.MatchesByState[model.MatchActive]
	result.CompletedMatchesCount = result.MatchesByState[model.MatchCompleted]
	return result
}
