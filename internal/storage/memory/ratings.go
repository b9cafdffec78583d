package memory

import (
	"context"
	"sync"

	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
)

// Ratings is an in-memory rating store
type Ratings struct {
	mu      sync.RWMutex
	ratings map[model.TournamentID]map[model.PlayerID]float64
}

// NewRatings creates an empty in-memory rating store
func NewRatings() *Ratings {
	return &Ratings{ratings: make(map[model.TournamentID]map[model.PlayerID]float64)}
}

// Ensure Ratings implements the interface
var _ storage.RatingStore = (*Ratings)(nil)

func (r *Ratings) Rating(ctx context.Context, tid model.TournamentID, playerID model.PlayerID) (float64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rating, ok := r.ratings[tid][playerID]
	return rating, ok, nil
}

func (r *Ratings) SetRating(ctx context.Context, tid model.TournamentID, playerID model.PlayerID, rating float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ratings[tid] == nil {
		r.ratings[tid] = make(map[model.PlayerID]float64)
	}
	r.ratings[tid][playerID] = rating
	return nil
}

func (r *Ratings) ListRatings(ctx context.Context, tid model.TournamentID) (map[model.PlayerID]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[model.PlayerID]float64, len(r.ratings[tid]))
	for id, rating := range r.ratings[tid] {
		result[id] = rating
	}
	return result, nil
}
