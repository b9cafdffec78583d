package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
)

// Ratings stores player ratings in a sorted set per tournament
type Ratings struct {
	client *redis.Client
	keys   keys
}

// NewRatingsWithClient creates a rating store with an existing client
func NewRatingsWithClient(client *redis.Client, cfg Config) *Ratings {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Ratings{client: client, keys: keys{prefix: cfg.KeyPrefix}}
}

// Ensure Ratings implements the interface
var _ storage.RatingStore = (*Ratings)(nil)

func (r *Ratings) Rating(ctx context.Context, tid model.TournamentID, playerID model.PlayerID) (float64, bool, error) {
	score, err := r.client.ZScore(ctx, r.keys.ratings(tid), string(playerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return score, true, nil
}

func (r *Ratings) SetRating(ctx context.Context, tid model.TournamentID, playerID model.PlayerID, rating float64) error {
	return r.client.ZAdd(ctx, r.keys.ratings(tid), redis.Z{
		Score:  rating,
		Member: string(playerID),
	}).Err()
}

func (r *Ratings) ListRatings(ctx context.Context, tid model.TournamentID) (map[model.PlayerID]float64, error) {
	entries, err := r.client.ZRangeWithScores(ctx, r.keys.ratings(tid), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	result := make(map[model.PlayerID]float64, len(entries))
	for _, entry := range entries {
		member, ok := entry.Member.(string)
		if !ok {
			continue
		}
		result[model.PlayerID(member)] = entry.Score
	}
	return result, nil
}
