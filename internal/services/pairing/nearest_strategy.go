package pairing

import (
	"math"
	"sort"

	"github.com/mcoot/chiptourney/internal/model"
)

// metricFunc extracts the ordering metric of a candidate; false excludes it
type metricFunc func(c Candidate) (float64, bool)

// NearestStrategy pairs the two legal candidates closest on a metric.
// Ties on distance prefer the pair holding the longest-waiting player,
// then the pair whose other player waited longest.
type NearestStrategy struct {
	metric metricFunc
}

// NewChipDiffStrategy pairs players with the closest chip counts
func NewChipDiffStrategy() *NearestStrategy {
	return &NearestStrategy{
		metric: func(c Candidate) (float64, bool) {
			return float64(c.Player.ChipCount), true
		},
	}
}

// newRatingMetricStrategy pairs rated players with the closest ratings
func newRatingMetricStrategy() *NearestStrategy {
	return &NearestStrategy{
		metric: func(c Candidate) (float64, bool) {
			return c.Rating, c.HasRating
		},
	}
}

type scored struct {
	player *model.Player
	value  float64
}

// SelectPair scans the pool sorted by metric and keeps the best legal pair
func (s *NearestStrategy) SelectPair(pool []Candidate, history model.PairingHistory, allowDuplicates bool) (Pair, bool) {
	entries := make([]scored, 0, len(pool))
	for _, c := range pool {
		if v, ok := s.metric(c); ok {
			entries = append(entries, scored{player: c.Player, value: v})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value < entries[j].value
		}
		return entries[i].player.WaitedLonger(entries[j].player)
	})

	var (
		best     Pair
		bestDist = math.Inf(1)
		found    bool
	)
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			dist := entries[j].value - entries[i].value
			if dist > bestDist {
				// Sorted ascending, so every later j is further away
				break
			}
			if !Legal(entries[i].player, entries[j].player, history, allowDuplicates) {
				continue
			}
			pair := orient(entries[i].player, entries[j].player)
			if !found || dist < bestDist || (dist == bestDist && preferPair(pair, best)) {
				best, bestDist, found = pair, dist, true
			}
		}
	}
	return best, found
}

// preferPair reports whether p beats q on wait time. Both pairs are oriented
// so A is the longer-waiting member.
func preferPair(p, q Pair) bool {
	if p.A.ID != q.A.ID {
		return p.A.WaitedLonger(q.A)
	}
	return p.B.WaitedLonger(q.B)
}

// RatingStrategy pairs by external rating. A pool holding any unrated
// candidate is drawn at random instead, as is a fully rated pool with no
// legal pair.
type RatingStrategy struct {
	nearest  *NearestStrategy
	fallback Strategy
}

// NewRatingStrategy creates a RatingStrategy with the given fallback
func NewRatingStrategy(fallback Strategy) *RatingStrategy {
	return &RatingStrategy{nearest: newRatingMetricStrategy(), fallback: fallback}
}

func (s *RatingStrategy) SelectPair(pool []Candidate, history model.PairingHistory, allowDuplicates bool) (Pair, bool) {
	for _, c := range pool {
		if !c.HasRating {
			return s.fallback.SelectPair(pool, history, allowDuplicates)
		}
	}
	if pair, ok := s.nearest.SelectPair(pool, history, allowDuplicates); ok {
		return pair, true
	}
	return s.fallback.SelectPair(pool, history, allowDuplicates)
}
