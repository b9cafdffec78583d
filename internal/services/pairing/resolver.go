package pairing

import (
	"github.com/mcoot/chiptourney/internal/dependencies/random"
	"github.com/mcoot/chiptourney/internal/model"
)

// Resolver maps a configured pairing strategy to its implementation
type Resolver struct {
	strategies map[model.PairingStrategy]Strategy
}

// NewResolver creates a Resolver with the built-in strategies
func NewResolver(rnd random.Random) *Resolver {
	randomStrategy := NewRandomStrategy(rnd)
	return &Resolver{
		strategies: map[model.PairingStrategy]Strategy{
			model.PairingRandom:   randomStrategy,
			model.PairingRating:   NewRatingStrategy(randomStrategy),
			model.PairingChipDiff: NewChipDiffStrategy(),
		},
	}
}

// Register adds or replaces the implementation for a strategy name
func (r *Resolver) Register(name model.PairingStrategy, strategy Strategy) {
	r.strategies[name] = strategy
}

// Resolve returns the strategy for a name
func (r *Resolver) Resolve(name model.PairingStrategy) (Strategy, error) {
	strategy, ok := r.strategies[name]
	if !ok {
		return nil, model.NewValidationError("unknown pairing strategy %q", name)
	}
	return strategy, nil
}

// SelectPair resolves the strategy and selects a pair from the pool
func (r *Resolver) SelectPair(name model.PairingStrategy, pool []Candidate, history model.PairingHistory, allowDuplicates bool) (Pair, bool, error) {
	strategy, err := r.Resolve(name)
	if err != nil {
		return Pair{}, false, err
	}
	pair, ok := strategy.SelectPair(pool, history, allowDuplicates)
	return pair, ok, nil
}
