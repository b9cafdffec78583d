package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")

	// Lookup errors; all match errors.Is(err, ErrNotFound)
	ErrTournamentNotFound = fmt.Errorf("tournament %w", ErrNotFound)
	ErrPlayerNotFound     = fmt.Errorf("player %w", ErrNotFound)
	ErrMatchNotFound      = fmt.Errorf("match %w", ErrNotFound)

	// Queue errors
	ErrQueueExhausted      = errors.New("fewer than two players available")
	ErrPairingConstraint   = errors.New("no legal pair under the no-duplicate rule")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// Lifecycle errors
	ErrAlreadyFinalized        = errors.New("tournament is already finalized")
	ErrMatchNotActive          = errors.New("match is not pending or active")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrMatchesInFlight         = errors.New("tournament has pending or active matches")
	ErrQualificationIncomplete = errors.New("qualification rounds not complete")
)

// NewValidationError wraps ErrValidation with a description of the bad input
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
