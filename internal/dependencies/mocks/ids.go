package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/chiptourney/internal/dependencies/ids"
)

// MockIDs issues sequential identifiers ("id-1", "id-2", ...)
type MockIDs struct {
	mu     sync.Mutex
	next   int
	Prefix string
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a MockIDs with the "id" prefix
func NewMockIDs() *MockIDs {
	return &MockIDs{Prefix: "id"}
}

// NewID returns the next sequential identifier
func (g *MockIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.Prefix, g.next)
}
