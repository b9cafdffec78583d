package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/chiptourney/internal/model"
)

// MockSink records emitted events and optionally fails every delivery
type MockSink struct {
	mu     sync.Mutex
	events []model.Event

	// Err is returned from every Emit call when set
	Err error
}

// NewMockSink creates an empty MockSink
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Emit records the event
func (s *MockSink) Emit(ctx context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.Err
}

// Events returns a copy of every recorded event
func (s *MockSink) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.events...)
}

// OfType returns the recorded events with the given type
func (s *MockSink) OfType(t model.EventType) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Event
	for _, e := range s.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Reset clears recorded events
func (s *MockSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
