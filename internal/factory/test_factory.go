package factory

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/chiptourney/internal/dependencies/mocks"
	"github.com/mcoot/chiptourney/internal/storage/memory"
	"github.com/mcoot/chiptourney/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockIDs    *mocks.MockIDs
	MockSink   *mocks.MockSink
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(testutil.Epoch)
	mockRandom := mocks.NewMockRandom()
	mockIDs := mocks.NewMockIDs()
	mockSink := mocks.NewMockSink()

	app := newWithDependencies(store, memory.NewRatings(), mockClock, mockRandom, mockIDs, mockSink, prometheus.NewRegistry(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MockIDs:    mockIDs,
		MockSink:   mockSink,
		Memory:     store,
	}
}
