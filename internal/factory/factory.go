package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/chiptourney/internal/dependencies/clock"
	"github.com/mcoot/chiptourney/internal/dependencies/ids"
	"github.com/mcoot/chiptourney/internal/dependencies/random"
	"github.com/mcoot/chiptourney/internal/events"
	"github.com/mcoot/chiptourney/internal/services/cutoff"
	"github.com/mcoot/chiptourney/internal/services/ledger"
	"github.com/mcoot/chiptourney/internal/services/match"
	"github.com/mcoot/chiptourney/internal/services/pairing"
	"github.com/mcoot/chiptourney/internal/services/queue"
	"github.com/mcoot/chiptourney/internal/services/roster"
	"github.com/mcoot/chiptourney/internal/services/stats"
	"github.com/mcoot/chiptourney/internal/services/tournamentlock"
	"github.com/mcoot/chiptourney/internal/storage"
	"github.com/mcoot/chiptourney/internal/storage/memory"
	redisstorage "github.com/mcoot/chiptourney/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage
	Ratings storage.RatingStore

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	IDs    ids.Generator

	// Observability
	Registry *prometheus.Registry
	Emitter  *events.Emitter

	// Services
	Roster  *roster.Service
	Ledger  *ledger.Service
	Queue   *queue.Service
	Matches *match.Service
	Cutoff  *cutoff.Service
	Stats   *stats.Service

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var (
		store   storage.Storage
		ratings storage.RatingStore
		closers []io.Closer
	)
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
		ratings = memory.NewRatings()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		ratings = redisStore.Ratings()
		closers = append(closers, redisStore)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	registry := prometheus.NewRegistry()
	sink := events.MultiSink{
		events.NewLogSink(logger),
		events.NewPrometheusSink(registry),
	}

	app := newWithDependencies(store, ratings, clock.New(), random.New(), ids.New(), sink, registry, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	ratings storage.RatingStore,
	clk clock.Clock,
	rnd random.Random,
	idGen ids.Generator,
	sink events.Sink,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *App {
	emitter := events.NewEmitter(sink, clk, logger)
	// Queue and cutoff must share one registry so they exclude each other
	locks := tournamentlock.New()
	statsService := stats.New(store)
	registry.MustRegister(stats.NewCollector(statsService, logger))

	return &App{
		Storage:  store,
		Ratings:  ratings,
		Clock:    clk,
		Random:   rnd,
		IDs:      idGen,
		Registry: registry,
		Emitter:  emitter,
		Roster:   roster.New(store, clk, idGen, emitter, logger),
		Ledger:   ledger.New(store, clk, idGen, emitter, logger),
		Queue: queue.New(
			store,
			pairing.NewResolver(rnd),
			ratings,
			locks,
			statsService,
			clk,
			idGen,
			emitter,
			logger,
		),
		Matches: match.New(store, clk, idGen, emitter, logger),
		Cutoff:  cutoff.New(store, locks, clk, emitter, logger),
		Stats:   statsService,
	}
}

// Close releases storage connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
