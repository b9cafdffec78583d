package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/queue"
)

// Config holds the auto-assign job settings
type Config struct {
	Interval  time.Duration // Zero disables the job
	BatchSize int
}

// DefaultConfig returns the default job settings
func DefaultConfig() Config {
	return Config{
		Interval:  30 * time.Second,
		BatchSize: 16,
	}
}

// Validate rejects settings every sweep would fail with
func (c Config) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("auto-assign interval must not be negative, got %s", c.Interval)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("auto-assign batch size must be at least 1, got %d", c.BatchSize)
	}
	return nil
}

// TournamentLister lists tournaments to sweep
type TournamentLister interface {
	ListTournaments(ctx context.Context) ([]*model.Tournament, error)
}

// Assigner creates matches for a tournament
type Assigner interface {
	AssignBatch(ctx context.Context, tid model.TournamentID, cfg model.ChipConfig, count int) ([]queue.Assignment, error)
}

// AutoAssigner periodically drains the pool of every qualifying tournament.
// It is an external trigger: the queue itself has no timers.
type AutoAssigner struct {
	config    Config
	lister    TournamentLister
	assigner  Assigner
	logger    *slog.Logger
	scheduler gocron.Scheduler
}

// NewAutoAssigner creates an AutoAssigner; call Start to schedule it
func NewAutoAssigner(config Config, lister TournamentLister, assigner Assigner, logger *slog.Logger) *AutoAssigner {
	return &AutoAssigner{
		config:   config,
		lister:   lister,
		assigner: assigner,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// RunOnce sweeps every qualifying tournament once and returns the number of
// matches created. Errors from individual tournaments are joined; the sweep
// continues past them.
func (a *AutoAssigner) RunOnce(ctx context.Context) (int, error) {
	tournaments, err := a.lister.ListTournaments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tournaments: %w", err)
	}

	var (
		created int
		errs    []error
	)
	for _, t := range tournaments {
		if t.IsFinalized() {
			continue
		}
		assignments, err := a.assigner.AssignBatch(ctx, t.ID, t.Config, a.config.BatchSize)
		created += len(assignments)
		if err != nil && !errors.Is(err, model.ErrAlreadyFinalized) {
			errs = append(errs, fmt.Errorf("tournament %s: %w", t.ID, err))
		}
	}
	return created, errors.Join(errs...)
}

// Start schedules the sweep. Overlapping runs are skipped rather than queued.
func (a *AutoAssigner) Start(ctx context.Context) error {
	if a.config.Interval <= 0 {
		a.logger.Info("auto-assign disabled")
		return nil
	}
	if err := a.config.Validate(); err != nil {
		return err
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(a.config.Interval),
		gocron.NewTask(func() {
			created, err := a.RunOnce(ctx)
			if err != nil {
				a.logger.Error("auto-assign sweep failed", slog.String("error", err.Error()))
			}
			if created > 0 {
				a.logger.Info("auto-assign sweep", slog.Int("created", created))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("auto-assign"),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("schedule auto-assign: %w", err)
	}

	s.Start()
	a.scheduler = s
	a.logger.Info("auto-assign scheduled",
		slog.Duration("interval", a.config.Interval),
		slog.Int("batch_size", a.config.BatchSize),
	)
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish
func (a *AutoAssigner) Stop() error {
	if a.scheduler == nil {
		return nil
	}
	err := a.scheduler.Shutdown()
	a.scheduler = nil
	return err
}
