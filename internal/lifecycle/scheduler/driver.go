package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/application/commands"
	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// TickRunner executes one project's scheduled pass.
type TickRunner interface {
	Handle(ctx context.Context, cmd commands.RunTickCommand) (*commands.RunTickResult, error)
}

// DriverConfig tunes the periodic driver.
type DriverConfig struct {
	// Interval between scheduled runs over all projects.
	Interval time.Duration

	// TickTimeout bounds one project's pass.
	TickTimeout time.Duration

	// BreakerFailures is the consecutive-failure count that opens a
	// project's circuit breaker.
	BreakerFailures uint32

	// BreakerCooldown is how long an open breaker skips its project before
	// allowing a probe.
	BreakerCooldown time.Duration
}

// DefaultDriverConfig returns the defaults used by the worker.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		Interval:        time.Hour,
		TickTimeout:     30 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 10 * time.Minute,
	}
}

// RunStats summarizes one scheduled run over all projects.
type RunStats struct {
	Projects int
	Changed  int
	Skipped  int
	Failed   int
}

// Driver periodically sweeps every project through a tick. Projects are
// isolated from each other twice over: a failure is logged and the sweep
// continues, and a project that keeps failing trips its own circuit breaker
// and is skipped until the breaker cools down.
type Driver struct {
	runner TickRunner
	repo   domain.Repository
	config DriverConfig
	clock  func() time.Time
	logger *slog.Logger

	breakerMu sync.Mutex
	breakers  map[uuid.UUID]*gobreaker.CircuitBreaker[*commands.RunTickResult]

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewDriver creates a scheduler driver.
func NewDriver(runner TickRunner, repo domain.Repository, config DriverConfig, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	return &Driver{
		runner:   runner,
		repo:     repo,
		config:   config,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   logger,
		breakers: make(map[uuid.UUID]*gobreaker.CircuitBreaker[*commands.RunTickResult]),
		stopChan: make(chan struct{}),
	}
}

// WithClock overrides the driver's time source.
func (d *Driver) WithClock(clock func() time.Time) *Driver {
	d.clock = clock
	return d
}

// Start launches the periodic loop. Calling Start on a running driver is a
// no-op.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.stopChan = make(chan struct{})
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(ctx)

	d.logger.Info("scheduler driver started", "interval", d.config.Interval)
}

// Stop halts the loop and waits for an in-flight sweep.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopChan)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("scheduler driver stopped")
}

// IsRunning reports whether the loop is active.
func (d *Driver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) run(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopChan:
			return
		case <-ticker.C:
			stats := d.RunScheduledTick(ctx, d.clock())
			d.logger.Info("scheduled run finished",
				"projects", stats.Projects,
				"changed", stats.Changed,
				"skipped", stats.Skipped,
				"failed", stats.Failed,
			)
		}
	}
}

// RunScheduledTick sweeps every project once at the given instant. One
// project's failure never aborts the others.
func (d *Driver) RunScheduledTick(ctx context.Context, now time.Time) RunStats {
	var stats RunStats

	ids, err := d.repo.ListProjectIDs(ctx)
	if err != nil {
		d.logger.Error("failed to list projects", "error", err)
		stats.Failed++
		return stats
	}
	stats.Projects = len(ids)

	for _, projectID := range ids {
		select {
		case <-ctx.Done():
			return stats
		default:
		}

		result, err := d.tickProject(ctx, projectID, now)
		switch {
		case err == nil:
			stats.Changed += result.Changes
		case errors.Is(err, commands.ErrProjectLocked):
			stats.Skipped++
			d.logger.Debug("project locked, skipping", "project_id", projectID)
		case errors.Is(err, gobreaker.ErrOpenState):
			stats.Skipped++
			d.logger.Warn("circuit open, skipping project", "project_id", projectID)
		default:
			stats.Failed++
			d.logger.Error("project tick failed",
				"project_id", projectID,
				"error", err,
			)
		}
	}
	return stats
}

func (d *Driver) tickProject(ctx context.Context, projectID uuid.UUID, now time.Time) (*commands.RunTickResult, error) {
	if d.config.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.TickTimeout)
		defer cancel()
	}

	breaker := d.breakerFor(projectID)
	return breaker.Execute(func() (*commands.RunTickResult, error) {
		return d.runner.Handle(ctx, commands.RunTickCommand{ProjectID: projectID, Now: now})
	})
}

func (d *Driver) breakerFor(projectID uuid.UUID) *gobreaker.CircuitBreaker[*commands.RunTickResult] {
	d.breakerMu.Lock()
	defer d.breakerMu.Unlock()

	if breaker, ok := d.breakers[projectID]; ok {
		return breaker
	}

	failures := d.config.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	settings := gobreaker.Settings{
		Name:        "project:" + projectID.String(),
		MaxRequests: 1,
		Timeout:     d.config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			d.logger.Info("project breaker state changed",
				"project_id", projectID,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// A lock contention is congestion, not a project fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, commands.ErrProjectLocked)
		},
	}

	breaker := gobreaker.NewCircuitBreaker[*commands.RunTickResult](settings)
	d.breakers[projectID] = breaker
	return breaker
}
