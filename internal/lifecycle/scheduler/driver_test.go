package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/application/commands"
	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu      sync.Mutex
	calls   map[uuid.UUID]int
	results map[uuid.UUID]*commands.RunTickResult
	errs    map[uuid.UUID]error
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		calls:   make(map[uuid.UUID]int),
		results: make(map[uuid.UUID]*commands.RunTickResult),
		errs:    make(map[uuid.UUID]error),
	}
}

func (r *stubRunner) Handle(_ context.Context, cmd commands.RunTickCommand) (*commands.RunTickResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[cmd.ProjectID]++
	if err := r.errs[cmd.ProjectID]; err != nil {
		return nil, err
	}
	if result := r.results[cmd.ProjectID]; result != nil {
		return result, nil
	}
	return &commands.RunTickResult{}, nil
}

func (r *stubRunner) callCount(projectID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[projectID]
}

type stubProjectLister struct {
	domain.Repository
	ids []uuid.UUID
	err error
}

func (s *stubProjectLister) ListProjectIDs(context.Context) ([]uuid.UUID, error) {
	return s.ids, s.err
}

func TestDriver_RunScheduledTick_SweepsAllProjects(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	runner := newStubRunner()
	runner.results[a] = &commands.RunTickResult{Changes: 3}
	runner.results[b] = &commands.RunTickResult{Changes: 1}

	driver := NewDriver(runner, &stubProjectLister{ids: []uuid.UUID{a, b}}, DefaultDriverConfig(), nil)

	stats := driver.RunScheduledTick(context.Background(), time.Now())

	assert.Equal(t, 2, stats.Projects)
	assert.Equal(t, 4, stats.Changed)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 1, runner.callCount(a))
	assert.Equal(t, 1, runner.callCount(b))
}

func TestDriver_RunScheduledTick_FailureDoesNotAbortOthers(t *testing.T) {
	bad, good := uuid.New(), uuid.New()
	runner := newStubRunner()
	runner.errs[bad] = errors.New("storage gone")
	runner.results[good] = &commands.RunTickResult{Changes: 2}

	driver := NewDriver(runner, &stubProjectLister{ids: []uuid.UUID{bad, good}}, DefaultDriverConfig(), nil)

	stats := driver.RunScheduledTick(context.Background(), time.Now())

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Changed)
	assert.Equal(t, 1, runner.callCount(good))
}

func TestDriver_BreakerSkipsRepeatedlyFailingProject(t *testing.T) {
	bad := uuid.New()
	runner := newStubRunner()
	runner.errs[bad] = errors.New("always failing")

	config := DefaultDriverConfig()
	config.BreakerFailures = 2
	config.BreakerCooldown = time.Hour

	driver := NewDriver(runner, &stubProjectLister{ids: []uuid.UUID{bad}}, config, nil)
	ctx := context.Background()

	first := driver.RunScheduledTick(ctx, time.Now())
	second := driver.RunScheduledTick(ctx, time.Now())
	third := driver.RunScheduledTick(ctx, time.Now())

	assert.Equal(t, 1, first.Failed)
	assert.Equal(t, 1, second.Failed)
	assert.Equal(t, 1, third.Skipped, "open breaker skips without calling the runner")
	assert.Equal(t, 2, runner.callCount(bad))
}

func TestDriver_LockContentionIsNotAProjectFault(t *testing.T) {
	locked := uuid.New()
	runner := newStubRunner()
	runner.errs[locked] = commands.ErrProjectLocked

	config := DefaultDriverConfig()
	config.BreakerFailures = 2
	config.BreakerCooldown = time.Hour

	driver := NewDriver(runner, &stubProjectLister{ids: []uuid.UUID{locked}}, config, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		stats := driver.RunScheduledTick(ctx, time.Now())
		assert.Equal(t, 1, stats.Skipped)
		assert.Equal(t, 0, stats.Failed)
	}

	// Contention never opens the breaker: every sweep still reaches the runner.
	assert.Equal(t, 5, runner.callCount(locked))
}

func TestDriver_ListFailure(t *testing.T) {
	driver := NewDriver(newStubRunner(), &stubProjectLister{err: errors.New("db down")}, DefaultDriverConfig(), nil)

	stats := driver.RunScheduledTick(context.Background(), time.Now())

	assert.Equal(t, 0, stats.Projects)
	assert.Equal(t, 1, stats.Failed)
}

func TestDriver_StartStop(t *testing.T) {
	driver := NewDriver(newStubRunner(), &stubProjectLister{}, DefaultDriverConfig(), nil)

	driver.Start(context.Background())
	require.True(t, driver.IsRunning())
	driver.Start(context.Background())

	driver.Stop()
	require.False(t, driver.IsRunning())
	driver.Stop()
}
