package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/taskflow-io/taskflow/internal/lifecycle/application/commands"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerializesPerProject(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()
	projectID := uuid.New()

	release, err := locker.AcquireProject(ctx, projectID)
	require.NoError(t, err)

	_, err = locker.AcquireProject(ctx, projectID)
	assert.ErrorIs(t, err, commands.ErrProjectLocked)

	// A different project is not blocked.
	otherRelease, err := locker.AcquireProject(ctx, uuid.New())
	require.NoError(t, err)
	otherRelease(ctx)

	release(ctx)

	release2, err := locker.AcquireProject(ctx, projectID)
	require.NoError(t, err)
	release2(ctx)
}

func TestLocalLocker_ReleaseIsIdempotent(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()
	projectID := uuid.New()

	release, err := locker.AcquireProject(ctx, projectID)
	require.NoError(t, err)

	release(ctx)
	release(ctx)

	// Double release must not free a lock someone else now holds.
	_, err = locker.AcquireProject(ctx, projectID)
	require.NoError(t, err)
	release(ctx)

	_, err = locker.AcquireProject(ctx, projectID)
	assert.ErrorIs(t, err, commands.ErrProjectLocked)
}

func TestLocalLocker_ConcurrentAcquisition(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()
	projectID := uuid.New()

	const attempts = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := locker.AcquireProject(ctx, projectID); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// The lock is never released, so exactly one goroutine wins.
	assert.Equal(t, 1, winners)
}
