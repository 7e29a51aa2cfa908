package commands

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// lockReleaseTimeout bounds the release call itself.
const lockReleaseTimeout = 5 * time.Second

// ErrProjectLocked is returned when another run already holds the
// project's lock.
var ErrProjectLocked = errors.New("project is locked by another run")

// ReleaseFunc releases a held lock. Safe to call once.
type ReleaseFunc func(ctx context.Context)

// ProjectLocker serializes lifecycle runs per project. Ticks and cascades
// for the same project never overlap; different projects may run
// concurrently.
type ProjectLocker interface {
	// AcquireProject takes the project's lock or returns ErrProjectLocked.
	AcquireProject(ctx context.Context, projectID uuid.UUID) (ReleaseFunc, error)
}

// releaseLock frees a project lock on a context detached from the request,
// so a run that failed because its context expired still releases the lock
// instead of holding it until the TTL.
func releaseLock(ctx context.Context, release ReleaseFunc) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
	defer cancel()
	release(ctx)
}
