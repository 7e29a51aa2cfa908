package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/application/commands"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "taskflow:lock:project:"

// releaseScript deletes the lock only when the stored token still matches,
// so an expired lock taken over by another holder is never released by us.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker implements commands.ProjectLocker on redis with SET NX PX.
// The TTL bounds how long a crashed holder can block a project.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLocker creates a redis-backed project locker.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

// AcquireProject takes the project's distributed lock.
func (l *RedisLocker) AcquireProject(ctx context.Context, projectID uuid.UUID) (commands.ReleaseFunc, error) {
	key := lockKeyPrefix + projectID.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, commands.ErrProjectLocked
	}

	release := func(ctx context.Context) {
		if err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release project lock",
				"key", key,
				"error", err,
			)
		}
	}
	return release, nil
}

// LocalLocker implements commands.ProjectLocker in process memory. Used when
// no redis is configured; serializes projects within a single binary only.
type LocalLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

// NewLocalLocker creates an in-process project locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[uuid.UUID]bool)}
}

// AcquireProject takes the project's in-process lock.
func (l *LocalLocker) AcquireProject(_ context.Context, projectID uuid.UUID) (commands.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[projectID] {
		return nil, commands.ErrProjectLocked
	}
	l.held[projectID] = true

	var once sync.Once
	release := func(context.Context) {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, projectID)
			l.mu.Unlock()
		})
	}
	return release, nil
}
