package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/taskflow-io/taskflow/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu       sync.Mutex
	messages []*Message
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1}
}

func (r *memoryRepo) Save(_ context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = r.nextID
	r.nextID++
	r.messages = append(r.messages, msg)
	return nil
}

func (r *memoryRepo) SaveBatch(ctx context.Context, msgs []*Message) error {
	for _, msg := range msgs {
		if err := r.Save(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryRepo) GetUnpublished(_ context.Context, limit int) ([]*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var result []*Message
	for _, msg := range r.messages {
		if msg.PublishedAt != nil || msg.DeadLetteredAt != nil {
			continue
		}
		if msg.NextRetryAt != nil && msg.NextRetryAt.After(now) {
			continue
		}
		result = append(result, msg)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *memoryRepo) MarkPublished(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ID == id {
			now := time.Now()
			msg.PublishedAt = &now
		}
	}
	return nil
}

func (r *memoryRepo) MarkFailed(_ context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ID == id {
			msg.RetryCount++
			msg.LastError = &errMsg
			msg.NextRetryAt = &nextRetryAt
		}
	}
	return nil
}

func (r *memoryRepo) MarkDead(_ context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ID == id {
			now := time.Now()
			msg.DeadLetteredAt = &now
			msg.DeadLetterReason = &reason
		}
	}
	return nil
}

func (r *memoryRepo) DeleteOld(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

type capturingPublisher struct {
	mu         sync.Mutex
	published  []string
	failWith   error
	failRemain int
}

func (p *capturingPublisher) Publish(_ context.Context, routingKey string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil && (p.failRemain > 0 || p.failRemain < 0) {
		if p.failRemain > 0 {
			p.failRemain--
		}
		return p.failWith
	}
	p.published = append(p.published, routingKey)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

type stubEvent struct {
	domain.BaseEvent
	Name string `json:"name"`
}

func newStubEvent() *stubEvent {
	return &stubEvent{
		BaseEvent: domain.NewBaseEvent(uuid.New(), "task", "taskflow.lifecycle.task.status_changed"),
		Name:      "stub",
	}
}

func TestNewMessage(t *testing.T) {
	event := newStubEvent()

	msg, err := NewMessage(event)
	require.NoError(t, err)

	assert.Equal(t, event.EventID(), msg.EventID)
	assert.Equal(t, "task", msg.AggregateType)
	assert.Equal(t, event.AggregateID(), msg.AggregateID)
	assert.Equal(t, "taskflow.lifecycle.task.status_changed", msg.RoutingKey)
	assert.JSONEq(t, `{"name":"stub"}`, string(msg.Payload))
	assert.False(t, msg.IsPublished())
}

func TestProcessor_PublishesBatch(t *testing.T) {
	repo := newMemoryRepo()
	pub := &capturingPublisher{}
	ctx := context.Background()

	msgs, err := FromEvents([]domain.DomainEvent{newStubEvent(), newStubEvent()})
	require.NoError(t, err)
	require.NoError(t, repo.SaveBatch(ctx, msgs))

	p := NewProcessor(repo, pub, DefaultProcessorConfig(), nil)
	require.NoError(t, p.ProcessOnce(ctx))

	assert.Len(t, pub.routingKeys(), 2)
	for _, msg := range msgs {
		assert.True(t, msg.IsPublished())
	}

	stats := p.GetStats()
	assert.Equal(t, uint64(2), stats.PublishedCount)
	assert.Equal(t, uint64(0), stats.FailedCount)
}

func TestProcessor_RetriesWithBackoff(t *testing.T) {
	repo := newMemoryRepo()
	pub := &capturingPublisher{failWith: errors.New("broker down"), failRemain: 1}
	ctx := context.Background()

	msg, err := NewMessage(newStubEvent())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, msg))

	p := NewProcessor(repo, pub, DefaultProcessorConfig(), nil)
	require.NoError(t, p.ProcessOnce(ctx))

	assert.False(t, msg.IsPublished())
	assert.Equal(t, 1, msg.RetryCount)
	require.NotNil(t, msg.NextRetryAt)
	assert.True(t, msg.NextRetryAt.After(time.Now()))

	// Retry time has not arrived, so the next batch skips the message.
	require.NoError(t, p.ProcessOnce(ctx))
	assert.Equal(t, 1, msg.RetryCount)

	// Once due, the second attempt succeeds.
	past := time.Now().Add(-time.Second)
	msg.NextRetryAt = &past
	require.NoError(t, p.ProcessOnce(ctx))
	assert.True(t, msg.IsPublished())
}

func TestProcessor_DeadLettersAfterMaxRetries(t *testing.T) {
	repo := newMemoryRepo()
	pub := &capturingPublisher{failWith: errors.New("unroutable"), failRemain: -1}
	ctx := context.Background()

	msg, err := NewMessage(newStubEvent())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, msg))

	config := DefaultProcessorConfig()
	config.MaxRetries = 3

	p := NewProcessor(repo, pub, config, nil)
	for i := 0; i < config.MaxRetries; i++ {
		past := time.Now().Add(-time.Second)
		msg.NextRetryAt = &past
		require.NoError(t, p.ProcessOnce(ctx))
	}

	assert.NotNil(t, msg.DeadLetteredAt)
	require.NotNil(t, msg.DeadLetterReason)
	assert.Equal(t, "unroutable", *msg.DeadLetterReason)

	stats := p.GetStats()
	assert.Equal(t, uint64(1), stats.DeadCount)

	// Dead letters are never picked up again.
	require.NoError(t, p.ProcessOnce(ctx))
	assert.False(t, msg.IsPublished())
}

func TestProcessor_StartStop(t *testing.T) {
	p := NewProcessor(newMemoryRepo(), &capturingPublisher{}, DefaultProcessorConfig(), nil)

	p.Start(context.Background())
	assert.True(t, p.IsRunning())
	p.Start(context.Background())

	p.Stop()
	assert.False(t, p.IsRunning())
	p.Stop()
}

func TestRetryBackoff(t *testing.T) {
	config := DefaultProcessorConfig()
	p := NewProcessor(newMemoryRepo(), &capturingPublisher{}, config, nil)

	assert.Equal(t, time.Second, p.retryBackoff(1))
	assert.Equal(t, 2*time.Second, p.retryBackoff(2))
	assert.Equal(t, 8*time.Second, p.retryBackoff(4))
	assert.Equal(t, time.Minute, p.retryBackoff(30))
}
