package commands

import (
	"context"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) LoadSubtree(ctx context.Context, projectID uuid.UUID) (*domain.Subtree, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subtree), args.Error(1)
}

func (m *mockRepository) ListProjectIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockRepository) ProjectIDOfPhase(ctx context.Context, phaseID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, phaseID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockRepository) CommitStatusChanges(ctx context.Context, projectID uuid.UUID, changes []domain.StatusChange) error {
	args := m.Called(ctx, projectID, changes)
	return args.Error(0)
}

func (m *mockRepository) UnassignWorkers(ctx context.Context, scope domain.UnassignScope) error {
	args := m.Called(ctx, scope)
	return args.Error(0)
}

func (m *mockRepository) SummarizeStatuses(ctx context.Context, projectID uuid.UUID) (*domain.StatusSummary, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatusSummary), args.Error(1)
}

func (m *mockRepository) SaveProject(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *mockRepository) SavePhase(ctx context.Context, phase *domain.Phase) error {
	args := m.Called(ctx, phase)
	return args.Error(0)
}

func (m *mockRepository) SaveTask(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *mockRepository) SaveAssignment(ctx context.Context, assignment *domain.WorkerAssignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Save(ctx context.Context, msg *outbox.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockOutboxRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	args := m.Called(ctx, id, errMsg, nextRetryAt)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkDead(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockOutboxRepo) DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// fakeLocker always grants the lock unless held is set, and records
// whether the release function ran and on what kind of context.
type fakeLocker struct {
	held          bool
	acquired      int
	released      int
	releaseCtxErr error
}

func (l *fakeLocker) AcquireProject(_ context.Context, _ uuid.UUID) (ReleaseFunc, error) {
	if l.held {
		return nil, ErrProjectLocked
	}
	l.acquired++
	return func(ctx context.Context) {
		l.released++
		l.releaseCtxErr = ctx.Err()
	}, nil
}
