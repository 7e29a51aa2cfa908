package queries

import (
	"context"
	"testing"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSummaryRepo struct {
	mock.Mock
	domain.Repository
}

func (m *mockSummaryRepo) SummarizeStatuses(ctx context.Context, projectID uuid.UUID) (*domain.StatusSummary, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatusSummary), args.Error(1)
}

func TestProjectStatusSummaryHandler_Handle(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()

	t.Run("returns aggregated counts", func(t *testing.T) {
		repo := new(mockSummaryRepo)
		handler := NewProjectStatusSummaryHandler(repo)

		summary := &domain.StatusSummary{
			ProjectID:     projectID,
			ProjectStatus: domain.StatusOnGoing,
			PhaseCounts:   map[domain.WorkStatus]int{domain.StatusOnGoing: 2},
			TaskCounts: map[domain.WorkStatus]int{
				domain.StatusCompleted: 3,
				domain.StatusDelayed:   1,
			},
		}
		repo.On("SummarizeStatuses", ctx, projectID).Return(summary, nil)

		got, err := handler.Handle(ctx, ProjectStatusSummaryQuery{ProjectID: projectID})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusOnGoing, got.ProjectStatus)
		assert.Equal(t, 3, got.TaskCounts[domain.StatusCompleted])
		repo.AssertExpectations(t)
	})

	t.Run("propagates missing project", func(t *testing.T) {
		repo := new(mockSummaryRepo)
		handler := NewProjectStatusSummaryHandler(repo)

		repo.On("SummarizeStatuses", ctx, projectID).Return(nil, domain.ErrProjectNotFound)

		_, err := handler.Handle(ctx, ProjectStatusSummaryQuery{ProjectID: projectID})

		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})
}
