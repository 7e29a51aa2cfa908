package queries

import (
	"context"
	"fmt"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/google/uuid"
)

// ProjectStatusSummaryQuery requests the status breakdown of one project.
type ProjectStatusSummaryQuery struct {
	ProjectID uuid.UUID
}

// ProjectStatusSummaryHandler aggregates per-status counts on demand from
// storage. There are no engine-owned counters to drift out of sync.
type ProjectStatusSummaryHandler struct {
	repo domain.Repository
}

// NewProjectStatusSummaryHandler creates a ProjectStatusSummaryHandler.
func NewProjectStatusSummaryHandler(repo domain.Repository) *ProjectStatusSummaryHandler {
	return &ProjectStatusSummaryHandler{repo: repo}
}

// Handle executes the query.
func (h *ProjectStatusSummaryHandler) Handle(ctx context.Context, query ProjectStatusSummaryQuery) (*domain.StatusSummary, error) {
	summary, err := h.repo.SummarizeStatuses(ctx, query.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("summarize project %s: %w", query.ProjectID, err)
	}
	return summary, nil
}
