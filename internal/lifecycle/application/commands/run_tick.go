package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/taskflow-io/taskflow/internal/lifecycle/engine"
	sharedApplication "github.com/taskflow-io/taskflow/internal/shared/application"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// RunTickCommand runs one scheduled pass over a single project's subtree.
type RunTickCommand struct {
	ProjectID uuid.UUID

	// Now is the evaluation instant. Zero means time.Now().UTC().
	Now time.Time
}

// RunTickResult reports what one pass did.
type RunTickResult struct {
	Changes        int
	SkippedOrphans int
}

// RunTickHandler executes the date-driven transitions and completion rollup
// for one project. The staged status changes and their events are committed
// in a single transaction; on failure nothing is applied.
type RunTickHandler struct {
	repo       domain.Repository
	outboxRepo outbox.Repository
	propagator *engine.Propagator
	uow        sharedApplication.UnitOfWork
	locker     ProjectLocker
	logger     *slog.Logger
}

// NewRunTickHandler creates a RunTickHandler.
func NewRunTickHandler(
	repo domain.Repository,
	outboxRepo outbox.Repository,
	propagator *engine.Propagator,
	uow sharedApplication.UnitOfWork,
	locker ProjectLocker,
	logger *slog.Logger,
) *RunTickHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunTickHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		propagator: propagator,
		uow:        uow,
		locker:     locker,
		logger:     logger,
	}
}

// Handle executes the RunTickCommand.
func (h *RunTickHandler) Handle(ctx context.Context, cmd RunTickCommand) (*RunTickResult, error) {
	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	release, err := h.locker.AcquireProject(ctx, cmd.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("tick project %s: %w", cmd.ProjectID, err)
	}
	defer releaseLock(ctx, release)

	var result *RunTickResult
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		subtree, err := h.repo.LoadSubtree(txCtx, cmd.ProjectID)
		if err != nil {
			return err
		}

		tick, err := h.propagator.Tick(subtree, now)
		if err != nil {
			return err
		}
		result = &RunTickResult{
			Changes:        len(tick.Changes),
			SkippedOrphans: tick.SkippedOrphans,
		}
		if len(tick.Changes) == 0 {
			return nil
		}

		if err := h.repo.CommitStatusChanges(txCtx, cmd.ProjectID, tick.Changes); err != nil {
			return err
		}

		msgs, err := outbox.FromEvents(tick.Events)
		if err != nil {
			return err
		}
		return h.outboxRepo.SaveBatch(txCtx, msgs)
	})
	if err != nil {
		return nil, fmt.Errorf("tick project %s: %w", cmd.ProjectID, err)
	}

	if result.Changes > 0 {
		h.logger.Info("tick applied",
			"project_id", cmd.ProjectID,
			"changes", result.Changes,
			"skipped_orphans", result.SkippedOrphans,
		)
	}
	return result, nil
}
