package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/taskflow-io/taskflow/internal/lifecycle/engine"
	sharedApplication "github.com/taskflow-io/taskflow/internal/shared/application"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// CancelProjectCommand cancels a project and its entire subtree.
type CancelProjectCommand struct {
	ProjectID uuid.UUID
}

// CancelProjectHandler cancels a project, every descendant phase and task,
// and releases the project's worker assignments. The cancellations, the
// unassignments and the resulting events are committed in one transaction.
type CancelProjectHandler struct {
	repo       domain.Repository
	outboxRepo outbox.Repository
	propagator *engine.Propagator
	uow        sharedApplication.UnitOfWork
	locker     ProjectLocker
	logger     *slog.Logger
}

// NewCancelProjectHandler creates a CancelProjectHandler.
func NewCancelProjectHandler(
	repo domain.Repository,
	outboxRepo outbox.Repository,
	propagator *engine.Propagator,
	uow sharedApplication.UnitOfWork,
	locker ProjectLocker,
	logger *slog.Logger,
) *CancelProjectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CancelProjectHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		propagator: propagator,
		uow:        uow,
		locker:     locker,
		logger:     logger,
	}
}

// Handle executes the CancelProjectCommand.
func (h *CancelProjectHandler) Handle(ctx context.Context, cmd CancelProjectCommand) error {
	release, err := h.locker.AcquireProject(ctx, cmd.ProjectID)
	if err != nil {
		return fmt.Errorf("cancel project %s: %w", cmd.ProjectID, err)
	}
	defer releaseLock(ctx, release)

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		subtree, err := h.repo.LoadSubtree(txCtx, cmd.ProjectID)
		if err != nil {
			return err
		}

		cascade, err := h.propagator.CascadeProject(subtree)
		if err != nil {
			return err
		}
		if len(cascade.Changes) == 0 {
			// Already cancelled end to end.
			return nil
		}

		if err := h.repo.CommitStatusChanges(txCtx, cmd.ProjectID, cascade.Changes); err != nil {
			return err
		}
		if err := h.repo.UnassignWorkers(txCtx, cascade.Unassign); err != nil {
			return err
		}

		msgs, err := outbox.FromEvents(cascade.Events)
		if err != nil {
			return err
		}
		if err := h.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
			return err
		}

		h.logger.Info("project cancelled",
			"project_id", cmd.ProjectID,
			"changes", len(cascade.Changes),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel project %s: %w", cmd.ProjectID, err)
	}
	return nil
}
