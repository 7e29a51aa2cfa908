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

// CancelPhaseCommand cancels one phase and its tasks. The parent project
// keeps its own status and is resolved from the phase.
type CancelPhaseCommand struct {
	PhaseID uuid.UUID
}

// CancelPhaseHandler cancels a phase, its tasks, and the worker assignments
// of those tasks, atomically.
type CancelPhaseHandler struct {
	repo       domain.Repository
	outboxRepo outbox.Repository
	propagator *engine.Propagator
	uow        sharedApplication.UnitOfWork
	locker     ProjectLocker
	logger     *slog.Logger
}

// NewCancelPhaseHandler creates a CancelPhaseHandler.
func NewCancelPhaseHandler(
	repo domain.Repository,
	outboxRepo outbox.Repository,
	propagator *engine.Propagator,
	uow sharedApplication.UnitOfWork,
	locker ProjectLocker,
	logger *slog.Logger,
) *CancelPhaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CancelPhaseHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		propagator: propagator,
		uow:        uow,
		locker:     locker,
		logger:     logger,
	}
}

// Handle executes the CancelPhaseCommand.
func (h *CancelPhaseHandler) Handle(ctx context.Context, cmd CancelPhaseCommand) error {
	projectID, err := h.repo.ProjectIDOfPhase(ctx, cmd.PhaseID)
	if err != nil {
		return fmt.Errorf("cancel phase %s: %w", cmd.PhaseID, err)
	}

	release, err := h.locker.AcquireProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("cancel phase %s: %w", cmd.PhaseID, err)
	}
	defer releaseLock(ctx, release)

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		subtree, err := h.repo.LoadSubtree(txCtx, projectID)
		if err != nil {
			return err
		}

		cascade, err := h.propagator.CascadePhase(subtree, cmd.PhaseID)
		if err != nil {
			return err
		}
		if len(cascade.Changes) == 0 {
			return nil
		}

		if err := h.repo.CommitStatusChanges(txCtx, projectID, cascade.Changes); err != nil {
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

		h.logger.Info("phase cancelled",
			"project_id", projectID,
			"phase_id", cmd.PhaseID,
			"changes", len(cascade.Changes),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel phase %s: %w", cmd.PhaseID, err)
	}
	return nil
}
