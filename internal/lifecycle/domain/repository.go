package domain

import (
	"context"

	"github.com/google/uuid"
)

// Subtree is one project's full hierarchy as loaded from storage:
// the project itself, all of its phases, and all tasks of those phases.
type Subtree struct {
	Project *Project
	Phases  []*Phase
	Tasks   []*Task
}

// UnassignScope selects which worker assignments a cancellation releases.
// Exactly one of ProjectID or TaskIDs is set: a project scope releases every
// assignment of the project (project-level and task-level), a task scope
// releases only the assignments of the given tasks.
type UnassignScope struct {
	ProjectID *uuid.UUID
	TaskIDs   []uuid.UUID
}

// StatusSummary is the on-demand aggregation of item statuses for one
// project, derived from storage instead of engine-owned counters.
type StatusSummary struct {
	ProjectID     uuid.UUID
	ProjectStatus WorkStatus
	PhaseCounts   map[WorkStatus]int
	TaskCounts    map[WorkStatus]int
}

// Repository defines the storage contract the lifecycle engine consumes.
// The storage layer carries no business rules: no triggers, no scheduled
// database events.
type Repository interface {
	// LoadSubtree loads one project's full hierarchy with current statuses
	// and schedules. Returns ErrProjectNotFound if the project is missing.
	LoadSubtree(ctx context.Context, projectID uuid.UUID) (*Subtree, error)

	// ListProjectIDs enumerates all projects for the scheduler driver.
	ListProjectIDs(ctx context.Context) ([]uuid.UUID, error)

	// ProjectIDOfPhase resolves the project owning a phase, so callers can
	// cancel a phase knowing only its ID. Returns ErrPhaseNotFound if the
	// phase is missing.
	ProjectIDOfPhase(ctx context.Context, phaseID uuid.UUID) (uuid.UUID, error)

	// CommitStatusChanges persists a batch of staged status updates for one
	// project's subtree. The batch is atomic: on error nothing is applied.
	CommitStatusChanges(ctx context.Context, projectID uuid.UUID, changes []StatusChange) error

	// UnassignWorkers releases the worker assignments in scope.
	UnassignWorkers(ctx context.Context, scope UnassignScope) error

	// SummarizeStatuses aggregates status counts for one project.
	SummarizeStatuses(ctx context.Context, projectID uuid.UUID) (*StatusSummary, error)

	// SaveProject persists a project (create or update).
	SaveProject(ctx context.Context, project *Project) error

	// SavePhase persists a phase.
	SavePhase(ctx context.Context, phase *Phase) error

	// SaveTask persists a task.
	SaveTask(ctx context.Context, task *Task) error

	// SaveAssignment persists a worker assignment.
	SaveAssignment(ctx context.Context, assignment *WorkerAssignment) error
}
