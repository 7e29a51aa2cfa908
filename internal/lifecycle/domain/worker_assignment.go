package domain

import (
	"time"

	sharedDomain "github.com/taskflow-io/taskflow/internal/shared/domain"
	"github.com/google/uuid"
)

// AssignmentState represents the state of a worker assignment.
type AssignmentState string

const (
	// AssignmentActive means the worker is currently assigned.
	AssignmentActive AssignmentState = "assigned"
	// AssignmentReleased means the assignment was released, e.g. by a
	// cancellation cascade.
	AssignmentReleased AssignmentState = "unassigned"
)

// WorkerAssignment links a worker to a project or, when TaskID is set, to a
// specific task of that project. Workers are assignable to projects and
// tasks independently.
type WorkerAssignment struct {
	sharedDomain.BaseEntity
	workerID  uuid.UUID
	projectID uuid.UUID
	taskID    *uuid.UUID
	state     AssignmentState
}

// NewProjectAssignment assigns a worker to a project.
func NewProjectAssignment(workerID, projectID uuid.UUID) *WorkerAssignment {
	return &WorkerAssignment{
		BaseEntity: sharedDomain.NewBaseEntity(),
		workerID:   workerID,
		projectID:  projectID,
		state:      AssignmentActive,
	}
}

// NewTaskAssignment assigns a worker to a task of a project.
func NewTaskAssignment(workerID, projectID, taskID uuid.UUID) *WorkerAssignment {
	return &WorkerAssignment{
		BaseEntity: sharedDomain.NewBaseEntity(),
		workerID:   workerID,
		projectID:  projectID,
		taskID:     &taskID,
		state:      AssignmentActive,
	}
}

// RehydrateWorkerAssignment recreates an assignment from persisted state.
func RehydrateWorkerAssignment(id, workerID, projectID uuid.UUID, taskID *uuid.UUID, state AssignmentState, createdAt, updatedAt time.Time) *WorkerAssignment {
	return &WorkerAssignment{
		BaseEntity: sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		workerID:   workerID,
		projectID:  projectID,
		taskID:     taskID,
		state:      state,
	}
}

func (a *WorkerAssignment) WorkerID() uuid.UUID    { return a.workerID }
func (a *WorkerAssignment) ProjectID() uuid.UUID   { return a.projectID }
func (a *WorkerAssignment) TaskID() *uuid.UUID     { return a.taskID }
func (a *WorkerAssignment) State() AssignmentState { return a.state }
func (a *WorkerAssignment) IsActive() bool         { return a.state == AssignmentActive }

// Release marks the assignment as unassigned.
func (a *WorkerAssignment) Release() {
	if a.state == AssignmentReleased {
		return
	}
	a.state = AssignmentReleased
	a.Touch()
}
