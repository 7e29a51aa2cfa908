package domain

import (
	sharedDomain "github.com/taskflow-io/taskflow/internal/shared/domain"
	"github.com/google/uuid"
)

// Routing keys for lifecycle events.
const (
	RoutingKeyTaskStatusChanged    = "taskflow.lifecycle.task.status_changed"
	RoutingKeyPhaseStatusChanged   = "taskflow.lifecycle.phase.status_changed"
	RoutingKeyProjectStatusChanged = "taskflow.lifecycle.project.status_changed"
	RoutingKeyProjectCancelled     = "taskflow.lifecycle.project.cancelled"
	RoutingKeyPhaseCancelled       = "taskflow.lifecycle.phase.cancelled"
	RoutingKeyWorkersUnassigned    = "taskflow.lifecycle.workers.unassigned"
)

// TaskStatusChanged is raised when a task moves to a new status.
type TaskStatusChanged struct {
	sharedDomain.BaseEvent
	TaskID  uuid.UUID  `json:"task_id"`
	PhaseID uuid.UUID  `json:"phase_id"`
	From    WorkStatus `json:"from"`
	To      WorkStatus `json:"to"`
}

// NewTaskStatusChanged creates a TaskStatusChanged event.
func NewTaskStatusChanged(taskID, phaseID uuid.UUID, from, to WorkStatus) *TaskStatusChanged {
	return &TaskStatusChanged{
		BaseEvent: sharedDomain.NewBaseEvent(taskID, "task", RoutingKeyTaskStatusChanged),
		TaskID:    taskID,
		PhaseID:   phaseID,
		From:      from,
		To:        to,
	}
}

// PhaseStatusChanged is raised when a phase moves to a new status.
type PhaseStatusChanged struct {
	sharedDomain.BaseEvent
	PhaseID   uuid.UUID  `json:"phase_id"`
	ProjectID uuid.UUID  `json:"project_id"`
	From      WorkStatus `json:"from"`
	To        WorkStatus `json:"to"`
}

// NewPhaseStatusChanged creates a PhaseStatusChanged event.
func NewPhaseStatusChanged(phaseID, projectID uuid.UUID, from, to WorkStatus) *PhaseStatusChanged {
	return &PhaseStatusChanged{
		BaseEvent: sharedDomain.NewBaseEvent(phaseID, "phase", RoutingKeyPhaseStatusChanged),
		PhaseID:   phaseID,
		ProjectID: projectID,
		From:      from,
		To:        to,
	}
}

// ProjectStatusChanged is raised when a project moves to a new status.
type ProjectStatusChanged struct {
	sharedDomain.BaseEvent
	ProjectID uuid.UUID  `json:"project_id"`
	From      WorkStatus `json:"from"`
	To        WorkStatus `json:"to"`
}

// NewProjectStatusChanged creates a ProjectStatusChanged event.
func NewProjectStatusChanged(projectID uuid.UUID, from, to WorkStatus) *ProjectStatusChanged {
	return &ProjectStatusChanged{
		BaseEvent: sharedDomain.NewBaseEvent(projectID, "project", RoutingKeyProjectStatusChanged),
		ProjectID: projectID,
		From:      from,
		To:        to,
	}
}

// ProjectCancelled is raised once per project cancellation cascade, in
// addition to the individual status-changed events of the items it touched.
type ProjectCancelled struct {
	sharedDomain.BaseEvent
	ProjectID      uuid.UUID `json:"project_id"`
	PhasesAffected int       `json:"phases_affected"`
	TasksAffected  int       `json:"tasks_affected"`
}

// NewProjectCancelled creates a ProjectCancelled event.
func NewProjectCancelled(projectID uuid.UUID, phasesAffected, tasksAffected int) *ProjectCancelled {
	return &ProjectCancelled{
		BaseEvent:      sharedDomain.NewBaseEvent(projectID, "project", RoutingKeyProjectCancelled),
		ProjectID:      projectID,
		PhasesAffected: phasesAffected,
		TasksAffected:  tasksAffected,
	}
}

// PhaseCancelled is raised once per phase cancellation cascade.
type PhaseCancelled struct {
	sharedDomain.BaseEvent
	PhaseID       uuid.UUID `json:"phase_id"`
	ProjectID     uuid.UUID `json:"project_id"`
	TasksAffected int       `json:"tasks_affected"`
}

// NewPhaseCancelled creates a PhaseCancelled event.
func NewPhaseCancelled(phaseID, projectID uuid.UUID, tasksAffected int) *PhaseCancelled {
	return &PhaseCancelled{
		BaseEvent:     sharedDomain.NewBaseEvent(phaseID, "phase", RoutingKeyPhaseCancelled),
		PhaseID:       phaseID,
		ProjectID:     projectID,
		TasksAffected: tasksAffected,
	}
}

// WorkersUnassigned is raised when a cancellation cascade releases worker
// assignments.
type WorkersUnassigned struct {
	sharedDomain.BaseEvent
	ProjectID uuid.UUID   `json:"project_id"`
	TaskIDs   []uuid.UUID `json:"task_ids,omitempty"`
}

// NewWorkersUnassigned creates a WorkersUnassigned event.
func NewWorkersUnassigned(projectID uuid.UUID, taskIDs []uuid.UUID) *WorkersUnassigned {
	return &WorkersUnassigned{
		BaseEvent: sharedDomain.NewBaseEvent(projectID, "project", RoutingKeyWorkersUnassigned),
		ProjectID: projectID,
		TaskIDs:   taskIDs,
	}
}
