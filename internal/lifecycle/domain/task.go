package domain

import (
	"strings"
	"time"

	sharedDomain "github.com/taskflow-io/taskflow/internal/shared/domain"
	"github.com/google/uuid"
)

// Task is the leaf work item of the hierarchy. It belongs to exactly one phase.
type Task struct {
	sharedDomain.BaseAggregateRoot
	phaseID  uuid.UUID
	name     string
	status   WorkStatus
	schedule Schedule
}

// NewTask creates a new pending task.
func NewTask(phaseID uuid.UUID, name string, schedule Schedule) (*Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Task{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		phaseID:           phaseID,
		name:              name,
		status:            StatusPending,
		schedule:          schedule,
	}, nil
}

// RehydrateTask recreates a task from persisted state.
func RehydrateTask(id, phaseID uuid.UUID, name string, status WorkStatus, schedule Schedule, createdAt, updatedAt time.Time) *Task {
	return &Task{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		phaseID:  phaseID,
		name:     name,
		status:   status,
		schedule: schedule,
	}
}

func (t *Task) PhaseID() uuid.UUID { return t.phaseID }
func (t *Task) Name() string       { return t.name }
func (t *Task) Kind() ItemKind     { return KindTask }
func (t *Task) Status() WorkStatus { return t.status }
func (t *Task) Schedule() Schedule { return t.schedule }

// RecordActualCompletion stores an externally supplied completion instant.
// The status itself moves to completed on the next engine pass.
func (t *Task) RecordActualCompletion(at time.Time) error {
	if t.status.IsTerminal() {
		return ErrTerminalStatus
	}
	at = at.UTC()
	t.schedule.actualCompletion = &at
	t.Touch()
	return nil
}

// MarkOnGoing transitions the task to ongoing.
func (t *Task) MarkOnGoing() error {
	if t.status.IsTerminal() {
		return ErrTerminalStatus
	}
	if t.status == StatusOnGoing {
		return nil // Idempotent
	}
	t.setStatus(StatusOnGoing)
	return nil
}

// MarkDelayed transitions the task to delayed.
func (t *Task) MarkDelayed() error {
	if t.status.IsTerminal() {
		return ErrTerminalStatus
	}
	if t.status == StatusDelayed {
		return nil
	}
	t.setStatus(StatusDelayed)
	return nil
}

// MarkCompleted transitions the task to completed, recording the actual
// completion instant if none was supplied externally.
func (t *Task) MarkCompleted(now time.Time) error {
	if t.status == StatusCancelled {
		return ErrTerminalStatus
	}
	if t.status == StatusCompleted {
		return nil
	}
	if t.schedule.actualCompletion == nil {
		at := now.UTC()
		t.schedule.actualCompletion = &at
	}
	t.setStatus(StatusCompleted)
	return nil
}

// MarkCancelled cancels the task. Cancellation is unconditional: it applies
// to completed tasks too, and clears the actual completion instant.
func (t *Task) MarkCancelled() error {
	if t.status == StatusCancelled {
		return nil
	}
	t.schedule.actualCompletion = nil
	t.setStatus(StatusCancelled)
	return nil
}

func (t *Task) setStatus(next WorkStatus) {
	from := t.status
	t.status = next
	t.Touch()
	t.AddDomainEvent(NewTaskStatusChanged(t.ID(), t.phaseID, from, next))
}
