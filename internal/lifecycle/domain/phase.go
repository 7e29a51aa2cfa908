package domain

import (
	"strings"
	"time"

	sharedDomain "github.com/taskflow-io/taskflow/internal/shared/domain"
	"github.com/google/uuid"
)

// Phase groups the tasks of one stage of a project. It belongs to exactly
// one project.
type Phase struct {
	sharedDomain.BaseAggregateRoot
	projectID uuid.UUID
	name      string
	status    WorkStatus
	schedule  Schedule
}

// NewPhase creates a new pending phase.
func NewPhase(projectID uuid.UUID, name string, schedule Schedule) (*Phase, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Phase{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		projectID:         projectID,
		name:              name,
		status:            StatusPending,
		schedule:          schedule,
	}, nil
}

// RehydratePhase recreates a phase from persisted state.
func RehydratePhase(id, projectID uuid.UUID, name string, status WorkStatus, schedule Schedule, createdAt, updatedAt time.Time) *Phase {
	return &Phase{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		projectID: projectID,
		name:      name,
		status:    status,
		schedule:  schedule,
	}
}

func (p *Phase) ProjectID() uuid.UUID { return p.projectID }
func (p *Phase) Name() string         { return p.name }
func (p *Phase) Kind() ItemKind       { return KindPhase }
func (p *Phase) Status() WorkStatus   { return p.status }
func (p *Phase) Schedule() Schedule   { return p.schedule }

// MarkOnGoing transitions the phase to ongoing.
func (p *Phase) MarkOnGoing() error {
	if p.status.IsTerminal() {
		return ErrTerminalStatus
	}
	if p.status == StatusOnGoing {
		return nil
	}
	p.setStatus(StatusOnGoing)
	return nil
}

// MarkDelayed transitions the phase to delayed.
func (p *Phase) MarkDelayed() error {
	if p.status.IsTerminal() {
		return ErrTerminalStatus
	}
	if p.status == StatusDelayed {
		return nil
	}
	p.setStatus(StatusDelayed)
	return nil
}

// MarkCompleted transitions the phase to completed. Used by the rollup when
// every non-cancelled task is completed.
func (p *Phase) MarkCompleted(now time.Time) error {
	if p.status == StatusCancelled {
		return ErrTerminalStatus
	}
	if p.status == StatusCompleted {
		return nil
	}
	if p.schedule.actualCompletion == nil {
		at := now.UTC()
		p.schedule.actualCompletion = &at
	}
	p.setStatus(StatusCompleted)
	return nil
}

// MarkCancelled cancels the phase unconditionally, clearing any actual
// completion instant.
func (p *Phase) MarkCancelled() error {
	if p.status == StatusCancelled {
		return nil
	}
	p.schedule.actualCompletion = nil
	p.setStatus(StatusCancelled)
	return nil
}

func (p *Phase) setStatus(next WorkStatus) {
	from := p.status
	p.status = next
	p.Touch()
	p.AddDomainEvent(NewPhaseStatusChanged(p.ID(), p.projectID, from, next))
}
