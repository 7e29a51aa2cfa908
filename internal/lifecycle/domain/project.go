package domain

import (
	"strings"
	"time"

	sharedDomain "github.com/taskflow-io/taskflow/internal/shared/domain"
	"github.com/google/uuid"
)

// Project is the root of the work hierarchy.
type Project struct {
	sharedDomain.BaseAggregateRoot
	name     string
	status   WorkStatus
	schedule Schedule
}

// NewProject creates a new pending project.
func NewProject(name string, schedule Schedule) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Project{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		name:              name,
		status:            StatusPending,
		schedule:          schedule,
	}, nil
}

// RehydrateProject recreates a project from persisted state.
func RehydrateProject(id uuid.UUID, name string, status WorkStatus, schedule Schedule, createdAt, updatedAt time.Time) *Project {
	return &Project{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		name:     name,
		status:   status,
		schedule: schedule,
	}
}

func (p *Project) Name() string       { return p.name }
func (p *Project) Kind() ItemKind     { return KindProject }
func (p *Project) Status() WorkStatus { return p.status }
func (p *Project) Schedule() Schedule { return p.schedule }

// MarkOnGoing transitions the project to ongoing.
func (p *Project) MarkOnGoing() error {
	if p.status.IsTerminal() {
		return ErrTerminalStatus
	}
	if p.status == StatusOnGoing {
		return nil
	}
	p.setStatus(StatusOnGoing)
	return nil
}

// MarkDelayed transitions the project to delayed.
func (p *Project) MarkDelayed() error {
	if p.status.IsTerminal() {
		return ErrTerminalStatus
	}
	if p.status == StatusDelayed {
		return nil
	}
	p.setStatus(StatusDelayed)
	return nil
}

// MarkCompleted transitions the project to completed. Used by the rollup
// when every non-cancelled phase is completed.
func (p *Project) MarkCompleted(now time.Time) error {
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

// MarkCancelled cancels the project unconditionally. The cascade to phases,
// tasks and worker assignments is driven by the propagation engine.
func (p *Project) MarkCancelled() error {
	if p.status == StatusCancelled {
		return nil
	}
	p.schedule.actualCompletion = nil
	p.setStatus(StatusCancelled)
	return nil
}

func (p *Project) setStatus(next WorkStatus) {
	from := p.status
	p.status = next
	p.Touch()
	p.AddDomainEvent(NewProjectStatusChanged(p.ID(), from, next))
}
