package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	sharedApplication "github.com/taskflow-io/taskflow/internal/shared/application"
	"github.com/google/uuid"
)

// SeedDemoCommand creates a small demo hierarchy for local experimentation:
// one project, two phases, four tasks, and a few worker assignments.
type SeedDemoCommand struct {
	// Now anchors the demo schedules. Zero means time.Now().UTC().
	Now time.Time
}

// SeedDemoResult identifies the created hierarchy.
type SeedDemoResult struct {
	ProjectID uuid.UUID
	PhaseIDs  []uuid.UUID
	TaskIDs   []uuid.UUID
}

// SeedDemoHandler persists the demo hierarchy in one transaction.
type SeedDemoHandler struct {
	repo domain.Repository
	uow  sharedApplication.UnitOfWork
}

// NewSeedDemoHandler creates a SeedDemoHandler.
func NewSeedDemoHandler(repo domain.Repository, uow sharedApplication.UnitOfWork) *SeedDemoHandler {
	return &SeedDemoHandler{repo: repo, uow: uow}
}

// Handle executes the SeedDemoCommand.
func (h *SeedDemoHandler) Handle(ctx context.Context, cmd SeedDemoCommand) (*SeedDemoResult, error) {
	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	day := 24 * time.Hour

	projectSchedule, err := domain.NewSchedule(now.Add(-day), now.Add(14*day))
	if err != nil {
		return nil, err
	}
	project, err := domain.NewProject("demo launch", projectSchedule)
	if err != nil {
		return nil, err
	}

	type phaseSpec struct {
		name   string
		offset time.Duration
		length time.Duration
		tasks  []string
	}
	specs := []phaseSpec{
		{name: "design", offset: -day, length: 5 * day, tasks: []string{"wireframes", "review"}},
		{name: "build", offset: 4 * day, length: 10 * day, tasks: []string{"backend", "frontend"}},
	}

	result := &SeedDemoResult{ProjectID: project.ID()}

	var phases []*domain.Phase
	var tasks []*domain.Task
	for _, spec := range specs {
		start := now.Add(spec.offset)
		schedule, err := domain.NewSchedule(start, start.Add(spec.length))
		if err != nil {
			return nil, err
		}
		phase, err := domain.NewPhase(project.ID(), spec.name, schedule)
		if err != nil {
			return nil, err
		}
		phases = append(phases, phase)
		result.PhaseIDs = append(result.PhaseIDs, phase.ID())

		for i, taskName := range spec.tasks {
			taskStart := start.Add(time.Duration(i) * day)
			taskSchedule, err := domain.NewSchedule(taskStart, taskStart.Add(3*day))
			if err != nil {
				return nil, err
			}
			task, err := domain.NewTask(phase.ID(), taskName, taskSchedule)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
			result.TaskIDs = append(result.TaskIDs, task.ID())
		}
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.repo.SaveProject(txCtx, project); err != nil {
			return err
		}
		for _, phase := range phases {
			if err := h.repo.SavePhase(txCtx, phase); err != nil {
				return err
			}
		}
		for _, task := range tasks {
			if err := h.repo.SaveTask(txCtx, task); err != nil {
				return err
			}
		}

		lead := domain.NewProjectAssignment(uuid.New(), project.ID())
		if err := h.repo.SaveAssignment(txCtx, lead); err != nil {
			return err
		}
		for _, task := range tasks {
			assignment := domain.NewTaskAssignment(uuid.New(), project.ID(), task.ID())
			if err := h.repo.SaveAssignment(txCtx, assignment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed demo hierarchy: %w", err)
	}

	return result, nil
}
