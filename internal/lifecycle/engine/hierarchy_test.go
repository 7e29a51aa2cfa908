package engine

import (
	"testing"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scheduleAt(t *testing.T, start time.Time) domain.Schedule {
	t.Helper()
	s, err := domain.NewSchedule(start, start.Add(24*time.Hour))
	require.NoError(t, err)
	return s
}

func TestNewHierarchy_OrdersChildrenByStart(t *testing.T) {
	project, err := domain.NewProject("build", scheduleAt(t, baseNow))
	require.NoError(t, err)

	late, err := domain.NewPhase(project.ID(), "late", scheduleAt(t, baseNow.Add(48*time.Hour)))
	require.NoError(t, err)
	early, err := domain.NewPhase(project.ID(), "early", scheduleAt(t, baseNow))
	require.NoError(t, err)

	taskB, err := domain.NewTask(early.ID(), "b", scheduleAt(t, baseNow.Add(time.Hour)))
	require.NoError(t, err)
	taskA, err := domain.NewTask(early.ID(), "a", scheduleAt(t, baseNow))
	require.NoError(t, err)

	h := NewHierarchy(&domain.Subtree{
		Project: project,
		Phases:  []*domain.Phase{late, early},
		Tasks:   []*domain.Task{taskB, taskA},
	})

	phases := h.Phases()
	require.Len(t, phases, 2)
	assert.Equal(t, "early", phases[0].Name())
	assert.Equal(t, "late", phases[1].Name())

	tasks := h.TasksOf(early.ID())
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].Name())
	assert.Equal(t, "b", tasks[1].Name())
	assert.Empty(t, h.TasksOf(late.ID()))
}

func TestNewHierarchy_ParentLookups(t *testing.T) {
	project, err := domain.NewProject("build", scheduleAt(t, baseNow))
	require.NoError(t, err)
	phase, err := domain.NewPhase(project.ID(), "phase", scheduleAt(t, baseNow))
	require.NoError(t, err)
	task, err := domain.NewTask(phase.ID(), "task", scheduleAt(t, baseNow))
	require.NoError(t, err)

	h := NewHierarchy(&domain.Subtree{
		Project: project,
		Phases:  []*domain.Phase{phase},
		Tasks:   []*domain.Task{task},
	})

	assert.Equal(t, phase, h.PhaseOf(task.ID()))
	assert.Equal(t, project, h.ProjectOf(phase.ID()))
	assert.Equal(t, phase, h.FindPhase(phase.ID()))
	assert.Nil(t, h.FindPhase(uuid.New()))
	assert.Nil(t, h.ProjectOf(uuid.New()))
}

func TestNewHierarchy_Orphans(t *testing.T) {
	project, err := domain.NewProject("build", scheduleAt(t, baseNow))
	require.NoError(t, err)
	phase, err := domain.NewPhase(project.ID(), "phase", scheduleAt(t, baseNow))
	require.NoError(t, err)

	strayPhase, err := domain.NewPhase(uuid.New(), "stray", scheduleAt(t, baseNow))
	require.NoError(t, err)
	strayTask, err := domain.NewTask(uuid.New(), "stray", scheduleAt(t, baseNow))
	require.NoError(t, err)

	h := NewHierarchy(&domain.Subtree{
		Project: project,
		Phases:  []*domain.Phase{phase, strayPhase},
		Tasks:   []*domain.Task{strayTask},
	})

	require.Len(t, h.OrphanPhases(), 1)
	assert.Equal(t, "stray", h.OrphanPhases()[0].Name())
	require.Len(t, h.OrphanTasks(), 1)
	assert.Nil(t, h.PhaseOf(strayTask.ID()))
	assert.Len(t, h.Phases(), 1)
}
