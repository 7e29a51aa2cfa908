package engine

import (
	"sort"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/google/uuid"
)

// Hierarchy is a read-only view over one project's subtree. Children are
// ordered by schedule start ascending (ID as tie-break) so iteration is
// deterministic; order does not affect correctness, only tests and logs.
//
// Phases and tasks whose parent is missing from the subtree are kept aside
// as orphans: the engine skips them and continues with the rest.
type Hierarchy struct {
	project      *domain.Project
	phases       []*domain.Phase
	phaseByID    map[uuid.UUID]*domain.Phase
	tasksByPhase map[uuid.UUID][]*domain.Task
	phaseByTask  map[uuid.UUID]*domain.Phase

	orphanPhases []*domain.Phase
	orphanTasks  []*domain.Task
}

// NewHierarchy indexes a loaded subtree.
func NewHierarchy(subtree *domain.Subtree) *Hierarchy {
	h := &Hierarchy{
		project:      subtree.Project,
		phaseByID:    make(map[uuid.UUID]*domain.Phase, len(subtree.Phases)),
		tasksByPhase: make(map[uuid.UUID][]*domain.Task),
		phaseByTask:  make(map[uuid.UUID]*domain.Phase),
	}

	for _, phase := range subtree.Phases {
		if h.project == nil || phase.ProjectID() != h.project.ID() {
			h.orphanPhases = append(h.orphanPhases, phase)
			continue
		}
		h.phases = append(h.phases, phase)
		h.phaseByID[phase.ID()] = phase
	}
	sortPhases(h.phases)

	for _, task := range subtree.Tasks {
		parent, ok := h.phaseByID[task.PhaseID()]
		if !ok {
			h.orphanTasks = append(h.orphanTasks, task)
			continue
		}
		h.tasksByPhase[parent.ID()] = append(h.tasksByPhase[parent.ID()], task)
		h.phaseByTask[task.ID()] = parent
	}
	for _, tasks := range h.tasksByPhase {
		sortTasks(tasks)
	}

	return h
}

// Project returns the subtree root.
func (h *Hierarchy) Project() *domain.Project { return h.project }

// Phases returns the project's phases in deterministic order.
func (h *Hierarchy) Phases() []*domain.Phase { return h.phases }

// TasksOf returns the tasks of a phase in deterministic order.
func (h *Hierarchy) TasksOf(phaseID uuid.UUID) []*domain.Task {
	return h.tasksByPhase[phaseID]
}

// PhaseOf returns the parent phase of a task, or nil for orphans.
func (h *Hierarchy) PhaseOf(taskID uuid.UUID) *domain.Phase {
	return h.phaseByTask[taskID]
}

// ProjectOf returns the parent project of a phase, or nil for orphans.
func (h *Hierarchy) ProjectOf(phaseID uuid.UUID) *domain.Project {
	if _, ok := h.phaseByID[phaseID]; !ok {
		return nil
	}
	return h.project
}

// FindPhase returns a phase by ID, or nil if unknown.
func (h *Hierarchy) FindPhase(phaseID uuid.UUID) *domain.Phase {
	return h.phaseByID[phaseID]
}

// OrphanPhases returns phases referencing a project not in the subtree.
func (h *Hierarchy) OrphanPhases() []*domain.Phase { return h.orphanPhases }

// OrphanTasks returns tasks referencing a phase not in the subtree.
func (h *Hierarchy) OrphanTasks() []*domain.Task { return h.orphanTasks }

func sortPhases(phases []*domain.Phase) {
	sort.SliceStable(phases, func(i, j int) bool {
		si, sj := phases[i].Schedule().Start(), phases[j].Schedule().Start()
		if si.Equal(sj) {
			return phases[i].ID().String() < phases[j].ID().String()
		}
		return si.Before(sj)
	})
}

func sortTasks(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		si, sj := tasks[i].Schedule().Start(), tasks[j].Schedule().Start()
		if si.Equal(sj) {
			return tasks[i].ID().String() < tasks[j].ID().String()
		}
		return si.Before(sj)
	})
}
