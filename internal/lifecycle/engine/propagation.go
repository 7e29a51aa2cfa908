package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	sharedDomain "github.com/taskflow-io/taskflow/internal/shared/domain"
	"github.com/google/uuid"
)

// transitioner is the mutation surface shared by Project, Phase and Task.
type transitioner interface {
	domain.WorkItem
	MarkOnGoing() error
	MarkDelayed() error
	MarkCompleted(now time.Time) error
	MarkCancelled() error
}

// TickResult is the outcome of the date-driven passes over one subtree.
// Changes are ordered tasks first, then phases, then the project, so that
// persisting them in order never writes a parent before its children.
type TickResult struct {
	Changes []domain.StatusChange
	Events  []sharedDomain.DomainEvent

	// SkippedOrphans counts items excluded because their parent was missing
	// from the subtree.
	SkippedOrphans int
}

// CascadeResult is the outcome of a cancellation cascade.
type CascadeResult struct {
	Changes  []domain.StatusChange
	Events   []sharedDomain.DomainEvent
	Unassign domain.UnassignScope
}

// Propagator orchestrates bottom-up completion rollup and top-down
// cancellation cascades across one project's subtree. It mutates only the
// in-memory subtree; persisting the staged changes is the caller's job.
type Propagator struct {
	logger *slog.Logger
}

// NewPropagator creates a propagation engine.
func NewPropagator(logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{logger: logger}
}

// Tick applies the date-driven transition rules and the completion rollup to
// one project's subtree in three ordered sub-passes: tasks, then phases,
// then the project. A phase's rollup therefore sees each task's freshly
// computed status, and the project's rollup each phase's.
func (p *Propagator) Tick(subtree *domain.Subtree, now time.Time) (*TickResult, error) {
	h := NewHierarchy(subtree)
	if h.Project() == nil {
		return nil, domain.ErrProjectNotFound
	}
	p.logOrphans(h)

	result := &TickResult{
		SkippedOrphans: len(h.OrphanPhases()) + len(h.OrphanTasks()),
	}

	// Pass 1: leaf-level date-driven transitions.
	for _, phase := range h.Phases() {
		for _, task := range h.TasksOf(phase.ID()) {
			before := task.Status()
			if err := applyDateRule(task, now); err != nil {
				return nil, fmt.Errorf("task %s: %w", task.ID(), err)
			}
			stage(&result.Changes, task, before)
		}
	}

	// Pass 2a: phase rollup. Date-driven transition first, then completion
	// derived from children, which overrides the date-driven result.
	for _, phase := range h.Phases() {
		before := phase.Status()
		if err := applyDateRule(phase, now); err != nil {
			return nil, fmt.Errorf("phase %s: %w", phase.ID(), err)
		}
		if phase.Status() != domain.StatusCancelled && rollupEligible(statusesOf(h.TasksOf(phase.ID()))) {
			if err := phase.MarkCompleted(now); err != nil {
				return nil, fmt.Errorf("phase %s rollup: %w", phase.ID(), err)
			}
		}
		stage(&result.Changes, phase, before)
	}

	// Pass 2b: project rollup relative to its phases.
	project := h.Project()
	before := project.Status()
	if err := applyDateRule(project, now); err != nil {
		return nil, fmt.Errorf("project %s: %w", project.ID(), err)
	}
	if project.Status() != domain.StatusCancelled && rollupEligible(phaseStatuses(h.Phases())) {
		if err := project.MarkCompleted(now); err != nil {
			return nil, fmt.Errorf("project %s rollup: %w", project.ID(), err)
		}
	}
	stage(&result.Changes, project, before)

	result.Events = drainEvents(h)
	return result, nil
}

// CascadeProject cancels a project and every descendant phase and task,
// unconditionally: already completed work is reverted to cancelled. The
// returned unassign scope releases every worker assignment of the project.
func (p *Propagator) CascadeProject(subtree *domain.Subtree) (*CascadeResult, error) {
	h := NewHierarchy(subtree)
	if h.Project() == nil {
		return nil, domain.ErrProjectNotFound
	}
	p.logOrphans(h)

	result := &CascadeResult{}
	project := h.Project()

	before := project.Status()
	if err := project.MarkCancelled(); err != nil {
		return nil, err
	}
	stage(&result.Changes, project, before)

	for _, phase := range h.Phases() {
		before := phase.Status()
		if err := phase.MarkCancelled(); err != nil {
			return nil, err
		}
		stage(&result.Changes, phase, before)

		for _, task := range h.TasksOf(phase.ID()) {
			before := task.Status()
			if err := task.MarkCancelled(); err != nil {
				return nil, err
			}
			stage(&result.Changes, task, before)
		}
	}

	projectID := project.ID()
	phaseCount := len(h.Phases())
	taskCount := 0
	for _, phase := range h.Phases() {
		taskCount += len(h.TasksOf(phase.ID()))
	}

	result.Unassign = domain.UnassignScope{ProjectID: &projectID}
	result.Events = drainEvents(h)
	result.Events = append(result.Events,
		domain.NewProjectCancelled(projectID, phaseCount, taskCount),
		domain.NewWorkersUnassigned(projectID, nil),
	)
	return result, nil
}

// CascadePhase cancels one phase and its tasks. The project is unaffected;
// only the worker assignments of the phase's tasks are released.
func (p *Propagator) CascadePhase(subtree *domain.Subtree, phaseID uuid.UUID) (*CascadeResult, error) {
	h := NewHierarchy(subtree)
	if h.Project() == nil {
		return nil, domain.ErrProjectNotFound
	}
	phase := h.FindPhase(phaseID)
	if phase == nil {
		return nil, domain.ErrPhaseNotFound
	}
	p.logOrphans(h)

	result := &CascadeResult{}

	before := phase.Status()
	if err := phase.MarkCancelled(); err != nil {
		return nil, err
	}
	stage(&result.Changes, phase, before)

	tasks := h.TasksOf(phaseID)
	taskIDs := make([]uuid.UUID, 0, len(tasks))
	for _, task := range tasks {
		taskIDs = append(taskIDs, task.ID())
		before := task.Status()
		if err := task.MarkCancelled(); err != nil {
			return nil, err
		}
		stage(&result.Changes, task, before)
	}

	result.Unassign = domain.UnassignScope{TaskIDs: taskIDs}
	result.Events = drainEvents(h)
	result.Events = append(result.Events,
		domain.NewPhaseCancelled(phaseID, h.Project().ID(), len(tasks)),
		domain.NewWorkersUnassigned(h.Project().ID(), taskIDs),
	)
	return result, nil
}

func applyDateRule(item transitioner, now time.Time) error {
	switch NextStatus(item, now) {
	case domain.StatusOnGoing:
		return item.MarkOnGoing()
	case domain.StatusDelayed:
		return item.MarkDelayed()
	case domain.StatusCompleted:
		return item.MarkCompleted(now)
	default:
		return nil
	}
}

// rollupEligible reports whether a parent may derive completion from its
// children: at least one child exists, every non-cancelled child is
// completed, and at least one child is actually completed. A parent whose
// only children were cancelled never silently completes with zero real work
// done, and a parent with no children at all never auto-completes.
func rollupEligible(children []domain.WorkStatus) bool {
	if len(children) == 0 {
		return false
	}
	completed := 0
	for _, s := range children {
		switch s {
		case domain.StatusCompleted:
			completed++
		case domain.StatusCancelled:
			// ignored
		default:
			return false
		}
	}
	return completed > 0
}

func statusesOf(tasks []*domain.Task) []domain.WorkStatus {
	statuses := make([]domain.WorkStatus, len(tasks))
	for i, t := range tasks {
		statuses[i] = t.Status()
	}
	return statuses
}

func phaseStatuses(phases []*domain.Phase) []domain.WorkStatus {
	statuses := make([]domain.WorkStatus, len(phases))
	for i, p := range phases {
		statuses[i] = p.Status()
	}
	return statuses
}

func stage(changes *[]domain.StatusChange, item domain.WorkItem, before domain.WorkStatus) {
	after := item.Status()
	if after == before {
		return
	}
	*changes = append(*changes, domain.StatusChange{
		ItemID:           item.ID(),
		Kind:             item.Kind(),
		From:             before,
		To:               after,
		ActualCompletion: item.Schedule().ActualCompletion(),
	})
}

func drainEvents(h *Hierarchy) []sharedDomain.DomainEvent {
	var events []sharedDomain.DomainEvent

	for _, phase := range h.Phases() {
		for _, task := range h.TasksOf(phase.ID()) {
			events = append(events, task.DomainEvents()...)
			task.ClearDomainEvents()
		}
		events = append(events, phase.DomainEvents()...)
		phase.ClearDomainEvents()
	}
	if p := h.Project(); p != nil {
		events = append(events, p.DomainEvents()...)
		p.ClearDomainEvents()
	}
	return events
}

func (p *Propagator) logOrphans(h *Hierarchy) {
	for _, phase := range h.OrphanPhases() {
		p.logger.Warn("skipping orphan phase",
			"phase_id", phase.ID(),
			"project_id", phase.ProjectID(),
		)
	}
	for _, task := range h.OrphanTasks() {
		p.logger.Warn("skipping orphan task",
			"task_id", task.ID(),
			"phase_id", task.PhaseID(),
		)
	}
}
