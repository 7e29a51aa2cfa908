package domain

import (
	"time"

	"github.com/google/uuid"
)

// ItemKind identifies the hierarchy level of a work item.
type ItemKind string

const (
	KindProject ItemKind = "project"
	KindPhase   ItemKind = "phase"
	KindTask    ItemKind = "task"
)

// WorkItem is the common view of a project, phase or task that the
// transition rules operate on. The rules have no hierarchy knowledge;
// they only see a single item's status and schedule.
type WorkItem interface {
	ID() uuid.UUID
	Kind() ItemKind
	Status() WorkStatus
	Schedule() Schedule
}

// StatusChange is a staged status update produced by the propagation engine.
// All changes for one project's subtree are committed as a single atomic unit.
type StatusChange struct {
	ItemID uuid.UUID
	Kind   ItemKind
	From   WorkStatus
	To     WorkStatus
	// ActualCompletion is the new actual-completion instant. It is set when
	// the change completes the item and nil otherwise; committing a nil value
	// clears any previously recorded instant, preserving the invariant that
	// an actual completion exists iff the item is completed.
	ActualCompletion *time.Time
}
