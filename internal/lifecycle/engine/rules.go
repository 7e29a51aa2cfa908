// Package engine implements the work-status lifecycle engine: the pure
// transition rules for a single work item, the read-only hierarchy view over
// one project's subtree, and the propagation engine that applies date-driven
// transitions bottom-up and cancellation cascades top-down.
package engine

import (
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
)

// NextStatus computes the next status of a single work item in isolation,
// with no hierarchy knowledge. It is deterministic, side-effect free and
// idempotent: applying it twice with the same now yields the same result.
//
// Boundary instants are inclusive for entering a state and exclusive for
// leaving it: at start the item becomes ongoing, at completion it is still
// ongoing, and only strictly after completion does it become delayed.
func NextStatus(item domain.WorkItem, now time.Time) domain.WorkStatus {
	status := item.Status()
	if status.IsTerminal() {
		return status
	}

	sched := item.Schedule()

	// Explicit completion always wins over date-based inference.
	if sched.HasActualCompletion() {
		return domain.StatusCompleted
	}

	if now.After(sched.Completion()) {
		// Covers both ongoing work that ran over and pending work that was
		// never started and is already overdue (skips ongoing entirely).
		if status == domain.StatusPending || status == domain.StatusOnGoing {
			return domain.StatusDelayed
		}
		return status
	}

	if status == domain.StatusPending && !now.Before(sched.Start()) {
		return domain.StatusOnGoing
	}

	return status
}
