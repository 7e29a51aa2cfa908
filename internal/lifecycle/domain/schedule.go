package domain

import "time"

// Schedule holds the expected time window of a work item and, once the work
// is done, the instant it was actually completed.
type Schedule struct {
	start            time.Time
	completion       time.Time
	actualCompletion *time.Time
}

// NewSchedule creates a schedule. Completion must be strictly after start.
func NewSchedule(start, completion time.Time) (Schedule, error) {
	if !completion.After(start) {
		return Schedule{}, ErrInvalidSchedule
	}
	return Schedule{start: start.UTC(), completion: completion.UTC()}, nil
}

// RehydrateSchedule recreates a schedule from persisted state. The invariant
// is assumed to have been enforced at creation time.
func RehydrateSchedule(start, completion time.Time, actualCompletion *time.Time) Schedule {
	return Schedule{
		start:            start,
		completion:       completion,
		actualCompletion: actualCompletion,
	}
}

// Start returns the instant after which work is expected to be active.
func (s Schedule) Start() time.Time { return s.start }

// Completion returns the instant by which work is expected to finish.
func (s Schedule) Completion() time.Time { return s.completion }

// ActualCompletion returns the recorded completion instant, if any.
func (s Schedule) ActualCompletion() *time.Time { return s.actualCompletion }

// HasActualCompletion returns true if an actual completion instant is recorded.
func (s Schedule) HasActualCompletion() bool { return s.actualCompletion != nil }
