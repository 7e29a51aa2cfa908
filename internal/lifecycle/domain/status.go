package domain

// WorkStatus represents the lifecycle status shared by projects, phases and tasks.
type WorkStatus string

const (
	// StatusPending indicates work that has not started yet.
	StatusPending WorkStatus = "pending"
	// StatusOnGoing indicates work that is currently active.
	StatusOnGoing WorkStatus = "ongoing"
	// StatusDelayed indicates work past its expected completion without being completed.
	StatusDelayed WorkStatus = "delayed"
	// StatusCompleted indicates work that is finished.
	StatusCompleted WorkStatus = "completed"
	// StatusCancelled indicates work that was cancelled.
	StatusCancelled WorkStatus = "cancelled"
)

// String returns the string representation of the status.
func (s WorkStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known value.
func (s WorkStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusOnGoing, StatusDelayed, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status admits no further automatic transition.
func (s WorkStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseWorkStatus parses a string into a WorkStatus.
func ParseWorkStatus(s string) (WorkStatus, error) {
	status := WorkStatus(s)
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}
