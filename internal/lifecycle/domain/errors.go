package domain

import "errors"

var (
	// ErrEmptyName is returned when a work item is created without a name.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidStatus is returned when parsing an unknown status value.
	ErrInvalidStatus = errors.New("invalid work status")

	// ErrInvalidSchedule is returned when completion is not after start.
	ErrInvalidSchedule = errors.New("completion must be after start")

	// ErrTerminalStatus is returned when mutating a completed or cancelled item.
	ErrTerminalStatus = errors.New("work item is in a terminal status")

	// ErrProjectNotFound is returned when a project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrPhaseNotFound is returned when a phase does not exist.
	ErrPhaseNotFound = errors.New("phase not found")
)
