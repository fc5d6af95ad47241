package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrEmptyName       = errors.New("task name required")
	ErrInvalidSchedule = errors.New("invalid schedule")
)
