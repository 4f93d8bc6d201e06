package storage

import "errors"

// Storage error constants
var (
	// ErrAlertNotFound is returned when an alert is not found
	ErrAlertNotFound = errors.New("alert not found")

	// ErrStaleAlert is returned when a save loses an optimistic version check
	// against a concurrent writer
	ErrStaleAlert = errors.New("alert was modified concurrently")

	// ErrDuplicateAlert is returned when an insert collides with an existing
	// (alert_id, source) pair
	ErrDuplicateAlert = errors.New("alert already exists")
)
