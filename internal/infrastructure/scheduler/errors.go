package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when the schedule cannot be parsed
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSweepInProgress is returned when a sweep is requested while one is running
	ErrSweepInProgress = errors.New("overdue sweep already in progress")
)
