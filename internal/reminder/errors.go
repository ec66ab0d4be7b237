package reminder

import "errors"

var (
	// ErrStoreUnavailable wraps a failure to list active assignments. The
	// whole cycle is aborted.
	ErrStoreUnavailable = errors.New("assignment store unavailable")
	// ErrCycleInProgress is returned when a cycle is triggered while another
	// one is still running.
	ErrCycleInProgress = errors.New("reminder cycle already in progress")
)
