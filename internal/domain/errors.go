package domain

import "errors"

var (
	// ErrNotFound covers both a missing monitor and one owned by someone else.
	ErrNotFound       = errors.New("monitor not found or access denied")
	ErrInactive       = errors.New("cannot check paused monitor")
	ErrInvalidMonitor = errors.New("invalid monitor")
)
