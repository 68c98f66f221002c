package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrStorage wraps every failure of the backing medium.
	ErrStorage = errors.New("rating storage failure")
	// ErrNotFound reports an unknown competitor.
	ErrNotFound = errors.New("competitor not found")
	// ErrUnknownDriver reports an unsupported store driver name.
	ErrUnknownDriver = errors.New("unknown store driver")
)
