package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrRunInProgress = errors.New("a rating run is already in progress")
	ErrNotStarted    = errors.New("service not started")
	ErrNoSource      = errors.New("no event source configured")
	ErrInvalidSpan   = errors.New("invalid season span")
)
