package identity

import "errors"

// Sentinel errors for alias table handling.
var (
	ErrReadAliases    = errors.New("read alias table failed")
	ErrInvalidAliases = errors.New("invalid alias table")
)
