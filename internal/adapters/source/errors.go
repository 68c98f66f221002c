package source

import "errors"

// Sentinel errors for upstream access.
var (
	// ErrNotAvailable means the provider has no data for the request (404, empty calendar or results).
	ErrNotAvailable = errors.New("not available upstream")
	// ErrUpstream covers transport failures and unexpected status codes.
	ErrUpstream = errors.New("upstream request failed")
	// ErrDecode means the payload did not match the expected wire format.
	ErrDecode = errors.New("decode upstream payload")
)
