package aggregate

import (
	"errors"
	"fmt"

	"github.com/okian/gridelo/internal/domain/model"
)

// Sentinel skip causes. They never abort a walk.
var (
	ErrSeasonUnavailable = errors.New("season schedule unavailable")
	ErrEventUnavailable  = errors.New("event results unavailable")
	ErrEmptyEvent        = errors.New("event has no usable results")
)

// Skip reasons used in SkipError.Reason and metrics labels.
const (
	ReasonSeasonUnavailable = "season_unavailable"
	ReasonEventUnavailable  = "event_unavailable"
	ReasonEmptyEvent        = "empty_event"
)

// SkipError describes an event (or, with Round 0, a whole season) left out of a walk.
type SkipError struct {
	Key    model.EventKey
	Reason string
	Err    error
}

func (e *SkipError) Error() string {
	if e.Key.Round == 0 {
		return fmt.Sprintf("skip season %d: %v", e.Key.Season, e.Err)
	}
	return fmt.Sprintf("skip event %s: %v", e.Key, e.Err)
}

func (e *SkipError) Unwrap() error { return e.Err }
