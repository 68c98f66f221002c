// Package model contains domain models passed between layers.
package model

import "fmt"

// CompetitorID identifies a competitor across events and seasons.
type CompetitorID string

// EventKey orders events chronologically: by season, then by round within the season.
// The zero value sorts before every real event and means "nothing applied yet".
type EventKey struct {
	Season int `json:"season"`
	Round  int `json:"round"`
}

// IsZero reports whether k is the zero key.
func (k EventKey) IsZero() bool { return k.Season == 0 && k.Round == 0 }

// Less reports whether k sorts strictly before o.
func (k EventKey) Less(o EventKey) bool {
	if k.Season != o.Season {
		return k.Season < o.Season
	}
	return k.Round < o.Round
}

// After reports whether k sorts strictly after o.
func (k EventKey) After(o EventKey) bool { return o.Less(k) }

func (k EventKey) String() string { return fmt.Sprintf("%d/%02d", k.Season, k.Round) }

// RawRecord is one un-validated finisher row as handed over by an upstream source.
// Position stays textual so that classifications like "R" or a missing value can be
// rejected during normalization instead of in every adapter.
type RawRecord struct {
	Competitor string
	Position   string
}

// RawEvent is the provider-neutral result of one event before normalization.
type RawEvent struct {
	Key     EventKey
	Name    string
	Records []RawRecord
}

// EventResult is one normalized finisher: Position is 1-based.
type EventResult struct {
	Competitor CompetitorID `json:"competitor"`
	Position   int          `json:"position"`
}

// EventResultSet holds the normalized results of a single event.
type EventResultSet struct {
	Key     EventKey      `json:"key"`
	Name    string        `json:"name,omitempty"`
	Results []EventResult `json:"results"`
}

// Distinct returns the number of distinct competitors in the set.
func (s EventResultSet) Distinct() int {
	seen := make(map[CompetitorID]struct{}, len(s.Results))
	for _, r := range s.Results {
		seen[r.Competitor] = struct{}{}
	}
	return len(seen)
}

// Standing is one row of a ranking.
type Standing struct {
	Rank       int          `json:"rank"`
	Competitor CompetitorID `json:"competitor"`
	Rating     float64      `json:"rating"`
}
