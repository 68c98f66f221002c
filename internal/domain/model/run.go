package model

import "time"

// SkippedEvent is an event a run did not fold into the ratings.
type SkippedEvent struct {
	Key    EventKey `json:"key"`
	Reason string   `json:"reason"`
}

// RunReport summarises one pipeline run.
type RunReport struct {
	ID            string         `json:"id"`
	TriggerID     string         `json:"trigger_id,omitempty"`
	Trigger       string         `json:"trigger"`
	Rebuild       bool           `json:"rebuild"`
	StartSeason   int            `json:"start_season"`
	EndSeason     int            `json:"end_season"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	EventsApplied int            `json:"events_applied"`
	EventsSkipped int            `json:"events_skipped"`
	Skipped       []SkippedEvent `json:"skipped,omitempty"`
	Competitors   int            `json:"competitors"`
	Watermark     EventKey       `json:"watermark"`
	// StoppedAt is the event whose temporary failure ended the run early.
	StoppedAt *EventKey `json:"stopped_at,omitempty"`
	Saved         bool           `json:"saved"`
	Error         string         `json:"error,omitempty"`
	Standings     []Standing     `json:"-"`
}

// Duration returns the wall time of the run.
func (r RunReport) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Ranking is the current ordered rating table.
// Updated is false when nothing was ever persisted.
type Ranking struct {
	Standings   []Standing
	LastUpdated time.Time
	Updated     bool
}
