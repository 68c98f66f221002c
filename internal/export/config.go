package export

import "time"

// Options holds the flags of one export.
type Options struct {
	OutputFile  string        // CSV destination; "-" writes to stdout
	StartSeason int           // first season; 0 keeps the configured one
	EndSeason   int           // last season; 0 means the current season
	Rebuild     bool          // ignore stored ratings and recompute from StartSeason
	Top         int           // rows to write; 0 writes every competitor
	Timeout     time.Duration // bound on the whole run
	Verbose     bool          // debug logging
}

// Stats summarises an export.
type Stats struct {
	EventsApplied int
	EventsSkipped int
	Competitors   int
	RowsWritten   int
	Duration      time.Duration
}
