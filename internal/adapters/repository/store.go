// Package repository persists rating snapshots.
package repository

import (
	"context"
	"slices"
	"time"

	"github.com/okian/gridelo/internal/domain/model"
)

// TimeLayout is the fixed-width UTC text form of last_updated; lexical order
// equals chronological order, so MAX() works on it directly.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store provides read/write access to the rating state.
type Store interface {
	// Load returns every stored rating in first-insert order, the latest write
	// time and the watermark. An empty store yields an empty snapshot.
	Load(ctx context.Context) (model.Snapshot, error)

	// Save upserts every rating of snap with one shared timestamp and records the
	// watermark, atomically. Stored competitors missing from snap are untouched.
	Save(ctx context.Context, snap model.Snapshot) error

	// Replace is Save after removing every stored rating, atomically.
	Replace(ctx context.Context, snap model.Snapshot) error

	// LastUpdated returns the latest write time; ok is false when nothing was ever saved.
	LastUpdated(ctx context.Context) (t time.Time, ok bool, err error)

	Close() error
}

// orderedIDs lists snap's competitors in first-seen order, followed by any that
// are only in Ratings.
func orderedIDs(snap model.Snapshot) []model.CompetitorID {
	out := make([]model.CompetitorID, 0, snap.Len())
	seen := make(map[model.CompetitorID]struct{}, snap.Len())
	for _, id := range snap.Order {
		if _, ok := snap.Ratings[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	var rest []model.CompetitorID
	for id := range snap.Ratings {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}
