// Package rating implements the multi-entrant Elo update over an explicit snapshot.
//
// The Engine holds configuration only. Every call takes a snapshot value and
// returns a new one, so a fold over events is the whole rating history.
package rating

import (
	"math"
	"slices"
	"strings"

	"github.com/okian/gridelo/internal/domain/model"
)

// Default rating parameters.
const (
	DefaultInitialRating = 1500.0
	DefaultKFactor       = 24.0

	// eloScale is the rating difference at which the expected score ratio is 10:1.
	eloScale = 400.0

	minCompetitors = 2
)

// Skip reasons reported in Outcome.Reason.
const (
	ReasonUnderSubscribed = "under_subscribed"
)

// Change describes what one event did to one competitor.
type Change struct {
	Competitor model.CompetitorID `json:"competitor"`
	Position   int                `json:"position"`
	Before     float64            `json:"before"`
	After      float64            `json:"after"`
	Actual     float64            `json:"actual"`
	Expected   float64            `json:"expected"`
	Delta      float64            `json:"delta"`
}

// Outcome reports whether an event was applied and, if so, the per-competitor changes
// in finishing order.
type Outcome struct {
	Key     model.EventKey `json:"key"`
	Applied bool           `json:"applied"`
	Reason  string         `json:"reason,omitempty"`
	Changes []Change       `json:"changes,omitempty"`
}

// Engine computes rating updates.
type Engine struct {
	initial float64
	k       float64
}

// NewEngine creates an Engine with the default parameters.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		initial: DefaultInitialRating,
		k:       DefaultKFactor,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitialRating returns the rating assigned to unseen competitors.
func (e *Engine) InitialRating() float64 { return e.initial }

// KFactor returns the configured K.
func (e *Engine) KFactor() float64 { return e.k }

// Update applies one event to snap and returns the resulting snapshot.
//
// snap is never mutated. When the set has fewer than two distinct competitors the
// input snapshot is returned as is and the outcome is not applied. Deltas are all
// computed from pre-event ratings before any of them is committed, so the result does
// not depend on the order of set.Results.
func (e *Engine) Update(snap model.Snapshot, set model.EventResultSet) (model.Snapshot, Outcome) {
	finishers := distinct(set.Results)
	if len(finishers) < minCompetitors {
		return snap, Outcome{Key: set.Key, Reason: ReasonUnderSubscribed}
	}

	next := snap.Clone()
	for _, f := range finishers {
		if !next.Has(f.Competitor) {
			next.Put(f.Competitor, e.initial)
		}
	}

	n := len(finishers)
	before := make([]float64, n)
	for i, f := range finishers {
		before[i] = next.Ratings[f.Competitor]
	}

	changes := make([]Change, n)
	opponents := make([]float64, 0, n-1)
	for i, f := range finishers {
		opponents = opponents[:0]
		for j := range finishers {
			if j != i {
				opponents = append(opponents, before[j])
			}
		}
		actual := ActualScore(f.Position, n)
		expected := ExpectedScore(before[i], opponents)
		delta := e.k * (actual - expected)
		changes[i] = Change{
			Competitor: f.Competitor,
			Position:   f.Position,
			Before:     before[i],
			After:      before[i] + delta,
			Actual:     actual,
			Expected:   expected,
			Delta:      delta,
		}
	}

	// Commit.
	for _, c := range changes {
		next.Ratings[c.Competitor] = c.After
	}
	if set.Key.After(next.Watermark) {
		next.Watermark = set.Key
	}

	return next, Outcome{Key: set.Key, Applied: true, Changes: changes}
}

// ActualScore maps a 1-based finishing position among n finishers to [0,1]:
// first scores 1, last scores 0. Positions outside [1,n] are clamped.
func ActualScore(position, n int) float64 {
	if n < minCompetitors {
		return 0
	}
	p := min(max(position, 1), n)
	return 1 - float64(p-1)/float64(n-1)
}

// ExpectedScore is the mean over opponents of the logistic win expectancy of r.
// It returns 0 when there are no opponents.
func ExpectedScore(r float64, opponents []float64) float64 {
	if len(opponents) == 0 {
		return 0
	}
	var sum float64
	for _, o := range opponents {
		sum += 1 / (1 + math.Pow(10, (o-r)/eloScale))
	}
	return sum / float64(len(opponents))
}

// Rank orders every rated competitor by rating, highest first. Exact ties keep the
// order in which competitors were first seen.
func Rank(snap model.Snapshot) []model.Standing {
	out := make([]model.Standing, 0, snap.Len())
	seen := make(map[model.CompetitorID]struct{}, snap.Len())
	for _, id := range snap.Order {
		r, ok := snap.Ratings[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, model.Standing{Competitor: id, Rating: r})
	}
	// Ratings not listed in Order (hand-built snapshots) go last in ID order.
	if len(out) < snap.Len() {
		var rest []model.CompetitorID
		for id := range snap.Ratings {
			if _, ok := seen[id]; !ok {
				rest = append(rest, id)
			}
		}
		slices.Sort(rest)
		for _, id := range rest {
			out = append(out, model.Standing{Competitor: id, Rating: snap.Ratings[id]})
		}
	}

	slices.SortStableFunc(out, func(a, b model.Standing) int {
		switch {
		case a.Rating > b.Rating:
			return -1
		case a.Rating < b.Rating:
			return 1
		default:
			return 0
		}
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// ShareTies rewrites ranks so that exactly equal ratings share the best rank of
// their group and the next rating skips ahead (1, 2, 2, 4). standings must be in
// Rank order; the input is not modified.
func ShareTies(standings []model.Standing) []model.Standing {
	out := slices.Clone(standings)
	for i := range out {
		if i > 0 && out[i].Rating == out[i-1].Rating {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}

// distinct drops repeated competitors (first record wins) and sorts by finishing
// position so that floating point sums run in the same order for any input order.
func distinct(results []model.EventResult) []model.EventResult {
	seen := make(map[model.CompetitorID]struct{}, len(results))
	out := make([]model.EventResult, 0, len(results))
	for _, r := range results {
		if r.Competitor == "" {
			continue
		}
		if _, ok := seen[r.Competitor]; ok {
			continue
		}
		seen[r.Competitor] = struct{}{}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b model.EventResult) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		return strings.Compare(string(a.Competitor), string(b.Competitor))
	})
	return out
}
