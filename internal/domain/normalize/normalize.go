// Package normalize turns provider-neutral raw events into validated result sets.
package normalize

import (
	"strconv"
	"strings"

	"github.com/okian/gridelo/internal/domain/model"
)

// Drop reasons.
const (
	ReasonMissingCompetitor = "missing_competitor"
	ReasonBadPosition       = "bad_position"
	ReasonDuplicate         = "duplicate"
)

// Resolver maps an upstream competitor name to a stable ID; "" means unusable.
type Resolver interface {
	Resolve(name string) model.CompetitorID
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) model.CompetitorID

// Resolve calls f(name).
func (f ResolverFunc) Resolve(name string) model.CompetitorID { return f(name) }

// Report summarizes one normalization.
type Report struct {
	Key     model.EventKey
	Total   int
	Kept    int
	Dropped map[string]int
}

// DroppedTotal returns the number of records dropped for any reason.
func (r Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Normalizer validates raw records.
type Normalizer struct {
	resolver Resolver
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithResolver sets the identity resolver.
func WithResolver(r Resolver) Option {
	return func(n *Normalizer) {
		if r != nil {
			n.resolver = r
		}
	}
}

// New creates a Normalizer. Without a resolver, names are trimmed and used as is.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		resolver: ResolverFunc(func(name string) model.CompetitorID {
			return model.CompetitorID(strings.TrimSpace(name))
		}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize keeps records with a resolvable competitor and a positive integer
// position. When a competitor appears more than once the first record wins.
// Records are kept in input order.
func (n *Normalizer) Normalize(raw model.RawEvent) (model.EventResultSet, Report) {
	set := model.EventResultSet{
		Key:     raw.Key,
		Name:    raw.Name,
		Results: make([]model.EventResult, 0, len(raw.Records)),
	}
	rep := Report{Key: raw.Key, Total: len(raw.Records), Dropped: map[string]int{}}
	seen := make(map[model.CompetitorID]struct{}, len(raw.Records))

	for _, rec := range raw.Records {
		id := n.resolver.Resolve(rec.Competitor)
		if id == "" {
			rep.Dropped[ReasonMissingCompetitor]++
			continue
		}
		pos, ok := parsePosition(rec.Position)
		if !ok {
			rep.Dropped[ReasonBadPosition]++
			continue
		}
		if _, dup := seen[id]; dup {
			rep.Dropped[ReasonDuplicate]++
			continue
		}
		seen[id] = struct{}{}
		set.Results = append(set.Results, model.EventResult{Competitor: id, Position: pos})
	}
	rep.Kept = len(set.Results)
	return set, rep
}

func parsePosition(s string) (int, bool) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 {
		return 0, false
	}
	return p, true
}
