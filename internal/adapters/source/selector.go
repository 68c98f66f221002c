package source

import (
	"context"

	"github.com/okian/gridelo/internal/domain/model"
)

// DefaultModernCutoff is the first season served by the modern provider.
const DefaultModernCutoff = 2023

// Provider is one upstream data source.
type Provider interface {
	Name() string
	EventCount(ctx context.Context, season int) (int, error)
	EventResults(ctx context.Context, season, round int) (model.RawEvent, error)
}

// Selector routes each season to the provider that covers it.
type Selector struct {
	cutoff int
	modern Provider
	legacy Provider
}

// NewSelector sends seasons >= cutoff to modern and earlier seasons to legacy.
func NewSelector(cutoff int, modern, legacy Provider) *Selector {
	if cutoff <= 0 {
		cutoff = DefaultModernCutoff
	}
	return &Selector{cutoff: cutoff, modern: modern, legacy: legacy}
}

// For returns the provider for season.
func (s *Selector) For(season int) Provider {
	if season >= s.cutoff {
		return s.modern
	}
	return s.legacy
}

// EventCount implements aggregate.Source.
func (s *Selector) EventCount(ctx context.Context, season int) (int, error) {
	return s.For(season).EventCount(ctx, season)
}

// EventResults implements aggregate.Source.
func (s *Selector) EventResults(ctx context.Context, season, round int) (model.RawEvent, error) {
	return s.For(season).EventResults(ctx, season, round)
}
