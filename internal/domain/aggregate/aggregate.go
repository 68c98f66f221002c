// Package aggregate walks seasons and rounds in chronological order and yields the
// normalized result set of every available event.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/okian/gridelo/internal/domain/model"
	"github.com/okian/gridelo/internal/domain/normalize"
	"github.com/okian/gridelo/pkg/logger"
	"github.com/okian/gridelo/pkg/metrics"
)

// Source provides schedules and raw results.
type Source interface {
	// EventCount returns the number of completed events in season; 0 when none.
	EventCount(ctx context.Context, season int) (int, error)
	// EventResults returns the raw results of one event.
	EventResults(ctx context.Context, season, round int) (model.RawEvent, error)
}

// Aggregator is stateless between walks; every call starts from the source again.
type Aggregator struct {
	source     Source
	normalizer *normalize.Normalizer
	log        logger.Logger
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithNormalizer sets the normalizer applied to every raw event.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(a *Aggregator) {
		if n != nil {
			a.normalizer = n
		}
	}
}

// New creates an Aggregator over src.
func New(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:     src,
		normalizer: normalize.New(),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CollectSpan yields every available event from startSeason to endSeason inclusive.
func (a *Aggregator) CollectSpan(ctx context.Context, startSeason, endSeason int) iter.Seq[model.EventResultSet] {
	return a.CollectAfter(ctx, model.EventKey{}, startSeason, endSeason)
}

// CollectAfter is CollectSpan restricted to events strictly after the given key.
// Skipped events are logged and counted but not reported to the consumer.
func (a *Aggregator) CollectAfter(ctx context.Context, after model.EventKey, startSeason, endSeason int) iter.Seq[model.EventResultSet] {
	return func(yield func(model.EventResultSet) bool) {
		for set, err := range a.Walk(ctx, after, startSeason, endSeason) {
			if err != nil {
				continue
			}
			if !yield(set) {
				return
			}
		}
	}
}

// Walk yields, in (season, round) order, either a non-empty result set with a nil
// error or a *SkipError for a season or event that was left out. Events at or
// before after are not fetched. The walk stops when ctx is done.
func (a *Aggregator) Walk(ctx context.Context, after model.EventKey, startSeason, endSeason int) iter.Seq2[model.EventResultSet, error] {
	return func(yield func(model.EventResultSet, error) bool) {
		for season := max(startSeason, after.Season); season <= endSeason; season++ {
			if ctx.Err() != nil {
				return
			}
			n, err := a.source.EventCount(ctx, season)
			if err != nil {
				skip := a.skip(ctx, model.EventKey{Season: season}, ReasonSeasonUnavailable, ErrSeasonUnavailable, err)
				if !yield(model.EventResultSet{}, skip) {
					return
				}
				continue
			}

			for round := 1; round <= n; round++ {
				key := model.EventKey{Season: season, Round: round}
				if !key.After(after) {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				set, skip := a.collect(ctx, key)
				if skip != nil {
					if !yield(model.EventResultSet{}, skip) {
						return
					}
					continue
				}
				if !yield(set, nil) {
					return
				}
			}
		}
	}
}

func (a *Aggregator) collect(ctx context.Context, key model.EventKey) (model.EventResultSet, *SkipError) {
	start := time.Now()
	raw, err := a.source.EventResults(ctx, key.Season, key.Round)
	if err != nil {
		return model.EventResultSet{}, a.skip(ctx, key, ReasonEventUnavailable, ErrEventUnavailable, err)
	}
	raw.Key = key

	set, rep := a.normalizer.Normalize(raw)
	for reason, count := range rep.Dropped {
		metrics.RecordRecordsDropped(reason, count)
	}
	if rep.DroppedTotal() > 0 {
		a.log.Debug(ctx, "dropped malformed records",
			logger.String("event", key.String()),
			logger.Int("dropped", rep.DroppedTotal()),
			logger.Any("reasons", rep.Dropped))
	}
	if len(set.Results) == 0 {
		return model.EventResultSet{}, a.skip(ctx, key, ReasonEmptyEvent, ErrEmptyEvent, nil)
	}

	a.log.Debug(ctx, "collected event",
		logger.String("event", key.String()),
		logger.String("name", set.Name),
		logger.Int("results", len(set.Results)),
		logger.Duration("took", time.Since(start)))
	return set, nil
}

func (a *Aggregator) skip(ctx context.Context, key model.EventKey, reason string, sentinel, cause error) *SkipError {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	metrics.RecordEventSkipped(reason)
	if !errors.Is(cause, context.Canceled) {
		a.log.Warn(ctx, "skipping",
			logger.String("event", key.String()),
			logger.String("reason", reason),
			logger.Error(err))
	}
	return &SkipError{Key: key, Reason: reason, Err: err}
}
