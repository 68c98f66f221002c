package service

import (
	"context"
	"iter"
	"time"

	"github.com/okian/gridelo/internal/adapters/repository"
	"github.com/okian/gridelo/internal/domain/model"
	"github.com/okian/gridelo/internal/domain/rating"
	"github.com/okian/gridelo/pkg/logger"
)

// Collector walks events after a watermark; *aggregate.Aggregator implements it.
type Collector interface {
	Walk(ctx context.Context, after model.EventKey, startSeason, endSeason int) iter.Seq2[model.EventResultSet, error]
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the rating store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCollector sets the event collector.
func WithCollector(c Collector) Option {
	return func(s *Service) {
		if c != nil {
			s.collector = c
		}
	}
}

// WithEngine sets the rating engine.
func WithEngine(e *rating.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithStartSeason sets the first season of a run when the request does not name one.
func WithStartSeason(season int) Option {
	return func(s *Service) {
		if season > 0 {
			s.startSeason = season
		}
	}
}

// WithCurrentSeason sets how the last season of a run is determined.
func WithCurrentSeason(current func() int) Option {
	return func(s *Service) {
		if current != nil {
			s.currentSeason = current
		}
	}
}

// WithClock overrides time.Now for run reports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithQueueSize sets how many triggers may wait for the run worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSuspectThreshold sets the name similarity at which identities are reported as suspects.
func WithSuspectThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold >= 0 && threshold <= 1 {
			s.suspectThreshold = threshold
		}
	}
}

// WithRunOnStart enqueues a startup trigger when the service starts.
func WithRunOnStart(enabled bool) Option {
	return func(s *Service) {
		s.runOnStart = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
