// Package service drives the rating pipeline and serves the read model
// required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gridelo/internal/adapters/mq/queue"
	"github.com/okian/gridelo/internal/adapters/mq/worker"
	"github.com/okian/gridelo/internal/adapters/repository"
	"github.com/okian/gridelo/internal/adapters/source"
	"github.com/okian/gridelo/internal/domain/aggregate"
	"github.com/okian/gridelo/internal/domain/identity"
	"github.com/okian/gridelo/internal/domain/model"
	"github.com/okian/gridelo/internal/domain/rating"
	"github.com/okian/gridelo/pkg/logger"
	"github.com/okian/gridelo/pkg/metrics"
)

const (
	defaultStartSeason      = 2018
	defaultSuspectThreshold = 0.85
	defaultQueueSize        = 1
	shutdownGrace           = 30 * time.Second
)

// RunRequest selects what a pipeline run covers.
// Zero seasons fall back to the configured start season and the current season.
type RunRequest struct {
	StartSeason int
	EndSeason   int
	Rebuild     bool
	Trigger     string
	TriggerID   string
}

// Service runs the pipeline and answers read queries.
type Service struct {
	mu sync.RWMutex

	// runMu serialises pipeline runs; overlapping callers get ErrRunInProgress.
	runMu sync.Mutex

	// Core components
	store     repository.Store
	collector Collector
	engine    *rating.Engine
	queue     *queue.InMemoryQueue
	worker    *worker.RunWorker

	// Configuration
	startSeason      int
	currentSeason    func() int
	queueSize        int
	suspectThreshold float64
	runOnStart       bool
	now              func() time.Time

	// State
	started    bool
	cancel     context.CancelFunc
	lastRun    *model.RunReport
	runsTotal  int
	runsFailed int

	// Logging
	logger logger.Logger
}

// New constructs a Service. Without WithStore the ratings live in memory.
func New(opts ...Option) *Service {
	s := &Service{
		engine:           rating.NewEngine(),
		startSeason:      defaultStartSeason,
		currentSeason:    func() int { return time.Now().UTC().Year() },
		queueSize:        defaultQueueSize,
		suspectThreshold: defaultSuspectThreshold,
		now:              time.Now,
		logger:           logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	return s
}

// Start launches the trigger queue and the run worker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting rating service...")

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.worker = worker.NewRunWorker(s.queue, s, worker.WithLogger(s.logger))
	go s.worker.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("startSeason", s.startSeason),
		logger.Float64("kFactor", s.engine.KFactor()),
		logger.Float64("initialRating", s.engine.InitialRating()),
	)

	if s.runOnStart {
		if err := s.queue.Enqueue(ctx, queue.NewTrigger(queue.SourceStartup)); err != nil {
			s.logger.Warn(ctx, "startup run not queued", logger.Error(err))
		}
	}
	return nil
}

// Stop stops accepting triggers and waits for the current run. The store is
// owned by the caller and stays open.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping rating service...")

	_ = s.queue.Close()

	waitCtx, cancelWait := context.WithTimeout(ctx, shutdownGrace)
	if err := s.worker.Shutdown(waitCtx); err != nil {
		s.logger.Warn(ctx, "run worker did not stop in time", logger.Error(err))
	}
	cancelWait()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

// Enqueue submits a trigger for the run worker without blocking.
func (s *Service) Enqueue(ctx context.Context, t queue.Trigger) error {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}
	return q.Enqueue(ctx, t)
}

// Trigger enqueues a run requested by origin and returns the trigger.
func (s *Service) Trigger(ctx context.Context, origin string, rebuild bool, startSeason int) (queue.Trigger, error) {
	t := queue.NewTrigger(origin)
	t.Rebuild = rebuild
	t.StartSeason = startSeason
	if err := s.Enqueue(ctx, t); err != nil {
		return t, err
	}
	s.logger.Info(ctx, "run queued",
		logger.String("trigger_id", t.ID),
		logger.String("source", origin),
		logger.Bool("rebuild", rebuild))
	return t, nil
}

// RunTrigger runs the pipeline for a dequeued trigger.
func (s *Service) RunTrigger(ctx context.Context, t queue.Trigger) error {
	_, err := s.Run(ctx, RunRequest{
		StartSeason: t.StartSeason,
		Rebuild:     t.Rebuild,
		Trigger:     t.Source,
		TriggerID:   t.ID,
	})
	return err
}

// Run folds every event after the stored watermark into the ratings and saves
// the result. With Rebuild the stored state is ignored and replaced.
// Nothing is written when no event was applied or when the run fails.
func (s *Service) Run(ctx context.Context, req RunRequest) (model.RunReport, error) {
	if req.Trigger == "" {
		req.Trigger = queue.SourceManual
	}
	if !s.runMu.TryLock() {
		metrics.RecordRun(req.Trigger, "busy", 0)
		return model.RunReport{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	report := model.RunReport{
		ID:          uuid.NewString(),
		TriggerID:   req.TriggerID,
		Trigger:     req.Trigger,
		Rebuild:     req.Rebuild,
		StartSeason: req.StartSeason,
		EndSeason:   req.EndSeason,
		StartedAt:   s.now().UTC(),
	}
	if report.StartSeason <= 0 {
		report.StartSeason = s.startSeason
	}
	if report.EndSeason <= 0 {
		report.EndSeason = s.currentSeason()
	}

	snap, err := s.fold(ctx, &report)
	report.FinishedAt = s.now().UTC()
	if err != nil {
		report.Error = err.Error()
		s.finish(ctx, report, "error")
		return report, err
	}

	report.Competitors = snap.Len()
	report.Watermark = snap.Watermark
	report.Standings = rating.ShareTies(rating.Rank(snap))
	s.finish(ctx, report, "ok")
	return report, nil
}

func (s *Service) fold(ctx context.Context, report *model.RunReport) (model.Snapshot, error) {
	if s.collector == nil {
		return model.Snapshot{}, ErrNoSource
	}
	if report.StartSeason > report.EndSeason {
		return model.Snapshot{}, fmt.Errorf("%w: %d..%d", ErrInvalidSpan, report.StartSeason, report.EndSeason)
	}

	snap := model.NewSnapshot()
	if !report.Rebuild {
		loaded, err := s.store.Load(ctx)
		if err != nil {
			return model.Snapshot{}, err
		}
		snap = loaded
	}

	s.logger.Info(ctx, "run collecting events",
		logger.String("run_id", report.ID),
		logger.String("after", snap.Watermark.String()),
		logger.Int("startSeason", report.StartSeason),
		logger.Int("endSeason", report.EndSeason),
		logger.Bool("rebuild", report.Rebuild))

	for set, err := range s.collector.Walk(ctx, snap.Watermark, report.StartSeason, report.EndSeason) {
		if err != nil {
			var skip *aggregate.SkipError
			if !errors.As(err, &skip) {
				return model.Snapshot{}, err
			}
			report.EventsSkipped++
			report.Skipped = append(report.Skipped, model.SkippedEvent{Key: skip.Key, Reason: skip.Reason})
			if retryable(skip) {
				// Later events would move the watermark past the gap.
				key := skip.Key
				report.StoppedAt = &key
				s.logger.Warn(ctx, "stopping at temporarily unavailable event",
					logger.String("run_id", report.ID),
					logger.String("event", key.String()),
					logger.Error(skip))
				break
			}
			continue
		}

		next, out := s.engine.Update(snap, set)
		if !out.Applied {
			report.EventsSkipped++
			report.Skipped = append(report.Skipped, model.SkippedEvent{Key: out.Key, Reason: out.Reason})
			metrics.RecordEventSkipped(out.Reason)
			continue
		}
		snap = next
		report.EventsApplied++
		metrics.RecordEventApplied()
		s.logger.Debug(ctx, "event applied",
			logger.String("event", set.Key.String()),
			logger.String("name", set.Name),
			logger.Int("competitors", len(out.Changes)))
	}
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("run cancelled: %w", err)
	}

	if report.EventsApplied == 0 {
		return snap, nil
	}
	save := s.store.Save
	if report.Rebuild {
		save = s.store.Replace
	}
	if err := save(ctx, snap); err != nil {
		return model.Snapshot{}, err
	}
	report.Saved = true
	return snap, nil
}

// retryable reports whether a skip came from an upstream failure that a later
// run may not see again, as opposed to data that is absent or unusable.
func retryable(skip *aggregate.SkipError) bool {
	return errors.Is(skip, source.ErrUpstream)
}

func (s *Service) finish(ctx context.Context, report model.RunReport, status string) {
	metrics.RecordRun(report.Trigger, status, float64(report.Duration().Milliseconds()))

	s.mu.Lock()
	s.lastRun = &report
	s.runsTotal++
	if status != "ok" {
		s.runsFailed++
	}
	s.mu.Unlock()

	if status != "ok" {
		s.logger.Error(ctx, "run failed",
			logger.String("run_id", report.ID),
			logger.Int("applied", report.EventsApplied),
			logger.String("error", report.Error))
		return
	}
	metrics.UpdateLastRunUnix(float64(report.FinishedAt.Unix()))
	metrics.UpdateCompetitors(report.Competitors)
	s.logger.Info(ctx, "run complete",
		logger.String("run_id", report.ID),
		logger.Int("applied", report.EventsApplied),
		logger.Int("skipped", report.EventsSkipped),
		logger.Int("competitors", report.Competitors),
		logger.String("watermark", report.Watermark.String()),
		logger.Bool("saved", report.Saved),
		logger.Duration("took", report.Duration()))
}

// Ranking returns every rated competitor ordered by rating; exact ties share a rank.
func (s *Service) Ranking(ctx context.Context) (model.Ranking, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return model.Ranking{}, err
	}
	return model.Ranking{
		Standings:   rating.ShareTies(rating.Rank(snap)),
		LastUpdated: snap.UpdatedAt,
		Updated:     !snap.UpdatedAt.IsZero(),
	}, nil
}

// Rating returns the standing of one competitor. The id is matched exactly
// first, then by its case and accent insensitive form.
func (s *Service) Rating(ctx context.Context, id string) (model.Standing, error) {
	ranking, err := s.Ranking(ctx)
	if err != nil {
		return model.Standing{}, err
	}
	if i := slices.IndexFunc(ranking.Standings, func(st model.Standing) bool {
		return string(st.Competitor) == id
	}); i >= 0 {
		return ranking.Standings[i], nil
	}
	key := identity.MatchKey(id)
	if key != "" {
		if i := slices.IndexFunc(ranking.Standings, func(st model.Standing) bool {
			return identity.MatchKey(string(st.Competitor)) == key
		}); i >= 0 {
			return ranking.Standings[i], nil
		}
	}
	return model.Standing{}, fmt.Errorf("%w: %q", repository.ErrNotFound, id)
}

// LastUpdated returns when the ratings were last persisted.
func (s *Service) LastUpdated(ctx context.Context) (time.Time, bool, error) {
	return s.store.LastUpdated(ctx)
}

// Suspects lists pairs of rated competitors whose names are similar enough to
// be one person split by a spelling difference.
func (s *Service) Suspects(ctx context.Context) ([]identity.Suspect, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]model.CompetitorID, 0, snap.Len())
	for id := range snap.Ratings {
		ids = append(ids, id)
	}
	return identity.Suspects(ids, s.suspectThreshold), nil
}

// LastRun returns the report of the most recent run in this process.
func (s *Service) LastRun() (model.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return model.RunReport{}, false
	}
	return *s.lastRun, true
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"queueSize":     s.queueSize,
		"startSeason":   s.startSeason,
		"kFactor":       s.engine.KFactor(),
		"initialRating": s.engine.InitialRating(),
		"runsTotal":     s.runsTotal,
		"runsFailed":    s.runsFailed,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateTriggerQueueSize(queueLen)
	}
	if s.lastRun != nil {
		stats["lastRunAt"] = s.lastRun.FinishedAt
		stats["lastRunApplied"] = s.lastRun.EventsApplied
		stats["competitors"] = s.lastRun.Competitors
		stats["watermark"] = s.lastRun.Watermark.String()
	}

	return stats
}
