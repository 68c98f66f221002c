// Package scheduler enqueues pipeline triggers on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/gridelo/internal/adapters/mq/queue"
	"github.com/okian/gridelo/pkg/logger"
)

// DefaultSpec runs every Monday at 10:00, after the weekend's race.
const DefaultSpec = "0 0 10 * * MON"

// ErrInvalidSpec reports a cron expression that does not parse.
var ErrInvalidSpec = errors.New("invalid cron spec")

var specParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Enqueuer accepts triggers.
type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.Trigger) error
}

// Scheduler fires a schedule trigger on every tick of its cron spec.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	spec    string
	queue   Enqueuer
	baseCtx context.Context
	log     logger.Logger
}

// Option applies a configuration option to the Scheduler.
type Option func(*options)

type options struct {
	loc *time.Location
	log logger.Logger
}

// WithLocation evaluates the spec in loc instead of local time.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// New validates spec and prepares a Scheduler; call Start to begin firing.
// baseCtx is handed to every enqueue.
func New(baseCtx context.Context, spec string, q Enqueuer, opts ...Option) (*Scheduler, error) {
	o := options{loc: time.Local, log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := specParser.Parse(spec); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSpec, spec, err)
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithParser(specParser), cron.WithLocation(o.loc)),
		spec:    spec,
		queue:   q,
		baseCtx: baseCtx,
		log:     o.log,
	}
	id, err := s.cron.AddFunc(spec, func() { s.Tick(s.baseCtx) })
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSpec, spec, err)
	}
	s.entry = id
	return s, nil
}

// Tick enqueues one schedule trigger. A full queue means a run is already
// pending, so the tick is dropped.
func (s *Scheduler) Tick(ctx context.Context) {
	t := queue.NewTrigger(queue.SourceSchedule)
	switch err := s.queue.Enqueue(ctx, t); {
	case err == nil:
		s.log.Info(ctx, "scheduled run enqueued", logger.String("trigger_id", t.ID))
	case errors.Is(err, queue.ErrQueueFull):
		s.log.Warn(ctx, "scheduled run skipped, a run is already pending")
	default:
		s.log.Error(ctx, "scheduled run not enqueued", logger.Error(err))
	}
}

// Spec returns the cron expression.
func (s *Scheduler) Spec() string { return s.spec }

// Next returns the next fire time; zero before Start.
func (s *Scheduler) Next() time.Time { return s.cron.Entry(s.entry).Next }

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info(s.baseCtx, "scheduler started", logger.String("spec", s.spec), logger.Time("next", s.Next()))
}

// Stop halts the schedule and waits for a running tick to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info(s.baseCtx, "scheduler stopped")
}
