package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/gridelo/internal/adapters/mq/queue"
	"github.com/okian/gridelo/pkg/logger"
)

// Runner executes one pipeline run for a trigger.
type Runner interface {
	RunTrigger(ctx context.Context, t queue.Trigger) error
}

// Queue defines how the worker receives triggers.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Trigger
}

// RunWorker is the single consumer of the trigger queue, so runs never overlap.
type RunWorker struct {
	queue  Queue
	runner Runner
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewRunWorker creates a worker with configuration options.
func NewRunWorker(q Queue, runner Runner, opts ...Option) *RunWorker {
	w := &RunWorker{
		queue:    q,
		runner:   runner,
		name:     "run-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes triggers until ctx is cancelled, Shutdown is called or the queue closes.
// A failed run is logged; the worker keeps going.
func (w *RunWorker) Run(ctx context.Context) {
	defer close(w.done)

	triggers := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-triggers:
			if !ok {
				return
			}
			w.process(ctx, t)
		}
	}
}

func (w *RunWorker) process(ctx context.Context, t queue.Trigger) {
	start := time.Now()
	w.logger.Info(ctx, "run started",
		logger.String("trigger_id", t.ID),
		logger.String("source", t.Source),
		logger.Duration("queued_for", start.Sub(t.At)))

	if err := w.runner.RunTrigger(ctx, t); err != nil {
		w.logger.Error(ctx, "run failed",
			logger.String("trigger_id", t.ID),
			logger.Duration("took", time.Since(start)),
			logger.Error(err))
		return
	}
	w.logger.Info(ctx, "run finished",
		logger.String("trigger_id", t.ID),
		logger.Duration("took", time.Since(start)))
}

// Shutdown stops the worker after the current run, if any, completes.
func (w *RunWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
