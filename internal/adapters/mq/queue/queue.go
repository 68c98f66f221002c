// Package queue holds pending run triggers until the run worker picks them up.
//
// The queue is deliberately tiny: one pending trigger is enough to guarantee a
// fresh run after the current one, and anything beyond that is rejected so that
// callers get immediate backpressure.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gridelo/pkg/metrics"
)

const defaultQueueCapacity = 1

// Trigger sources.
const (
	SourceSchedule = "schedule"
	SourceManual   = "manual"
	SourceStartup  = "startup"
)

// Trigger asks for one pipeline run.
type Trigger struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	StartSeason int       `json:"start_season,omitempty"`
	Rebuild     bool      `json:"rebuild,omitempty"`
	At          time.Time `json:"at"`
}

// NewTrigger stamps a trigger from source with a fresh ID.
func NewTrigger(source string) Trigger {
	return Trigger{ID: uuid.NewString(), Source: source, At: time.Now().UTC()}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds t, or returns ErrQueueFull / ErrClosed without blocking.
	Enqueue(ctx context.Context, t Trigger) error

	// Dequeue returns a channel that receives triggers; it is closed when the queue is.
	Dequeue(ctx context.Context) <-chan Trigger

	// Len returns the number of pending triggers.
	Len(ctx context.Context) int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	triggers chan Trigger
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.triggers = make(chan Trigger, q.capacity)
	metrics.UpdateTriggerQueueSize(0)
	return q
}

// Enqueue adds a trigger to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Trigger) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordTrigger(t.Source, "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordTrigger(t.Source, "cancelled")
		return err
	}

	select {
	case q.triggers <- t:
		metrics.RecordTrigger(t.Source, "accepted")
		metrics.UpdateTriggerQueueSize(len(q.triggers))
		return nil
	default:
		metrics.RecordTrigger(t.Source, "rejected")
		return ErrQueueFull
	}
}

// Dequeue returns a channel that will receive triggers as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Trigger {
	out := make(chan Trigger)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-q.triggers:
				if !ok {
					return
				}
				metrics.UpdateTriggerQueueSize(len(q.triggers))
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of pending triggers.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.triggers)
}

// Close stops accepting triggers; pending ones are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.triggers)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
