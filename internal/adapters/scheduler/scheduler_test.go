package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gridelo/internal/adapters/mq/queue"
	"github.com/okian/gridelo/internal/adapters/scheduler"
)

type recorder struct {
	mu   sync.Mutex
	got  []queue.Trigger
	errs []error
}

func (r *recorder) Enqueue(_ context.Context, t queue.Trigger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return err
	}
	r.got = append(r.got, t)
	return nil
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestScheduler(t *testing.T) {
	Convey("Given the default spec", t, func() {
		rec := &recorder{}
		s, err := scheduler.New(context.Background(), "", rec, scheduler.WithLocation(time.UTC))
		So(err, ShouldBeNil)

		Convey("Then it fires on Mondays at 10:00", func() {
			So(s.Spec(), ShouldEqual, scheduler.DefaultSpec)
			s.Start()
			defer s.Stop()
			next := s.Next()
			So(next.Weekday(), ShouldEqual, time.Monday)
			So(next.Hour(), ShouldEqual, 10)
			So(next.Minute(), ShouldEqual, 0)
		})

		Convey("When ticking by hand", func() {
			s.Tick(context.Background())

			Convey("Then a schedule trigger is enqueued", func() {
				So(rec.len(), ShouldEqual, 1)
				So(rec.got[0].Source, ShouldEqual, queue.SourceSchedule)
				So(rec.got[0].ID, ShouldNotBeEmpty)
			})
		})

		Convey("When the queue is full", func() {
			rec.errs = []error{queue.ErrQueueFull}

			Convey("Then the tick is dropped without panicking", func() {
				So(func() { s.Tick(context.Background()) }, ShouldNotPanic)
				So(rec.len(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given an every-second spec", t, func() {
		rec := &recorder{}
		s, err := scheduler.New(context.Background(), "* * * * * *", rec)
		So(err, ShouldBeNil)

		Convey("Then ticks enqueue triggers once started", func() {
			s.Start()
			deadline := time.Now().Add(3 * time.Second)
			for time.Now().Before(deadline) && rec.len() == 0 {
				time.Sleep(20 * time.Millisecond)
			}
			s.Stop()
			So(rec.len(), ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given an invalid spec", t, func() {
		_, err := scheduler.New(context.Background(), "every monday", &recorder{})

		Convey("Then New fails with ErrInvalidSpec", func() {
			So(errors.Is(err, scheduler.ErrInvalidSpec), ShouldBeTrue)
		})
	})
}
