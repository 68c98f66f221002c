package service_test

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/okian/gridelo/internal/adapters/mq/queue"
	"github.com/okian/gridelo/internal/adapters/repository"
	"github.com/okian/gridelo/internal/adapters/source"
	service "github.com/okian/gridelo/internal/app"
	"github.com/okian/gridelo/internal/domain/aggregate"
	"github.com/okian/gridelo/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// step is one item yielded by the fake collector.
type step struct {
	set model.EventResultSet
	err error
}

// fakeCollector replays steps after the requested watermark.
type fakeCollector struct {
	steps   []step
	afters  []model.EventKey
	entered chan struct{}
	block   chan struct{}
}

func (f *fakeCollector) Walk(ctx context.Context, after model.EventKey, _, _ int) iter.Seq2[model.EventResultSet, error] {
	f.afters = append(f.afters, after)
	return func(yield func(model.EventResultSet, error) bool) {
		if f.entered != nil {
			close(f.entered)
		}
		if f.block != nil {
			select {
			case <-f.block:
			case <-ctx.Done():
				return
			}
		}
		for _, s := range f.steps {
			key := s.set.Key
			var skip *aggregate.SkipError
			if errors.As(s.err, &skip) {
				key = skip.Key
			}
			if !key.After(after) {
				continue
			}
			if !yield(s.set, s.err) {
				return
			}
		}
	}
}

func event(season, round int, names ...string) step {
	set := model.EventResultSet{Key: model.EventKey{Season: season, Round: round}}
	for i, n := range names {
		set.Results = append(set.Results, model.EventResult{Competitor: model.CompetitorID(n), Position: i + 1})
	}
	return step{set: set}
}

// failingStore fails every write.
type failingStore struct {
	*repository.MemoryStore
}

func (failingStore) Save(context.Context, model.Snapshot) error {
	return repository.ErrStorage
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["kFactor"], ShouldEqual, 24.0)
			So(stats["initialRating"], ShouldEqual, 1500.0)
			So(stats["startSeason"], ShouldEqual, 2018)
		})

		Convey("Then running without a collector fails", func() {
			_, err := svc.Run(context.Background(), service.RunRequest{})
			So(errors.Is(err, service.ErrNoSource), ShouldBeTrue)
		})
	})
}

func TestService_Run(t *testing.T) {
	Convey("Given a service over an in-memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		col := &fakeCollector{steps: []step{event(2023, 1, "A", "B")}}
		svc := service.New(
			service.WithStore(store),
			service.WithCollector(col),
			service.WithStartSeason(2023),
			service.WithCurrentSeason(func() int { return 2023 }),
		)

		Convey("When nothing was ever run", func() {
			ranking, err := svc.Ranking(ctx)

			Convey("Then the ranking is empty and never updated", func() {
				So(err, ShouldBeNil)
				So(ranking.Standings, ShouldBeEmpty)
				So(ranking.Updated, ShouldBeFalse)
				_, ok := svc.LastRun()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When one two-driver event is applied", func() {
			report, err := svc.Run(ctx, service.RunRequest{Trigger: queue.SourceManual})
			So(err, ShouldBeNil)

			Convey("Then the winner gains what the loser loses", func() {
				So(report.EventsApplied, ShouldEqual, 1)
				So(report.Saved, ShouldBeTrue)
				So(report.Watermark, ShouldResemble, model.EventKey{Season: 2023, Round: 1})
				So(report.Standings, ShouldHaveLength, 2)

				a, err := svc.Rating(ctx, "A")
				So(err, ShouldBeNil)
				So(a.Rating, ShouldAlmostEqual, 1512, 1e-9)
				So(a.Rank, ShouldEqual, 1)
				b, err := svc.Rating(ctx, "b")
				So(err, ShouldBeNil)
				So(b.Rating, ShouldAlmostEqual, 1488, 1e-9)
			})

			Convey("Then the run is remembered", func() {
				last, ok := svc.LastRun()
				So(ok, ShouldBeTrue)
				So(last.ID, ShouldEqual, report.ID)
				So(svc.GetStats()["runsTotal"], ShouldEqual, 1)
			})

			Convey("Then a second run resumes after the watermark and changes nothing", func() {
				before, _, _ := svc.LastUpdated(ctx)
				again, err := svc.Run(ctx, service.RunRequest{})
				So(err, ShouldBeNil)
				So(again.EventsApplied, ShouldEqual, 0)
				So(again.Saved, ShouldBeFalse)
				So(col.afters[1], ShouldResemble, model.EventKey{Season: 2023, Round: 1})

				after, ok, _ := svc.LastUpdated(ctx)
				So(ok, ShouldBeTrue)
				So(after, ShouldEqual, before)
				a, _ := svc.Rating(ctx, "A")
				So(a.Rating, ShouldAlmostEqual, 1512, 1e-9)
			})

			Convey("Then a rebuild recomputes from scratch to the same result", func() {
				rebuilt, err := svc.Run(ctx, service.RunRequest{Rebuild: true})
				So(err, ShouldBeNil)
				So(rebuilt.EventsApplied, ShouldEqual, 1)
				So(col.afters[1], ShouldResemble, model.EventKey{})
				a, _ := svc.Rating(ctx, "A")
				So(a.Rating, ShouldAlmostEqual, 1512, 1e-9)
			})

			Convey("Then an unknown competitor is not found", func() {
				_, err := svc.Rating(ctx, "Z")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When events are skipped", func() {
			col.steps = []step{
				event(2023, 1, "A", "B"),
				{err: &aggregate.SkipError{Key: model.EventKey{Season: 2023, Round: 2}, Reason: aggregate.ReasonEventUnavailable}},
				event(2023, 3, "A"),
				event(2023, 4, "B", "C"),
			}
			report, err := svc.Run(ctx, service.RunRequest{})

			Convey("Then they are counted and the rest applied", func() {
				So(err, ShouldBeNil)
				So(report.EventsApplied, ShouldEqual, 2)
				So(report.EventsSkipped, ShouldEqual, 2)
				So(report.Skipped, ShouldResemble, []model.SkippedEvent{
					{Key: model.EventKey{Season: 2023, Round: 2}, Reason: aggregate.ReasonEventUnavailable},
					{Key: model.EventKey{Season: 2023, Round: 3}, Reason: "under_subscribed"},
				})
				So(report.Competitors, ShouldEqual, 3)
				So(report.Watermark, ShouldResemble, model.EventKey{Season: 2023, Round: 4})
			})
		})

		Convey("When an event fails upstream and recovers on the next run", func() {
			outage := &aggregate.SkipError{
				Key:    model.EventKey{Season: 2023, Round: 2},
				Reason: aggregate.ReasonEventUnavailable,
				Err:    fmt.Errorf("%w: %w", aggregate.ErrEventUnavailable, source.ErrUpstream),
			}
			col.steps = []step{
				event(2023, 1, "A", "B"),
				{err: outage},
				event(2023, 3, "A", "B"),
			}
			first, err := svc.Run(ctx, service.RunRequest{})
			So(err, ShouldBeNil)

			col.steps = []step{
				event(2023, 1, "A", "B"),
				event(2023, 2, "B", "A"),
				event(2023, 3, "A", "B"),
			}
			second, err := svc.Run(ctx, service.RunRequest{})
			So(err, ShouldBeNil)

			Convey("Then the first run stops before the gap", func() {
				So(first.EventsApplied, ShouldEqual, 1)
				So(first.Saved, ShouldBeTrue)
				So(first.Watermark, ShouldResemble, model.EventKey{Season: 2023, Round: 1})
				So(*first.StoppedAt, ShouldResemble, model.EventKey{Season: 2023, Round: 2})
			})

			Convey("Then the second run resumes at the gap in order", func() {
				So(col.afters[1], ShouldResemble, model.EventKey{Season: 2023, Round: 1})
				So(second.EventsApplied, ShouldEqual, 2)
				So(second.StoppedAt, ShouldBeNil)
				So(second.Watermark, ShouldResemble, model.EventKey{Season: 2023, Round: 3})
			})

			Convey("Then the ratings match an uninterrupted fold", func() {
				reference := service.New(
					service.WithCollector(&fakeCollector{steps: col.steps}),
					service.WithStartSeason(2023),
					service.WithCurrentSeason(func() int { return 2023 }),
				)
				_, err := reference.Run(ctx, service.RunRequest{})
				So(err, ShouldBeNil)
				for _, id := range []string{"A", "B"} {
					got, err := svc.Rating(ctx, id)
					So(err, ShouldBeNil)
					want, err := reference.Rating(ctx, id)
					So(err, ShouldBeNil)
					So(got.Rating, ShouldAlmostEqual, want.Rating, 1e-9)
				}
			})
		})

		Convey("When a season schedule fails upstream", func() {
			col.steps = []step{
				{err: &aggregate.SkipError{
					Key:    model.EventKey{Season: 2023},
					Reason: aggregate.ReasonSeasonUnavailable,
					Err:    fmt.Errorf("%w: %w", aggregate.ErrSeasonUnavailable, source.ErrUpstream),
				}},
				event(2023, 1, "A", "B"),
			}
			report, err := svc.Run(ctx, service.RunRequest{})

			Convey("Then nothing after it is applied or saved", func() {
				So(err, ShouldBeNil)
				So(report.EventsApplied, ShouldEqual, 0)
				So(report.Saved, ShouldBeFalse)
				So(report.StoppedAt, ShouldNotBeNil)
			})
		})

		Convey("When the season span is inverted", func() {
			_, err := svc.Run(ctx, service.RunRequest{StartSeason: 2024, EndSeason: 2020})

			Convey("Then the run fails", func() {
				So(errors.Is(err, service.ErrInvalidSpan), ShouldBeTrue)
				last, ok := svc.LastRun()
				So(ok, ShouldBeTrue)
				So(last.Error, ShouldNotBeEmpty)
				So(svc.GetStats()["runsFailed"], ShouldEqual, 1)
			})
		})
	})
}

func TestService_RunFailures(t *testing.T) {
	Convey("Given a store that rejects writes", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithStore(failingStore{repository.NewMemoryStore()}),
			service.WithCollector(&fakeCollector{steps: []step{event(2023, 1, "A", "B")}}),
			service.WithCurrentSeason(func() int { return 2023 }),
		)

		Convey("When a run applies an event", func() {
			report, err := svc.Run(ctx, service.RunRequest{})

			Convey("Then the storage error aborts the run", func() {
				So(errors.Is(err, repository.ErrStorage), ShouldBeTrue)
				So(report.Saved, ShouldBeFalse)
				ranking, _ := svc.Ranking(ctx)
				So(ranking.Standings, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a run that is still collecting", t, func() {
		ctx := context.Background()
		col := &fakeCollector{
			steps:   []step{event(2023, 1, "A", "B")},
			entered: make(chan struct{}),
			block:   make(chan struct{}),
		}
		svc := service.New(
			service.WithCollector(col),
			service.WithCurrentSeason(func() int { return 2023 }),
		)
		done := make(chan error, 1)
		go func() {
			_, err := svc.Run(ctx, service.RunRequest{})
			done <- err
		}()
		<-col.entered

		Convey("When another run starts", func() {
			_, err := svc.Run(ctx, service.RunRequest{})

			Convey("Then it is refused while the first completes", func() {
				So(errors.Is(err, service.ErrRunInProgress), ShouldBeTrue)
				close(col.block)
				So(<-done, ShouldBeNil)
			})
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		svc := service.New(service.WithCollector(&fakeCollector{}))

		Convey("Then triggers are refused", func() {
			_, err := svc.Trigger(context.Background(), queue.SourceManual, false, 0)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := service.New(
			service.WithStore(store),
			service.WithCollector(&fakeCollector{steps: []step{event(2023, 1, "A", "B")}}),
			service.WithCurrentSeason(func() int { return 2023 }),
		)
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When a manual trigger is queued", func() {
			trig, err := svc.Trigger(ctx, queue.SourceManual, false, 0)
			So(err, ShouldBeNil)

			Convey("Then the worker runs it", func() {
				deadline := time.Now().Add(2 * time.Second)
				var last model.RunReport
				var ok bool
				for time.Now().Before(deadline) {
					if last, ok = svc.LastRun(); ok {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(ok, ShouldBeTrue)
				So(last.TriggerID, ShouldEqual, trig.ID)
				So(last.Trigger, ShouldEqual, queue.SourceManual)
				So(svc.GetStats()["started"], ShouldBeTrue)
			})
		})
	})
}

func TestService_Suspects(t *testing.T) {
	Convey("Given ratings with two near-identical names", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithCollector(&fakeCollector{steps: []step{
				event(2023, 1, "Kimi Raikkonen", "Kimi Raikonen", "Max Verstappen"),
			}}),
			service.WithCurrentSeason(func() int { return 2023 }),
		)
		_, err := svc.Run(ctx, service.RunRequest{})
		So(err, ShouldBeNil)

		Convey("Then they are reported as a suspect pair", func() {
			suspects, err := svc.Suspects(ctx)
			So(err, ShouldBeNil)
			So(suspects, ShouldHaveLength, 1)
			pair := []model.CompetitorID{suspects[0].A, suspects[0].B}
			So(pair, ShouldContain, model.CompetitorID("Kimi Raikkonen"))
			So(pair, ShouldContain, model.CompetitorID("Kimi Raikonen"))
		})
	})
}
