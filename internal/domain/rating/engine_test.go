package rating_test

import (
	"math"
	"testing"

	"github.com/okian/gridelo/internal/domain/model"
	"github.com/okian/gridelo/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func event(season, round int, ids ...string) model.EventResultSet {
	set := model.EventResultSet{Key: model.EventKey{Season: season, Round: round}}
	for i, id := range ids {
		set.Results = append(set.Results, model.EventResult{Competitor: model.CompetitorID(id), Position: i + 1})
	}
	return set
}

func TestEngine_Update(t *testing.T) {
	Convey("Given an engine with default parameters", t, func() {
		engine := rating.NewEngine()
		empty := model.NewSnapshot()

		So(engine.InitialRating(), ShouldEqual, 1500)
		So(engine.KFactor(), ShouldEqual, 24)

		Convey("When two new competitors race", func() {
			next, out := engine.Update(empty, event(2020, 1, "A", "B"))

			Convey("Then the winner gains K/2 and the loser drops K/2", func() {
				So(out.Applied, ShouldBeTrue)
				So(next.Ratings["A"], ShouldEqual, 1512.0)
				So(next.Ratings["B"], ShouldEqual, 1488.0)
				So(out.Changes[0].Actual, ShouldEqual, 1.0)
				So(out.Changes[0].Expected, ShouldEqual, 0.5)
				So(out.Changes[1].Actual, ShouldEqual, 0.0)
			})

			Convey("Then the input snapshot is not mutated", func() {
				So(empty.Len(), ShouldEqual, 0)
			})

			Convey("Then the watermark advances to the event", func() {
				So(next.Watermark, ShouldResemble, model.EventKey{Season: 2020, Round: 1})
			})
		})

		Convey("When three new competitors finish in order", func() {
			next, out := engine.Update(empty, event(2020, 1, "A", "B", "C"))

			Convey("Then ratings are 1512, 1500 and 1488", func() {
				So(next.Ratings["A"], ShouldEqual, 1512.0)
				So(next.Ratings["B"], ShouldEqual, 1500.0)
				So(next.Ratings["C"], ShouldEqual, 1488.0)
				So(out.Changes[1].Actual, ShouldEqual, 0.5)
				So(out.Changes[1].Delta, ShouldEqual, 0.0)
			})

			Convey("Then first-seen order follows the results", func() {
				So(next.Order, ShouldResemble, []model.CompetitorID{"A", "B", "C"})
			})
		})

		Convey("When an event has a single valid competitor", func() {
			seeded, _ := engine.Update(empty, event(2020, 1, "A", "B"))
			next, out := engine.Update(seeded, event(2020, 2, "A"))

			Convey("Then the snapshot is unchanged and the event is skipped", func() {
				So(out.Applied, ShouldBeFalse)
				So(out.Reason, ShouldEqual, rating.ReasonUnderSubscribed)
				So(next.Ratings, ShouldResemble, seeded.Ratings)
				So(next.Watermark, ShouldResemble, seeded.Watermark)
			})
		})

		Convey("When an event repeats a competitor", func() {
			set := event(2020, 1, "A", "A")

			Convey("Then it counts as one distinct competitor and is skipped", func() {
				_, out := engine.Update(empty, set)
				So(out.Applied, ShouldBeFalse)
			})
		})

		Convey("When an event is empty", func() {
			next, out := engine.Update(empty, model.EventResultSet{})

			Convey("Then nothing happens", func() {
				So(out.Applied, ShouldBeFalse)
				So(next.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a field of unequal ratings races", func() {
			snap := model.NewSnapshot()
			snap.Put("A", 1650)
			snap.Put("B", 1500)
			snap.Put("C", 1420)
			snap.Put("D", 1580)
			set := event(2021, 3, "C", "A", "D", "B")

			next, out := engine.Update(snap, set)

			Convey("Then actual scores sum to N/2", func() {
				var sum float64
				for _, c := range out.Changes {
					sum += c.Actual
				}
				So(sum, ShouldAlmostEqual, 2.0, 1e-12)
			})

			Convey("Then rating is conserved", func() {
				var total float64
				for _, r := range next.Ratings {
					total += r
				}
				So(total, ShouldAlmostEqual, 1650+1500+1420+1580, 1e-9)
			})

			Convey("Then the upset winner gains the most", func() {
				So(out.Changes[0].Competitor, ShouldEqual, model.CompetitorID("C"))
				for _, c := range out.Changes[1:] {
					So(out.Changes[0].Delta, ShouldBeGreaterThan, c.Delta)
				}
			})

			Convey("Then permuting the results gives identical ratings", func() {
				permuted := model.EventResultSet{Key: set.Key, Results: []model.EventResult{
					set.Results[3], set.Results[1], set.Results[0], set.Results[2],
				}}
				other, _ := engine.Update(snap, permuted)
				So(other.Ratings, ShouldResemble, next.Ratings)
			})

			Convey("Then repeating the update is deterministic", func() {
				again, _ := engine.Update(snap, set)
				So(again.Ratings, ShouldResemble, next.Ratings)
			})
		})

		Convey("When competitors are absent from an event", func() {
			snap := model.NewSnapshot()
			snap.Put("X", 1600)
			next, _ := engine.Update(snap, event(2020, 1, "A", "B"))

			Convey("Then their ratings are untouched", func() {
				So(next.Ratings["X"], ShouldEqual, 1600.0)
			})
		})

		Convey("When an older event is applied after a newer watermark", func() {
			snap := model.NewSnapshot()
			snap.Watermark = model.EventKey{Season: 2022, Round: 5}
			next, out := engine.Update(snap, event(2021, 1, "A", "B"))

			Convey("Then the watermark does not move backwards", func() {
				So(out.Applied, ShouldBeTrue)
				So(next.Watermark, ShouldResemble, model.EventKey{Season: 2022, Round: 5})
			})
		})
	})

	Convey("Given an engine with custom parameters", t, func() {
		engine := rating.NewEngine(rating.WithInitialRating(1000), rating.WithKFactor(32), rating.WithKFactor(-1))

		Convey("When two equal competitors race", func() {
			next, _ := engine.Update(model.NewSnapshot(), event(2020, 1, "A", "B"))

			Convey("Then the exchange is K/2 from the custom start", func() {
				So(next.Ratings["A"], ShouldEqual, 1016.0)
				So(next.Ratings["B"], ShouldEqual, 984.0)
			})
		})
	})
}

func TestScores(t *testing.T) {
	Convey("Given the score helpers", t, func() {
		Convey("ActualScore is linear from 1 to 0", func() {
			So(rating.ActualScore(1, 5), ShouldEqual, 1.0)
			So(rating.ActualScore(3, 5), ShouldEqual, 0.5)
			So(rating.ActualScore(5, 5), ShouldEqual, 0.0)
		})

		Convey("ActualScore clamps positions", func() {
			So(rating.ActualScore(0, 4), ShouldEqual, 1.0)
			So(rating.ActualScore(9, 4), ShouldEqual, 0.0)
			So(rating.ActualScore(1, 1), ShouldEqual, 0.0)
		})

		Convey("ExpectedScore is 0.5 against an equal opponent", func() {
			So(rating.ExpectedScore(1500, []float64{1500}), ShouldEqual, 0.5)
		})

		Convey("ExpectedScore is about 10:1 at a 400 point gap", func() {
			So(rating.ExpectedScore(1900, []float64{1500}), ShouldAlmostEqual, 10.0/11.0, 1e-12)
		})

		Convey("ExpectedScore averages across opponents", func() {
			want := (0.5 + 1/(1+math.Pow(10, 100.0/400))) / 2
			So(rating.ExpectedScore(1500, []float64{1500, 1600}), ShouldAlmostEqual, want, 1e-12)
		})

		Convey("ExpectedScore is 0 without opponents", func() {
			So(rating.ExpectedScore(1500, nil), ShouldEqual, 0.0)
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given a snapshot with ties", t, func() {
		snap := model.NewSnapshot()
		snap.Put("B", 1500)
		snap.Put("A", 1520)
		snap.Put("C", 1500)
		snap.Put("D", 1490)

		Convey("When ranking", func() {
			standings := rating.Rank(snap)

			Convey("Then ratings descend and ties keep first-seen order", func() {
				So(standings, ShouldResemble, []model.Standing{
					{Rank: 1, Competitor: "A", Rating: 1520},
					{Rank: 2, Competitor: "B", Rating: 1500},
					{Rank: 3, Competitor: "C", Rating: 1500},
					{Rank: 4, Competitor: "D", Rating: 1490},
				})
			})

			Convey("Then shared ranks give exact ties the same place", func() {
				shared := rating.ShareTies(standings)
				So([]int{shared[0].Rank, shared[1].Rank, shared[2].Rank, shared[3].Rank}, ShouldResemble, []int{1, 2, 2, 4})
				So(standings[2].Rank, ShouldEqual, 3)
			})
		})
	})

	Convey("Given a snapshot whose order list is incomplete", t, func() {
		snap := model.Snapshot{Ratings: map[model.CompetitorID]float64{"Z": 1500, "Y": 1500, "X": 1600}}

		Convey("Then every competitor is ranked exactly once", func() {
			standings := rating.Rank(snap)
			So(len(standings), ShouldEqual, 3)
			So(standings[0].Competitor, ShouldEqual, model.CompetitorID("X"))
			So(standings[1].Competitor, ShouldEqual, model.CompetitorID("Y"))
			So(standings[2].Competitor, ShouldEqual, model.CompetitorID("Z"))
		})
	})

	Convey("Given an empty snapshot", t, func() {
		Convey("Then the ranking is empty", func() {
			So(rating.Rank(model.NewSnapshot()), ShouldBeEmpty)
		})
	})
}
