package normalize_test

import (
	"testing"

	"github.com/okian/gridelo/internal/domain/identity"
	"github.com/okian/gridelo/internal/domain/model"
	"github.com/okian/gridelo/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizer(t *testing.T) {
	Convey("Given a normalizer backed by the identity resolver", t, func() {
		n := normalize.New(normalize.WithResolver(identity.NewResolver()))
		key := model.EventKey{Season: 2023, Round: 4}

		Convey("When a raw event has clean rows", func() {
			set, rep := n.Normalize(model.RawEvent{Key: key, Name: "Baku", Records: []model.RawRecord{
				{Competitor: "Sergio PÉREZ", Position: "1"},
				{Competitor: "Max Verstappen", Position: " 2 "},
			}})

			Convey("Then every row is kept with a resolved ID", func() {
				So(set.Key, ShouldResemble, key)
				So(set.Name, ShouldEqual, "Baku")
				So(set.Results, ShouldResemble, []model.EventResult{
					{Competitor: "Sergio Perez", Position: 1},
					{Competitor: "Max Verstappen", Position: 2},
				})
				So(rep.Total, ShouldEqual, 2)
				So(rep.Kept, ShouldEqual, 2)
				So(rep.DroppedTotal(), ShouldEqual, 0)
			})
		})

		Convey("When a raw event has malformed rows", func() {
			set, rep := n.Normalize(model.RawEvent{Key: key, Records: []model.RawRecord{
				{Competitor: "", Position: "1"},
				{Competitor: "Lando Norris", Position: "R"},
				{Competitor: "Oscar Piastri", Position: ""},
				{Competitor: "George Russell", Position: "0"},
				{Competitor: "Lewis Hamilton", Position: "3"},
				{Competitor: "LEWIS HAMILTON", Position: "7"},
			}})

			Convey("Then they are dropped and counted by reason", func() {
				So(set.Results, ShouldResemble, []model.EventResult{{Competitor: "Lewis Hamilton", Position: 3}})
				So(rep.Dropped[normalize.ReasonMissingCompetitor], ShouldEqual, 1)
				So(rep.Dropped[normalize.ReasonBadPosition], ShouldEqual, 3)
				So(rep.Dropped[normalize.ReasonDuplicate], ShouldEqual, 1)
				So(rep.DroppedTotal(), ShouldEqual, 5)
			})
		})
	})

	Convey("Given a normalizer with the default resolver", t, func() {
		n := normalize.New()

		Convey("Then names are only trimmed", func() {
			set, _ := n.Normalize(model.RawEvent{Records: []model.RawRecord{{Competitor: " a b ", Position: "1"}}})
			So(set.Results[0].Competitor, ShouldEqual, model.CompetitorID("a b"))
		})
	})
}
