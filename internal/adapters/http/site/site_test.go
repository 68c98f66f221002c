package site

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/gridelo/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeProvider struct {
	ranking model.Ranking
	err     error
}

func (f *fakeProvider) Ranking(context.Context) (model.Ranking, error) {
	return f.ranking, f.err
}

func get(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestSiteHandler(t *testing.T) {
	Convey("Given a site handler", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()
		provider := &fakeProvider{}
		Register(ctx, mux, provider, WithTitle("F1 Elo"))

		Convey("When nothing was ever rated", func() {
			w := get(mux, "/")

			Convey("Then the page says Never", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "F1 Elo")
				So(w.Body.String(), ShouldContainSubstring, `<span id="last-updated">Never</span>`)
				So(w.Body.String(), ShouldContainSubstring, "No ratings yet.")
			})
		})

		Convey("When ratings exist", func() {
			provider.ranking = model.Ranking{
				Standings: []model.Standing{
					{Rank: 1, Competitor: "Max Verstappen", Rating: 1612.345},
					{Rank: 2, Competitor: "Kimi Räikkönen & Co", Rating: 1500},
				},
				LastUpdated: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
				Updated:     true,
			}
			w := get(mux, "/")

			Convey("Then the table lists them with the update time", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, "2024-03-04 10:00:00 UTC")
				So(body, ShouldContainSubstring, "Max Verstappen")
				So(body, ShouldContainSubstring, "1612.3")
				So(body, ShouldContainSubstring, "Kimi Räikkönen &amp; Co")
				So(body, ShouldNotContainSubstring, "No ratings yet.")
			})
		})

		Convey("When the ranking cannot be read", func() {
			provider.err = errors.New("db down")
			w := get(mux, "/")

			Convey("Then an error notice is rendered", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldContainSubstring, "temporarily unavailable")
				So(w.Body.String(), ShouldNotContainSubstring, "db down")
			})
		})

		Convey("And it should not handle other paths", func() {
			So(get(mux, "/some-asset").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSiteErrors(t *testing.T) {
	Convey("Given site error constants", t, func() {
		Convey("Then ErrRender should be defined", func() {
			So(ErrRender, ShouldNotBeNil)
			So(ErrRender.Error(), ShouldEqual, "ranking page render failed")
		})
	})
}
