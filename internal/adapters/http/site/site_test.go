package site

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	service "github.com/okian/quizgate/internal/app"
	"github.com/okian/quizgate/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeStats struct {
	stats service.Stats
	err   error
}

func (f fakeStats) GetStats(context.Context) (service.Stats, error) { return f.stats, f.err }

func TestSiteHandler(t *testing.T) {
	Convey("Given a site handler", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()
		stats := service.Stats{
			ActiveSessions:   7,
			ActiveChallenges: 2,
			Thresholds:       risk.DefaultThresholds(),
			QuizDatabase:     service.QuizDatabase{TotalCategories: 2, TotalQuestions: 9, Categories: []string{"logic", "math"}},
		}

		Convey("When registering the site handler", func() {
			Register(ctx, mux, fakeStats{stats: stats})

			Convey("Then it should render live counters at /", func() {
				req := httptest.NewRequest("GET", "/", http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, ">7<")
				So(w.Body.String(), ShouldContainSubstring, "0.85")
				So(w.Body.String(), ShouldContainSubstring, "<code>math</code>")
			})

			Convey("And it should 404 unknown paths", func() {
				req := httptest.NewRequest("GET", "/nope", http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When stats are unavailable", func() {
			Register(ctx, mux, fakeStats{err: errors.New("down")})
			req := httptest.NewRequest("GET", "/", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})

	Convey("Given a nil mux", t, func() {
		Convey("Then Register should panic", func() {
			So(func() { Register(context.Background(), nil, fakeStats{}) }, ShouldPanic)
		})
	})
}
