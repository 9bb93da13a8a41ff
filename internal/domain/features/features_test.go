package features_test

import (
	"testing"
	"time"

	"github.com/okian/quizgate/internal/domain/features"
	"github.com/okian/quizgate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExtract(t *testing.T) {
	Convey("Given a session created at a fixed instant", t, func() {
		start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		snap := model.Snapshot{SessionID: "s-1", CreatedAt: start}

		Convey("When nothing has been recorded", func() {
			f := features.Extract(snap, start.Add(10*time.Second))

			Convey("Then counts and speeds should be zero and duration should accrue", func() {
				So(f.MouseCount, ShouldEqual, 0)
				So(f.AvgMouseSpeed, ShouldEqual, 0.0)
				So(f.KeystrokeCount, ShouldEqual, 0)
				So(f.TypingSpeed, ShouldEqual, 0.0)
				So(f.SessionDuration, ShouldEqual, 10.0)
			})
		})

		Convey("When exactly one pointer event exists", func() {
			snap.Pointer = []model.PointerEvent{{X: 10, Y: 10, At: start.Add(time.Second)}}
			f := features.Extract(snap, start.Add(2*time.Second))

			Convey("Then the average speed should be exactly zero", func() {
				So(f.MouseCount, ShouldEqual, 1)
				So(f.AvgMouseSpeed, ShouldEqual, 0.0)
			})
		})

		Convey("When pointer events form a 3-4-5 triangle per second", func() {
			snap.Pointer = []model.PointerEvent{
				{X: 0, Y: 0, At: start},
				{X: 3, Y: 4, At: start.Add(time.Second)},
				{X: 6, Y: 8, At: start.Add(2 * time.Second)},
			}
			f := features.Extract(snap, start.Add(5*time.Second))

			Convey("Then the average speed should be 5 px/s", func() {
				So(f.AvgMouseSpeed, ShouldAlmostEqual, 5.0, 1e-9)
			})
		})

		Convey("When some consecutive pairs share a timestamp", func() {
			snap.Pointer = []model.PointerEvent{
				{X: 0, Y: 0, At: start},
				{X: 100, Y: 0, At: start},
				{X: 110, Y: 0, At: start.Add(time.Second)},
			}
			f := features.Extract(snap, start.Add(time.Second))

			Convey("Then only pairs with positive elapsed time should count", func() {
				So(f.AvgMouseSpeed, ShouldAlmostEqual, 10.0, 1e-9)
			})
		})

		Convey("When every pair has zero elapsed time", func() {
			snap.Pointer = []model.PointerEvent{{X: 0, Y: 0, At: start}, {X: 5, Y: 5, At: start}}
			f := features.Extract(snap, start.Add(time.Second))

			Convey("Then the average speed should be zero", func() {
				So(f.AvgMouseSpeed, ShouldEqual, 0.0)
			})
		})

		Convey("When keys were pressed", func() {
			for i := 0; i < 20; i++ {
				snap.Keys = append(snap.Keys, model.KeyEvent{Key: "a", At: start.Add(time.Duration(i) * 100 * time.Millisecond)})
			}

			Convey("Then typing speed should divide by total session age, not last event", func() {
				f := features.Extract(snap, start.Add(40*time.Second))
				So(f.KeystrokeCount, ShouldEqual, 20)
				So(f.TypingSpeed, ShouldAlmostEqual, 0.5, 1e-9)
			})

			Convey("And extracting at the session creation instant should not divide by zero", func() {
				f := features.Extract(snap, start)
				So(f.SessionDuration, ShouldEqual, 0.0)
				So(f.TypingSpeed, ShouldEqual, 0.0)
			})
		})

		Convey("When now is before creation because of clock skew", func() {
			f := features.Extract(snap, start.Add(-time.Second))

			Convey("Then duration should clamp at zero", func() {
				So(f.SessionDuration, ShouldEqual, 0.0)
			})
		})

		Convey("When extracting twice with no intervening writes", func() {
			snap.Pointer = []model.PointerEvent{{X: 1, Y: 1, At: start}, {X: 9, Y: 7, At: start.Add(300 * time.Millisecond)}}
			snap.Keys = []model.KeyEvent{{Key: "x", At: start.Add(time.Second)}}
			now := start.Add(7 * time.Second)

			Convey("Then both results should be identical", func() {
				So(features.Extract(snap, now), ShouldResemble, features.Extract(snap, now))
			})
		})
	})
}
