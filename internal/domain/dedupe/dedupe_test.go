package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	dedupe "github.com/okian/quizgate/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, int64(0))
			})
		})

		Convey("When recording events", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the event is new", func() {
				seen := d.SeenAndRecord(ctx, "event-1")

				Convey("Then it should return false and record the event", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, int64(1))
				})
			})

			Convey("And the event was already seen", func() {
				d.SeenAndRecord(ctx, "event-1")
				seen := d.SeenAndRecord(ctx, "event-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, int64(1))
				})
			})

			Convey("And the same event id arrives for two sessions", func() {
				first := d.SeenAndRecord(ctx, dedupe.Key("session-a", "e1"))
				second := d.SeenAndRecord(ctx, dedupe.Key("session-b", "e1"))

				Convey("Then the keys should not collide", func() {
					So(first, ShouldBeFalse)
					So(second, ShouldBeFalse)
				})
			})
		})

		Convey("When unrecording events", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the event exists", func() {
				d.SeenAndRecord(ctx, "event-1")
				d.Unrecord(ctx, "event-1")

				Convey("Then it should be removed and recordable again", func() {
					So(d.Size(), ShouldEqual, int64(0))
					So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
				})
			})

			Convey("And the event doesn't exist", func() {
				d.Unrecord(ctx, "nonexistent")

				Convey("Then it should not affect the size", func() {
					So(d.Size(), ShouldEqual, int64(0))
				})
			})
		})

		Convey("When the deduper is at capacity", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, event := range []string{"event-1", "event-2", "event-3"} {
				So(d.SeenAndRecord(ctx, event), ShouldBeFalse)
			}
			seen := d.SeenAndRecord(ctx, "event-4")

			Convey("Then it should evict the oldest and add the new one", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, int64(3))
				So(d.SeenAndRecord(ctx, "event-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, int64(3))
			})
		})

		Convey("When max size is zero or negative", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-1))

			Convey("Then the default bound should apply", func() {
				const numEvents = 1000
				for i := 0; i < numEvents; i++ {
					So(d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i)), ShouldBeFalse)
				}
				So(d.Size(), ShouldEqual, int64(numEvents))
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const numGoroutines = 10
		const eventsPerGoroutine = 100

		Convey("When multiple goroutines race on the same id", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(context.Background(), "shared") {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one should record it", func() {
				So(fresh, ShouldEqual, 1)
			})
		})

		Convey("When multiple goroutines record distinct events", func() {
			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(goroutineID int) {
					defer wg.Done()
					for j := 0; j < eventsPerGoroutine; j++ {
						d.SeenAndRecord(context.Background(), fmt.Sprintf("event-%d-%d", goroutineID, j))
					}
				}(i)
			}
			wg.Wait()

			Convey("Then all events should be recorded", func() {
				So(d.Size(), ShouldEqual, int64(numGoroutines*eventsPerGoroutine))
			})
		})
	})
}

func TestDedupeEdgeCases(t *testing.T) {
	Convey("Given a deduper with edge cases", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When recording empty string", func() {
			Convey("Then it should behave like any other id", func() {
				So(d.SeenAndRecord(context.Background(), ""), ShouldBeFalse)
				So(d.SeenAndRecord(context.Background(), ""), ShouldBeTrue)
			})
		})

		Convey("When recording very long strings", func() {
			longString := strings.Repeat("a", 10000)

			Convey("Then it should handle long strings", func() {
				So(d.SeenAndRecord(context.Background(), longString), ShouldBeFalse)
				So(d.SeenAndRecord(context.Background(), longString), ShouldBeTrue)
			})
		})

		Convey("When using nil context", func() {
			Convey("Then it should not panic", func() {
				So(func() { d.SeenAndRecord(nil, "event-1") }, ShouldNotPanic) //nolint:staticcheck // nil ctx on purpose
				So(func() { d.Unrecord(nil, "event-1") }, ShouldNotPanic)      //nolint:staticcheck // nil ctx on purpose
			})
		})
	})
}
