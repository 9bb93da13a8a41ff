package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/okian/quizgate/internal/app"
	repository "github.com/okian/quizgate/internal/adapters/repository"
	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/model"
	"github.com/okian/quizgate/internal/domain/pass"
	"github.com/okian/quizgate/internal/domain/risk"
	"github.com/okian/quizgate/internal/domain/scoring"
	"github.com/okian/quizgate/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixedScorer struct{ p float64 }

func (f fixedScorer) Score(context.Context, model.Features) (float64, error) { return f.p, nil }

type failingScorer struct{}

func (failingScorer) Score(context.Context, model.Features) (float64, error) {
	return 0, errors.New("model offline")
}

func startService(clock *fakeClock, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithClock(clock.Now),
		service.WithWorkerCount(2),
		service.WithSweepInterval(0),
		service.WithStoreOptions(repository.WithTrackRate(0, 0)),
		service.WithPassOptions(pass.WithSecret("test-secret")),
	}
	svc := service.New(append(base, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("When used before Start", func() {
			_, err := svc.StartSession(context.Background(), "")

			Convey("Then it should report that it is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.Ready(), ShouldBeFalse)
			})
		})

		Convey("When started and stopped", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Ready(), ShouldBeTrue)
			svc.Stop()
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.Ready(), ShouldBeFalse)
			})
		})
	})

	Convey("Given a service with invalid thresholds", t, func() {
		svc := service.New(service.WithThresholds(risk.Thresholds{Low: 0.7, Medium: 0.5, High: 0.9}))

		Convey("Then Start should fail", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, risk.ErrInvalidThresholds), ShouldBeTrue)
		})
	})
}

func TestService_HumanScenario(t *testing.T) {
	Convey("Given a started service", t, func() {
		clock := newFakeClock()
		svc := startService(clock)
		defer svc.Stop()
		ctx := context.Background()

		sess, err := svc.StartSession(ctx, "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		So(err, ShouldBeNil)

		Convey("When a visitor moves and types like a person for 45 seconds", func() {
			for i := 0; i < 150; i++ {
				clock.Advance(300 * time.Millisecond)
				_, err := svc.Track(ctx, sess.ID, model.Interaction{Type: model.EventMouse, X: float64(i * 18), Y: float64(i * 24)})
				So(err, ShouldBeNil)
				if i < 80 {
					_, err = svc.Track(ctx, sess.ID, model.Interaction{Type: model.EventKeyboard, Key: "a"})
					So(err, ShouldBeNil)
				}
			}
			d, err := svc.Assess(ctx, sess.ID)

			Convey("Then the session should be allowed without a challenge", func() {
				So(err, ShouldBeNil)
				So(d.Assessment.Tier, ShouldEqual, model.TierLow)
				So(d.Assessment.Action, ShouldEqual, model.ActionAllow)
				So(d.Assessment.Features.MouseCount, ShouldEqual, 150)
				So(d.Assessment.Features.KeystrokeCount, ShouldEqual, 80)
				So(d.Challenge, ShouldBeNil)

				stats, err := svc.GetStats(ctx)
				So(err, ShouldBeNil)
				So(stats.ActiveChallenges, ShouldEqual, 0)
				So(stats.Devices["computer"], ShouldEqual, 1)
			})
		})
	})
}

func TestService_BotScenario(t *testing.T) {
	Convey("Given a started service", t, func() {
		clock := newFakeClock()
		svc := startService(clock)
		defer svc.Stop()
		ctx := context.Background()

		sess, err := svc.StartSession(ctx, "")
		So(err, ShouldBeNil)

		Convey("When the session is verified immediately", func() {
			d, err := svc.Assess(ctx, sess.ID)
			So(err, ShouldBeNil)

			Convey("Then it should be Critical with a three-question multi quiz", func() {
				So(d.Assessment.Tier, ShouldEqual, model.TierCritical)
				So(d.Assessment.Action, ShouldEqual, model.ActionHardQuiz)
				So(d.Assessment.Degraded, ShouldBeFalse)
				So(d.Cause, ShouldBeNil)
				mq, ok := d.Challenge.(challenge.MultiQuiz)
				So(ok, ShouldBeTrue)
				So(len(mq.Questions), ShouldEqual, 3)
				So(d.Reused, ShouldBeFalse)
			})

			Convey("And verifying again should return the same outstanding challenge", func() {
				again, err := svc.Assess(ctx, sess.ID)
				So(err, ShouldBeNil)
				So(again.Reused, ShouldBeTrue)
				So(again.Challenge.Info().ID, ShouldEqual, d.Challenge.Info().ID)
			})

			Convey("And answering every question correctly should grant a pass", func() {
				mq := d.Challenge.(challenge.MultiQuiz)
				answers := make([]*string, len(mq.Questions))
				for i := range mq.Questions {
					a := mq.Questions[i].Correct
					answers[i] = &a
				}
				rt := 20.0
				v, err := svc.VerifyChallenge(ctx, sess.ID, challenge.Response{Answers: answers, ResponseTime: &rt})

				So(err, ShouldBeNil)
				So(v.Verified, ShouldBeTrue)
				So(v.AccessGranted, ShouldBeTrue)
				So(v.Message, ShouldEqual, service.MessageQuizPassed)
				So(v.Score, ShouldEqual, 3)
				So(v.PassToken, ShouldNotBeEmpty)

				p, err := svc.ValidatePass(ctx, v.PassToken)
				So(err, ShouldBeNil)
				So(p.SessionID, ShouldEqual, sess.ID)
				So(p.Challenge, ShouldEqual, string(challenge.KindMultiQuiz))

				_, err = svc.VerifyChallenge(ctx, sess.ID, challenge.Response{Answers: answers})
				So(errors.Is(err, service.ErrNoOutstandingChallenge), ShouldBeTrue)
			})

			Convey("And a wrong submission should keep the challenge outstanding", func() {
				wrong := "nope"
				v, err := svc.VerifyChallenge(ctx, sess.ID, challenge.Response{Answers: []*string{&wrong}})

				So(err, ShouldBeNil)
				So(v.Verified, ShouldBeFalse)
				So(v.AccessGranted, ShouldBeFalse)
				So(v.Message, ShouldEqual, service.MessageQuizFailed)
				So(v.PassToken, ShouldBeEmpty)

				stats, err := svc.GetStats(ctx)
				So(err, ShouldBeNil)
				So(stats.ActiveChallenges, ShouldEqual, 1)
			})

			Convey("And a submission without answers should be malformed", func() {
				ack := true
				_, err := svc.VerifyChallenge(ctx, sess.ID, challenge.Response{Acknowledged: &ack})
				So(errors.Is(err, service.ErrMalformedRequest), ShouldBeTrue)
			})
		})
	})
}

func TestService_Tiers(t *testing.T) {
	Convey("Given services whose scorer returns a fixed probability", t, func() {
		clock := newFakeClock()
		ctx := context.Background()

		cases := []struct {
			p    float64
			tier model.Tier
			kind challenge.Kind
		}{
			{0.45, model.TierMedium, challenge.KindTimedAck},
			{0.70, model.TierHigh, challenge.KindSingleQuiz},
			{0.95, model.TierCritical, challenge.KindMultiQuiz},
		}
		for _, tc := range cases {
			Convey(fmt.Sprintf("When the probability is %.2f", tc.p), func() {
				svc := startService(clock, service.WithScorer(fixedScorer{p: tc.p}))
				defer svc.Stop()
				sess, err := svc.StartSession(ctx, "")
				So(err, ShouldBeNil)

				d, err := svc.Assess(ctx, sess.ID)

				Convey("Then the matching challenge kind should be issued", func() {
					So(err, ShouldBeNil)
					So(d.Assessment.Tier, ShouldEqual, tc.tier)
					So(d.Challenge.Kind(), ShouldEqual, tc.kind)
				})
			})
		}
	})
}

func TestService_TimedAck(t *testing.T) {
	Convey("Given a session holding a TimedAck", t, func() {
		clock := newFakeClock()
		svc := startService(clock, service.WithScorer(fixedScorer{p: 0.45}))
		defer svc.Stop()
		ctx := context.Background()
		sess, _ := svc.StartSession(ctx, "")
		_, err := svc.Assess(ctx, sess.ID)
		So(err, ShouldBeNil)
		ack := true

		Convey("When acknowledged without a client response time after 3 seconds", func() {
			clock.Advance(3 * time.Second)
			v, err := svc.VerifyChallenge(ctx, sess.ID, challenge.Response{Acknowledged: &ack})

			Convey("Then elapsed should fall back to server time and pass", func() {
				So(err, ShouldBeNil)
				So(v.Verified, ShouldBeTrue)
				So(v.Elapsed, ShouldEqual, 3*time.Second)
			})
		})

		Convey("When acknowledged faster than a person can", func() {
			rt := 0.1
			v, err := svc.VerifyChallenge(ctx, sess.ID, challenge.Response{Clicked: &ack, ResponseTime: &rt})

			Convey("Then it should be rejected as too fast", func() {
				So(err, ShouldBeNil)
				So(v.Verified, ShouldBeFalse)
				So(v.Reason, ShouldEqual, challenge.ReasonAckTooFast)
			})
		})
	})
}

func TestService_DegradedScorer(t *testing.T) {
	Convey("Given a service whose scorer always fails", t, func() {
		clock := newFakeClock()
		svc := startService(clock,
			service.WithScorer(failingScorer{}),
			service.WithBreakerOptions(scoring.WithTripAfter(1)),
		)
		defer svc.Stop()
		ctx := context.Background()
		sess, _ := svc.StartSession(ctx, "")

		Convey("When a session is assessed repeatedly", func() {
			first, err1 := svc.Assess(ctx, sess.ID)
			second, err2 := svc.Assess(ctx, sess.ID)

			Convey("Then it should fail closed at Critical and mark the result degraded", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.Assessment.Degraded, ShouldBeTrue)
				So(first.Assessment.Probability, ShouldEqual, 1.0)
				So(first.Assessment.Tier, ShouldEqual, model.TierCritical)
				So(errors.Is(first.Cause, service.ErrScorerUnavailable), ShouldBeTrue)
				So(second.Assessment.Degraded, ShouldBeTrue)
				So(errors.Is(second.Cause, service.ErrScorerUnavailable), ShouldBeTrue)

				stats, err := svc.GetStats(ctx)
				So(err, ShouldBeNil)
				So(stats.ScorerBreaker, ShouldEqual, "open")
			})
		})
	})
}

func TestService_Track(t *testing.T) {
	Convey("Given a started service", t, func() {
		clock := newFakeClock()
		svc := startService(clock)
		defer svc.Stop()
		ctx := context.Background()
		sess, _ := svc.StartSession(ctx, "")

		Convey("When the same event ID is tracked twice", func() {
			dup1, err1 := svc.Track(ctx, sess.ID, model.Interaction{Type: model.EventMouse, X: 1, Y: 2, EventID: "e-1"})
			dup2, err2 := svc.Track(ctx, sess.ID, model.Interaction{Type: model.EventMouse, X: 1, Y: 2, EventID: "e-1"})

			Convey("Then the second should be a duplicate and not be counted", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(dup1, ShouldBeFalse)
				So(dup2, ShouldBeTrue)
				d, err := svc.Assess(ctx, sess.ID)
				So(err, ShouldBeNil)
				So(d.Assessment.Features.MouseCount, ShouldEqual, 1)
			})
		})

		Convey("When a session expires and a tracked event ID is replayed", func() {
			_, err := svc.Track(ctx, sess.ID, model.Interaction{Type: model.EventMouse, X: 1, Y: 2, EventID: "e1"})
			So(err, ShouldBeNil)
			clock.Advance(601 * time.Second)
			sessions, _ := svc.Sweep(ctx)
			So(sessions, ShouldEqual, 1)

			dup, err := svc.Track(ctx, sess.ID, model.Interaction{Type: model.EventMouse, X: 1, Y: 2, EventID: "e1"})

			Convey("Then it should be an invalid session, not a duplicate", func() {
				So(errors.Is(err, service.ErrInvalidSession), ShouldBeTrue)
				So(dup, ShouldBeFalse)
			})
		})

		Convey("When the session is unknown", func() {
			_, err := svc.Track(ctx, "missing", model.Interaction{Type: model.EventMouse, EventID: "e-2"})

			Convey("Then it should be an invalid session and the event ID released", func() {
				So(errors.Is(err, service.ErrInvalidSession), ShouldBeTrue)
				dup, err := svc.Track(ctx, sess.ID, model.Interaction{Type: model.EventMouse, EventID: "e-2"})
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
			})
		})

		Convey("When the event type is unknown", func() {
			_, err := svc.Track(ctx, sess.ID, model.Interaction{Type: "scroll"})

			Convey("Then it should be malformed", func() {
				So(errors.Is(err, service.ErrMalformedRequest), ShouldBeTrue)
			})
		})

		Convey("When verifying a session with nothing outstanding", func() {
			_, err := svc.VerifyChallenge(ctx, sess.ID, challenge.Response{})

			Convey("Then there should be no outstanding challenge", func() {
				So(errors.Is(err, service.ErrNoOutstandingChallenge), ShouldBeTrue)
			})
		})
	})
}

func TestService_Sweep(t *testing.T) {
	Convey("Given a Critical session with an outstanding challenge", t, func() {
		clock := newFakeClock()
		svc := startService(clock)
		defer svc.Stop()
		ctx := context.Background()
		old, _ := svc.StartSession(ctx, "")
		_, err := svc.Assess(ctx, old.ID)
		So(err, ShouldBeNil)

		Convey("When 601 seconds pass and a younger session exists", func() {
			clock.Advance(300 * time.Second)
			young, _ := svc.StartSession(ctx, "")
			clock.Advance(301 * time.Second)

			sessions, challenges := svc.Sweep(ctx)

			Convey("Then only the expired session and its challenge should be gone", func() {
				So(sessions, ShouldEqual, 1)
				So(challenges, ShouldEqual, 1)
				_, err := svc.Assess(ctx, old.ID)
				So(errors.Is(err, service.ErrInvalidSession), ShouldBeTrue)
				_, err = svc.Assess(ctx, young.ID)
				So(err, ShouldBeNil)
			})
		})

		Convey("When stats are requested after the TTL", func() {
			clock.Advance(601 * time.Second)
			stats, err := svc.GetStats(ctx)

			Convey("Then the opportunistic sweep should have removed it", func() {
				So(err, ShouldBeNil)
				So(stats.ActiveSessions, ShouldEqual, 0)
				So(stats.ActiveChallenges, ShouldEqual, 0)
				So(stats.QuizDatabase.TotalQuestions, ShouldEqual, 21)
			})
		})
	})
}

func TestService_Concurrency(t *testing.T) {
	Convey("Given a Critical session", t, func() {
		clock := newFakeClock()
		svc := startService(clock)
		defer svc.Stop()
		ctx := context.Background()
		sess, _ := svc.StartSession(ctx, "")
		d, err := svc.Assess(ctx, sess.ID)
		So(err, ShouldBeNil)
		mq := d.Challenge.(challenge.MultiQuiz)
		answers := make([]*string, len(mq.Questions))
		for i := range mq.Questions {
			a := mq.Questions[i].Correct
			answers[i] = &a
		}

		Convey("When many correct submissions race", func() {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				passed  int
				missing int
			)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					v, err := svc.VerifyChallenge(ctx, sess.ID, challenge.Response{Answers: answers})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil && v.Verified:
						passed++
					case errors.Is(err, service.ErrNoOutstandingChallenge):
						missing++
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one should win", func() {
				So(passed, ShouldEqual, 1)
				So(missing, ShouldEqual, 9)
			})
		})
	})
}
