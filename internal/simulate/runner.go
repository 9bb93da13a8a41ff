package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/model"
	"github.com/okian/quizgate/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const outputFilePermission = 0o600

// Client-reported think times for challenge answers.
const (
	humanThinkTime = 4.5
	botThinkTime   = 0.2
)

// Run generates visitors and executes the configured mode.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Get().Info(ctx, "starting quizgate simulation",
		logger.String("mode", cfg.Mode),
		logger.Int("visitors", cfg.Visitors),
		logger.Float64("botRatio", cfg.BotRatio),
		logger.Int("workers", cfg.Workers),
		logger.Float64("timeScale", cfg.TimeScale),
		logger.Any("seed", cfg.Seed))

	profiles := NewGenerator(cfg.Seed, cfg.BotRatio).Batch(cfg.Visitors)
	if cfg.OutputFile != "" {
		if err := saveProfiles(cfg.OutputFile, profiles); err != nil {
			logger.Get().Warn(ctx, "failed to save profiles", logger.Error(err))
		}
	}

	if cfg.Mode == ModeOffline {
		return RunOffline(ctx, profiles)
	}
	return RunHTTP(ctx, cfg, profiles)
}

// RunHTTP replays each profile against a live server: start a session,
// stream its interactions in real time, ask for a decision and answer any
// challenge that comes back.
func RunHTTP(ctx context.Context, cfg Config, profiles []Profile) (*Report, error) {
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	report := newReport(ModeHTTP)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, p := range profiles {
		g.Go(func() error {
			if err := visit(gctx, client, cfg, p, report); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				report.failure()
				if cfg.Verbose {
					logger.Get().Warn(gctx, "visitor failed", logger.Int("visitor", i), logger.Error(err))
				}
			}
			return nil
		})
	}
	err := g.Wait()
	report.finish()
	if err != nil {
		return report, fmt.Errorf("simulation interrupted: %w", err)
	}
	return report, nil
}

func visit(ctx context.Context, c *Client, cfg Config, p Profile, report *Report) error {
	id, err := c.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	start := time.Now()
	sent, rejected := 0, 0
	for _, step := range p.Plan(cfg.TimeScale) {
		if err := sleepUntil(ctx, start.Add(step.Offset)); err != nil {
			return err
		}
		if err := c.Track(ctx, id, step); err != nil {
			var se *StatusError
			if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
				return fmt.Errorf("track: %w", err)
			}
			rejected++
			continue
		}
		sent++
	}
	report.events(sent, rejected)

	end := start.Add(time.Duration(p.SessionDuration * cfg.TimeScale * float64(time.Second)))
	if err := sleepUntil(ctx, end); err != nil {
		return err
	}

	res, err := c.Verify(ctx, id)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	tier, ok := model.ParseTier(res.RiskLevel)
	if !ok {
		return fmt.Errorf("verify: unknown risk level %q", res.RiskLevel)
	}
	report.observe(p.Bot, tier, res.Degraded)
	if res.Captcha == nil {
		return nil
	}
	report.challenge(res.CaptchaType)
	if !cfg.Answer {
		return nil
	}

	qr, err := c.VerifyQuiz(ctx, id, answer(*res.Captcha, p.Bot))
	if err != nil {
		return fmt.Errorf("verify quiz: %w", err)
	}
	report.answered(qr.Verified)
	return nil
}

// answer builds a response from the exposed answers. Bots answer instantly;
// humans report a plausible think time.
func answer(v challenge.View, bot bool) challenge.Response {
	elapsed := humanThinkTime
	if bot {
		elapsed = botThinkTime
	}
	if v.TimeLimit > 0 && elapsed > float64(v.TimeLimit) {
		elapsed = float64(v.TimeLimit) / 2
	}
	resp := challenge.Response{ResponseTime: &elapsed}

	switch v.Type {
	case challenge.KindTimedAck:
		ack := true
		resp.Acknowledged = &ack
	case challenge.KindSingleQuiz:
		if v.QuestionView != nil {
			a := pick(*v.QuestionView)
			resp.Answer = &a
		}
	case challenge.KindMultiQuiz:
		resp.Answers = make([]*string, len(v.Questions))
		for i, q := range v.Questions {
			a := pick(q)
			resp.Answers[i] = &a
		}
	}
	return resp
}

// pick returns the exposed correct answer, falling back to the first option.
func pick(q challenge.QuestionView) string {
	if q.CorrectAnswer != "" {
		return q.CorrectAnswer
	}
	if len(q.Options) > 0 {
		return q.Options[0]
	}
	return ""
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func saveProfiles(path string, profiles []Profile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	if err := os.WriteFile(path, data, outputFilePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
