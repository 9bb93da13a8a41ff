package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/okian/quizgate/internal/adapters/http/api"
	"github.com/okian/quizgate/internal/adapters/http/site"
	"github.com/okian/quizgate/internal/adapters/http/swagger"
	repository "github.com/okian/quizgate/internal/adapters/repository"
	app "github.com/okian/quizgate/internal/app"
	"github.com/okian/quizgate/internal/config"
	"github.com/okian/quizgate/internal/domain/bank"
	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/pass"
	"github.com/okian/quizgate/internal/domain/scoring"
	"github.com/okian/quizgate/pkg/logger"
	"github.com/okian/quizgate/pkg/metrics"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(context.Background())
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "quizgate exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run starts the service and HTTP server and blocks until ctx is done or
// the server fails.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	opts, err := serviceOptions(cfg, log)
	if err != nil {
		return err
	}
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		log.Info(ctx, "server stopped")
		return nil
	})
	return g.Wait()
}

// serviceOptions translates configuration into service options.
func serviceOptions(cfg *config.Config, log logger.Logger) ([]app.Option, error) {
	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.TelemetryWorkerCount),
		app.WithQueueSize(cfg.TelemetryQueueSize),
		app.WithQueueDropOldest(cfg.TelemetryDropOldest),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSessionTTL(cfg.SessionTTL()),
		app.WithSweepInterval(cfg.SweepInterval()),
		app.WithThresholds(cfg.RiskThresholds()),
		app.WithExposeAnswers(cfg.ExposeAnswers),
		app.WithStoreOptions(
			repository.WithShardCount(cfg.ShardCount),
			repository.WithMaxEvents(cfg.MaxEventsPerSession),
			repository.WithTrackRate(rate.Limit(cfg.TrackRatePerSecond), cfg.TrackBurst),
		),
		app.WithScorerOptions(
			scoring.WithWeights(cfg.Scorer.Weights),
			scoring.WithLogistic(cfg.Scorer.Steepness, cfg.Scorer.Midpoint),
			scoring.WithLatencyRange(config.Millis(cfg.Scorer.LatencyMinMS), config.Millis(cfg.Scorer.LatencyMaxMS)),
		),
		app.WithBreakerOptions(
			scoring.WithTimeout(config.Millis(cfg.Scorer.TimeoutMS)),
			scoring.WithTripAfter(cfg.Scorer.BreakerFailures),
			scoring.WithCooldown(config.Millis(cfg.Scorer.BreakerCooldownMS)),
		),
		app.WithFactoryOptions(
			challenge.WithMultiQuiz(cfg.Challenges.MultiQuestions, cfg.Challenges.MultiPassingScore),
		),
		app.WithVerifierOptions(
			challenge.WithMinElapsed(config.Millis(cfg.Challenges.MinAckMS), config.Millis(cfg.Challenges.MinQuizMS)),
		),
		app.WithPassOptions(
			pass.WithSecret(cfg.Pass.Secret),
			pass.WithTTL(cfg.PassTTL()),
		),
	}

	if cfg.BankPath != "" {
		b, err := bank.LoadFile(cfg.BankPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithBank(b))
	}
	return opts, nil
}

// newHandler registers every route on a fresh mux.
func newHandler(ctx context.Context, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithVersion(version)).Register(ctx, mux)
	site.Register(ctx, mux, svc)
	return api.CORS(mux)
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
