package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/quizgate/internal/simulate"
	"github.com/okian/quizgate/pkg/logger"
)

func main() {
	cfg := simulate.DefaultConfig()
	var showHelp bool

	flag.StringVar(&cfg.Mode, "mode", cfg.Mode, "offline or http")
	flag.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the service in http mode")
	flag.IntVar(&cfg.Visitors, "visitors", cfg.Visitors, "Number of visitors to simulate")
	flag.Float64Var(&cfg.BotRatio, "bots", cfg.BotRatio, "Share of visitors that are bots")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent visitors in http mode")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	flag.Float64Var(&cfg.TimeScale, "time-scale", cfg.TimeScale, "Multiplier applied to session pacing")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Seed for profile generation")
	flag.BoolVar(&cfg.Answer, "answer", cfg.Answer, "Answer issued challenges")
	flag.StringVar(&cfg.OutputFile, "output", "", "Write generated profiles to this JSON file")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Log per-visitor failures")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.Parse()

	if showHelp {
		simulate.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := simulate.Run(ctx, cfg)
	if report != nil {
		report.Log(ctx)
	}
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
