package simulate

import "os"

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`quizgate traffic simulator
==========================

Generates human-like and bot-like visitors and reports how the risk
scorer classifies them.

Usage:
  go run ./cmd/simulate [options]

Options:
  -mode string
        offline scores profiles in-process, http drives a running server (default "offline")
  -url string
        Base URL of the service in http mode (default "http://localhost:5000")
  -visitors int
        Number of visitors to simulate (default 200)
  -bots float
        Share of visitors that are bots (default 0.5)
  -workers int
        Concurrent visitors in http mode (default 16)
  -timeout duration
        HTTP request timeout (default 10s)
  -time-scale float
        Multiplier applied to session pacing in http mode (default 1)
  -seed int
        Seed for profile generation (default 42)
  -answer
        Answer issued challenges (default true)
  -output string
        Write generated profiles to this JSON file
  -verbose
        Log per-visitor failures
  -help
        Show this help message

Examples:
  go run ./cmd/simulate -visitors 5000
  go run ./cmd/simulate -mode http -visitors 50 -time-scale 0.1
`)
}
