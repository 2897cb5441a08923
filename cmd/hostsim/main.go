// Command hostsim plays a simulated combat encounter against a running
// footsteps service and verifies the footprints it leaves.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/footsteps/internal/hostsim"
	"github.com/okian/footsteps/pkg/logger"
)

const defaultRunTimeout = 5 * time.Minute

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		tokens    = flag.Int("tokens", hostsim.DefaultTokens, "Number of combatants")
		rounds    = flag.Int("rounds", hostsim.DefaultRounds, "Number of combat rounds")
		walk      = flag.Float64("walk", hostsim.DefaultWalkLength, "Longest single walk in pixels")
		redeliver = flag.Float64("redeliver", 0.2, "Share of notifications delivered twice (0..1)")
		workers   = flag.Int("workers", hostsim.DefaultWorkers, "Concurrent workers for redelivery")
		timeout   = flag.Duration("timeout", hostsim.DefaultTimeout, "HTTP request timeout")
		settle    = flag.Duration("settle", hostsim.DefaultSettle, "Wait for placements and fades to finish")
		seed      = flag.Uint64("seed", 0, "Walk generator seed (0 picks one at random)")
		logFile   = flag.String("log", "", "Write logs to this rotated file instead of stdout")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	var opts []logger.Option
	if *logFile != "" {
		opts = append(opts, logger.WithFile(*logFile))
	}
	if err := logger.InitWithOptions(opts...); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	_, err := hostsim.Run(ctx, &hostsim.Config{
		BaseURL:    *baseURL,
		Tokens:     *tokens,
		Rounds:     *rounds,
		WalkLength: *walk,
		Redeliver:  *redeliver,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		Seed:       *seed,
		Verbose:    *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
