package hostsim

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/footsteps/pkg/logger"
)

// Errors reported by a simulation run.
var (
	ErrUnhealthy    = errors.New("service is not healthy")
	ErrVerification = errors.New("footprint verification failed")
)

// Run executes a complete simulated encounter against the service.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	applyDefaults(cfg)
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("hostsim")

	log.Info(ctx, "starting encounter simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("tokens", cfg.Tokens),
		logger.Int("rounds", cfg.Rounds),
		logger.Float64("redeliver", cfg.Redeliver),
		logger.Duration("settle", cfg.Settle))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, err
	}

	// Step 2: Generate the encounter
	enc := Generate(cfg)
	rounds, end := enc.Notifications[:len(enc.Notifications)-1], enc.Notifications[len(enc.Notifications)-1]
	stats.Notifications = len(enc.Notifications)

	// Step 3: Play the rounds in order, then redeliver a share of them
	var t tally
	if err := play(ctx, client, rounds, &t); err != nil {
		return stats, fmt.Errorf("playback interrupted: %w", err)
	}
	again := pickRedeliveries(rounds, cfg.Redeliver, cfg.Seed+1)
	stats.Redelivered = len(again)
	redeliver(ctx, client, again, cfg.Workers, &t)

	// Step 4: Every combatant's last walk is still on the scene
	if err := sleep(ctx, cfg.Settle); err != nil {
		return stats, err
	}
	inCombat, err := verifyInCombat(ctx, client, enc.Tokens)
	stats.FootprintsInCombat = inCombat
	if err != nil {
		return stats, err
	}

	// Step 5: End the encounter and wait for the scene to clear
	if err := play(ctx, client, []Notification{end}, &t); err != nil {
		return stats, fmt.Errorf("playback interrupted: %w", err)
	}
	if err := sleep(ctx, cfg.Settle); err != nil {
		return stats, err
	}
	after, err := verifyCleared(ctx, client)
	stats.FootprintsAfter = after

	stats.Accepted = int(t.accepted.Load())
	stats.Duplicate = int(t.duplicate.Load())
	stats.Failed = int(t.failed.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if err == nil && stats.Duplicate != stats.Redelivered {
		err = fmt.Errorf("%w: %d redelivered, %d acknowledged as duplicate",
			ErrVerification, stats.Redelivered, stats.Duplicate)
	}

	displayFinalStats(ctx, stats)
	if err != nil {
		return stats, err
	}

	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Tokens <= 0 {
		cfg.Tokens = DefaultTokens
	}
	if cfg.Rounds <= 0 {
		cfg.Rounds = DefaultRounds
	}
	if cfg.WalkLength <= 0 {
		cfg.WalkLength = DefaultWalkLength
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// displayFinalStats logs the final simulation statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Notifications+stats.Redelivered) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("notifications", stats.Notifications),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("redelivered", stats.Redelivered),
		logger.Int("footprintsInCombat", stats.FootprintsInCombat),
		logger.Int("footprintsAfter", stats.FootprintsAfter),
		logger.Duration("duration", stats.Duration),
		logger.Float64("notificationsPerSecond", perSecond))
}
