package health

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/cspublish/pkg/log"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result
}

// Config controls how long a freshly published site is given to respond
type Config struct {
	// Interval is the time between checks
	Interval time.Duration

	// Timeout is the maximum time to wait for a single check
	Timeout time.Duration

	// Retries is the number of consecutive failures before giving up
	Retries int

	// StartPeriod is waited before the first check. Role instances report
	// ReadyRole a little before the load balancer routes to them.
	StartPeriod time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval:    10 * time.Second,
		Timeout:     10 * time.Second,
		Retries:     6,
		StartPeriod: 5 * time.Second,
	}
}

// Status tracks consecutive results of a check
type Status struct {
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastCheck            time.Time
	LastResult           Result
	Healthy              bool
}

// Update updates the status based on a new health check result
func (s *Status) Update(result Result, config Config) {
	s.LastCheck = result.CheckedAt
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
		return
	}

	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0
	if s.ConsecutiveFailures >= config.Retries {
		s.Healthy = false
	}
}

// Exhausted reports whether the retry budget is used up
func (s *Status) Exhausted(config Config) bool {
	return !s.Healthy && s.ConsecutiveFailures >= config.Retries
}

// Verify runs checker until it succeeds once or fails Retries times in a row
func Verify(ctx context.Context, checker Checker, config Config) (Result, error) {
	if config.Retries < 1 {
		config.Retries = 1
	}
	logger := log.WithComponent("health")

	if config.StartPeriod > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(config.StartPeriod):
		}
	}

	status := &Status{}
	for {
		checkCtx := ctx
		cancel := func() {}
		if config.Timeout > 0 {
			checkCtx, cancel = context.WithTimeout(ctx, config.Timeout)
		}
		result := checker.Check(checkCtx)
		cancel()

		status.Update(result, config)
		logger.Debug().
			Bool("healthy", result.Healthy).
			Str("message", result.Message).
			Int("failures", status.ConsecutiveFailures).
			Msg("Site check")

		if result.Healthy {
			return result, nil
		}
		if status.Exhausted(config) {
			return result, fmt.Errorf("site did not respond after %d attempts: %s", status.ConsecutiveFailures, result.Message)
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(config.Interval):
		}
	}
}
