package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	lolRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lol_retries_total",
		Help: "Total number of 429 retry attempts",
	})

	lolRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lol_retry_backoff_seconds",
		Help:    "Backoff duration slept before a retry",
		Buckets: []float64{1, 5, 10, 20, 40, 80, 160, 320, 640, 1280},
	})

	lolRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lol_retry_exhausted_total",
		Help: "Total number of times 429 retries were exhausted",
	})
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
// It returns a non-nil error only when ctx ended the wait.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the default SleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryState is the backoff state of a single Fetch call. It is never shared
// between calls.
type retryState struct {
	attempt int
	delay   time.Duration
}

func newRetryState(initial time.Duration) *retryState {
	return &retryState{delay: initial}
}

// backoff sleeps for the current delay, then doubles it and counts the attempt.
func (s *retryState) backoff(ctx context.Context, sleep SleepFunc) error {
	lolRetriesTotal.Inc()
	lolRetryBackoffSeconds.Observe(s.delay.Seconds())

	if err := sleep(ctx, s.delay); err != nil {
		return fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}

	s.delay *= 2
	s.attempt++
	return nil
}
