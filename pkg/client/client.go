// Package client provides the Riot API fetch client with deterministic 429
// backoff and error classification.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/lolstats/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for fetch operations.
var (
	lolRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_requests_total",
		Help: "Total Riot API requests by status",
	}, []string{"status"})

	lolRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lol_request_duration_seconds",
		Help:    "Riot API request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	lolErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_errors_total",
		Help: "Total failed fetches by error class",
	}, []string{"class"})
)

// Client fetches JSON documents from the Riot API.
type Client struct {
	transport  Transport
	sleep      SleepFunc
	rateLimits *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// MaxRetries is the total number of attempts made while the API answers 429.
	MaxRetries int

	// RetryDelay is the first backoff delay. It doubles after every 429.
	RetryDelay time.Duration

	// Timeout bounds each individual request.
	Timeout time.Duration

	// Transport performs the GET. Defaults to net/http.
	Transport Transport

	// Sleep performs the backoff wait. Defaults to a context-aware timer.
	Sleep SleepFunc

	// RateLimits, if set, observes the rate limit headers of every response.
	RateLimits *ratelimit.Tracker

	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 8,
		RetryDelay: 10 * time.Second,
		Timeout:    10 * time.Second,
	}
}

// New creates a new fetch client.
func New(cfg Config) (*Client, error) {
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.RetryDelay <= 0 {
		return nil, fmt.Errorf("retry_delay must be positive (got %s)", cfg.RetryDelay)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	logger := base.With().Str("component", "riot-client").Logger()

	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport(nil)
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Client{
		transport:  transport,
		sleep:      sleep,
		rateLimits: cfg.RateLimits,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Fetch performs a GET and returns the JSON body of a 200 response verbatim.
//
// 401 and 403 fail with ErrUnauthorized and ErrForbidden. 429 is retried:
// the client sleeps RetryDelay, doubles it and tries again, up to MaxRetries
// attempts in total, then fails with ErrRateLimitExhausted. Any other status
// fails with *ServerError. Transport failures fail with *TransportError.
func (c *Client) Fetch(ctx context.Context, url string) (json.RawMessage, error) {
	state := newRetryState(c.config.RetryDelay)
	logURL := RedactURL(url)

	for state.attempt < c.config.MaxRetries {
		resp, err := c.do(ctx, url)
		if err != nil {
			return nil, c.fail(&TransportError{URL: logURL, Err: err})
		}

		switch resp.StatusCode {
		case http.StatusOK:
			if !json.Valid(resp.Body) {
				return nil, c.fail(fmt.Errorf("%w: GET %s", ErrInvalidResponse, logURL))
			}
			if state.attempt > 0 {
				c.logger.Info().
					Str("url", logURL).
					Int("attempt", state.attempt+1).
					Msg("Request succeeded after retry")
			}
			return json.RawMessage(resp.Body), nil

		case http.StatusUnauthorized:
			return nil, c.fail(ErrUnauthorized)

		case http.StatusForbidden:
			return nil, c.fail(ErrForbidden)

		case http.StatusTooManyRequests:
			c.logger.Warn().
				Str("url", logURL).
				Int("attempt", state.attempt+1).
				Dur("backoff", state.delay).
				Msg("Rate limit exceeded, retrying after backoff")

			if err := state.backoff(ctx, c.sleep); err != nil {
				c.logger.Warn().
					Int("attempt", state.attempt+1).
					Msg("Context cancelled during retry backoff")
				return nil, c.fail(err)
			}

		default:
			return nil, c.fail(&ServerError{StatusCode: resp.StatusCode, Reason: resp.Reason})
		}
	}

	lolRetryExhaustedTotal.Inc()
	c.logger.Warn().
		Str("url", logURL).
		Int("max_retries", c.config.MaxRetries).
		Msg("Retry attempts exhausted")

	return nil, c.fail(fmt.Errorf("%w after %d attempts", ErrRateLimitExhausted, c.config.MaxRetries))
}

// do performs one bounded request and feeds the rate limit tracker.
func (c *Client) do(ctx context.Context, url string) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.transport.Get(reqCtx, url)
	lolRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		lolRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, err
	}

	lolRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Riot API response")

	if c.rateLimits != nil {
		if err := c.rateLimits.UpdateFromHeaders(ctx, resp.StatusCode, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	return resp, nil
}

// fail records err in the error metrics and returns it.
func (c *Client) fail(err error) error {
	class := ClassOf(err)
	lolErrorsTotal.WithLabelValues(string(class)).Inc()

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		c.logger.Error().Err(err).Msg("HTTP request failed")
	} else {
		c.logger.Debug().Err(err).Str("class", string(class)).Msg("Request failed")
	}
	return err
}
