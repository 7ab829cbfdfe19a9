// Package metrics exposes the Prometheus metrics of the loader.
// All metrics are defined in their respective packages (client, ratelimit,
// cache, store, loader) to maintain modularity and avoid circular dependencies.
// This package serves them over HTTP and documents them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Gatherer is the source of the exposed metrics. promauto registers every
// metric with the default registry, so this is the default gatherer.
var Gatherer = prometheus.DefaultGatherer

const shutdownTimeout = 5 * time.Second

// Handler returns the HTTP handler serving /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// Listen starts serving Handler on addr until ctx is done and returns the
// bound address, which differs from addr when a ":0" port is requested.
func Listen(ctx context.Context, addr string, logger zerolog.Logger) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}()

	bound := ln.Addr().String()
	logger.Info().Str("addr", bound).Msg("Serving metrics")
	return bound, nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - lol_requests_total{status} (Counter): Requests by HTTP status ("network_error" for transport failures)
//   - lol_request_duration_seconds (Histogram): Request duration
//   - lol_errors_total{class} (Counter): Failed fetches by class (auth, not_found, rate_limit, client, server, network)
//
// Retry Metrics (pkg/client):
//   - lol_retries_total (Counter): Backoff waits after a 429
//   - lol_retry_backoff_seconds (Histogram): Backoff delay
//   - lol_retry_exhausted_total (Counter): Fetches that ran out of attempts
//
// Rate Limit Metrics (pkg/ratelimit):
//   - lol_rate_limit_usage_ratio{scope} (Gauge): Highest used/limit ratio by scope (app, method)
//   - lol_rate_limited_total{type} (Counter): 429 responses by X-Rate-Limit-Type
//
// Identity Cache Metrics (pkg/cache):
//   - lol_cache_hits_total (Counter): Riot ID lookups served from Redis
//   - lol_cache_misses_total (Counter): Riot ID lookups not in Redis
//   - lol_cache_errors_total{operation} (Counter): Cache operation errors
//
// Store Metrics (pkg/store):
//   - lol_matches_saved_total (Counter): Match records written to disk
//
// Loader Metrics (pkg/loader):
//   - lol_loader_runs_total{status} (Counter): Loads by outcome (success, failed)
//   - lol_loader_run_duration_seconds (Histogram): Load duration
//   - lol_loader_matches_seen_total (Counter): Match ids returned by the listing
//   - lol_loader_matches_new_total (Counter): Match records downloaded
//
// Example Prometheus Queries:
//
//   # Share of requests answered with 429
//   rate(lol_requests_total{status="429"}[5m]) / sum(rate(lol_requests_total[5m]))
//
//   # Rate limit headroom
//   lol_rate_limit_usage_ratio > 0.8
//
//   # Dedup ratio
//   rate(lol_loader_matches_new_total[1h]) / rate(lol_loader_matches_seen_total[1h])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(lol_request_duration_seconds_bucket[5m]))
