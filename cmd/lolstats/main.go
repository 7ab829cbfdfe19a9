// Command lolstats downloads the match history of a League of Legends player
// into a data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/lolstats/internal/config"
	"github.com/Sternrassler/lolstats/pkg/cache"
	"github.com/Sternrassler/lolstats/pkg/client"
	"github.com/Sternrassler/lolstats/pkg/journal"
	"github.com/Sternrassler/lolstats/pkg/loader"
	"github.com/Sternrassler/lolstats/pkg/logging"
	"github.com/Sternrassler/lolstats/pkg/metrics"
	"github.com/Sternrassler/lolstats/pkg/ratelimit"
	"github.com/Sternrassler/lolstats/pkg/riot"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// rateLimitStateMaxAge bounds how old the rate limit state of an earlier run
// may be and still be reported.
const rateLimitStateMaxAge = 2 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	cfg, err := config.Load(args, getenv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, config.ErrUsage) {
			return exitUsage
		}
		return exitFailure
	}

	logging.Setup(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: stderr})
	logger := logging.NewLogger("lolstats")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsAddr != "" {
		if _, err := metrics.Listen(ctx, cfg.MetricsAddr, logging.NewLogger("metrics")); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			fmt.Fprintf(stderr, "Error: connect to Redis at %s: %v\n", cfg.RedisAddr, err)
			return exitFailure
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}

	l, closeJournal, err := build(ctx, cfg, redisClient)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer closeJournal()

	res, err := l.Load(ctx, loader.Request{
		Directory:   cfg.Output,
		TotalWanted: cfg.Max,
		Route:       cfg.Route,
		Name:        cfg.Name,
		Tag:         cfg.Tag,
		Queue:       cfg.Queue,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintf(stderr, "Hint: %s\n", hint)
		}
		return exitFailure
	}

	fmt.Fprintf(stdout, "Successfully loaded match data into '%s' directory.\n", cfg.Output)
	fmt.Fprintf(stdout, "%d total matches, %d new.\n", res.TotalSeen, res.TotalNew)
	return exitOK
}

// build wires the fetch client, API and loader. The returned func closes the
// journal, if one was opened.
func build(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*loader.Loader, func(), error) {
	noop := func() {}

	var transport client.Transport
	switch cfg.Transport {
	case config.TransportFastHTTP:
		transport = client.NewFastHTTPTransport(cfg.Timeout)
	default:
		transport = client.NewHTTPTransport(nil)
	}

	fetchCfg := client.DefaultConfig()
	fetchCfg.Timeout = cfg.Timeout
	fetchCfg.Transport = transport
	tracker := ratelimit.NewTracker(redisClient, logging.NewLogger("ratelimit"))
	fetchCfg.RateLimits = tracker
	if redisClient != nil {
		warnPreviousRateLimit(ctx, tracker, logging.NewLogger("lolstats"))
	}

	fetchClient, err := client.New(fetchCfg)
	if err != nil {
		return nil, noop, fmt.Errorf("create client: %w", err)
	}

	apiCfg := riot.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
	}
	if redisClient != nil {
		apiCfg.Cache = cache.NewManager(redisClient, cfg.CacheTTL)
	}

	api, err := riot.New(fetchClient, apiCfg)
	if err != nil {
		return nil, noop, fmt.Errorf("create api: %w", err)
	}

	loaderCfg := loader.DefaultConfig()
	loaderCfg.Concurrency = cfg.Concurrency

	closeJournal := noop
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath, log.Logger)
		if err != nil {
			return nil, noop, err
		}
		loaderCfg.Journal = j
		closeJournal = func() { j.Close() }
	}

	l, err := loader.New(api, loaderCfg)
	if err != nil {
		closeJournal()
		return nil, noop, fmt.Errorf("create loader: %w", err)
	}

	return l, closeJournal, nil
}

// warnPreviousRateLimit warns when the state left in Redis by an earlier run
// is recent and close to a limit.
func warnPreviousRateLimit(ctx context.Context, tracker *ratelimit.Tracker, logger zerolog.Logger) {
	state, err := tracker.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read previous rate limit state")
		return
	}
	if state == nil || state.IsStale(rateLimitStateMaxAge) || !state.NearLimit() {
		return
	}

	logger.Warn().
		Float64("usage", state.MaxUsage()).
		Time("last_update", state.LastUpdate).
		Msg("Previous run ended near the rate limit")
}

// hintFor suggests what to check for a failed load.
func hintFor(err error) string {
	switch client.ClassOf(err) {
	case client.ErrorClassAuth:
		return "check your API key"
	case client.ErrorClassNotFound:
		return "check name and tag"
	case client.ErrorClassRateLimit:
		return "wait and retry"
	case client.ErrorClassServer:
		return "remote server error"
	case client.ErrorClassNetwork:
		return "check your network connection"
	}
	return ""
}
