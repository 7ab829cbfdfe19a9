package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	lolRateLimitUsage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lol_rate_limit_usage_ratio",
		Help: "Highest used/limit ratio of the Riot API rate limit windows by scope",
	}, []string{"scope"})

	lolRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_rate_limited_total",
		Help: "Total number of 429 responses by X-Rate-Limit-Type",
	}, []string{"type"})
)

// Tracker records the Riot API rate limit state seen in response headers.
// It is safe for concurrent use. When a Redis client is supplied the state is
// mirrored there so later runs can inspect it.
type Tracker struct {
	mu     sync.Mutex
	state  State
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// State returns a copy of the last observed state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state
	s.App = append([]Window(nil), t.state.App...)
	s.Method = append([]Window(nil), t.state.Method...)
	return s
}

// UpdateFromHeaders parses the rate limit headers of a response and updates
// the tracked state. Responses without rate limit headers are ignored unless
// they are 429s.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, status int, headers http.Header) error {
	appLimit := headers.Get("X-App-Rate-Limit")
	methodLimit := headers.Get("X-Method-Rate-Limit")
	if appLimit == "" && methodLimit == "" && status != http.StatusTooManyRequests {
		return nil
	}

	app, err := ParseWindows(appLimit, headers.Get("X-App-Rate-Limit-Count"))
	if err != nil {
		return fmt.Errorf("parse X-App-Rate-Limit headers: %w", err)
	}

	method, err := ParseWindows(methodLimit, headers.Get("X-Method-Rate-Limit-Count"))
	if err != nil {
		return fmt.Errorf("parse X-Method-Rate-Limit headers: %w", err)
	}

	state := State{
		App:        app,
		Method:     method,
		LastUpdate: time.Now(),
	}

	if status == http.StatusTooManyRequests {
		state.LimitType = headers.Get("X-Rate-Limit-Type")
		if state.LimitType == "" {
			state.LimitType = "unknown"
		}
		if ra := headers.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				state.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		lolRateLimitedTotal.WithLabelValues(state.LimitType).Inc()
	}

	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	lolRateLimitUsage.WithLabelValues("app").Set(maxUsage(app))
	lolRateLimitUsage.WithLabelValues("method").Set(maxUsage(method))

	switch {
	case status == http.StatusTooManyRequests:
		t.logger.Warn().
			Str("limit_type", state.LimitType).
			Dur("retry_after", state.RetryAfter).
			Msg("Riot API rate limit hit")
	case state.NearLimit():
		t.logger.Warn().
			Float64("usage", state.MaxUsage()).
			Msg("Riot API rate limit nearly used up")
	default:
		t.logger.Debug().
			Float64("usage", state.MaxUsage()).
			Msg("Riot API rate limit state updated")
	}

	if t.redis != nil {
		if err := t.store(ctx, state); err != nil {
			return err
		}
	}

	return nil
}

// store writes the state to Redis atomically.
func (t *Tracker) store(ctx context.Context, state State) error {
	appJSON, err := json.Marshal(state.App)
	if err != nil {
		return fmt.Errorf("marshal app windows: %w", err)
	}
	methodJSON, err := json.Marshal(state.Method)
	if err != nil {
		return fmt.Errorf("marshal method windows: %w", err)
	}
	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyAppWindows, appJSON, 0)
	pipe.Set(ctx, RedisKeyMethodWindows, methodJSON, 0)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// Load retrieves the state persisted by an earlier run. Without Redis it
// returns the in-memory state. Returns nil if Redis holds no state.
func (t *Tracker) Load(ctx context.Context) (*State, error) {
	if t.redis == nil {
		s := t.State()
		return &s, nil
	}

	values, err := t.redis.MGet(ctx, RedisKeyAppWindows, RedisKeyMethodWindows, RedisKeyLastUpdate).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}
	if values[2] == nil {
		t.logger.Debug().Msg("No rate limit state in Redis")
		return nil, nil
	}

	state := &State{}
	targets := []any{&state.App, &state.Method, &state.LastUpdate}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(raw), targets[i]); err != nil {
			return nil, fmt.Errorf("parse rate limit state: %w", err)
		}
	}

	return state, nil
}

func maxUsage(windows []Window) float64 {
	var highest float64
	for _, w := range windows {
		highest = max(highest, w.Usage())
	}
	return highest
}
