// Package ratelimit tracks the Riot API rate limit windows reported in
// response headers. It monitors X-App-Rate-Limit, X-Method-Rate-Limit and
// their -Count companions so operators can see how close a load runs to the
// limits. The tracker is observational: retry timing stays with the client.
package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyAppWindows    = "lol:rate_limit:app"
	RedisKeyMethodWindows = "lol:rate_limit:method"
	RedisKeyLastUpdate    = "lol:rate_limit:last_update"
)

// WarningUsageRatio is the share of a window that triggers a warning log.
const WarningUsageRatio = 0.8

// Window is one "limit:period" pair reported by the API together with the
// number of requests already counted in it.
type Window struct {
	Limit  int           `json:"limit"`
	Count  int           `json:"count"`
	Period time.Duration `json:"period"`
}

// Usage returns Count/Limit, or 0 when the limit is unknown.
func (w Window) Usage() float64 {
	if w.Limit <= 0 {
		return 0
	}
	return float64(w.Count) / float64(w.Limit)
}

// State represents the most recently observed rate limit state.
type State struct {
	// App windows apply to the API key as a whole.
	App []Window `json:"app"`

	// Method windows apply to the endpoint that served the last response.
	Method []Window `json:"method"`

	// RetryAfter is the server hint sent with the last 429, if any.
	RetryAfter time.Duration `json:"retry_after"`

	// LimitType is X-Rate-Limit-Type of the last 429 ("application", "method" or "service").
	LimitType string `json:"limit_type"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// MaxUsage returns the highest usage ratio across all windows.
func (s *State) MaxUsage() float64 {
	return max(maxUsage(s.App), maxUsage(s.Method))
}

// NearLimit returns true when any window is at or above WarningUsageRatio.
func (s *State) NearLimit() bool {
	return s.MaxUsage() >= WarningUsageRatio
}

// ParseWindows combines a limit header ("20:1,100:120") with its count
// header ("3:1,40:120") into windows ordered as in the limit header.
// Counts are matched to limits by period; a missing count is zero.
func ParseWindows(limits, counts string) ([]Window, error) {
	if strings.TrimSpace(limits) == "" {
		return nil, nil
	}

	limitPairs, err := parsePairs(limits)
	if err != nil {
		return nil, fmt.Errorf("parse limits %q: %w", limits, err)
	}

	countByPeriod := make(map[int]int)
	if strings.TrimSpace(counts) != "" {
		countPairs, err := parsePairs(counts)
		if err != nil {
			return nil, fmt.Errorf("parse counts %q: %w", counts, err)
		}
		for _, p := range countPairs {
			countByPeriod[p[1]] = p[0]
		}
	}

	windows := make([]Window, 0, len(limitPairs))
	for _, p := range limitPairs {
		windows = append(windows, Window{
			Limit:  p[0],
			Count:  countByPeriod[p[1]],
			Period: time.Duration(p[1]) * time.Second,
		})
	}
	return windows, nil
}

// parsePairs parses "a:b,c:d" into [[a b] [c d]].
func parsePairs(s string) ([][2]int, error) {
	parts := strings.Split(s, ",")
	pairs := make([][2]int, 0, len(parts))
	for _, part := range parts {
		value, period, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("missing ':' in %q", part)
		}
		v, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		p, err := strconv.Atoi(period)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]int{v, p})
	}
	return pairs, nil
}
