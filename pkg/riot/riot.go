// Package riot builds the account-v1 and match-v5 requests of the Riot API
// and interprets their responses.
package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/lolstats/pkg/cache"
	"github.com/Sternrassler/lolstats/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetcher performs a GET and returns the JSON body. *client.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (json.RawMessage, error)
}

// IdentityCache stores resolved PUUIDs. *cache.Manager implements it.
type IdentityCache interface {
	Get(ctx context.Context, key cache.CacheKey) (*cache.Entry, error)
	Set(ctx context.Context, key cache.CacheKey, puuid string) error
}

// Config holds the API configuration.
type Config struct {
	// APIKey is sent as the api_key query parameter (REQUIRED).
	APIKey string

	// BaseURL replaces https://<route>.api.riotgames.com when set.
	BaseURL string

	// Cache, if set, caches Riot ID lookups.
	Cache IdentityCache

	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Client issues Riot API requests through a Fetcher.
type Client struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// New creates a new API client.
func New(fetcher Fetcher, cfg Config) (*Client, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}

	return &Client{
		fetcher: fetcher,
		config:  cfg,
		logger:  base.With().Str("component", "riot-api").Logger(),
	}, nil
}

// MatchIDsQuery selects a page of match ids.
type MatchIDsQuery struct {
	// Start is the zero-based offset.
	Start int

	// Count is the page size (the API accepts 0 to 100).
	Count int

	// EndTime, if set, limits results to matches ending before this UNIX time in seconds.
	EndTime *int64

	// Queue, if set, limits results to one queue id (420 is ranked solo).
	Queue *int
}

type account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// ResolvePUUID returns the PUUID of the player name#tag.
//
// A 404 from the API becomes *PlayerNotFoundError. Other failures are
// returned unchanged.
func (c *Client) ResolvePUUID(ctx context.Context, route Route, name, tag string) (string, error) {
	accountRoute := route.AccountRoute()
	key := cache.CacheKey{Route: accountRoute.String(), Name: name, Tag: tag}

	if c.config.Cache != nil {
		entry, err := c.config.Cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("riot_id", name+"#"+tag).Msg("PUUID served from cache")
			return entry.PUUID, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Msg("Identity cache get failed")
		}
	}

	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s?api_key=%s",
		c.host(accountRoute), url.PathEscape(name), url.PathEscape(tag), url.QueryEscape(c.config.APIKey))

	body, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		if client.IsNotFound(err) {
			return "", &PlayerNotFoundError{Name: name, Tag: tag, Err: err}
		}
		return "", err
	}

	var acc account
	if err := json.Unmarshal(body, &acc); err != nil {
		return "", fmt.Errorf("%w: account: %v", ErrMalformedResponse, err)
	}
	if acc.PUUID == "" {
		return "", fmt.Errorf("%w: account response has no puuid", ErrMalformedResponse)
	}

	if c.config.Cache != nil {
		if err := c.config.Cache.Set(ctx, key, acc.PUUID); err != nil {
			c.logger.Warn().Err(err).Msg("Identity cache set failed")
		}
	}

	return acc.PUUID, nil
}

// MatchIDs returns one page of match ids of puuid in API order (most recent first).
// Unset filters are sent as blank query values.
func (c *Client) MatchIDs(ctx context.Context, route Route, puuid string, q MatchIDsQuery) ([]string, error) {
	endTime := ""
	if q.EndTime != nil {
		endTime = strconv.FormatInt(*q.EndTime, 10)
	}
	queue := ""
	if q.Queue != nil {
		queue = strconv.Itoa(*q.Queue)
	}

	u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?api_key=%s&start=%d&count=%d&endTime=%s&queue=%s",
		c.host(route), url.PathEscape(puuid), url.QueryEscape(c.config.APIKey), q.Start, q.Count, endTime, queue)

	body, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("%w: match ids: %v", ErrMalformedResponse, err)
	}

	return ids, nil
}

// Match returns the match-v5 record of id as sent by the API.
func (c *Client) Match(ctx context.Context, route Route, id string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/%s?api_key=%s",
		c.host(route), url.PathEscape(id), url.QueryEscape(c.config.APIKey))

	return c.fetcher.Fetch(ctx, u)
}

func (c *Client) host(route Route) string {
	if c.config.BaseURL != "" {
		return c.config.BaseURL
	}
	return "https://" + route.String() + ".api.riotgames.com"
}
