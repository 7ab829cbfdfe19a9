package riot

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/lolstats/internal/testutil"
	"github.com/Sternrassler/lolstats/pkg/cache"
	"github.com/Sternrassler/lolstats/pkg/client"
)

// recordingFetcher answers every Fetch with the same result and records URLs.
type recordingFetcher struct {
	body json.RawMessage
	err  error
	urls []string
}

func (f *recordingFetcher) Fetch(ctx context.Context, url string) (json.RawMessage, error) {
	f.urls = append(f.urls, url)
	return f.body, f.err
}

func newTestAPI(t *testing.T, fetcher Fetcher, cfg Config) *Client {
	t.Helper()

	logger := zerolog.Nop()
	cfg.Logger = &logger
	if cfg.APIKey == "" {
		cfg.APIKey = "KEY"
	}

	c, err := New(fetcher, cfg)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Config{APIKey: "KEY"})
	assert.Error(t, err)

	_, err = New(&recordingFetcher{}, Config{})
	assert.ErrorContains(t, err, "api key is required")

	c, err := New(&recordingFetcher{}, Config{APIKey: "KEY", BaseURL: "http://localhost:1234/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:1234", c.host(RouteEurope))
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		in      string
		want    Route
		wantErr bool
	}{
		{"americas", RouteAmericas, false},
		{"EUROPE", RouteEurope, false},
		{" asia ", RouteAsia, false},
		{"sea", RouteSEA, false},
		{"euw1", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRoute(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownRoute)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoute_AccountRoute(t *testing.T) {
	assert.Equal(t, RouteAsia, RouteSEA.AccountRoute())
	assert.Equal(t, RouteAmericas, RouteAmericas.AccountRoute())
	assert.Equal(t, RouteEurope, RouteEurope.AccountRoute())
	assert.Equal(t, RouteAsia, RouteAsia.AccountRoute())
}

func TestResolvePUUID(t *testing.T) {
	tests := []struct {
		name    string
		route   Route
		player  string
		tag     string
		wantURL string
	}{
		{
			name:    "europe",
			route:   RouteEurope,
			player:  "Caps",
			tag:     "EUW",
			wantURL: "https://europe.api.riotgames.com/riot/account/v1/accounts/by-riot-id/Caps/EUW?api_key=KEY",
		},
		{
			name:    "sea looks up on asia",
			route:   RouteSEA,
			player:  "Player",
			tag:     "OCE",
			wantURL: "https://asia.api.riotgames.com/riot/account/v1/accounts/by-riot-id/Player/OCE?api_key=KEY",
		},
		{
			name:    "spaces are escaped",
			route:   RouteAsia,
			player:  "Hide on bush",
			tag:     "KR1",
			wantURL: "https://asia.api.riotgames.com/riot/account/v1/accounts/by-riot-id/Hide%20on%20bush/KR1?api_key=KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &recordingFetcher{body: json.RawMessage(testutil.AccountBody("puuid-1", tt.player, tt.tag))}
			api := newTestAPI(t, fetcher, Config{})

			puuid, err := api.ResolvePUUID(context.Background(), tt.route, tt.player, tt.tag)
			require.NoError(t, err)
			assert.Equal(t, "puuid-1", puuid)
			assert.Equal(t, []string{tt.wantURL}, fetcher.urls)
		})
	}
}

func TestResolvePUUID_NotFound(t *testing.T) {
	fetcher := &recordingFetcher{err: &client.ServerError{StatusCode: 404, Reason: "Not Found"}}
	api := newTestAPI(t, fetcher, Config{})

	_, err := api.ResolvePUUID(context.Background(), RouteAmericas, "Nobody", "NA1")

	require.ErrorIs(t, err, ErrPlayerNotFound)
	assert.Equal(t, "player Nobody#NA1 not found", err.Error())

	var notFound *PlayerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Nobody", notFound.Name)
	assert.Equal(t, "NA1", notFound.Tag)
	assert.Equal(t, client.ErrorClassNotFound, client.ClassOf(err))
}

func TestResolvePUUID_PropagatesOtherErrors(t *testing.T) {
	serverErr := &client.ServerError{StatusCode: 500, Reason: "Internal Server Error"}

	tests := []struct {
		name string
		err  error
	}{
		{"unauthorized", client.ErrUnauthorized},
		{"forbidden", client.ErrForbidden},
		{"rate limit", client.ErrRateLimitExhausted},
		{"server error", serverErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, &recordingFetcher{err: tt.err}, Config{})

			_, err := api.ResolvePUUID(context.Background(), RouteAmericas, "a", "b")
			assert.Same(t, tt.err, err)
			assert.NotErrorIs(t, err, ErrPlayerNotFound)
		})
	}
}

func TestResolvePUUID_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing puuid", `{"gameName":"a","tagLine":"b"}`},
		{"empty puuid", `{"puuid":""}`},
		{"not an object", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, &recordingFetcher{body: json.RawMessage(tt.body)}, Config{})

			_, err := api.ResolvePUUID(context.Background(), RouteAmericas, "a", "b")
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestMatchIDs(t *testing.T) {
	queue := 420
	endTime := int64(1700000000)

	tests := []struct {
		name    string
		query   MatchIDsQuery
		wantURL string
	}{
		{
			name:    "no filters are sent blank",
			query:   MatchIDsQuery{Start: 0, Count: 20},
			wantURL: "https://americas.api.riotgames.com/lol/match/v5/matches/by-puuid/P1/ids?api_key=KEY&start=0&count=20&endTime=&queue=",
		},
		{
			name:    "with filters",
			query:   MatchIDsQuery{Start: 40, Count: 5, EndTime: &endTime, Queue: &queue},
			wantURL: "https://americas.api.riotgames.com/lol/match/v5/matches/by-puuid/P1/ids?api_key=KEY&start=40&count=5&endTime=1700000000&queue=420",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &recordingFetcher{body: json.RawMessage(`["NA1_3","NA1_1","NA1_2"]`)}
			api := newTestAPI(t, fetcher, Config{})

			ids, err := api.MatchIDs(context.Background(), RouteAmericas, "P1", tt.query)
			require.NoError(t, err)
			assert.Equal(t, []string{"NA1_3", "NA1_1", "NA1_2"}, ids)
			assert.Equal(t, []string{tt.wantURL}, fetcher.urls)
			assert.NotContains(t, fetcher.urls[0], "None")
			assert.NotContains(t, fetcher.urls[0], "null")
		})
	}
}

func TestMatchIDs_Errors(t *testing.T) {
	api := newTestAPI(t, &recordingFetcher{err: client.ErrForbidden}, Config{})
	_, err := api.MatchIDs(context.Background(), RouteEurope, "P", MatchIDsQuery{Count: 20})
	assert.ErrorIs(t, err, client.ErrForbidden)

	api = newTestAPI(t, &recordingFetcher{body: json.RawMessage(`{"ids":[]}`)}, Config{})
	_, err = api.MatchIDs(context.Background(), RouteEurope, "P", MatchIDsQuery{Count: 20})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestMatch(t *testing.T) {
	body := json.RawMessage(testutil.MatchBody("EUW1_42"))
	fetcher := &recordingFetcher{body: body}
	api := newTestAPI(t, fetcher, Config{})

	got, err := api.Match(context.Background(), RouteEurope, "EUW1_42")
	require.NoError(t, err)
	assert.JSONEq(t, string(body), string(got))
	assert.Equal(t, []string{"https://europe.api.riotgames.com/lol/match/v5/matches/EUW1_42?api_key=KEY"}, fetcher.urls)
}

func TestResolvePUUID_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	fetcher := &recordingFetcher{body: json.RawMessage(testutil.AccountBody("puuid-cached", "Caps", "EUW"))}
	api := newTestAPI(t, fetcher, Config{Cache: cache.NewManager(redisClient, time.Hour)})
	ctx := context.Background()

	first, err := api.ResolvePUUID(ctx, RouteEurope, "Caps", "EUW")
	require.NoError(t, err)
	second, err := api.ResolvePUUID(ctx, RouteEurope, "caps", "euw")
	require.NoError(t, err)

	assert.Equal(t, "puuid-cached", first)
	assert.Equal(t, first, second)
	assert.Len(t, fetcher.urls, 1, "second lookup should be served from cache")

	// A broken cache falls back to the API
	mr.Close()
	third, err := api.ResolvePUUID(ctx, RouteEurope, "Caps", "EUW")
	require.NoError(t, err)
	assert.Equal(t, "puuid-cached", third)
	assert.Len(t, fetcher.urls, 2)
}

func TestClient_AgainstMockServer(t *testing.T) {
	mock := testutil.NewMockRiot()
	defer mock.Close()

	mock.SetAccount("Faker", "KR1", "puuid-faker")
	mock.SetMatchIDs("puuid-faker", []string{"KR_5", "KR_4", "KR_3"})
	mock.SetMatches("KR_5")

	logger := zerolog.Nop()
	fetchClient, err := client.New(client.Config{MaxRetries: 1, RetryDelay: time.Millisecond, Timeout: 5 * time.Second, Logger: &logger})
	require.NoError(t, err)

	api := newTestAPI(t, fetchClient, Config{BaseURL: mock.URL()})
	ctx := context.Background()

	puuid, err := api.ResolvePUUID(ctx, RouteAsia, "Faker", "KR1")
	require.NoError(t, err)
	assert.Equal(t, "puuid-faker", puuid)

	ids, err := api.MatchIDs(ctx, RouteAsia, puuid, MatchIDsQuery{Start: 1, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"KR_4", "KR_3"}, ids)

	record, err := api.Match(ctx, RouteAsia, "KR_5")
	require.NoError(t, err)
	assert.JSONEq(t, testutil.MatchBody("KR_5"), string(record))

	_, err = api.ResolvePUUID(ctx, RouteAsia, "Ghost", "000")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}
