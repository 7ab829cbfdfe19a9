// Package testutil provides testing utilities for the Riot API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock Riot API endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockRiot is a configurable mock Riot API server for testing. It serves all
// routing hosts from one address, so tests point the client base URL at it.
type MockRiot struct {
	server    *httptest.Server
	mu        sync.Mutex
	handlers  map[string]http.HandlerFunc
	sequences map[string][]MockResponse

	// requests holds the RequestURI of every request in arrival order.
	requests []string
}

// NewMockRiot creates a new mock Riot API server.
func NewMockRiot() *MockRiot {
	mock := &MockRiot{
		handlers:  make(map[string]http.HandlerFunc),
		sequences: make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, r.RequestURI)

		if seq, ok := mock.sequences[r.URL.Path]; ok && len(seq) > 0 {
			resp := seq[0]
			// The last response of a sequence repeats.
			if len(seq) > 1 {
				mock.sequences[r.URL.Path] = seq[1:]
			}
			mock.mu.Unlock()
			writeResponse(w, resp)
			return
		}

		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		writeResponse(w, NewErrorResponse(http.StatusNotFound, "Data not found"))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockRiot) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockRiot) Close() {
	m.server.Close()
}

// Reset clears the request log.
func (m *MockRiot) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockRiot) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockRiot) SetResponse(path string, resp MockResponse) {
	m.SetSequence(path, resp)
}

// SetSequence configures responses served in order for a path. Once only
// one response is left it is served for every further request.
func (m *MockRiot) SetSequence(path string, resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[path] = append([]MockResponse(nil), resps...)
}

// SetAccount serves the account lookup for name#tag.
func (m *MockRiot) SetAccount(name, tag, puuid string) {
	m.SetResponse(AccountPath(name, tag), NewJSONResponse(AccountBody(puuid, name, tag)))
}

// SetMatchIDs serves the match id listing of puuid. Pages are cut from ids
// using the start and count query parameters like the real API does.
func (m *MockRiot) SetMatchIDs(puuid string, ids []string) {
	m.SetHandler(MatchIDsPath(puuid), func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, _ := strconv.Atoi(q.Get("start"))
		count, err := strconv.Atoi(q.Get("count"))
		if err != nil {
			count = 20
		}

		page := []string{}
		if start < len(ids) {
			end := min(start+count, len(ids))
			page = ids[start:end]
		}

		body, _ := json.Marshal(page)
		writeResponse(w, NewJSONResponse(string(body)))
	})
}

// SetMatches serves a match record for each id.
func (m *MockRiot) SetMatches(ids ...string) {
	for _, id := range ids {
		m.SetResponse(MatchPath(id), NewJSONResponse(MatchBody(id)))
	}
}

// Requests returns the RequestURI of every request received so far.
func (m *MockRiot) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// RequestCount returns the number of requests made to the server.
func (m *MockRiot) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// AccountPath returns the account-v1 lookup path for name#tag.
func AccountPath(name, tag string) string {
	return fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s", name, tag)
}

// MatchIDsPath returns the match-v5 id listing path for puuid.
func MatchIDsPath(puuid string) string {
	return fmt.Sprintf("/lol/match/v5/matches/by-puuid/%s/ids", puuid)
}

// MatchPath returns the match-v5 detail path for a match id.
func MatchPath(id string) string {
	return "/lol/match/v5/matches/" + id
}

// AccountBody returns an account-v1 response body.
func AccountBody(puuid, name, tag string) string {
	return fmt.Sprintf(`{"puuid":%q,"gameName":%q,"tagLine":%q}`, puuid, name, tag)
}

// MatchBody returns a minimal match-v5 response body for id.
func MatchBody(id string) string {
	return fmt.Sprintf(`{"metadata":{"dataVersion":"2","matchId":%q,"participants":[]},"info":{"gameMode":"CLASSIC","queueId":420}}`, id)
}

// NewJSONResponse creates a 200 OK response with typical rate limit headers.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"X-App-Rate-Limit":          "20:1,100:120",
			"X-App-Rate-Limit-Count":    "1:1,10:120",
			"X-Method-Rate-Limit":       "2000:10",
			"X-Method-Rate-Limit-Count": "1:10",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status":{"message":"Rate limit exceeded","status_code":429}}`,
		Headers: map[string]string{
			"Retry-After":            "1",
			"X-Rate-Limit-Type":      "application",
			"X-App-Rate-Limit":       "20:1,100:120",
			"X-App-Rate-Limit-Count": "21:1,100:120",
		},
	}
}

// NewErrorResponse creates an error response in the Riot API error format.
func NewErrorResponse(status int, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       fmt.Sprintf(`{"status":{"message":%q,"status_code":%d}}`, message, status),
	}
}
