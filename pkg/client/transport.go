package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const userAgent = "lolstats/1.0"

// Response is what a Transport hands back for a completed request.
type Response struct {
	StatusCode int
	Reason     string
	Header     http.Header
	Body       []byte
}

// Transport performs a single blocking GET. Implementations must honor the
// context deadline and must not retry.
type Transport interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// HTTPTransport is a Transport backed by net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a net/http transport. A nil client uses a fresh
// http.Client without its own timeout; Fetch bounds every call.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{client: client}
}

// Get implements Transport.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = RedactURL(urlErr.URL)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp.StatusCode, strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))),
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// forwardedHeaders are the response headers the fasthttp transport copies
// into Response.Header.
var forwardedHeaders = []string{
	"Content-Type",
	"Retry-After",
	"X-Rate-Limit-Type",
	"X-App-Rate-Limit",
	"X-App-Rate-Limit-Count",
	"X-Method-Rate-Limit",
	"X-Method-Rate-Limit-Count",
}

// FastHTTPTransport is a Transport backed by valyala/fasthttp.
type FastHTTPTransport struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewFastHTTPTransport creates a fasthttp transport. timeout applies when the
// context carries no deadline.
func NewFastHTTPTransport(timeout time.Duration) *FastHTTPTransport {
	return &FastHTTPTransport{
		client: &fasthttp.Client{
			Name:                userAgent,
			MaxConnsPerHost:     16,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		timeout: timeout,
	}
}

// Get implements Transport.
func (t *FastHTTPTransport) Get(ctx context.Context, rawURL string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rawURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.timeout)
	}
	if err := t.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}

	header := make(http.Header)
	for _, name := range forwardedHeaders {
		if v := resp.Header.Peek(name); len(v) > 0 {
			header.Set(name, string(v))
		}
	}

	// resp is released on return, so the body has to be copied.
	body := append([]byte(nil), resp.Body()...)

	return &Response{
		StatusCode: resp.StatusCode(),
		Reason:     reasonPhrase(resp.StatusCode(), string(resp.Header.StatusMessage())),
		Header:     header,
		Body:       body,
	}, nil
}

func reasonPhrase(code int, reported string) string {
	if r := strings.TrimSpace(reported); r != "" {
		return r
	}
	return http.StatusText(code)
}
