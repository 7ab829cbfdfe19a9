package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Common errors returned by the client.
var (
	// ErrUnauthorized is returned for 401 responses.
	ErrUnauthorized = errors.New("401 Unauthorized: API key is missing or incorrect")

	// ErrForbidden is returned for 403 responses.
	ErrForbidden = errors.New("403 Forbidden: API key has expired or was revoked")

	// ErrRateLimitExhausted is returned when every attempt was answered with 429.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrInvalidResponse is returned when a 200 response does not carry JSON.
	ErrInvalidResponse = errors.New("response body is not valid JSON")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassAuth represents 401 and 403 responses.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassNotFound represents 404 responses.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassRateLimit represents exhausted 429 retries.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassClient represents other 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnknown represents anything else.
	ErrorClassUnknown ErrorClass = "unknown"
)

// ServerError is returned for any non-200 status that is not 401, 403 or 429.
type ServerError struct {
	StatusCode int
	Reason     string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("request error %d %s", e.StatusCode, e.Reason)
}

// TransportError wraps a failure to get any response at all.
type TransportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClassOf classifies an error returned by Fetch or by callers wrapping it.
func ClassOf(err error) ErrorClass {
	if err == nil {
		return ""
	}

	var serverErr *ServerError
	var transportErr *TransportError

	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
		return ErrorClassAuth
	case errors.Is(err, ErrRateLimitExhausted):
		return ErrorClassRateLimit
	case errors.As(err, &serverErr):
		switch {
		case serverErr.StatusCode == http.StatusNotFound:
			return ErrorClassNotFound
		case serverErr.StatusCode >= 500:
			return ErrorClassServer
		default:
			return ErrorClassClient
		}
	case errors.As(err, &transportErr), errors.Is(err, ErrContextCancelled):
		return ErrorClassNetwork
	default:
		return ErrorClassUnknown
	}
}

// IsNotFound reports whether err is a 404 ServerError.
func IsNotFound(err error) bool {
	var serverErr *ServerError
	return errors.As(err, &serverErr) && serverErr.StatusCode == http.StatusNotFound
}

// RedactURL masks the api_key query parameter so URLs can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
