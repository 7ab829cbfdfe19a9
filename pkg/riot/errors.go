package riot

import (
	"errors"
	"fmt"
)

var (
	// ErrPlayerNotFound matches any *PlayerNotFoundError.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrMalformedResponse is returned when a response lacks a field the API promises.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnknownRoute is returned by ParseRoute.
	ErrUnknownRoute = errors.New("unknown route")
)

// PlayerNotFoundError is returned when account-v1 answers 404 for a Riot ID.
type PlayerNotFoundError struct {
	Name string
	Tag  string

	// Err is the 404 the lookup failed with.
	Err error
}

func (e *PlayerNotFoundError) Error() string {
	return fmt.Sprintf("player %s#%s not found", e.Name, e.Tag)
}

// Unwrap returns the underlying API error.
func (e *PlayerNotFoundError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPlayerNotFound.
func (e *PlayerNotFoundError) Is(target error) bool {
	return target == ErrPlayerNotFound
}
