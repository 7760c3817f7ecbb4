package relay

import (
	"errors"
	"fmt"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	ErrSuccess Err = iota
	ErrNotFound
	ErrBadParameter
	ErrNotImplemented
	ErrNotModified
	ErrTransient
	ErrPermanent
	ErrRateLimited
	ErrClosed
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Errors
type Err int

// RateLimitError is returned by a ChatClient when the chat surface asks the
// caller to wait before the next request.
type RateLimitError struct {
	RetryAfter time.Duration
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (e Err) Error() string {
	switch e {
	case ErrSuccess:
		return "success"
	case ErrNotFound:
		return "not found"
	case ErrBadParameter:
		return "bad parameter"
	case ErrNotImplemented:
		return "not implemented"
	case ErrNotModified:
		return "message is not modified"
	case ErrTransient:
		return "transient error"
	case ErrPermanent:
		return "permanent error"
	case ErrRateLimited:
		return "rate limited"
	case ErrClosed:
		return "closed"
	}
	return fmt.Sprintf("error code %d", int(e))
}

func (e Err) With(args ...interface{}) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprint(args...))
}

func (e Err) Withf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprintf(format, args...))
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %v", e.RetryAfter)
}

// Is makes errors.Is(err, ErrRateLimited) true for a RateLimitError
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfter returns the wait duration carried by a rate-limit error, and
// false if err is not a rate-limit error.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsPermanent returns true if retrying the same request with a simpler
// payload cannot succeed (the target was deleted, access is forbidden).
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
