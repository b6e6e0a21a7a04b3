// Package retry wraps fallible browser interactions with bounded
// fixed-delay retries. Only errors marked transient are retried; anything
// else propagates unchanged on the first attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMaxRetries is returned when every allowed attempt failed transiently.
var ErrMaxRetries = errors.New("maximum retries reached")

const (
	// DefaultMaxRetries bounds the number of invocations of the wrapped
	// action, not the number of re-invocations.
	DefaultMaxRetries = 2
	// DefaultDelay is deliberately fixed rather than exponential: the
	// target is an interactive UI that either settles within seconds or
	// not at all.
	DefaultDelay = 5 * time.Second
)

// Options controls one retry-wrapped action.
type Options struct {
	MaxRetries int
	Delay      time.Duration
}

func (o *Options) applyDefaults() {
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Delay == 0 {
		o.Delay = DefaultDelay
	}
}

// transientError marks an error as recoverable by retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as a transient UI-interaction failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Transientf is Transient over a formatted error.
func Transientf(format string, args ...any) error {
	return &transientError{err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err is recoverable by retrying. Context
// deadline expiry counts: a timed-out element wait is the canonical
// transient condition in this system.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Do invokes fn until it succeeds, fails non-transiently, or the attempt
// budget runs out. fn is invoked at most MaxRetries times.
func Do(fn func() error, opts Options) error {
	opts.applyDefaults()

	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if attempt+1 < opts.MaxRetries {
			time.Sleep(opts.Delay)
		}
	}
	return ErrMaxRetries
}
