// Package poll provides the condition-wait primitive every UI-state wait
// in the system is built on: page loaded, login resolved, send confirmed.
package poll

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Unbounded disables the attempt budget.
const Unbounded = -1

// DefaultInterval between condition checks.
const DefaultInterval = 500 * time.Millisecond

// Options configures one polling loop. Callbacks run in a fixed order:
// Before, then per iteration InLoopBefore / condition / InLoopAfter, then
// After once the loop ends. Nil callbacks are skipped.
type Options struct {
	Before       func()
	InLoopBefore func()
	InLoopAfter  func()
	After        func()
	MaxAttempts  int           // Unbounded or a positive budget
	Interval     time.Duration // defaults to DefaultInterval
	Label        string        // progress line text; empty disables display
}

// Until evaluates cond repeatedly until it returns true, the attempt
// budget is exhausted, or ctx is cancelled. Cancellation is observed only
// between iterations; a running check is never interrupted. Returns true
// iff cond became true. Panics from cond are not recovered here - callers
// that want "not found yet" to read as false must catch internally.
func Until(ctx context.Context, cond func() bool, opts Options) bool {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = Unbounded
	}
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}

	if opts.Before != nil {
		opts.Before()
	}
	defer func() {
		if opts.After != nil {
			opts.After()
		}
	}()

	dots := 1
	attempts := 0
	for {
		if opts.InLoopBefore != nil {
			opts.InLoopBefore()
		}

		attempts++
		if cond() {
			clearProgress(opts.Label)
			return true
		}

		if opts.MaxAttempts != Unbounded && attempts >= opts.MaxAttempts {
			clearProgress(opts.Label)
			return false
		}

		if opts.InLoopAfter != nil {
			opts.InLoopAfter()
		}

		if opts.Label != "" {
			fmt.Printf("%s%s   \r", opts.Label, strings.Repeat(".", dots))
			dots++
			if dots > 3 {
				dots = 1
			}
		}

		select {
		case <-ctx.Done():
			clearProgress(opts.Label)
			return false
		case <-time.After(opts.Interval):
		}
	}
}

func clearProgress(label string) {
	if label != "" {
		fmt.Printf("%s\r", strings.Repeat(" ", len(label)+4))
	}
}
