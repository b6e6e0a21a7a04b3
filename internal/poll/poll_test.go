package poll

import (
	"context"
	"testing"
	"time"
)

func TestUntilExactEvaluations(t *testing.T) {
	tests := []struct {
		name        string
		trueAfter   int // condition becomes true on this evaluation
		maxAttempts int
		want        bool
		wantEvals   int
	}{
		{name: "true immediately", trueAfter: 1, maxAttempts: 5, want: true, wantEvals: 1},
		{name: "true on third", trueAfter: 3, maxAttempts: 5, want: true, wantEvals: 3},
		{name: "true on last allowed", trueAfter: 5, maxAttempts: 5, want: true, wantEvals: 5},
		{name: "budget exhausted", trueAfter: 6, maxAttempts: 5, want: false, wantEvals: 5},
		{name: "never true", trueAfter: 100, maxAttempts: 3, want: false, wantEvals: 3},
		{name: "unbounded eventually true", trueAfter: 7, maxAttempts: Unbounded, want: true, wantEvals: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evals := 0
			got := Until(context.Background(), func() bool {
				evals++
				return evals >= tt.trueAfter
			}, Options{MaxAttempts: tt.maxAttempts, Interval: time.Millisecond})

			if got != tt.want {
				t.Errorf("Until() = %v, want %v", got, tt.want)
			}
			if evals != tt.wantEvals {
				t.Errorf("condition evaluated %d times, want %d", evals, tt.wantEvals)
			}
		})
	}
}

func TestUntilCallbackOrder(t *testing.T) {
	var order []string
	Until(context.Background(), func() bool {
		order = append(order, "cond")
		return len(order) >= 5 // two full iterations, then success
	}, Options{
		Before:       func() { order = append(order, "before") },
		InLoopBefore: func() { order = append(order, "in-before") },
		InLoopAfter:  func() { order = append(order, "in-after") },
		After:        func() { order = append(order, "after") },
		MaxAttempts:  10,
		Interval:     time.Millisecond,
	})

	want := []string{"before", "in-before", "cond", "in-after", "in-before", "cond", "after"}
	if len(order) != len(want) {
		t.Fatalf("callback sequence %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("callback sequence %v, want %v", order, want)
		}
	}
}

func TestUntilAfterRunsOnFailure(t *testing.T) {
	afterRan := false
	got := Until(context.Background(), func() bool { return false }, Options{
		After:       func() { afterRan = true },
		MaxAttempts: 2,
		Interval:    time.Millisecond,
	})
	if got {
		t.Error("Until() should report false when the budget is exhausted")
	}
	if !afterRan {
		t.Error("After callback must run even when the condition never held")
	}
}

func TestUntilContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	evals := 0
	done := make(chan bool, 1)
	go func() {
		done <- Until(ctx, func() bool {
			evals++
			if evals == 2 {
				cancel()
			}
			return false
		}, Options{MaxAttempts: Unbounded, Interval: time.Millisecond})
	}()

	select {
	case got := <-done:
		if got {
			t.Error("cancelled poll must report false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not stop after context cancellation")
	}
	if evals != 2 {
		t.Errorf("condition evaluated %d times after cancellation, want 2", evals)
	}
}

func TestUntilNeverInterruptsRunningCheck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the first iteration

	evals := 0
	Until(ctx, func() bool {
		evals++
		return false
	}, Options{MaxAttempts: Unbounded, Interval: time.Millisecond})

	// Cancellation is observed between iterations, so the first check
	// still runs exactly once.
	if evals != 1 {
		t.Errorf("condition evaluated %d times, want 1", evals)
	}
}
