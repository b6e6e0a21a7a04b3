// Package web serves a read-only local dashboard over run progress and
// outcome history.
package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
)

// Run tracks one in-flight provisioning or send run.
type Run struct {
	ID          string    `json:"id"`
	Operation   string    `json:"operation"`
	Status      RunStatus `json:"status"`
	Progress    int       `json:"progress"`
	Sent        int       `json:"sent"`
	Failed      int       `json:"failed"`
	Total       int       `json:"total"`
	Current     string    `json:"current"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	mu sync.Mutex
}

// Update records progress. Satisfies the orchestrator's ProgressSink.
func (r *Run) Update(sent, failed int, current string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Sent = sent
	r.Failed = failed
	r.Current = current
	if r.Total > 0 {
		r.Progress = ((sent + failed) * 100) / r.Total
	}
}

// Complete marks the run as finished.
func (r *Run) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Status = RunStatusCompleted
	r.CompletedAt = time.Now()
	r.Progress = 100
	r.Current = ""
}

// snapshot returns a copy safe for serialization.
func (r *Run) snapshot() Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Run{
		ID:          r.ID,
		Operation:   r.Operation,
		Status:      r.Status,
		Progress:    r.Progress,
		Sent:        r.Sent,
		Failed:      r.Failed,
		Total:       r.Total,
		Current:     r.Current,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

// RunTracker holds the known runs of this process.
type RunTracker struct {
	runs map[string]*Run
	mu   sync.RWMutex
}

func NewRunTracker() *RunTracker {
	return &RunTracker{runs: make(map[string]*Run)}
}

// Create registers a new running run covering total units of work.
func (t *RunTracker) Create(operation string, total int) *Run {
	t.mu.Lock()
	defer t.mu.Unlock()

	run := &Run{
		ID:        uuid.New().String(),
		Operation: operation,
		Status:    RunStatusRunning,
		Total:     total,
		StartedAt: time.Now(),
	}
	t.runs[run.ID] = run
	return run
}

// Active returns the currently running run, or nil.
func (t *RunTracker) Active() *Run {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, run := range t.runs {
		if run.Status == RunStatusRunning {
			return run
		}
	}
	return nil
}

// Latest returns the most recently started run, or nil.
func (t *RunTracker) Latest() *Run {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var latest *Run
	for _, run := range t.runs {
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	return latest
}
