package web

import (
	"testing"
	"time"
)

func TestRunUpdateProgress(t *testing.T) {
	tracker := NewRunTracker()
	run := tracker.Create("send", 4)

	if run.ID == "" {
		t.Error("run has no ID")
	}
	if run.Status != RunStatusRunning {
		t.Errorf("new run status = %v", run.Status)
	}

	run.Update(1, 0, "r1@x.com")
	if run.Progress != 25 {
		t.Errorf("Progress = %d after 1/4, want 25", run.Progress)
	}

	run.Update(2, 1, "r3@x.com")
	snap := run.snapshot()
	if snap.Progress != 75 || snap.Sent != 2 || snap.Failed != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Current != "r3@x.com" {
		t.Errorf("Current = %q", snap.Current)
	}
}

func TestRunComplete(t *testing.T) {
	tracker := NewRunTracker()
	run := tracker.Create("provision", 2)
	run.Update(1, 1, "b@gmail.com")
	run.Complete()

	snap := run.snapshot()
	if snap.Status != RunStatusCompleted {
		t.Errorf("Status = %v", snap.Status)
	}
	if snap.Progress != 100 {
		t.Errorf("Progress = %d, want 100", snap.Progress)
	}
	if snap.Current != "" {
		t.Errorf("Current = %q, want cleared", snap.Current)
	}
	if snap.CompletedAt.IsZero() {
		t.Error("CompletedAt not set")
	}
}

func TestRunUpdateZeroTotal(t *testing.T) {
	tracker := NewRunTracker()
	run := tracker.Create("send", 0)
	run.Update(0, 0, "x") // must not divide by zero
	if run.Progress != 0 {
		t.Errorf("Progress = %d", run.Progress)
	}
}

func TestTrackerActiveAndLatest(t *testing.T) {
	tracker := NewRunTracker()
	if tracker.Active() != nil || tracker.Latest() != nil {
		t.Error("empty tracker should have no runs")
	}

	first := tracker.Create("provision", 1)
	first.StartedAt = time.Now().Add(-time.Minute)
	first.Complete()

	second := tracker.Create("send", 3)

	if got := tracker.Active(); got == nil || got.ID != second.ID {
		t.Errorf("Active() = %v, want the running run", got)
	}
	if got := tracker.Latest(); got == nil || got.ID != second.ID {
		t.Errorf("Latest() = %v, want the newest run", got)
	}

	second.Complete()
	if tracker.Active() != nil {
		t.Error("Active() should be nil once every run completed")
	}
}
