package history

import (
	"path/filepath"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t)

	first := &Outcome{
		Account:   "a@gmail.com",
		Operation: OpProvision,
		Status:    StatusProvisioned,
	}
	if err := store.RecordOutcome(first); err != nil {
		t.Fatalf("RecordOutcome() error: %v", err)
	}
	if first.ID == 0 {
		t.Error("RecordOutcome() did not fill in the row ID")
	}

	second := &Outcome{
		Account:    "b@gmail.com",
		Operation:  OpSend,
		Status:     StatusSendFailed,
		Failed:     3,
		Screenshot: "/shots/b.png",
		Error:      "send confirmation never appeared",
	}
	if err := store.RecordOutcome(second); err != nil {
		t.Fatal(err)
	}

	recent, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent() returned %d rows, want 2", len(recent))
	}

	// Most recent first.
	got := recent[0]
	if got.Account != "b@gmail.com" || got.Status != StatusSendFailed {
		t.Errorf("newest row = %+v", got)
	}
	if got.Failed != 3 || got.Screenshot != "/shots/b.png" || got.Error == "" {
		t.Errorf("failure details not round-tripped: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}

	if recent[1].Screenshot != "" || recent[1].Error != "" {
		t.Errorf("empty optional fields came back non-empty: %+v", recent[1])
	}
}

func TestRecentLimit(t *testing.T) {
	store := openStore(t)
	for i := 0; i < 5; i++ {
		if err := store.RecordOutcome(&Outcome{
			Account: "a@gmail.com", Operation: OpSend, Status: StatusCompleted,
		}); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := store.Recent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Errorf("Recent(3) returned %d rows", len(recent))
	}
}

func TestDailyCounts(t *testing.T) {
	store := openStore(t)

	// Unseen account reads as zero, not an error.
	sent, err := store.DailySent("a@gmail.com")
	if err != nil {
		t.Fatalf("DailySent() error: %v", err)
	}
	if sent != 0 {
		t.Errorf("DailySent() = %d for unseen account, want 0", sent)
	}

	if err := store.AddDailySent("a@gmail.com", 2); err != nil {
		t.Fatal(err)
	}
	if err := store.AddDailySent("a@gmail.com", 1); err != nil {
		t.Fatal(err)
	}
	if err := store.AddDailySent("b@gmail.com", 5); err != nil {
		t.Fatal(err)
	}

	sent, err = store.DailySent("a@gmail.com")
	if err != nil {
		t.Fatal(err)
	}
	if sent != 3 {
		t.Errorf("DailySent(a) = %d, want 3", sent)
	}

	sent, err = store.DailySent("b@gmail.com")
	if err != nil {
		t.Fatal(err)
	}
	if sent != 5 {
		t.Errorf("DailySent(b) = %d, want 5", sent)
	}
}

func TestStats(t *testing.T) {
	store := openStore(t)

	rows := []*Outcome{
		{Account: "a@gmail.com", Operation: OpSend, Status: StatusCompleted, Sent: 10},
		{Account: "b@gmail.com", Operation: OpSend, Status: StatusCompleted, Sent: 7},
		{Account: "c@gmail.com", Operation: OpSend, Status: StatusSendFailed, Failed: 4},
		{Account: "d@gmail.com", Operation: OpProvision, Status: StatusDisabled},
	}
	for _, o := range rows {
		if err := store.RecordOutcome(o); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.ByStatus[StatusCompleted] != 2 {
		t.Errorf("completed count = %d, want 2", stats.ByStatus[StatusCompleted])
	}
	if stats.ByStatus[StatusDisabled] != 1 {
		t.Errorf("disabled count = %d, want 1", stats.ByStatus[StatusDisabled])
	}
	if stats.TotalSent != 17 {
		t.Errorf("TotalSent = %d, want 17", stats.TotalSent)
	}
}

func TestOutcomeSucceeded(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusProvisioned, true},
		{StatusCompleted, true},
		{StatusDisabled, false},
		{StatusLoginFailed, false},
		{StatusSendFailed, false},
	}
	for _, tt := range tests {
		o := &Outcome{Status: tt.status}
		if got := o.Succeeded(); got != tt.want {
			t.Errorf("Succeeded() with %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}
