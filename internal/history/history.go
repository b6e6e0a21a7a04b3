// Package history persists per-account outcome records and daily send
// counters in a local sqlite database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Status string

const (
	StatusProvisioned Status = "provisioned"
	StatusCompleted   Status = "completed"
	StatusDisabled    Status = "disabled"
	StatusLoginFailed Status = "login_failed"
	StatusSendFailed  Status = "send_failed"
)

type Operation string

const (
	OpProvision Operation = "provision"
	OpSend      Operation = "send"
)

// Outcome is one account's result for one run.
type Outcome struct {
	ID         int64
	Account    string
	Operation  Operation
	Status     Status
	Sent       int
	Failed     int
	Skipped    int // recipients skipped by the daily limit
	Screenshot string
	Error      string
	CreatedAt  time.Time
}

// Succeeded reports whether the account finished its work.
func (o *Outcome) Succeeded() bool {
	return o.Status == StatusProvisioned || o.Status == StatusCompleted
}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account TEXT NOT NULL,
		operation TEXT NOT NULL,
		status TEXT NOT NULL,
		sent INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		screenshot TEXT,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_account ON outcomes(account);
	CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status);

	CREATE TABLE IF NOT EXISTS daily_counts (
		account TEXT NOT NULL,
		day TEXT NOT NULL,
		count INTEGER DEFAULT 0,
		PRIMARY KEY (account, day)
	);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordOutcome inserts one outcome row and fills in its ID.
func (s *Store) RecordOutcome(o *Outcome) error {
	res, err := s.db.Exec(`
		INSERT INTO outcomes (account, operation, status, sent, failed, skipped, screenshot, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Account, o.Operation, o.Status, o.Sent, o.Failed, o.Skipped, o.Screenshot, o.Error)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	o.ID, _ = res.LastInsertId()
	return nil
}

func day(t time.Time) string { return t.Format("2006-01-02") }

// AddDailySent adds n to the account's counter for today.
func (s *Store) AddDailySent(account string, n int) error {
	_, err := s.db.Exec(`
		INSERT INTO daily_counts (account, day, count) VALUES (?, ?, ?)
		ON CONFLICT(account, day) DO UPDATE SET count = count + excluded.count`,
		account, day(time.Now()), n)
	if err != nil {
		return fmt.Errorf("failed to update daily count: %w", err)
	}
	return nil
}

// DailySent returns how many emails the account has sent today.
func (s *Store) DailySent(account string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT count FROM daily_counts WHERE account = ? AND day = ?`,
		account, day(time.Now())).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read daily count: %w", err)
	}
	return count, nil
}

func scanOutcome(scanner interface{ Scan(...any) error }) (*Outcome, error) {
	var o Outcome
	var screenshot, errStr sql.NullString
	var createdAt sql.NullTime

	err := scanner.Scan(&o.ID, &o.Account, &o.Operation, &o.Status,
		&o.Sent, &o.Failed, &o.Skipped, &screenshot, &errStr, &createdAt)
	if err != nil {
		return nil, err
	}

	o.Screenshot = screenshot.String
	o.Error = errStr.String
	o.CreatedAt = createdAt.Time
	return &o, nil
}

// Recent returns the newest outcome rows, most recent first.
func (s *Store) Recent(limit int) ([]*Outcome, error) {
	rows, err := s.db.Query(`
		SELECT id, account, operation, status, sent, failed, skipped, screenshot, error, created_at
		FROM outcomes ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Stats aggregates outcome counts by status plus total sends.
type Stats struct {
	ByStatus  map[Status]int
	TotalSent int
}

func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ByStatus: make(map[Status]int)}

	rows, err := s.db.Query(`SELECT status, COUNT(*), COALESCE(SUM(sent), 0) FROM outcomes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status Status
		var count, sent int
		if err := rows.Scan(&status, &count, &sent); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
		stats.TotalSent += sent
	}
	return stats, rows.Err()
}
