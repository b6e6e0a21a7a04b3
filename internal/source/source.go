// Package source loads account credentials and recipient addresses from
// CSV exports with configurable column names and optional row slicing.
package source

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/config"
)

// Credential is one Gmail account row. Immutable once loaded.
type Credential struct {
	Email         string
	Password      string
	RecoveryEmail string
}

// Table is a parsed CSV file: a header row mapping column names to
// indices, plus the data rows.
type Table struct {
	columns map[string]int
	rows    [][]string
}

func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return &Table{columns: columns, rows: records[1:]}, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Slice keeps rows [start, end]; end = -1 means to the last row. Bounds
// outside the table are clamped rather than rejected.
func (t *Table) Slice(start, end int) *Table {
	if start < 0 {
		start = 0
	}
	if end == -1 || end >= len(t.rows) {
		end = len(t.rows) - 1
	}
	if start > end {
		return &Table{columns: t.columns}
	}
	return &Table{columns: t.columns, rows: t.rows[start : end+1]}
}

// Column returns the trimmed values of the named column (case-insensitive).
func (t *Table) Column(name string) ([]string, error) {
	idx, ok := t.columns[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}

	values := make([]string, 0, len(t.rows))
	for _, row := range t.rows {
		v := ""
		if idx < len(row) {
			v = strings.TrimSpace(row[idx])
		}
		values = append(values, v)
	}
	return values, nil
}

// LoadAccounts reads the configured account sheet into credentials,
// honoring the configured row slice. Rows with an empty address are
// skipped.
func LoadAccounts(cfg config.AccountsConfig) ([]Credential, error) {
	table, err := LoadTable(cfg.File)
	if err != nil {
		return nil, err
	}
	table = table.Slice(cfg.StartRow, cfg.EndRow)

	emails, err := table.Column(cfg.EmailCol)
	if err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}
	passwords, err := table.Column(cfg.PasswordCol)
	if err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}

	var recoveries []string
	if cfg.RecoveryCol != "" {
		recoveries, err = table.Column(cfg.RecoveryCol)
		if err != nil {
			return nil, fmt.Errorf("accounts: %w", err)
		}
	}

	creds := make([]Credential, 0, len(emails))
	for i, email := range emails {
		if email == "" {
			continue
		}
		c := Credential{Email: email, Password: passwords[i]}
		if recoveries != nil {
			c.RecoveryEmail = recoveries[i]
		}
		creds = append(creds, c)
	}
	return creds, nil
}

// LoadRecipients reads the configured recipient sheet, honoring the row
// slice. Empty rows are skipped.
func LoadRecipients(cfg config.RecipientsConfig) ([]string, error) {
	table, err := LoadTable(cfg.File)
	if err != nil {
		return nil, err
	}
	table = table.Slice(cfg.StartRow, cfg.EndRow)

	emails, err := table.Column(cfg.EmailCol)
	if err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}

	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if e != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

// LocalPart returns the part of an address before the @, used to derive
// per-account profile directory names.
func LocalPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
