package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	defaultBasePort = 9223
	defaultParallel = 2
	defaultEndRow   = -1 // sentinel: read to the end of the sheet
	defaultLogFile  = "gmailsender.log"
	defaultDBFile   = "history.db"
	defaultSubject  = "Hello"
)

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	Accounts   AccountsConfig   `yaml:"accounts"`
	Recipients RecipientsConfig `yaml:"recipients"`
	Email      EmailConfig      `yaml:"email"`
	Browser    BrowserConfig    `yaml:"browser"`
	Options    Options          `yaml:"options,omitempty"`
}

// AccountsConfig describes the tabular source of Gmail credentials.
// Column names are configurable so arbitrary exports can be used as-is.
type AccountsConfig struct {
	File        string `yaml:"file"`
	EmailCol    string `yaml:"email_col"`
	PasswordCol string `yaml:"password_col"`
	RecoveryCol string `yaml:"recovery_col,omitempty"`
	StartRow    int    `yaml:"start_row,omitempty"`
	EndRow      int    `yaml:"end_row,omitempty"` // -1 = to the end
}

// RecipientsConfig describes the tabular source of recipient addresses.
type RecipientsConfig struct {
	File     string `yaml:"file"`
	EmailCol string `yaml:"email_col"`
	StartRow int    `yaml:"start_row,omitempty"`
	EndRow   int    `yaml:"end_row,omitempty"`
}

// EmailConfig holds the message template settings.
type EmailConfig struct {
	TemplateFile string `yaml:"template_file"`
	Subject      string `yaml:"subject"`
}

// BrowserConfig holds Chrome automation settings shared by all sessions.
type BrowserConfig struct {
	Headless      bool   `yaml:"headless"`
	Parallel      int    `yaml:"parallel"`       // worker pool size
	BasePort      int    `yaml:"base_port"`      // first remote-debugging port
	ProfileDir    string `yaml:"profile_dir"`    // persistent per-account Chrome profiles
	ScreenshotDir string `yaml:"screenshot_dir"` // failure screenshots
}

type Options struct {
	LogFile    string `yaml:"log_file,omitempty"`
	HistoryDB  string `yaml:"history_db,omitempty"`
	DailyLimit int    `yaml:"daily_limit,omitempty"` // max sends per account per day, 0 = unlimited
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".gmailsender", "config.yaml")
}

func Load(path string) (*Config, error) {
	if err := checkFilePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Parallel == 0 {
		c.Browser.Parallel = defaultParallel
	}
	if c.Browser.BasePort == 0 {
		c.Browser.BasePort = defaultBasePort
	}
	if c.Browser.ProfileDir == "" {
		c.Browser.ProfileDir = "GmailProfiles"
	}
	if c.Browser.ScreenshotDir == "" {
		c.Browser.ScreenshotDir = "ErrorScreenshots"
	}
	if c.Options.LogFile == "" {
		c.Options.LogFile = defaultLogFile
	}
	if c.Options.HistoryDB == "" {
		c.Options.HistoryDB = defaultDBFile
	}
	if c.Email.Subject == "" {
		c.Email.Subject = defaultSubject
	}
	if c.Accounts.EndRow == 0 {
		c.Accounts.EndRow = defaultEndRow
	}
	if c.Recipients.EndRow == 0 {
		c.Recipients.EndRow = defaultEndRow
	}
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	if c.Accounts.File == "" {
		return fmt.Errorf("accounts: file is required")
	}
	if c.Accounts.EmailCol == "" || c.Accounts.PasswordCol == "" {
		return fmt.Errorf("accounts: email_col and password_col are required")
	}
	if c.Browser.Parallel < 1 {
		return fmt.Errorf("browser: parallel must be at least 1")
	}
	if c.Browser.BasePort < 1024 || c.Browser.BasePort > 65000 {
		return fmt.Errorf("browser: base_port %d out of range", c.Browser.BasePort)
	}
	return nil
}

// ValidateSend checks the extra settings the send operation needs.
func (c *Config) ValidateSend() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Recipients.File == "" {
		return fmt.Errorf("recipients: file is required")
	}
	if c.Recipients.EmailCol == "" {
		return fmt.Errorf("recipients: email_col is required")
	}
	if c.Email.TemplateFile == "" {
		return fmt.Errorf("email: template_file is required")
	}
	return nil
}

// EnsureDirs creates the filesystem outputs the run needs.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Browser.ProfileDir, c.Browser.ScreenshotDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
