package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/config"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/history"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/logging"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/orchestrator"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/source"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/template"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/web"
)

var (
	cfgFile       string
	headless      bool
	dashboardPort int
)

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return config.DefaultConfigPath()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "gmailsender",
		Short: "Bulk HTML email sending through the Gmail web UI",
		Long: `gmailsender automates bulk sending of HTML emails from multiple Gmail
accounts by driving a real Chrome browser through each account's web UI:
login, compose, send. Accounts and recipients come from CSV sheets; each
account gets its own persistent browser profile and debugging port.

Run without a subcommand for the interactive menu.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, then $HOME/.gmailsender/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "run Chrome headless regardless of config")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(provisionCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func provisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Log every account in and persist its browser profile",
		Long: `Log each configured Gmail account in once so its browser profile holds an
authenticated session. Later send runs resume these sessions without
re-entering credentials.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision()
		},
	}
	cmd.Flags().IntVar(&dashboardPort, "dashboard", 0, "serve the progress dashboard on this port (0 = off)")
	return cmd
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send the configured email to every recipient from every account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend()
		},
	}
	cmd.Flags().IntVar(&dashboardPort, "dashboard", 0, "serve the progress dashboard on this port (0 = off)")
	return cmd
}

func statusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show outcome history and statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent outcomes to show")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local status dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	return cmd
}

// runMenu is the original interactive entry: pick one of the two
// operations by number.
func runMenu() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Gmail Sender")
	fmt.Println("============")
	fmt.Println("  1) Provision accounts")
	fmt.Println("  2) Send emails")
	fmt.Println()

	choice := prompt(reader, "Select an option [1-2]: ")
	switch choice {
	case "1":
		return runProvision()
	case "2":
		return runSend()
	default:
		return fmt.Errorf("unknown option %q", choice)
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func runInit() error {
	cfg := &config.Config{
		Accounts: config.AccountsConfig{
			File:        "accounts.csv",
			EmailCol:    "email",
			PasswordCol: "password",
			RecoveryCol: "recovery",
			EndRow:      -1,
		},
		Recipients: config.RecipientsConfig{
			File:     "recipients.csv",
			EmailCol: "email",
			EndRow:   -1,
		},
		Email: config.EmailConfig{
			TemplateFile: "email.html",
			Subject:      "Hello",
		},
		Browser: config.BrowserConfig{
			Headless: false,
			Parallel: 2,
			BasePort: 9223,
		},
	}

	path := resolveConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Fill in accounts.csv (email, password, recovery columns)")
	fmt.Println("  2. Fill in recipients.csv and email.html")
	fmt.Println("  3. Run 'gmailsender provision' to log accounts in")
	fmt.Println("  4. Run 'gmailsender send' to send emails")
	return nil
}

// setup loads config, applies flag overrides, prepares directories, and
// builds the logger and history store.
func setup() (*config.Config, *zap.Logger, *history.Store, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, nil, err
	}
	if headless {
		cfg.Browser.Headless = true
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(cfg.Options.LogFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	store, err := history.NewStore(cfg.Options.HistoryDB)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, store, nil
}

// startDashboard serves the dashboard in the background when requested.
func startDashboard(tracker *web.RunTracker, store *history.Store, logger *zap.Logger) {
	if dashboardPort == 0 {
		return
	}
	srv := web.NewServer(tracker, store)
	go func() {
		if err := srv.ListenAndServe(dashboardPort); err != nil {
			logger.Error("dashboard stopped", zap.Error(err))
		}
	}()
	fmt.Printf("Dashboard: http://127.0.0.1:%d\n", dashboardPort)
}

func runProvision() error {
	cfg, logger, store, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer store.Close()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	accounts, err := source.LoadAccounts(cfg.Accounts)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts in %s", cfg.Accounts.File)
	}

	tracker := web.NewRunTracker()
	run := tracker.Create("provision", len(accounts))
	startDashboard(tracker, store, logger)

	orch := orchestrator.New(cfg, logger, store, orchestrator.BrowserFactory(cfg, logger))
	orch.AttachProgress(run)

	logger.Info("provisioning accounts", zap.Int("accounts", len(accounts)))
	outcomes := orch.ProvisionAll(context.Background(), accounts)
	run.Complete()

	printSummary(outcomes)
	return nil
}

func runSend() error {
	cfg, logger, store, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer store.Close()

	if err := cfg.ValidateSend(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	accounts, err := source.LoadAccounts(cfg.Accounts)
	if err != nil {
		return err
	}
	recipients, err := source.LoadRecipients(cfg.Recipients)
	if err != nil {
		return err
	}
	if len(accounts) == 0 || len(recipients) == 0 {
		return fmt.Errorf("nothing to do: %d accounts, %d recipients", len(accounts), len(recipients))
	}

	msg, err := template.LoadMessage(cfg.Email.TemplateFile, cfg.Email.Subject)
	if err != nil {
		return err
	}

	tracker := web.NewRunTracker()
	run := tracker.Create("send", len(accounts)*len(recipients))
	startDashboard(tracker, store, logger)

	orch := orchestrator.New(cfg, logger, store, orchestrator.BrowserFactory(cfg, logger))
	orch.AttachProgress(run)

	logger.Info("sending emails",
		zap.Int("accounts", len(accounts)), zap.Int("recipients", len(recipients)))
	outcomes := orch.SendToAll(context.Background(), accounts, recipients, msg)
	run.Complete()

	printSummary(outcomes)
	return nil
}

func printSummary(outcomes []*history.Outcome) {
	ok, failed := 0, 0
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		if o.Succeeded() {
			ok++
		} else {
			failed++
		}
	}

	fmt.Println()
	fmt.Printf("Done: %d account(s) succeeded, %d failed\n", ok, failed)
	for _, o := range outcomes {
		if o == nil || o.Succeeded() {
			continue
		}
		line := fmt.Sprintf("  %s: %s", o.Account, o.Status)
		if o.Screenshot != "" {
			line += " (screenshot: " + o.Screenshot + ")"
		}
		fmt.Println(line)
	}
}

func runStatus(limit int) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.Options.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Println("Statistics")
	fmt.Println("==========")
	for status, count := range stats.ByStatus {
		fmt.Printf("  %-14s %d\n", status, count)
	}
	fmt.Printf("  %-14s %d\n", "emails sent", stats.TotalSent)
	fmt.Println()

	outcomes, err := store.Recent(limit)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Println("No outcomes recorded yet.")
		return nil
	}

	fmt.Println("Recent outcomes")
	fmt.Println("===============")
	for _, o := range outcomes {
		fmt.Printf("  %s  %-28s %-10s %-14s sent=%d failed=%d",
			o.CreatedAt.Format("2006-01-02 15:04"), o.Account, o.Operation, o.Status, o.Sent, o.Failed)
		if o.Error != "" {
			fmt.Printf("  (%s)", o.Error)
		}
		fmt.Println()
	}
	return nil
}

func runServe(port int) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.Options.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Dashboard: http://127.0.0.1:%d\n", port)
	return web.NewServer(web.NewRunTracker(), store).ListenAndServe(port)
}
