package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"peoplescraper/pkg/config"
	"peoplescraper/pkg/logger"
	"peoplescraper/pkg/ui"
)

const (
	exitCompleted = 0
	exitFailed    = 1
	exitBlocked   = 2
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	notifications bool
	quiet         bool
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "peoplescraper",
	Short: "Collect names and positions from people-search results",
	Long: `peoplescraper signs in to a professional social network, filters the
people search by city and by company, and saves the name and position of
every result, one JSON file per (city, company) pair.

Features:
  - Bounded retries per page, per login and per run
  - Snapshots after every page so a block or crash loses nothing
  - Randomized pacing between pages
  - Resume a blocked run from its last saved page
  - Credentials from the system keychain, an encrypted file or the environment`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetOutput(nopWriter{})
		}
		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// Execute runs the command line and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitCompleted
	}
	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintln(os.Stderr, exit.err)
		}
		return exit.code
	}
	fmt.Fprintln(os.Stderr, err)
	return exitFailed
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.peoplescraper.yaml or ~/.config/peoplescraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "announce the end of a run")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress terminal output except errors")

	rootCmd.SetVersionTemplate(`peoplescraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration with the global flags applied on top.
func loadConfig(cmd *cobra.Command, overrides *config.Config) (*config.Config, error) {
	if overrides == nil {
		overrides = &config.Config{}
	}
	if logLevel != "" {
		overrides.Logging.Level = logLevel
	}

	cfg, err := config.Load(configFile, overrides)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("notifications") {
		cfg.Notifications.Enabled = notifications
	}
	return cfg, nil
}

// initLogger installs the global logger for cfg and returns it.
func initLogger(cfg *config.Config) (logger.Logger, error) {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.GetLogger(), nil
}
