package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"peoplescraper/pkg/auth"
	"peoplescraper/pkg/browser"
	"peoplescraper/pkg/checkpoint"
	"peoplescraper/pkg/config"
	"peoplescraper/pkg/crawler"
	"peoplescraper/pkg/models"
	"peoplescraper/pkg/pacing"
	"peoplescraper/pkg/ratelimit"
	"peoplescraper/pkg/retry"
	"peoplescraper/pkg/storage"
	"peoplescraper/pkg/ui"
)

// checkpointName names the session checkpoint file of the crawl command.
const checkpointName = "crawl"

var (
	// Crawl command flags
	cities        []string
	companies     []string
	pageLimit     int
	accountName   string
	inProgressDir string
	completedDir  string
	dedupe        bool
	showBrowser   bool
	resumeCrawl   bool
	forceRestart  bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Collect people-search results for every city and company",
	Long: `Crawl the people search once per (city, company) pair, cities outer and
companies inner, and write one JSON file per pair into the completed
directory. Partial results are kept in the in-progress directory after
every page.

A run that is blocked by the site stops at once and exits with status 2.
Continue it later with --resume; it picks up at the page where it stopped.`,
	Example: `  # Crawl two companies in one city
  peoplescraper crawl --city Berlin --company Acme --company Globex

  # Crawl only the first 3 result pages of each pair
  peoplescraper crawl --city Berlin --company Acme --page-limit 3

  # Continue a blocked run
  peoplescraper crawl --resume

  # Discard a saved session and start over
  peoplescraper crawl --city Berlin --company Acme --force-restart`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringSliceVar(&cities, "city", nil, "city to filter by (repeatable)")
	crawlCmd.Flags().StringSliceVar(&companies, "company", nil, "company to filter by (repeatable)")
	crawlCmd.Flags().IntVar(&pageLimit, "page-limit", 0, "crawl at most this many result pages per pair (0 discovers the last page)")
	crawlCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	crawlCmd.Flags().StringVar(&inProgressDir, "in-progress-dir", "", "directory for per-page snapshots")
	crawlCmd.Flags().StringVarP(&completedDir, "output", "o", "", "directory for finalized results")
	crawlCmd.Flags().BoolVar(&dedupe, "dedupe", false, "drop duplicate records of a pair before saving it")
	crawlCmd.Flags().BoolVar(&showBrowser, "show-browser", false, "run the browser with a visible window")
	crawlCmd.Flags().BoolVar(&resumeCrawl, "resume", false, "continue the saved session")
	crawlCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "discard the saved session and start over")
	crawlCmd.MarkFlagsMutuallyExclusive("resume", "force-restart")

	// crawl is the default command
	rootCmd.RunE = crawlCmd.RunE
	rootCmd.Args = cobra.NoArgs
	rootCmd.Flags().AddFlagSet(crawlCmd.Flags())
}

func crawlOverrides() *config.Config {
	return &config.Config{
		Credentials: config.CredentialsConfig{Account: accountName},
		Search: config.SearchConfig{
			Cities:    cities,
			Companies: companies,
			PageLimit: pageLimit,
		},
		Output: config.OutputConfig{
			InProgressDirectory: inProgressDir,
			CompletedDirectory:  completedDir,
			Dedupe:              dedupe,
		},
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, crawlOverrides())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if showBrowser {
		cfg.Browser.Headless = false
	}

	log, err := initLogger(cfg)
	if err != nil {
		return err
	}

	checkpoints, err := checkpoint.NewManager(checkpointName)
	if err != nil {
		return err
	}
	checkpoints.WithLogger(log)

	session, err := openSession(checkpoints, &cfg.Search, resumeCrawl, forceRestart)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	account, err := resolveAccount(cfg)
	if err != nil {
		ui.PrintError("No account credentials found")
		fmt.Fprintln(ui.Output(), "\nStore an account with:")
		fmt.Fprintln(ui.Output(), "  peoplescraper auth login")
		fmt.Fprintf(ui.Output(), "\nor set %s and %s.\n", auth.EnvIdentifier, auth.EnvPassphrase)
		return err
	}
	ui.PrintInfo("Account", account.Identifier)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewManager(cfg.Output.InProgressDirectory, cfg.Output.CompletedDirectory, log)
	if err != nil {
		return err
	}

	chrome, err := browser.NewChrome(ctx, browser.ChromeOptions{
		Headless:    cfg.Browser.Headless,
		ExecPath:    cfg.Browser.ExecPath,
		UserDataDir: cfg.Browser.UserDataDir,
		UserAgent:   cfg.Browser.UserAgent,
	})
	if err != nil {
		return err
	}
	defer chrome.Close()

	retrier := retry.NewRetrier(&retry.Config{
		MaxAttempts: cfg.Retry.MaxTries,
		Backoff:     retry.NewBackoff(cfg.Retry.Backoff, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay),
		RetryIf:     retry.DefaultRetryIf,
		Logger:      log,
	})

	tracker := ui.NewStatusTracker()
	opts := crawler.Options{
		Browser:        chrome,
		Selectors:      cfg.Browser.Selectors,
		Account:        *account,
		BaseURL:        cfg.Search.BaseURL,
		Storage:        store,
		Pacer:          pacing.NewPacer(chrome, cfg.Browser.Selectors.ProfileLink, cfg.Pacing, log),
		Limiter:        ratelimit.New(cfg.RateLimit.Strategy, cfg.RateLimit.PagesPerHour, cfg.RateLimit.BurstSize),
		Retrier:        retrier,
		WaitTimeout:    cfg.Browser.WaitTimeout,
		MatchThreshold: cfg.Search.MatchThreshold,
		Dedupe:         cfg.Output.Dedupe,
		Logger:         log,
	}
	if session.resumed {
		opts.RunID = session.checkpoint.RunID
	}
	opts.OnProgress = func(p crawler.Progress) {
		tracker.Update(p.State)
		if session.checkpoint == nil {
			return
		}
		if err := checkpoints.Update(session.checkpoint, p.TargetIndex, p.State, p.Files); err != nil {
			log.WarnWithFields("Failed to update session checkpoint", map[string]interface{}{"error": err.Error()})
		}
	}

	ctrl, err := crawler.New(opts)
	if err != nil {
		return err
	}

	if session.resumed {
		cp := session.checkpoint
		if err := ctrl.Restore(crawler.Progress{
			RunID:       cp.RunID,
			TargetIndex: cp.TargetIndex,
			State:       cp.State,
			Files:       cp.Files,
		}); err != nil {
			return err
		}
		ui.PrintWarning("Resuming run", cp.RunID)
	} else {
		session.checkpoint, err = checkpoints.Create(ctrl.RunID(), cfg.Search.Cities, cfg.Search.Companies, cfg.Search.PageLimit)
		if err != nil {
			return err
		}
	}

	ui.PrintInfo("Run", ctrl.RunID())
	ui.PrintInfo("Targets", fmt.Sprintf("%d", len(models.Targets(cfg.Search.Cities, cfg.Search.Companies))))

	result := ctrl.Run(ctx, cfg.Search.Cities, cfg.Search.Companies, cfg.Search.PageLimit)

	fmt.Fprintln(ui.Output())
	total := ui.PrintSummary(ui.Output(), summaryRows(cfg.Search.Cities, cfg.Search.Companies, result))
	notifier := ui.NewNotifier(cfg.Notifications)

	switch result.Outcome {
	case crawler.OutcomeCompleted:
		if err := checkpoints.Delete(); err != nil {
			log.WarnWithFields("Failed to delete session checkpoint", map[string]interface{}{"error": err.Error()})
		}
		notifier.Completed(len(result.Files), total)
		ui.PrintSuccess("Data collection completed")
	case crawler.OutcomeBlocked:
		target, page := "", 0
		if result.Pending != nil {
			target, page = result.Pending.Target.String(), result.Pending.CurrentPage
		}
		notifier.Blocked(target, page)
	default:
		notifier.Failed(result.Err)
	}
	return outcomeError(result)
}

// session is the checkpoint a crawl writes to, and whether it continues one.
type session struct {
	checkpoint *checkpoint.Checkpoint
	resumed    bool
}

// openSession applies --resume and --force-restart. A resumed checkpoint
// replaces the configured targets and page limit.
func openSession(m *checkpoint.Manager, search *config.SearchConfig, resume, force bool) (*session, error) {
	if force {
		if err := m.Delete(); err != nil {
			return nil, err
		}
		return &session{}, nil
	}

	cp, err := m.Load()
	if err != nil {
		return nil, err
	}

	if !resume {
		if cp != nil {
			return nil, fmt.Errorf("an unfinished session from run %s exists at %s; use --resume to continue it or --force-restart to discard it", cp.RunID, m.Path())
		}
		return &session{}, nil
	}

	if cp == nil {
		ui.PrintWarning("No saved session found, starting a new run")
		return &session{}, nil
	}
	if (len(search.Cities) > 0 || len(search.Companies) > 0) && !cp.Matches(search.Cities, search.Companies, search.PageLimit) {
		ui.PrintWarning("Configured targets differ from the saved session, resuming the saved targets")
	}
	search.Cities = cp.Cities
	search.Companies = cp.Companies
	search.PageLimit = cp.PageLimit
	return &session{checkpoint: cp, resumed: true}, nil
}

// resolveAccount prefers credentials given in the environment, then the
// credential stores.
func resolveAccount(cfg *config.Config) (*auth.Account, error) {
	creds := cfg.Credentials
	if creds.Identifier != "" && creds.Passphrase != "" {
		return &auth.Account{Identifier: creds.Identifier, Passphrase: creds.Passphrase}, nil
	}

	manager, err := auth.NewManager(creds.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	account, err := manager.Resolve(creds.Account)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// summaryRows lists finalized targets followed by the pending one.
func summaryRows(cities, companies []string, result *crawler.Result) []ui.SummaryRow {
	targets := models.Targets(cities, companies)
	rows := make([]ui.SummaryRow, 0, len(result.Files)+1)
	for i, file := range result.Files {
		row := ui.SummaryRow{Status: string(models.StatusDone), File: filepath.Base(file)}
		if i < len(targets) {
			row.Target = targets[i].String()
		}
		if i < len(result.Records) {
			row.Records = len(result.Records[i])
		}
		rows = append(rows, row)
	}

	if p := result.Pending; p != nil {
		row := ui.SummaryRow{
			Target:  p.Target.String(),
			Records: len(p.Collected),
			Skipped: p.SkippedPages,
			Status:  string(result.Outcome),
		}
		if p.CheckpointPath != "" {
			row.File = filepath.Base(p.CheckpointPath)
		}
		rows = append(rows, row)
	}
	return rows
}

// outcomeError maps a run outcome to the process exit code.
func outcomeError(result *crawler.Result) error {
	switch result.Outcome {
	case crawler.OutcomeCompleted:
		return nil
	case crawler.OutcomeBlocked:
		return &exitError{code: exitBlocked, err: result.Err}
	default:
		err := result.Err
		if err == nil {
			err = errors.New("data collection failed")
		}
		return &exitError{code: exitFailed, err: err}
	}
}
