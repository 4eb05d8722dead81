package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"peoplescraper/pkg/browser"
)

// Config holds all configuration options for the people-search crawler
type Config struct {
	// Account used to sign in
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// What to crawl
	Search SearchConfig `yaml:"search" json:"search"`

	// Where snapshots and results go
	Output OutputConfig `yaml:"output" json:"output"`

	// Bounded retry settings shared by login, page and run retries
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Anti-detection pacing
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// Navigation budget
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Browser automation
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CredentialsConfig selects where the account comes from. Identifier and
// Passphrase are only filled from the environment, never written to disk.
type CredentialsConfig struct {
	Identifier string `yaml:"-" json:"-"`
	Passphrase string `yaml:"-" json:"-"`
	// Store is one of auto, env, keyring, file
	Store   string `yaml:"store" json:"store"`
	Account string `yaml:"account" json:"account"`
}

// SearchConfig lists the targets of a run
type SearchConfig struct {
	Cities    []string `yaml:"cities" json:"cities"`
	Companies []string `yaml:"companies" json:"companies"`
	// PageLimit overrides the discovered last page when > 0
	PageLimit int    `yaml:"page_limit" json:"page_limit"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
	// MatchThreshold is the minimum similarity for a filter suggestion
	MatchThreshold float64 `yaml:"match_threshold" json:"match_threshold"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	InProgressDirectory string `yaml:"in_progress_directory" json:"in_progress_directory"`
	CompletedDirectory  string `yaml:"completed_directory" json:"completed_directory"`
	Dedupe              bool   `yaml:"dedupe" json:"dedupe"`
}

// RetryConfig holds the bounded retry settings
type RetryConfig struct {
	MaxTries  int           `yaml:"max_tries" json:"max_tries"`
	Backoff   string        `yaml:"backoff" json:"backoff"`
	BaseDelay time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay" json:"max_delay"`
}

// PacingConfig holds the randomized delay ranges of the pacing policy
type PacingConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	SettleMin      time.Duration `yaml:"settle_min" json:"settle_min"`
	SettleMax      time.Duration `yaml:"settle_max" json:"settle_max"`
	FilterPauseMin time.Duration `yaml:"filter_pause_min" json:"filter_pause_min"`
	FilterPauseMax time.Duration `yaml:"filter_pause_max" json:"filter_pause_max"`
	LongPause      time.Duration `yaml:"long_pause" json:"long_pause"`
	DwellMin       time.Duration `yaml:"dwell_min" json:"dwell_min"`
	DwellMax       time.Duration `yaml:"dwell_max" json:"dwell_max"`
	ScrollMinPx    int           `yaml:"scroll_min_px" json:"scroll_min_px"`
	ScrollMaxPx    int           `yaml:"scroll_max_px" json:"scroll_max_px"`
	Seed           int64         `yaml:"seed" json:"seed"`
}

// RateLimitConfig caps result page navigations
type RateLimitConfig struct {
	// Strategy is token_bucket or sliding_window
	Strategy string `yaml:"strategy" json:"strategy"`
	// PagesPerHour of 0 disables the budget
	PagesPerHour int `yaml:"pages_per_hour" json:"pages_per_hour"`
	BurstSize    int `yaml:"burst_size" json:"burst_size"`
}

// BrowserConfig holds browser automation settings
type BrowserConfig struct {
	Headless    bool              `yaml:"headless" json:"headless"`
	ExecPath    string            `yaml:"exec_path" json:"exec_path"`
	UserDataDir string            `yaml:"user_data_dir" json:"user_data_dir"`
	UserAgent   string            `yaml:"user_agent" json:"user_agent"`
	WaitTimeout time.Duration     `yaml:"wait_timeout" json:"wait_timeout"`
	Selectors   browser.Selectors `yaml:"selectors" json:"selectors"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnBlocked        bool   `yaml:"on_blocked" json:"on_blocked"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Credentials: CredentialsConfig{
			Store: "auto",
		},
		Search: SearchConfig{
			BaseURL:        "https://www.linkedin.com",
			MatchThreshold: 0.85,
		},
		Output: OutputConfig{
			InProgressDirectory: "./data_in_progress",
			CompletedDirectory:  "./data_raw",
		},
		Retry: RetryConfig{
			MaxTries:  3,
			Backoff:   "exponential",
			BaseDelay: 2 * time.Second,
			MaxDelay:  30 * time.Second,
		},
		Pacing: PacingConfig{
			Enabled:        true,
			SettleMin:      6 * time.Second,
			SettleMax:      10 * time.Second,
			FilterPauseMin: 1 * time.Second,
			FilterPauseMax: 2 * time.Second,
			LongPause:      20 * time.Second,
			DwellMin:       3 * time.Second,
			DwellMax:       4 * time.Second,
			ScrollMinPx:    300,
			ScrollMaxPx:    1500,
		},
		RateLimit: RateLimitConfig{
			Strategy:     "token_bucket",
			PagesPerHour: 0,
			BurstSize:    5,
		},
		Browser: BrowserConfig{
			Headless:    true,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
			WaitTimeout: 15 * time.Second,
			Selectors:   browser.DefaultSelectors(),
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnBlocked:        true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Credential names kept from the original crawler's environment
	if v := os.Getenv("USERNAME_LINKEDIN"); v != "" {
		c.Credentials.Identifier = v
	}
	if v := os.Getenv("PASSWORD_LINKEDIN"); v != "" {
		c.Credentials.Passphrase = v
	}
	if v := os.Getenv("PEOPLESCRAPER_CREDENTIAL_STORE"); v != "" {
		c.Credentials.Store = v
	}

	if v := os.Getenv("PEOPLESCRAPER_CITIES"); v != "" {
		c.Search.Cities = splitList(v)
	}
	if v := os.Getenv("PEOPLESCRAPER_COMPANIES"); v != "" {
		c.Search.Companies = splitList(v)
	}
	if v := os.Getenv("PEOPLESCRAPER_PAGE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PEOPLESCRAPER_PAGE_LIMIT: %w", err)
		}
		c.Search.PageLimit = n
	}

	if v := os.Getenv("PEOPLESCRAPER_IN_PROGRESS_DIR"); v != "" {
		c.Output.InProgressDirectory = v
	}
	if v := os.Getenv("PEOPLESCRAPER_COMPLETED_DIR"); v != "" {
		c.Output.CompletedDirectory = v
	}

	if v := os.Getenv("PEOPLESCRAPER_MAX_TRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PEOPLESCRAPER_MAX_TRIES: %w", err)
		}
		c.Retry.MaxTries = n
	}

	if v := os.Getenv("PEOPLESCRAPER_PAGES_PER_HOUR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PEOPLESCRAPER_PAGES_PER_HOUR: %w", err)
		}
		c.RateLimit.PagesPerHour = n
	}

	if v := os.Getenv("PEOPLESCRAPER_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("PEOPLESCRAPER_CHROME_PATH"); v != "" {
		c.Browser.ExecPath = v
	}

	if v := os.Getenv("PEOPLESCRAPER_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("PEOPLESCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PEOPLESCRAPER_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file. A sibling
// <name>.local.<ext> file, when present, is merged on top of it.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	localPath := LocalPath(path)
	localData, err := os.ReadFile(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read local config file: %w", err)
	}

	var local Config
	if err := yaml.Unmarshal(localData, &local); err != nil {
		return fmt.Errorf("failed to parse local config file: %w", err)
	}
	return c.Merge(&local)
}

// LocalPath returns the override file path for a config file,
// e.g. config.yaml -> config.local.yaml.
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".peoplescraper.yaml",
		".peoplescraper.yml",
		filepath.Join(home, ".config", "peoplescraper", "config.yaml"),
		filepath.Join(home, ".config", "peoplescraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Merge overlays the non-zero fields of override onto c.
// Zero values (empty strings, false, 0, nil slices) never override.
func (c *Config) Merge(override *Config) error {
	if override == nil {
		return nil
	}
	if err := mergo.Merge(c, *override, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.Search.Cities) == 0 {
		errs = append(errs, errors.New("at least one city is required"))
	}
	if len(c.Search.Companies) == 0 {
		errs = append(errs, errors.New("at least one company is required"))
	}
	if c.Search.PageLimit < 0 {
		errs = append(errs, errors.New("page limit cannot be negative"))
	}
	if c.Search.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}
	if c.Search.MatchThreshold < 0 || c.Search.MatchThreshold > 1 {
		errs = append(errs, errors.New("match threshold must be between 0 and 1"))
	}

	if c.Output.InProgressDirectory == "" {
		errs = append(errs, errors.New("in-progress directory is required"))
	}
	if c.Output.CompletedDirectory == "" {
		errs = append(errs, errors.New("completed directory is required"))
	}

	if c.Retry.MaxTries < 1 {
		errs = append(errs, errors.New("max tries must be at least 1"))
	}
	validBackoffs := map[string]bool{"exponential": true, "constant": true}
	if !validBackoffs[strings.ToLower(c.Retry.Backoff)] {
		errs = append(errs, errors.New("invalid backoff strategy"))
	}

	if c.Pacing.SettleMax < c.Pacing.SettleMin {
		errs = append(errs, errors.New("settle_max must not be below settle_min"))
	}
	if c.Pacing.FilterPauseMax < c.Pacing.FilterPauseMin {
		errs = append(errs, errors.New("filter_pause_max must not be below filter_pause_min"))
	}
	if c.Pacing.DwellMax < c.Pacing.DwellMin {
		errs = append(errs, errors.New("dwell_max must not be below dwell_min"))
	}
	if c.Pacing.ScrollMaxPx < c.Pacing.ScrollMinPx {
		errs = append(errs, errors.New("scroll_max_px must not be below scroll_min_px"))
	}

	validStrategies := map[string]bool{"token_bucket": true, "sliding_window": true}
	if !validStrategies[c.RateLimit.Strategy] {
		errs = append(errs, errors.New("invalid rate limit strategy"))
	}
	if c.RateLimit.PagesPerHour < 0 {
		errs = append(errs, errors.New("pages per hour cannot be negative"))
	}
	if c.RateLimit.PagesPerHour > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Browser.WaitTimeout <= 0 {
		errs = append(errs, errors.New("browser wait timeout must be positive"))
	}
	if err := c.Browser.Selectors.Validate(); err != nil {
		errs = append(errs, err)
	}

	validStores := map[string]bool{"auto": true, "env": true, "keyring": true, "file": true}
	if !validStores[strings.ToLower(c.Credentials.Store)] {
		errs = append(errs, errors.New("invalid credential store"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: overrides > environment variables > .env file > config file > defaults.
// The result is not validated so callers can fill in missing values first.
func Load(configPath string, overrides *Config) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".peoplescraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Merge(overrides); err != nil {
		return nil, err
	}

	return config, nil
}
