package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	c := DefaultConfig()
	c.Search.Cities = []string{"Berlin"}
	c.Search.Companies = []string{"Acme"}
	return c
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Retry.MaxTries != 3 {
		t.Errorf("Expected default max tries to be 3, got %d", config.Retry.MaxTries)
	}
	if config.Output.InProgressDirectory != "./data_in_progress" {
		t.Errorf("Expected default in-progress directory, got %s", config.Output.InProgressDirectory)
	}
	if config.Pacing.SettleMin != 6*time.Second || config.Pacing.SettleMax != 10*time.Second {
		t.Errorf("Unexpected settle range %v-%v", config.Pacing.SettleMin, config.Pacing.SettleMax)
	}
	assert.NoError(t, config.Browser.Selectors.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("USERNAME_LINKEDIN", "me@example.com")
	t.Setenv("PASSWORD_LINKEDIN", "secret")
	t.Setenv("PEOPLESCRAPER_CITIES", "São Paulo, San Francisco")
	t.Setenv("PEOPLESCRAPER_COMPANIES", "Uber")
	t.Setenv("PEOPLESCRAPER_PAGE_LIMIT", "4")
	t.Setenv("PEOPLESCRAPER_MAX_TRIES", "5")
	t.Setenv("PEOPLESCRAPER_HEADLESS", "false")
	t.Setenv("PEOPLESCRAPER_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "me@example.com", config.Credentials.Identifier)
	assert.Equal(t, "secret", config.Credentials.Passphrase)
	assert.Equal(t, []string{"São Paulo", "San Francisco"}, config.Search.Cities)
	assert.Equal(t, []string{"Uber"}, config.Search.Companies)
	assert.Equal(t, 4, config.Search.PageLimit)
	assert.Equal(t, 5, config.Retry.MaxTries)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("PEOPLESCRAPER_PAGE_LIMIT", "many")
	assert.Error(t, DefaultConfig().LoadFromEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"no cities", func(c *Config) { c.Search.Cities = nil }, "at least one city"},
		{"no companies", func(c *Config) { c.Search.Companies = nil }, "at least one company"},
		{"negative page limit", func(c *Config) { c.Search.PageLimit = -1 }, "page limit"},
		{"zero tries", func(c *Config) { c.Retry.MaxTries = 0 }, "max tries"},
		{"bad backoff", func(c *Config) { c.Retry.Backoff = "linear" }, "backoff"},
		{"inverted settle", func(c *Config) { c.Pacing.SettleMax = time.Second }, "settle_max"},
		{"missing selector", func(c *Config) { c.Browser.Selectors.ResultItem = "" }, "result_item"},
		{"bad store", func(c *Config) { c.Credentials.Store = "vault" }, "credential store"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
		{"bad strategy", func(c *Config) { c.RateLimit.Strategy = "leaky" }, "rate limit strategy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	c := DefaultConfig()
	c.Retry.MaxTries = 0

	err := c.Validate()
	require.Error(t, err)
	assert.Len(t, strings.Split(err.Error(), "\n"), 3)
}

func TestMergeOverrides(t *testing.T) {
	c := validConfig()
	override := &Config{
		Search: SearchConfig{Companies: []string{"Globex", "Initech"}, PageLimit: 2},
		Output: OutputConfig{Dedupe: true},
	}

	require.NoError(t, c.Merge(override))
	assert.Equal(t, []string{"Berlin"}, c.Search.Cities, "zero values never override")
	assert.Equal(t, []string{"Globex", "Initech"}, c.Search.Companies)
	assert.Equal(t, 2, c.Search.PageLimit)
	assert.True(t, c.Output.Dedupe)
	assert.Equal(t, 3, c.Retry.MaxTries)

	require.NoError(t, c.Merge(nil))
}

func TestSaveAndLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	config := validConfig()
	config.Credentials.Passphrase = "never-written"
	config.Retry.MaxTries = 7
	require.NoError(t, config.Save(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "never-written")

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))
	assert.Equal(t, 7, loaded.Retry.MaxTries)
	assert.Equal(t, []string{"Berlin"}, loaded.Search.Cities)
	assert.Equal(t, 15*time.Second, loaded.Browser.WaitTimeout)
}

func TestLoadFromFileMergesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, validConfig().Save(configPath))

	local := "search:\n  companies: [Globex]\nretry:\n  max_tries: 9\n"
	require.NoError(t, os.WriteFile(LocalPath(configPath), []byte(local), 0600))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))
	assert.Equal(t, []string{"Berlin"}, loaded.Search.Cities)
	assert.Equal(t, []string{"Globex"}, loaded.Search.Companies)
	assert.Equal(t, 9, loaded.Retry.MaxTries)
}

func TestLocalPath(t *testing.T) {
	assert.Equal(t, "/etc/app/config.local.yaml", LocalPath("/etc/app/config.yaml"))
	assert.Equal(t, ".peoplescraper.local.yml", LocalPath(".peoplescraper.yml"))
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	fileConfig := validConfig()
	fileConfig.Logging.Level = "warn"
	fileConfig.Retry.MaxTries = 4
	require.NoError(t, fileConfig.Save(configPath))

	t.Setenv("PEOPLESCRAPER_LOG_LEVEL", "error")
	t.Setenv("PEOPLESCRAPER_MAX_TRIES", "")

	loaded, err := Load(configPath, &Config{Search: SearchConfig{PageLimit: 3}})
	require.NoError(t, err)
	assert.Equal(t, "error", loaded.Logging.Level, "env beats file")
	assert.Equal(t, 4, loaded.Retry.MaxTries, "file beats defaults")
	assert.Equal(t, 3, loaded.Search.PageLimit, "overrides beat everything")
}
