package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"peoplescraper/pkg/config"
	"peoplescraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage peoplescraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (PEOPLESCRAPER_*, .env files)
  - Configuration file, plus a sibling *.local.yaml override
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every option at its default",
	Long: `Write a configuration file with every option at its default.

The file is created as '.peoplescraper.yaml' in the current directory
unless a different path is given with --config. Credentials are never
written to it.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging defaults, the configuration file,
environment variables and flags. Credentials are not shown.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	Long: `Validate the effective configuration and report every problem found:
  - YAML syntax
  - Required cities and companies
  - Value ranges
  - Selector table`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".peoplescraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration written to " + configPath)
	fmt.Fprintln(ui.Output(), "\nAdd the cities and companies to crawl under 'search', then run:")
	fmt.Fprintln(ui.Output(), "  peoplescraper crawl")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if path := configPathInUse(); path != "" {
		ui.PrintInfo("Configuration file", path)
	} else {
		ui.PrintInfo("Configuration file", "none, using defaults")
	}
	fmt.Fprintln(ui.Output())
	fmt.Fprint(ui.Output(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	ui.PrintSuccess("Configuration is valid")
	return nil
}

func configPathInUse() string {
	if configFile != "" {
		return configFile
	}
	return config.FindConfigFile()
}
