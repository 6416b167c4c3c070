package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"streamscout/pkg/auth"
	"streamscout/pkg/config"
	errs "streamscout/pkg/errors"
	"streamscout/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage streamscout configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET, STREAMSCOUT_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write the default configuration as YAML.

The file is created as '.streamscout.yaml' in the current directory unless a
different path is given with --config. Existing files are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after every source has been applied. The client
secret is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".streamscout.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return errs.NewValidationError(fmt.Sprintf("configuration file already exists: %s", path), nil)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Add your client id and secret, or run 'streamscout auth login'")
	fmt.Println("2. Run 'streamscout auth' to check them")
	fmt.Println("3. Search with 'streamscout search --game \"Just Chatting\"'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(credentialFlags(), false)
	if err != nil {
		return err
	}

	display := *cfg
	if display.Twitch.ClientSecret != "" {
		display.Twitch.ClientSecret = auth.Sanitize(&auth.App{ClientSecret: cfg.Twitch.ClientSecret}).ClientSecret
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(credentialFlags(), false)
	if err != nil {
		return err
	}

	if err := cfg.RequireCredentials(); err != nil {
		ui.PrintWarning("Credentials not configured", err)
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  API: %s\n", cfg.Twitch.APIBaseURL)
	fmt.Printf("  Rate limit: %d requests per %s\n", cfg.RateLimit.Requests, cfg.RateLimit.Period)
	fmt.Printf("  Max retries: %d\n", cfg.Retry.MaxRetries)
	fmt.Printf("  Search: language=%q limit=%d offline=%t workers=%d\n",
		cfg.Search.Language, cfg.Search.Limit, cfg.Search.IncludeOffline, cfg.Search.EnrichWorkers)
	fmt.Printf("  Output: %s (%s)\n", cfg.Output.File, cfg.Output.Format)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
