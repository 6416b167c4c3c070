package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"streamscout/pkg/config"
	errs "streamscout/pkg/errors"
	"streamscout/pkg/helix"
	"streamscout/pkg/logger"
	"streamscout/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	verbose    bool
	noLogo     bool
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitAuth        = 2
	exitValidation  = 3
	// Ctrl-C after the partial export
	exitInterrupted = 130
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "streamscout",
	Short: "Find Twitch creators by game, language and audience size",
	Long: `streamscout searches the Twitch Helix API for creators that match a game,
a broadcast language and a viewer range, pulls their channel biographies and
extracts contact details (emails, social profiles) from them.

Features:
  - Live and offline channel discovery with de-duplication
  - Client-credentials authentication with automatic token refresh
  - Sliding-window rate limiting (800 requests per minute)
  - Backoff on throttling that honours Ratelimit-Reset
  - CSV and JSON export
  - Optional Prometheus metrics and a terminal dashboard`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noLogo {
			return
		}
		switch cmd.Name() {
		case "version", "help", "completion", "show":
			return
		}
		ui.PrintLogo()
	},
}

// Execute adds all child commands to the root command and exits with the code
// matching the error class.
func Execute() {
	err := rootCmd.Execute()
	if err != nil && !isInterrupted(err) {
		ui.PrintError(err.Error())
	}
	os.Exit(exitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.streamscout.yaml or ~/.config/streamscout/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug logs instead of the progress line")
	rootCmd.PersistentFlags().BoolVar(&noLogo, "no-logo", false, "do not print the banner")

	rootCmd.SetVersionTemplate(`streamscout {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// exitCode maps an error to the process exit status. Credential problems
// and invalid input get their own codes so scripts can tell them apart.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errs.IsType(err, errs.ErrorTypeAuth):
		return exitAuth
	case errs.IsType(err, errs.ErrorTypeValidation):
		return exitValidation
	case errors.Is(err, helix.ErrGameNotFound):
		return exitFailure
	case isInterrupted(err):
		return exitInterrupted
	default:
		return exitFailure
	}
}

// loadConfig loads configuration from every source and initialises the
// global logger. quiet lowers the default level to warn so log lines do not
// tear the progress display.
func loadConfig(flags map[string]interface{}, quiet bool) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	switch {
	case logLevel != "":
		flags["log-level"] = logLevel
	case verbose:
		flags["log-level"] = "debug"
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, errs.NewValidationError("failed to load configuration", err)
	}

	if quiet && logLevel == "" && !verbose && cfg.Logging.File == "" && cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, errs.NewValidationError("failed to initialize logger", err)
	}
	logger.GetLogger().WithField("version", version).Debug("streamscout starting")

	return cfg, nil
}

// newTable returns a table writer with the house style
func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	return t
}
