package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"streamscout/pkg/auth"
	"streamscout/pkg/config"
	errs "streamscout/pkg/errors"
	"streamscout/pkg/helix"
	"streamscout/pkg/logger"
	"streamscout/pkg/retry"
	"streamscout/pkg/ui"
)

var (
	profileName  string
	clientID     string
	clientSecret string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Check or manage Twitch app credentials",
	Long: `Without a subcommand, exchanges the configured client credentials for an
app access token and reports the outcome. Exit status 2 means Twitch rejected
the credentials.

Credentials are looked up in this order:
  - --client-id / --client-secret flags
  - TWITCH_CLIENT_ID / TWITCH_CLIENT_SECRET (environment or .env)
  - The config file
  - A profile stored with 'streamscout auth login'`,
	Example: `  # Verify the configured app
  streamscout auth

  # Verify a stored profile
  streamscout auth --profile work`,
	Args: cobra.NoArgs,
	RunE: runAuthProbe,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store client credentials securely",
	Long: `Store a Twitch application's client id and secret in the system keychain,
falling back to an encrypted file when no keychain is available.

Register an application at https://dev.twitch.tv/console/apps to get them.`,
	Example: `  # Interactive login into the default profile
  streamscout auth login

  # Store a second app
  streamscout auth login work`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [profile]",
	Short: "Remove stored credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"list"},
	Short:   "List stored profiles",
	Long:    `List stored profiles with their secrets masked.`,
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	rootCmd.PersistentFlags().StringVar(&profileName, "profile", auth.DefaultProfile, "stored credential profile to use")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "Twitch application client id")
	rootCmd.PersistentFlags().StringVar(&clientSecret, "client-secret", "", "Twitch application client secret")
}

// credentialFlags returns the credential overrides given on the command line
func credentialFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if clientID != "" {
		flags["client-id"] = clientID
	}
	if clientSecret != "" {
		flags["client-secret"] = clientSecret
	}
	return flags
}

// resolveCredentials fills missing client credentials from the stored
// profile. Missing credentials are an auth failure.
func resolveCredentials(cfg *config.Config) error {
	log := logger.GetLogger()

	if cfg.Twitch.ClientID == "" || cfg.Twitch.ClientSecret == "" {
		manager, err := auth.NewManager()
		if err != nil {
			log.WithError(err).Warn("Credential manager unavailable")
		} else if app, err := manager.Retrieve(profileName); err == nil {
			if cfg.Twitch.ClientID == "" {
				cfg.Twitch.ClientID = app.ClientID
			}
			if cfg.Twitch.ClientSecret == "" {
				cfg.Twitch.ClientSecret = app.ClientSecret
			}
			log.WithField("profile", app.Profile).Debug("Using stored credentials")
		} else if !errors.Is(err, auth.ErrCredentialsNotFound) {
			log.WithError(err).Warn("Failed to read stored credentials")
		}
	}

	if err := cfg.RequireCredentials(); err != nil {
		return errs.NewAuthFailure("missing client credentials", 0, err)
	}
	return nil
}

// newHelixClient wires token store, rate gate and retry policy from cfg
func newHelixClient(cfg *config.Config) *helix.Client {
	log := logger.GetLogger()
	httpClient := &http.Client{Timeout: cfg.Twitch.Timeout}

	tokens := auth.NewTokenStore(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret, cfg.Twitch.AuthURL,
		auth.WithHTTPClient(httpClient),
		auth.WithLogger(log),
	)

	policy := retry.DefaultConfig()
	policy.MaxRetries = cfg.Retry.MaxRetries
	policy.Backoff = retry.NewExponentialBackoff(cfg.Retry.BaseDelay, cfg.Retry.MaxJitter, cfg.Retry.Seed)
	policy.Logger = log

	return helix.NewClient(cfg.Twitch.ClientID, tokens,
		helix.WithBaseURL(cfg.Twitch.APIBaseURL),
		helix.WithHTTPClient(httpClient),
		helix.WithRateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Period),
		helix.WithRetry(policy),
		helix.WithDefaultReset(cfg.Retry.DefaultReset),
		helix.WithLogger(log),
	)
}

func runAuthProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(credentialFlags(), false)
	if err != nil {
		return err
	}
	if err := resolveCredentials(cfg); err != nil {
		return err
	}

	client := newHelixClient(cfg)
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Twitch.Timeout)
	defer cancel()

	info, err := client.ProbeAuth(ctx)
	if err != nil {
		return err
	}

	ui.PrintSuccess("Credentials accepted")
	ui.PrintInfo("Client ID", cfg.Twitch.ClientID)
	ui.PrintInfo("Token type", info.TokenType)
	expires := time.Duration(info.ExpiresIn) * time.Second
	ui.PrintInfo("Expires in", fmt.Sprintf("%s (%s)", expires, time.Now().Add(expires).Format(time.RFC1123)))
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	profile := profileName
	if len(args) > 0 {
		profile = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(profile); existing != nil {
		fmt.Printf("Profile '%s' already exists. Replace it? (y/N): ", profile)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	id := clientID
	if id == "" {
		fmt.Print("Client ID: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read client id: %w", err)
		}
		id = strings.TrimSpace(input)
	}

	secret := clientSecret
	if secret == "" {
		fmt.Print("Client secret (hidden): ")
		secret, err = readPassword(reader)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read client secret: %w", err)
		}
	}

	if id == "" || secret == "" {
		return errs.NewValidationError("client id and secret are required", nil)
	}

	app := &auth.App{
		Profile:      profile,
		ClientID:     id,
		ClientSecret: secret,
		LastModified: time.Now(),
	}
	if err := manager.Store(app); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Credentials saved to profile '%s'", profile))
	fmt.Println("\nVerify them with:")
	fmt.Printf("  streamscout auth --profile %s\n", profile)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	profile := profileName
	if len(args) > 0 {
		profile = args[0]
	}

	if err := manager.Delete(profile); err != nil {
		return fmt.Errorf("failed to remove profile %s: %w", profile, err)
	}
	ui.PrintSuccess("Profile removed: " + profile)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	apps, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(apps) == 0 {
		ui.PrintInfo("No stored profiles", "Use 'streamscout auth login' to add one")
		return nil
	}

	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Profile", "Client ID", "Secret", "Last Modified"})
	for _, app := range apps {
		s := auth.Sanitize(app)
		modified := "-"
		if !s.LastModified.IsZero() {
			modified = s.LastModified.Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{s.Profile, s.ClientID, s.ClientSecret, modified})
	}
	t.Render()
	return nil
}

// readPassword reads a line without echo when stdin is a terminal
func readPassword(reader *bufio.Reader) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := reader.ReadString('\n')
		return strings.TrimSpace(line), err
	}
	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
