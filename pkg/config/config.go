package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for streamscout
type Config struct {
	// Helix API credentials and endpoints
	Twitch TwitchConfig `yaml:"twitch" json:"twitch"`

	// Outbound request quota
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Backoff policy for throttled and failed requests
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Defaults for the search command
	Search SearchConfig `yaml:"search" json:"search"`

	// Export settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// TwitchConfig holds the app registration and API locations
type TwitchConfig struct {
	ClientID     string        `yaml:"client_id" json:"client_id"`
	ClientSecret string        `yaml:"client_secret" json:"-"`
	APIBaseURL   string        `yaml:"api_base_url" json:"api_base_url"`
	AuthURL      string        `yaml:"auth_url" json:"auth_url"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig bounds requests per rolling window
type RateLimitConfig struct {
	Requests int           `yaml:"requests" json:"requests"`
	Period   time.Duration `yaml:"period" json:"period"`
}

// RetryConfig holds the 429/transport backoff settings
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	DefaultReset time.Duration `yaml:"default_reset" json:"default_reset"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxJitter    time.Duration `yaml:"max_jitter" json:"max_jitter"`
	// Seed makes jitter reproducible. Zero means a random seed.
	Seed int64 `yaml:"seed" json:"seed"`
}

// SearchConfig holds defaults applied to search criteria
type SearchConfig struct {
	Language       string `yaml:"language" json:"language"`
	IncludeOffline bool   `yaml:"include_offline" json:"include_offline"`
	Limit          int    `yaml:"limit" json:"limit"`
	PageSize       int    `yaml:"page_size" json:"page_size"`
	EnrichWorkers  int    `yaml:"enrich_workers" json:"enrich_workers"`
}

// OutputConfig holds export configuration
type OutputConfig struct {
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// MetricsConfig controls the optional /metrics listener
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Twitch: TwitchConfig{
			APIBaseURL: "https://api.twitch.tv/helix",
			AuthURL:    "https://id.twitch.tv/oauth2/token",
			Timeout:    30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Requests: 800,
			Period:   time.Minute,
		},
		Retry: RetryConfig{
			MaxRetries:   3,
			DefaultReset: 60 * time.Second,
			BaseDelay:    time.Second,
			MaxJitter:    time.Second,
		},
		Search: SearchConfig{
			Language:       "de",
			IncludeOffline: true,
			Limit:          100,
			PageSize:       100,
			EnrichWorkers:  1,
		},
		Output: OutputConfig{
			Format: "csv",
			File:   "streamers.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("TWITCH_CLIENT_ID"); v != "" {
		c.Twitch.ClientID = v
	}
	if v := os.Getenv("TWITCH_CLIENT_SECRET"); v != "" {
		c.Twitch.ClientSecret = v
	}
	if v := os.Getenv("STREAMSCOUT_API_BASE_URL"); v != "" {
		c.Twitch.APIBaseURL = v
	}
	if v := os.Getenv("STREAMSCOUT_AUTH_URL"); v != "" {
		c.Twitch.AuthURL = v
	}

	if v := os.Getenv("STREAMSCOUT_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("STREAMSCOUT_REQUESTS_PER_MINUTE: %w", err))
		} else if n > 0 {
			c.RateLimit.Requests = n
			c.RateLimit.Period = time.Minute
		}
	}

	if v := os.Getenv("STREAMSCOUT_RETRY_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("STREAMSCOUT_RETRY_SEED: %w", err))
		} else {
			c.Retry.Seed = n
		}
	}

	if v := os.Getenv("STREAMSCOUT_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = strings.ToLower(v)
	}
	if v := os.Getenv("STREAMSCOUT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STREAMSCOUT_METRICS_ADDR"); v != "" {
		c.Metrics.ListenAddr = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".streamscout.yaml",
		".streamscout.yml",
		filepath.Join(home, ".config", "streamscout", "config.yaml"),
		filepath.Join(home, ".config", "streamscout", "config.yml"),
		filepath.Join(home, ".streamscout.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks the settings that do not depend on credentials.
// Credentials are checked separately by RequireCredentials so that
// commands like `config show` work without them.
func (c *Config) Validate() error {
	var errs []error

	if c.Twitch.APIBaseURL == "" {
		errs = append(errs, errors.New("api base url is required"))
	}
	if c.Twitch.AuthURL == "" {
		errs = append(errs, errors.New("auth url is required"))
	}
	if c.Twitch.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("rate limit requests must be positive"))
	}
	if c.RateLimit.Period <= 0 {
		errs = append(errs, errors.New("rate limit period must be positive"))
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry max retries cannot be negative"))
	}
	if c.Retry.DefaultReset < 0 || c.Retry.BaseDelay < 0 || c.Retry.MaxJitter < 0 {
		errs = append(errs, errors.New("retry delays cannot be negative"))
	}

	if c.Search.Limit < 1 || c.Search.Limit > 10000 {
		errs = append(errs, errors.New("search limit must be between 1 and 10000"))
	}
	if c.Search.PageSize < 1 || c.Search.PageSize > 100 {
		errs = append(errs, errors.New("page size must be between 1 and 100"))
	}
	if c.Search.EnrichWorkers < 1 {
		errs = append(errs, errors.New("enrich workers must be at least 1"))
	}

	switch strings.ToLower(c.Output.Format) {
	case "csv", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid output format %q", c.Output.Format))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// RequireCredentials reports a missing client id or secret.
func (c *Config) RequireCredentials() error {
	var errs []error
	if c.Twitch.ClientID == "" {
		errs = append(errs, errors.New("client id is required (set TWITCH_CLIENT_ID or run `streamscout auth login`)"))
	}
	if c.Twitch.ClientSecret == "" {
		errs = append(errs, errors.New("client secret is required (set TWITCH_CLIENT_SECRET or run `streamscout auth login`)"))
	}
	return errors.Join(errs...)
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

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["client-id"].(string); ok && v != "" {
		c.Twitch.ClientID = v
	}
	if v, ok := flags["client-secret"].(string); ok && v != "" {
		c.Twitch.ClientSecret = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.File = v
	}
	if v, ok := flags["format"].(string); ok && v != "" {
		c.Output.Format = strings.ToLower(v)
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["seed"].(int64); ok && v != 0 {
		c.Retry.Seed = v
	}
	if v, ok := flags["workers"].(int); ok && v > 0 {
		c.Search.EnrichWorkers = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.ListenAddr = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".streamscout.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
