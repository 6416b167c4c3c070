package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// DefaultProfile is the profile name used when none is given.
const DefaultProfile = "default"

// App is a registered Twitch application's client credentials.
type App struct {
	Profile      string    `json:"profile"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving app credentials
type CredentialStore interface {
	// Store saves credentials under app.Profile
	Store(app *App) error

	// Retrieve gets the credentials stored for a profile
	Retrieve(profile string) (*App, error)

	// List returns every profile the store can enumerate
	List() ([]*App, error)

	// Delete removes a profile
	Delete(profile string) error

	// Exists reports whether a profile is stored
	Exists(profile string) bool
}

// Manager handles credential storage with fallback mechanisms.
// Stores are tried in order: system keychain, encrypted file, environment.
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager with the available backends
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fileStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a Manager over explicit stores.
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(app *App) error {
	if app == nil {
		return ErrInvalidCredentials
	}
	if app.ClientID == "" {
		return errors.New("client id is required")
	}
	if app.ClientSecret == "" {
		return errors.New("client secret is required")
	}
	if app.Profile == "" {
		app.Profile = DefaultProfile
	}
	app.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(app)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(profile string) (*App, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	for _, store := range m.stores {
		if app, err := store.Retrieve(profile); err == nil && app != nil {
			return app, nil
		}
	}
	return nil, fmt.Errorf("%w: profile %s", ErrCredentialsNotFound, profile)
}

// List merges the profiles of every store, keeping the most recent copy
func (m *Manager) List() ([]*App, error) {
	byProfile := make(map[string]*App)

	for _, store := range m.stores {
		apps, err := store.List()
		if err != nil {
			continue
		}
		for _, app := range apps {
			if existing, ok := byProfile[app.Profile]; !ok || app.LastModified.After(existing.LastModified) {
				byProfile[app.Profile] = app
			}
		}
	}

	result := make([]*App, 0, len(byProfile))
	for _, app := range byProfile {
		result = append(result, app)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Profile < result[j].Profile })

	return result, nil
}

// Delete removes a profile from every store that holds it
func (m *Manager) Delete(profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}

	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(profile); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w: profile %s", ErrCredentialsNotFound, profile)
}

// getConfigDir returns the per-user configuration directory
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "streamscout")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "streamscout")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "streamscout")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "streamscout")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy with the secret masked, for display.
func Sanitize(app *App) *App {
	if app == nil {
		return nil
	}
	return &App{
		Profile:      app.Profile,
		ClientID:     app.ClientID,
		ClientSecret: maskString(app.ClientSecret),
		LastModified: app.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
