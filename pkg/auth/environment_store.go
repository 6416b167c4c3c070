package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET. It is
// read-only and answers for any profile.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*App) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(profile string) (*App, error) {
	id := os.Getenv("TWITCH_CLIENT_ID")
	secret := os.Getenv("TWITCH_CLIENT_SECRET")
	if id == "" || secret == "" {
		return nil, ErrCredentialsNotFound
	}
	if profile == "" {
		profile = DefaultProfile
	}

	return &App{
		Profile:      profile,
		ClientID:     id,
		ClientSecret: secret,
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*App, error) {
	app, err := e.Retrieve(DefaultProfile)
	if err != nil {
		return []*App{}, nil
	}
	return []*App{app}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(string) bool {
	return os.Getenv("TWITCH_CLIENT_ID") != "" && os.Getenv("TWITCH_CLIENT_SECRET") != ""
}
