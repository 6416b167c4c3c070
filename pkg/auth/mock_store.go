package auth

import "sync"

// MockStore is an in-memory CredentialStore with error injection for tests.
type MockStore struct {
	mu   sync.RWMutex
	apps map[string]App

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{apps: make(map[string]App)}
}

func (m *MockStore) Store(app *App) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if app == nil || app.Profile == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.Profile] = *app
	return nil
}

func (m *MockStore) Retrieve(profile string) (*App, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	app, ok := m.apps[profile]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &app, nil
}

func (m *MockStore) List() ([]*App, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*App, 0, len(m.apps))
	for _, app := range m.apps {
		out = append(out, &app)
	}
	return out, nil
}

func (m *MockStore) Delete(profile string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[profile]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.apps, profile)
	return nil
}

func (m *MockStore) Exists(profile string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.apps[profile]
	return ok
}

// Count returns the number of stored profiles
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.apps)
}

// NewMockManager creates a Manager backed by a single MockStore
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}
