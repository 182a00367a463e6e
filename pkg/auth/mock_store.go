package auth

import "sync"

// MockStore is an in-memory Store for tests
type MockStore struct {
	mu      sync.Mutex
	cookies *CookieSet
	saves   int

	// Error injection
	LoadError   error
	SaveError   error
	DeleteError error
}

// NewMockStore creates a mock store, optionally pre-populated
func NewMockStore(initial *CookieSet) *MockStore {
	m := &MockStore{}
	if initial != nil {
		c := *initial
		m.cookies = &c
	}
	return m
}

func (m *MockStore) Location() string { return "mock" }

func (m *MockStore) Load() (*CookieSet, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cookies.Complete() {
		return nil, ErrCredentialsNotFound
	}
	c := *m.cookies
	return &c, nil
}

func (m *MockStore) Save(cookies *CookieSet) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *cookies
	m.cookies = &c
	m.saves++
	return nil
}

func (m *MockStore) Delete() error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cookies == nil {
		return ErrCredentialsNotFound
	}
	m.cookies = nil
	return nil
}

// Saves returns how many times Save succeeded
func (m *MockStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
