package auth

import "os"

// Environment variables that override any stored cookie set
const (
	EnvSessionID = "IGUNFOLLOW_SESSION_ID"
	EnvCSRFToken = "IGUNFOLLOW_CSRF_TOKEN"
	EnvDSUserID  = "IGUNFOLLOW_DS_USER_ID"
)

// EnvironmentStore reads the cookie set from environment variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Location() string {
	return "environment (" + EnvSessionID + ", " + EnvCSRFToken + ", " + EnvDSUserID + ")"
}

// Load returns the set when all three variables are set
func (e *EnvironmentStore) Load() (*CookieSet, error) {
	cookies := &CookieSet{
		SessionID: os.Getenv(EnvSessionID),
		CSRFToken: os.Getenv(EnvCSRFToken),
		DSUserID:  os.Getenv(EnvDSUserID),
	}
	if !cookies.Complete() {
		return nil, ErrCredentialsNotFound
	}
	return cookies, nil
}

func (e *EnvironmentStore) Save(cookies *CookieSet) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Delete() error {
	return ErrStoreUnavailable
}
