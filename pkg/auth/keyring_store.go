package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igunfollow"
	keyringUser    = "instagram_cookies"
)

// KeyringStore keeps the cookie set in the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a keyring store after checking the keychain is reachable
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Location describes the keychain entry
func (k *KeyringStore) Location() string {
	return "keyring entry " + keyringService + "/" + keyringUser
}

// Load reads the set from the keychain
func (k *KeyringStore) Load() (*CookieSet, error) {
	data, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var cookies CookieSet
	if err := json.Unmarshal([]byte(data), &cookies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cookies: %w", err)
	}
	if !cookies.Complete() {
		return nil, ErrCredentialsNotFound
	}
	return &cookies, nil
}

// Save writes the set to the keychain
func (k *KeyringStore) Save(cookies *CookieSet) error {
	if cookies == nil {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := keyring.Set(keyringService, keyringUser, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete removes the keychain entry
func (k *KeyringStore) Delete() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
