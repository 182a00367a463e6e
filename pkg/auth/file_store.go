package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the cookie set as a flat JSON object in a local file
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location returns the file path
func (f *FileStore) Location() string {
	return f.path
}

// Load reads the file. A missing file, unparsable JSON or a set missing any
// of the three keys all yield ErrCredentialsNotFound so the caller prompts.
func (f *FileStore) Load() (*CookieSet, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	var cookies CookieSet
	if err := json.Unmarshal(content, &cookies); err != nil {
		return nil, ErrCredentialsNotFound
	}
	if !cookies.Complete() {
		return nil, ErrCredentialsNotFound
	}
	return &cookies, nil
}

// Save writes the set with owner-only permissions
func (f *FileStore) Save(cookies *CookieSet) error {
	if cookies == nil {
		return ErrInvalidCredentials
	}

	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}

// Delete removes the file
func (f *FileStore) Delete() error {
	if err := os.Remove(f.path); err != nil {
		if os.IsNotExist(err) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete cookie file: %w", err)
	}
	return nil
}
