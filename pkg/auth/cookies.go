package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"igunfollow/pkg/config"
)

// CookieSet holds the three Instagram session cookies needed to act as the
// logged-in web user. The JSON form is the flat object stored on disk.
type CookieSet struct {
	SessionID string `json:"sessionid"`
	CSRFToken string `json:"csrftoken"`
	DSUserID  string `json:"ds_user_id"`
}

// Complete reports whether all three cookies are present
func (c *CookieSet) Complete() bool {
	return c != nil && c.SessionID != "" && c.CSRFToken != "" && c.DSUserID != ""
}

// Header renders the value of the Cookie request header
func (c *CookieSet) Header() string {
	return fmt.Sprintf("sessionid=%s; csrftoken=%s; ds_user_id=%s", c.SessionID, c.CSRFToken, c.DSUserID)
}

// Masked returns a copy safe to print or log
func (c *CookieSet) Masked() *CookieSet {
	if c == nil {
		return nil
	}
	return &CookieSet{
		SessionID: maskString(c.SessionID),
		CSRFToken: maskString(c.CSRFToken),
		DSUserID:  c.DSUserID,
	}
}

// Store persists a single cookie set
type Store interface {
	// Load returns the stored set or ErrCredentialsNotFound
	Load() (*CookieSet, error)
	// Save replaces the stored set
	Save(cookies *CookieSet) error
	// Delete removes the stored set
	Delete() error
	// Location describes where the set lives, for user-facing messages
	Location() string
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// NewStore builds the store selected by cfg.Store
func NewStore(cfg config.CookiesConfig) (Store, error) {
	switch strings.ToLower(cfg.Store) {
	case "", "file":
		return NewFileStore(cfg.File), nil
	case "keyring":
		return NewKeyringStore()
	case "encrypted":
		dir, err := getConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		return NewEncryptedFileStore(filepath.Join(dir, "cookies.enc"))
	default:
		return nil, fmt.Errorf("unknown cookie store %q", cfg.Store)
	}
}

// getConfigDir returns the per-user configuration directory, creating it
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igunfollow")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igunfollow")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igunfollow")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igunfollow")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
