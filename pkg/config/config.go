package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the tool reads
const EnvPrefix = "IGUNFOLLOW_"

// Config holds all configuration options for igunfollow
type Config struct {
	// Instagram endpoint settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Where the cookie set lives
	Cookies CookiesConfig `yaml:"cookies" json:"cookies"`

	// Batch pacing and rate-limit handling
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Local HTTP trigger server
	Server ServerConfig `yaml:"server" json:"server"`

	// Follower snapshot storage
	Snapshots SnapshotConfig `yaml:"snapshots" json:"snapshots"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds Instagram-specific configuration
type InstagramConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	APIBaseURL string        `yaml:"api_base_url" json:"api_base_url"`
	UserAgent  string        `yaml:"user_agent" json:"user_agent"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// CookiesConfig selects the credential backend
type CookiesConfig struct {
	// Store is one of: file, keyring, encrypted
	Store string `yaml:"store" json:"store"`
	File  string `yaml:"file" json:"file"`
}

// BatchConfig holds the pacing used between unfollow requests
type BatchConfig struct {
	MinDelay      time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
	RateLimitWait time.Duration `yaml:"rate_limit_wait" json:"rate_limit_wait"`
	// MaxRateLimitRetries of 0 keeps retrying for as long as Instagram answers 429
	MaxRateLimitRetries int    `yaml:"max_rate_limit_retries" json:"max_rate_limit_retries"`
	CheckpointDir       string `yaml:"checkpoint_dir" json:"checkpoint_dir"`
}

// ServerConfig holds the local trigger server settings
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// SnapshotConfig holds follower snapshot storage settings
type SnapshotConfig struct {
	Database string `yaml:"database" json:"database"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			BaseURL:    "https://www.instagram.com",
			APIBaseURL: "https://i.instagram.com",
			UserAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Timeout:    30 * time.Second,
		},
		Cookies: CookiesConfig{
			Store: "file",
			File:  ".ig_cookies.json",
		},
		Batch: BatchConfig{
			MinDelay:            20 * time.Second,
			MaxDelay:            30 * time.Second,
			RateLimitWait:       5 * time.Minute,
			MaxRateLimitRetries: 0,
			CheckpointDir:       "",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 5555,
		},
		Snapshots: SnapshotConfig{
			Database: "",
		},
		Notifications: NotificationConfig{
			Enabled:    false,
			OnComplete: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := getenv("USER_AGENT"); v != "" {
		c.Instagram.UserAgent = v
	}
	if v := getenv("BASE_URL"); v != "" {
		c.Instagram.BaseURL = v
	}
	if v := getenv("API_BASE_URL"); v != "" {
		c.Instagram.APIBaseURL = v
	}

	if v := getenv("COOKIE_STORE"); v != "" {
		c.Cookies.Store = v
	}
	if v := getenv("COOKIE_FILE"); v != "" {
		c.Cookies.File = v
	}

	// Durations accept Go syntax ("25s") or a bare number of seconds
	if err := envDuration("MIN_DELAY", &c.Batch.MinDelay); err != nil {
		return err
	}
	if err := envDuration("MAX_DELAY", &c.Batch.MaxDelay); err != nil {
		return err
	}
	if err := envDuration("RATE_LIMIT_WAIT", &c.Batch.RateLimitWait); err != nil {
		return err
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sPORT: %w", EnvPrefix, err)
		}
		c.Server.Port = port
	}

	if v := getenv("CHECKPOINT_DIR"); v != "" {
		c.Batch.CheckpointDir = v
	}

	if v := getenv("SNAPSHOT_DB"); v != "" {
		c.Snapshots.Database = v
	}

	if v := getenv("NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return nil
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

func envDuration(name string, target *time.Duration) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	d, err := parseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
	}
	*target = d
	return nil
}

func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
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
	home, _ := os.UserHomeDir()
	locations := []string{
		".igunfollow.yaml",
		".igunfollow.yml",
		filepath.Join(home, ".config", "igunfollow", "config.yaml"),
		filepath.Join(home, ".config", "igunfollow", "config.yml"),
		filepath.Join(home, ".igunfollow.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram base URL is required"))
	}
	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	validStores := map[string]bool{"file": true, "keyring": true, "encrypted": true}
	if !validStores[strings.ToLower(c.Cookies.Store)] {
		errs = append(errs, fmt.Errorf("invalid cookie store %q", c.Cookies.Store))
	}
	if strings.ToLower(c.Cookies.Store) == "file" && c.Cookies.File == "" {
		errs = append(errs, errors.New("cookie file path is required"))
	}

	if c.Batch.MinDelay < 0 {
		errs = append(errs, errors.New("min delay cannot be negative"))
	}
	if c.Batch.MaxDelay < c.Batch.MinDelay {
		errs = append(errs, errors.New("max delay must not be below min delay"))
	}
	if c.Batch.RateLimitWait < 0 {
		errs = append(errs, errors.New("rate limit wait cannot be negative"))
	}
	if c.Batch.RateLimitWait == 0 && c.Batch.MaxRateLimitRetries == 0 {
		errs = append(errs, errors.New("rate limit wait must be positive when rate limit retries are unbounded"))
	}
	if c.Batch.MaxRateLimitRetries < 0 {
		errs = append(errs, errors.New("max rate limit retries cannot be negative"))
	}

	if !isLoopback(c.Server.Host) {
		errs = append(errs, fmt.Errorf("server host %q is not a loopback address", c.Server.Host))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// isLoopback reports whether host only accepts connections from this machine
func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
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

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if store, ok := flags["cookie-store"].(string); ok && store != "" {
		c.Cookies.Store = store
	}
	if file, ok := flags["cookie-file"].(string); ok && file != "" {
		c.Cookies.File = file
	}
	if d, ok := flags["min-delay"].(time.Duration); ok && d > 0 {
		c.Batch.MinDelay = d
	}
	if d, ok := flags["max-delay"].(time.Duration); ok && d > 0 {
		c.Batch.MaxDelay = d
	}
	if n, ok := flags["max-rate-limit-retries"].(int); ok && n >= 0 {
		c.Batch.MaxRateLimitRetries = n
	}
	if port, ok := flags["port"].(int); ok && port > 0 {
		c.Server.Port = port
	}
	if db, ok := flags["snapshot-db"].(string); ok && db != "" {
		c.Snapshots.Database = db
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// DataDir returns the per-user data directory and creates it if needed
func DataDir() (string, error) {
	var dir string
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		dir = filepath.Join(xdg, "igunfollow")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".local", "share", "igunfollow")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".igunfollow.env"))
	}

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
