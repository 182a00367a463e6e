package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"igunfollow/pkg/auth"
	"igunfollow/pkg/config"
	"igunfollow/pkg/instagram"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/snapshot"
	"igunfollow/pkg/ui"
)

// loadConfig merges file, environment and the flags the user actually set,
// then initializes the global logger from the result
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	flags := make(map[string]interface{})
	fs := cmd.Flags()

	for _, name := range []string{"cookie-store", "cookie-file", "snapshot-db", "log-level"} {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			v, _ := fs.GetString(name)
			flags[name] = v
		}
	}
	for _, name := range []string{"min-delay", "max-delay"} {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			v, _ := fs.GetDuration(name)
			flags[name] = v
		}
	}
	for _, name := range []string{"max-rate-limit-retries", "port"} {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			v, _ := fs.GetInt(name)
			flags[name] = v
		}
	}
	if fs.Changed("notifications") {
		flags["notifications"] = opts.notifications
	}

	cfg, err := config.Load(opts.configFile, flags)
	if err != nil {
		return nil, err
	}

	// The console output is the interface; logs stay out of the way unless
	// asked for or written to a file
	_, levelFromEnv := os.LookupEnv(config.EnvPrefix + "LOG_LEVEL")
	if !fs.Changed("log-level") && !levelFromEnv {
		switch {
		case opts.verbose:
			cfg.Logging.Level = "debug"
		case cfg.Logging.File == "":
			cfg.Logging.Level = "error"
		}
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// progressOutput is where batch progress goes; nowhere in quiet mode
func progressOutput(cmd *cobra.Command, opts *globalOptions) io.Writer {
	if opts.quiet {
		return io.Discard
	}
	return cmd.OutOrStdout()
}

// newConsole prints batch progress to the command's stdout
func newConsole(cmd *cobra.Command, opts *globalOptions) *ui.Console {
	console := ui.NewConsole(progressOutput(cmd, opts))
	console.Verbose = opts.verbose
	return console
}

// notificationSender is swapped out in tests
var notificationSender = ui.PlatformSender

func newNotifier(cmd *cobra.Command, opts *globalOptions) *ui.Notifier {
	return ui.NewNotifierWithSender(notificationSender(), progressOutput(cmd, opts))
}

// newLoader resolves cookies through the configured store, prompting on the
// command's streams
func newLoader(cmd *cobra.Command, cfg *config.Config) (*auth.Loader, error) {
	store, err := auth.NewStore(cfg.Cookies)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie store: %w", err)
	}
	loader := auth.NewLoader(store)
	loader.In = cmd.InOrStdin()
	loader.Out = cmd.OutOrStdout()
	return loader, nil
}

func loadCookies(cmd *cobra.Command, cfg *config.Config) (*auth.CookieSet, error) {
	loader, err := newLoader(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return loader.Load(cmd.Context())
}

// rateLimitReporter is the part of a console that announces 429 pauses
type rateLimitReporter interface {
	RateLimited(wait time.Duration)
}

// newClient builds the Instagram client, announcing rate-limit pauses on console
func newClient(cfg *config.Config, cookies *auth.CookieSet, console rateLimitReporter, log logger.Logger) *instagram.Client {
	opts := instagram.OptionsFromConfig(cfg)
	if console != nil {
		opts.OnRateLimit = func(_ string, wait time.Duration) {
			console.RateLimited(wait)
		}
	}
	return instagram.NewClient(cookies, opts, log)
}

func checkpointDir(cfg *config.Config) (string, error) {
	if cfg.Batch.CheckpointDir != "" {
		return cfg.Batch.CheckpointDir, nil
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "checkpoints"), nil
}

func openSnapshots(cfg *config.Config) (*snapshot.Store, error) {
	path := cfg.Snapshots.Database
	if path == "" {
		dataDir, err := config.DataDir()
		if err != nil {
			return nil, err
		}
		path = snapshot.DefaultPath(dataDir)
	}
	return snapshot.Open(path)
}
