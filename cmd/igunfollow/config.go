package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igunfollow/pkg/config"
	"igunfollow/pkg/ui"
)

const exampleConfig = `# igunfollow configuration file
#
# Every option can also be set with an environment variable prefixed with
# IGUNFOLLOW_, for example IGUNFOLLOW_MIN_DELAY=25s or IGUNFOLLOW_PORT=6000.

# Instagram endpoints
instagram:
  base_url: "https://www.instagram.com"
  api_base_url: "https://i.instagram.com"
  # Browser user agent sent with every request
  user_agent: ""
  timeout: 30s

# Where the session cookies are kept
cookies:
  # file, keyring or encrypted
  store: "file"
  # Used by the file store
  file: ".ig_cookies.json"

# Pacing between unfollow requests
batch:
  # Each pause is picked uniformly between min_delay and max_delay
  min_delay: 20s
  max_delay: 30s

  # Pause after Instagram answers 429 Too Many Requests
  rate_limit_wait: 5m

  # Give up on a username after this many 429s; 0 keeps retrying
  max_rate_limit_retries: 0

  # Progress files for --resume (default: the data directory)
  checkpoint_dir: ""

# Local server for the web app
server:
  # Loopback only: 127.0.0.1, ::1 or localhost
  host: "127.0.0.1"
  port: 5555

# Follower snapshots
snapshots:
  # SQLite database (default: the data directory)
  database: ""

# Desktop notifications
notifications:
  enabled: false
  on_complete: true

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional), rotated by size
  file: ""

  # Maximum log file size in MB
  max_size: 100

  # Maximum number of old log files to keep
  max_backups: 3

  # Maximum age of log files in days
  max_age: 7
`

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage igunfollow configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGUNFOLLOW_*)
  - A .env file
  - Configuration file
  - Default values (lowest priority)`,
	}

	cmd.AddCommand(
		newConfigInitCmd(opts),
		newConfigShowCmd(opts),
		newConfigValidateCmd(opts),
	)
	return cmd
}

func newConfigInitCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an example configuration file",
		Long: `Create an example configuration file with all available options.

The file is created as '.igunfollow.yaml' in the current directory unless a
different path is given with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := opts.configFile
			if configPath == "" {
				configPath = ".igunfollow.yaml"
			}

			out := cmd.OutOrStdout()
			if _, err := os.Stat(configPath); err == nil {
				fmt.Fprintln(out, ui.Red("Configuration file already exists: "+configPath))
				fmt.Fprintln(out, "\nTo overwrite, first remove the existing file:")
				fmt.Fprintf(out, "  rm %s\n", configPath)
				return errReported
			}

			if dir := filepath.Dir(configPath); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create config directory: %w", err)
				}
			}
			if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			fmt.Fprintln(out, ui.Green("Configuration file created: "+configPath))
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "1. Adjust the pacing and cookie store to taste")
			fmt.Fprintln(out, "2. Run 'igunfollow config validate' to check the configuration")
			fmt.Fprintln(out, "3. Store your cookies with 'igunfollow auth login'")
			return nil
		},
	}
}

func newConfigShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging flags, environment variables, the
configuration file and defaults. Cookies are never part of it; see
'igunfollow auth show'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to format configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Magenta("Current Configuration"))
			fmt.Fprintln(out)
			fmt.Fprint(out, string(data))

			fmt.Fprintln(out, "\nConfiguration sources (in order of priority):")
			fmt.Fprintln(out, "1. Command line flags")
			fmt.Fprintf(out, "2. Environment variables (%s*)\n", config.EnvPrefix)
			if opts.configFile != "" {
				fmt.Fprintf(out, "3. Configuration file: %s\n", opts.configFile)
			} else {
				fmt.Fprintln(out, "3. Configuration file: (default locations)")
			}
			fmt.Fprintln(out, "4. Default values")
			return nil
		},
	}
}

func newConfigValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Validate the configuration for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Log and checkpoint directory accessibility`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if opts.configFile != "" {
				fmt.Fprintf(out, "%s: %s\n", ui.Cyan("Validating configuration"), opts.configFile)
			}

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				fmt.Fprintln(out, ui.Red("Configuration validation failed: "+err.Error()))
				return errReported
			}

			var problems []string
			if cfg.Logging.File != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
					problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
				}
			}
			if cfg.Batch.CheckpointDir != "" {
				if err := os.MkdirAll(cfg.Batch.CheckpointDir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("Cannot create checkpoint directory: %v", err))
				}
			}
			if len(problems) > 0 {
				fmt.Fprintln(out, ui.Red("Configuration has errors:"))
				for _, p := range problems {
					fmt.Fprintf(out, "  - %s\n", p)
				}
				return errReported
			}

			if cfg.Batch.MinDelay < 10*time.Second {
				fmt.Fprintln(out, ui.Yellow("Warning: pauses under 10s make rate limiting much more likely"))
			}

			fmt.Fprintln(out, ui.Green("Configuration is valid"))
			fmt.Fprintln(out, "\nConfiguration summary:")
			fmt.Fprintf(out, "  Pause between unfollows: %s to %s\n", cfg.Batch.MinDelay, cfg.Batch.MaxDelay)
			fmt.Fprintf(out, "  Rate limit wait: %s\n", cfg.Batch.RateLimitWait)
			fmt.Fprintf(out, "  Cookie store: %s\n", cfg.Cookies.Store)
			fmt.Fprintf(out, "  Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)
			return nil
		},
	}
}
