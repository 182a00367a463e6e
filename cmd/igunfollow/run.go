package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"igunfollow/pkg/batch"
	"igunfollow/pkg/checkpoint"
	"igunfollow/pkg/config"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ratelimit"
)

// runOptions holds the flags of a batch run
type runOptions struct {
	resume       bool
	forceRestart bool
	minDelay     time.Duration
	maxDelay     time.Duration
	maxRetries   int
}

func addRunFlags(cmd *cobra.Command, run *runOptions) {
	f := cmd.Flags()
	f.BoolVar(&run.resume, "resume", false, "skip usernames an interrupted run of the same list already unfollowed")
	f.BoolVar(&run.forceRestart, "force-restart", false, "discard saved progress for the list before resuming")
	f.DurationVar(&run.minDelay, "min-delay", 0, "shortest pause between unfollows (default 20s)")
	f.DurationVar(&run.maxDelay, "max-delay", 0, "longest pause between unfollows (default 30s)")
	f.IntVar(&run.maxRetries, "max-rate-limit-retries", 0, "give up on a username after this many rate limits (0 retries forever)")
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	run := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <unfollow_list.txt>",
		Short: "Unfollow every username in a list file",
		Long: `Unfollow every username in a list file, one username per line.

Blank lines are skipped and surrounding whitespace is trimmed. Each username
gets one unfollow request; failures are reported and the batch moves on.
Between two requests the run pauses for a random 20 to 30 seconds.`,
		Example: `  igunfollow run unfollow_list.txt
  igunfollow run --resume unfollow_list.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				printUsage(cmd)
				return errReported
			}
			return runUnfollow(cmd, opts, run, args[0])
		},
	}

	addRunFlags(cmd, run)
	return cmd
}

// runUnfollow processes one list file against the user's own session. Failed
// unfollows are part of a normal run and do not change the exit code.
func runUnfollow(cmd *cobra.Command, opts *globalOptions, run *runOptions, listFile string) error {
	out := cmd.OutOrStdout()

	usernames, err := batch.ReadUsernames(listFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(out, "File not found: %s\n", listFile)
		return errReported
	case errors.Is(err, batch.ErrNoUsernames):
		fmt.Fprintln(out, "No usernames found in file")
		return errReported
	case err != nil:
		return err
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	log := logger.GetLogger().WithField("list_file", listFile)

	console := newConsole(cmd, opts)
	console.Found(len(usernames))

	cookies, err := loadCookies(cmd, cfg)
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	client := newClient(cfg, cookies, console, log)
	pacer := ratelimit.NewRandomInterval(cfg.Batch.MinDelay, cfg.Batch.MaxDelay)
	runner := batch.NewRunner(client, pacer, console, log)

	var result batch.Result
	if run.resume {
		mgr, err := checkpointManager(cmd, cfg, listFile, run.forceRestart)
		if err != nil {
			return err
		}
		result, err = runner.RunWithCheckpoint(cmd.Context(), mgr, listFile, usernames)
		if err != nil {
			return err
		}
	} else {
		result = runner.Run(cmd.Context(), usernames)
	}

	if cfg.Notifications.Enabled && cfg.Notifications.OnComplete {
		newNotifier(cmd, opts).BatchFinished(result.Success, result.Failure)
	}

	if result.Interrupted {
		log.Warn("Run interrupted")
		if run.resume {
			fmt.Fprintln(out, "Interrupted. Run again with --resume to continue.")
		}
		return errReported
	}
	return nil
}

// checkpointManager opens the progress file for listFile and announces how
// much of the list an earlier run already finished
func checkpointManager(cmd *cobra.Command, cfg *config.Config, listFile string, restart bool) (*checkpoint.Manager, error) {
	dir, err := checkpointDir(cfg)
	if err != nil {
		return nil, err
	}
	mgr, err := checkpoint.NewManager(dir, listFile)
	if err != nil {
		return nil, err
	}

	if restart {
		if err := mgr.Delete(); err != nil {
			return nil, fmt.Errorf("failed to discard checkpoint: %w", err)
		}
		return mgr, nil
	}

	cp, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp != nil && len(cp.Completed) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Resuming: %d already unfollowed\n\n", len(cp.Completed))
	}
	return mgr, nil
}
