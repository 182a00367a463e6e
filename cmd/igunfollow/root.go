package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"igunfollow/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// errReported is returned once the command has already told the user what
// went wrong; Execute then only sets the exit code
var errReported = errors.New("error already reported")

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configFile    string
	logLevel      string
	cookieFile    string
	cookieStore   string
	noColor       bool
	notifications bool
	quiet         bool
	verbose       bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	run := &runOptions{}

	cmd := &cobra.Command{
		Use:   "igunfollow [flags] <unfollow_list.txt>",
		Short: "Unfollow a list of Instagram accounts from your own session",
		Long: `igunfollow unfollows every account in a text file, one username per line,
using the cookies of your logged-in browser session.

Requests are spaced 20 to 30 seconds apart and a rate-limited request is
retried after a five minute pause, so a long list takes a while. Progress is
printed line by line and the final tally shows how many accounts failed.

The list usually comes from the web app (Analysis → Download Unfollow List)
or from "igunfollow snapshot diff -o".`,
		Example: `  # Unfollow everyone in the exported list
  igunfollow unfollow_list.txt

  # Pick up where an interrupted run stopped
  igunfollow --resume unfollow_list.txt

  # Let the web app start batches over HTTP
  igunfollow serve`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				ui.SetColor(false)
			}
			if opts.verbose && !opts.quiet && cmd.Name() != "help" {
				fmt.Fprint(cmd.OutOrStdout(), ui.Cyan(ui.ASCIILogo))
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				printUsage(cmd)
				return errReported
			}
			return runUnfollow(cmd, opts, run, args[0])
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "config file (default is $HOME/.config/igunfollow/config.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.cookieFile, "cookie-file", "", "cookie file (default is .ig_cookies.json)")
	pf.StringVar(&opts.cookieStore, "cookie-store", "", "cookie store: file, keyring or encrypted")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&opts.notifications, "notifications", false, "send a desktop notification when a batch finishes")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress output")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "show logo, logs and progress details")

	addRunFlags(cmd, run)

	cmd.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newAuthCmd(opts),
		newConfigCmd(opts),
		newSnapshotCmd(opts),
	)

	cmd.SetVersionTemplate(`igunfollow {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	cmd.CompletionOptions.DisableDefaultCmd = true

	return cmd
}

func printUsage(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Usage: igunfollow <unfollow_list.txt>")
	fmt.Fprintln(out, "\nExport the list from the app: Analysis → Download Unfollow List")
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, newRootCmd(), os.Args[1:])
}

func execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Red("Error: "+err.Error()))
		}
		return 1
	}
	return 0
}
