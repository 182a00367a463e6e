package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"igunfollow/internal/server"
	"igunfollow/pkg/batch"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ratelimit"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept unfollow lists from the web app over HTTP",
		Long: `Start a local HTTP server the web app posts unfollow lists to.

The server listens on 127.0.0.1 only. Every POST starts its own batch in the
background and the response returns right away; progress is printed here.
Overlapping requests run side by side against the same session, so send one
list at a time.

Endpoints:
  GET  /         readiness check
  POST /         {"usernames": [...]} starts a batch
  GET  /metrics  Prometheus metrics`,
		Example: `  igunfollow serve
  igunfollow serve --port 6000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default 5555)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *globalOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	// Cookies are resolved once, before the first request can arrive
	cookies, err := loadCookies(cmd, cfg)
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	console := newConsole(cmd, opts)
	newRunner := func(log logger.Logger) *batch.Runner {
		reporter := console.Batch()
		client := newClient(cfg, cookies, reporter, log)
		pacer := ratelimit.NewRandomInterval(cfg.Batch.MinDelay, cfg.Batch.MaxDelay)
		return batch.NewRunner(client, pacer, reporter, log)
	}

	srv := server.New(server.Options{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, newRunner, logger.GetLogger())

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)))
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr(), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server running on http://%s\n", ln.Addr())
	fmt.Fprintln(out, "Waiting for requests from the app... (Ctrl+C to stop)")

	return srv.Serve(cmd.Context(), ln)
}
