package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"igunfollow/internal/browsercookies"
	"igunfollow/pkg/auth"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ui"
)

func newAuthCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Instagram session cookies",
		Long: `Manage the session cookies igunfollow acts with.

Three cookies identify your logged-in browser session: sessionid, csrftoken
and ds_user_id. They are stored in one of:
  - a JSON file (default .ig_cookies.json, mode 0600)
  - the system keychain (--cookie-store keyring)
  - an encrypted file with PBKDF2 key derivation (--cookie-store encrypted)

The IGUNFOLLOW_SESSION_ID, IGUNFOLLOW_CSRF_TOKEN and IGUNFOLLOW_DS_USER_ID
environment variables override whatever is stored.

Never share your cookies; they grant full access to your account!`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(opts),
		newAuthShowCmd(opts),
		newAuthLogoutCmd(opts),
		newAuthImportCmd(opts),
	)
	return cmd
}

func newAuthLoginCmd(opts *globalOptions) *cobra.Command {
	var guide bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Enter and store the session cookies",
		Long: `Prompt for sessionid, csrftoken and ds_user_id and store them.

To find these values:
1. Log into Instagram in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies > https://www.instagram.com
4. Copy the sessionid, csrftoken and ds_user_id values`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if guide {
				auth.ShowCookieExtractionGuide(cmd.OutOrStdout())
			}

			loader, err := newLoader(cmd, cfg)
			if err != nil {
				return err
			}
			if _, err := loader.Prompt(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Green("✓ Cookies stored"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&guide, "guide", false, "print step-by-step instructions for finding the cookies first")
	return cmd
}

func newAuthShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored cookies with their values masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			store, err := auth.NewStore(cfg.Cookies)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cookies, err := store.Load()
			if errors.Is(err, auth.ErrCredentialsNotFound) {
				fmt.Fprintln(out, ui.Yellow("No cookies stored."))
				fmt.Fprintln(out, "Use 'igunfollow auth login' or 'igunfollow auth import' to add them.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load cookies: %w", err)
			}

			masked := cookies.Masked()
			fmt.Fprintf(out, "%s: %s\n", ui.Cyan("Store"), store.Location())
			fmt.Fprintf(out, "%s: %s\n", ui.Cyan("sessionid"), masked.SessionID)
			fmt.Fprintf(out, "%s: %s\n", ui.Cyan("csrftoken"), masked.CSRFToken)
			fmt.Fprintf(out, "%s: %s\n", ui.Cyan("ds_user_id"), masked.DSUserID)
			return nil
		},
	}
}

func newAuthLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			store, err := auth.NewStore(cfg.Cookies)
			if err != nil {
				return err
			}

			if err := store.Delete(); err != nil {
				if errors.Is(err, auth.ErrCredentialsNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Yellow("No cookies stored."))
					return nil
				}
				return fmt.Errorf("failed to remove cookies: %w", err)
			}

			logger.WithField("store", store.Location()).Info("Cookies removed")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Green("✓ Removed cookies from"), store.Location())
			return nil
		},
	}
}

func newAuthImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <cookie-db>",
		Short: "Import the session cookies from a browser profile",
		Long: `Read sessionid, csrftoken and ds_user_id for instagram.com straight from a
browser cookie store and save them.

Supported sources:
  - Firefox cookies.sqlite
  - Chrome/Chromium Cookies (unencrypted values only)
  - Netscape cookies.txt exports

The database is copied before reading, so the browser may stay open.`,
		Example: `  igunfollow auth import ~/.mozilla/firefox/abcd1234.default-release/cookies.sqlite
  igunfollow auth import ~/Downloads/cookies.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			cookies, source, err := browsercookies.ImportCookieSet(args[0])
			if err != nil {
				if errors.Is(err, auth.ErrCredentialsNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Yellow("Log into instagram.com in that browser and try again."))
				}
				return err
			}

			store, err := auth.NewStore(cfg.Cookies)
			if err != nil {
				return err
			}
			if err := store.Save(cookies); err != nil {
				return fmt.Errorf("failed to save cookies: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s cookies for user %s\n", ui.Green("✓ Imported"), source.Format, cookies.DSUserID)
			fmt.Fprintf(out, "Saved to %s\n", store.Location())
			return nil
		},
	}
}
