package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"igunfollow/pkg/batch"
	"igunfollow/pkg/config"
	"igunfollow/pkg/instagram"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/snapshot"
	"igunfollow/pkg/storage"
	"igunfollow/pkg/ui"
)

const snapshotTimeFormat = "2006-01-02 15:04"

func newSnapshotCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record follower lists and find who does not follow back",
		Long: `Record your followers and following lists and compare them.

A snapshot comes from the JSON files of an Instagram data export
(Settings → Accounts Center → Your information and permissions → Download
your information, "Followers and following" in JSON), from text copied out
of the followers and following dialogs, or straight from Instagram with your
session cookies.

Snapshots are kept in a SQLite database under the data directory. The diff
command writes the accounts that do not follow you back in the exact format
'igunfollow run' reads.`,
	}

	cmd.PersistentFlags().String("snapshot-db", "", "snapshot database (default is the data directory)")

	cmd.AddCommand(
		newSnapshotImportCmd(opts),
		newSnapshotPasteCmd(opts),
		newSnapshotFetchCmd(opts),
		newSnapshotListCmd(opts),
		newSnapshotDiffCmd(opts),
		newSnapshotDeleteCmd(opts),
	)
	return cmd
}

// withSnapshots loads the configuration and opens the snapshot database for fn
func withSnapshots(cmd *cobra.Command, opts *globalOptions, fn func(cfg *config.Config, store *snapshot.Store) error) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	store, err := openSnapshots(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(cfg, store)
}

func newSnapshotImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file-or-dir>...",
		Short: "Create a snapshot from an Instagram data export",
		Long: `Create a snapshot from the followers and following JSON files of an
Instagram data export. Files whose name contains "following" fill the
following list, files containing "follower" the followers list; other files
are ignored. A directory contributes every .json file below it.`,
		Example: `  igunfollow snapshot import followers_1.json following.json
  igunfollow snapshot import ~/Downloads/instagram-export/connections/followers_and_following`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, opts, func(cfg *config.Config, store *snapshot.Store) error {
				files, err := snapshot.ReadExportFiles(args...)
				if err != nil {
					return fmt.Errorf("failed to read export: %w", err)
				}

				followers, following, err := snapshot.ParseExportFiles(files)
				if err != nil {
					return err
				}
				if len(followers) == 0 && len(following) == 0 {
					return errors.New("no followers or following files found in the export")
				}

				snap := snapshot.New(snapshot.SourceExport, followers, following)
				if err := store.Save(cmd.Context(), snap); err != nil {
					return err
				}

				printSnapshotSaved(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
}

func newSnapshotPasteCmd(opts *globalOptions) *cobra.Command {
	var followersFile, followingFile string

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Create a snapshot from copied follower and following lists",
		Long: `Create a snapshot from text copied out of the followers and following
dialogs on instagram.com. Select the whole dialog, paste it into a file and
pass the file here; "-" reads standard input.

Page text such as "Followers", "12 posts" or "alice's profile picture" is
skipped, as is anything that is not a valid username. Names are lowercased
and a leading @ is removed.`,
		Example: `  igunfollow snapshot paste --followers followers.txt --following following.txt
  pbpaste | igunfollow snapshot paste --following -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if followersFile == "" && followingFile == "" {
				return errors.New("provide at least one of --followers or --following")
			}
			if followersFile == "-" && followingFile == "-" {
				return errors.New("only one list can be read from standard input")
			}

			return withSnapshots(cmd, opts, func(cfg *config.Config, store *snapshot.Store) error {
				followers, err := readPasted(cmd, followersFile)
				if err != nil {
					return err
				}
				following, err := readPasted(cmd, followingFile)
				if err != nil {
					return err
				}

				snap := snapshot.New(snapshot.SourcePaste, followers, following)
				if err := store.Save(cmd.Context(), snap); err != nil {
					return err
				}

				printSnapshotSaved(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&followersFile, "followers", "", "file with the copied followers list")
	cmd.Flags().StringVar(&followingFile, "following", "", "file with the copied following list")
	return cmd
}

// readPasted parses the copied list in path; "-" is standard input and an
// empty path is an empty list
func readPasted(cmd *cobra.Command, path string) ([]snapshot.User, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return nil, nil
	case "-":
		data, err = io.ReadAll(cmd.InOrStdin())
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pasted list: %w", err)
	}
	return snapshot.ParsePasted(string(data)), nil
}

func newSnapshotFetchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Create a snapshot from Instagram with your session cookies",
		Long: `List your followers and following straight from Instagram and store them as
a snapshot. Pages are fetched with a short pause in between; a large account
takes a minute or two.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, opts, func(cfg *config.Config, store *snapshot.Store) error {
				cookies, err := loadCookies(cmd, cfg)
				if err != nil {
					return fmt.Errorf("failed to load cookies: %w", err)
				}

				log := logger.GetLogger().WithField("component", "snapshot")
				client := newClient(cfg, cookies, nil, log)
				out := cmd.OutOrStdout()

				lists := make(map[instagram.FriendshipKind][]snapshot.User, 2)
				for _, kind := range []instagram.FriendshipKind{instagram.Followers, instagram.Following} {
					fmt.Fprintf(out, "Fetching %s...\n", kind)
					users, err := client.FetchFriendships(cmd.Context(), cookies.DSUserID, kind)
					if err != nil {
						return err
					}
					lists[kind] = snapshot.FromFriendships(users)
				}

				snap := snapshot.New(snapshot.SourceAPI, lists[instagram.Followers], lists[instagram.Following])
				if err := store.Save(cmd.Context(), snap); err != nil {
					return err
				}

				printSnapshotSaved(out, snap)
				return nil
			})
		},
	}
}

func printSnapshotSaved(out io.Writer, snap *snapshot.Snapshot) {
	fmt.Fprintf(out, "%s %s\n", ui.Green("✓ Saved snapshot"), shortID(snap.ID.String()))
	fmt.Fprintf(out, "  Followers: %d\n", len(snap.Followers))
	fmt.Fprintf(out, "  Following: %d\n", len(snap.Following))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newSnapshotListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, opts, func(cfg *config.Config, store *snapshot.Store) error {
				summaries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "No snapshots yet. Create one with 'igunfollow snapshot import' or 'igunfollow snapshot fetch'.")
					return nil
				}

				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tFOLLOWERS\tFOLLOWING")
				for _, s := range summaries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
						shortID(s.ID.String()),
						s.CreatedAt.Local().Format(snapshotTimeFormat),
						s.Source,
						s.Followers,
						s.Following,
					)
				}
				return tw.Flush()
			})
		},
	}
}

func newSnapshotDiffCmd(opts *globalOptions) *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "diff [snapshot-id]",
		Short: "Show who does not follow you back",
		Long: `Split a snapshot into accounts that do not follow you back, fans and mutuals,
and show how your followers changed since the snapshot before it.

Without an ID the latest snapshot is used; a unique ID prefix is enough.
With -o the accounts that do not follow you back are written one per line,
ready for 'igunfollow run'.`,
		Example: `  igunfollow snapshot diff
  igunfollow snapshot diff 1a2b3c4d -o unfollow_list.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, opts, func(cfg *config.Config, store *snapshot.Store) error {
				ctx := cmd.Context()

				var (
					snap *snapshot.Snapshot
					err  error
				)
				if len(args) == 1 {
					snap, err = store.Find(ctx, args[0])
				} else {
					snap, err = store.Latest(ctx)
				}
				if errors.Is(err, snapshot.ErrNotFound) && len(args) == 0 {
					return errors.New("no snapshots yet, create one with 'igunfollow snapshot import' or 'igunfollow snapshot fetch'")
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				diff := snapshot.Diff(snap)

				fmt.Fprintf(out, "Snapshot %s (%s, %s)\n", shortID(snap.ID.String()), snap.Source, snap.CreatedAt.Local().Format(snapshotTimeFormat))
				fmt.Fprintf(out, "  Followers: %d\n", len(snap.Followers))
				fmt.Fprintf(out, "  Following: %d\n\n", len(snap.Following))
				fmt.Fprintf(out, "%s %d\n", ui.Red("Not following back:"), len(diff.NotFollowingBack))
				fmt.Fprintf(out, "%s %d\n", ui.Yellow("Fans:"), len(diff.Fans))
				fmt.Fprintf(out, "%s %d\n", ui.Green("Mutuals:"), len(diff.Mutuals))

				previous, err := store.Previous(ctx, snap)
				switch {
				case err == nil:
					printHistory(out, previous, snapshot.History(previous, snap))
				case !errors.Is(err, snapshot.ErrNotFound):
					return err
				}

				names := snapshot.Usernames(diff.NotFollowingBack)
				if output == "" {
					if len(names) > 0 {
						fmt.Fprintln(out)
						for _, name := range names {
							fmt.Fprintf(out, "  %s\n", name)
						}
					}
					return nil
				}

				return writeUnfollowList(out, output, names, force)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the accounts not following back to this list file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing list file")
	return cmd
}

func printHistory(out io.Writer, previous *snapshot.Snapshot, entry snapshot.HistoryEntry) {
	fmt.Fprintf(out, "\nSince %s (%s): %s new, %s lost\n",
		shortID(previous.ID.String()),
		previous.CreatedAt.Local().Format(snapshotTimeFormat),
		ui.Green(fmt.Sprintf("+%d", len(entry.NewFollowers))),
		ui.Red(fmt.Sprintf("-%d", len(entry.LostFollowers))),
	)
	for _, u := range entry.NewFollowers {
		fmt.Fprintf(out, "  + %s\n", u.Username)
	}
	for _, u := range entry.LostFollowers {
		fmt.Fprintf(out, "  - %s\n", u.Username)
	}
}

// writeUnfollowList saves names in the list format batch.ReadUsernames parses
func writeUnfollowList(out io.Writer, output string, names []string, force bool) error {
	manager, err := storage.NewManager(filepath.Dir(output))
	if err != nil {
		return err
	}
	if manager.Exists(output) && !force {
		return fmt.Errorf("%s already exists, pass --force to overwrite it", manager.Path(output))
	}

	var buf bytes.Buffer
	if err := batch.WriteUsernames(&buf, names); err != nil {
		return err
	}
	path, err := manager.SaveList(&buf, output)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s %d usernames to %s\n", ui.Green("✓ Wrote"), len(names), path)
	fmt.Fprintf(out, "Run 'igunfollow %s' to unfollow them.\n", path)
	return nil
}

func newSnapshotDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <snapshot-id>",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, opts, func(cfg *config.Config, store *snapshot.Store) error {
				snap, err := store.Find(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(cmd.Context(), snap.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Green("✓ Deleted snapshot"), shortID(snap.ID.String()))
				return nil
			})
		},
	}
}
