// Package checkpoint lets an interrupted unfollow run pick up where it
// stopped.
//
// A checkpoint belongs to one username list file and records which
// usernames were unfollowed successfully and which failed. When a run is
// started with --resume, completed usernames are skipped and failed ones
// are attempted again. Files are written atomically through a temporary
// file and rename, under the data directory's checkpoints folder unless
// batch.checkpoint_dir says otherwise.
package checkpoint
