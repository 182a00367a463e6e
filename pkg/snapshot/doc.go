// Package snapshot records who follows an account and whom it follows.
//
// Snapshots come either from the JSON files of an Instagram data export or
// from the friendships API, and are kept in a SQLite database. Diff splits a
// snapshot into accounts that do not follow back, fans and mutuals; the
// not-following-back group, written one username per line, is exactly the
// list an unfollow run consumes. History compares two snapshots.
package snapshot
