package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"igunfollow/pkg/logger"
)

// ErrNotFound is returned when no snapshot matches
var ErrNotFound = errors.New("snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	source     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_users (
	snapshot_id TEXT NOT NULL,
	list        TEXT NOT NULL,
	position    INTEGER NOT NULL,
	username    TEXT NOT NULL,
	profile_url TEXT NOT NULL,
	followed_at INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (snapshot_id, list, position)
);
CREATE INDEX IF NOT EXISTS snapshots_created_at ON snapshots (created_at);
`

// Store keeps snapshots in a SQLite database
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// DefaultPath is the database location under the data directory
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "snapshots.db")
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate snapshot database: %w", err)
	}

	return &Store{db: db, logger: logger.GetLogger()}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores snap and both of its lists in one transaction
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, source) VALUES (?, ?, ?)`,
		snap.ID.String(), snap.CreatedAt.UnixNano(), string(snap.Source),
	); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_users (snapshot_id, list, position, username, profile_url, followed_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	lists := []struct {
		kind  ListKind
		users []User
	}{
		{KindFollowers, snap.Followers},
		{KindFollowing, snap.Following},
	}
	for _, l := range lists {
		for i, u := range l.users {
			if _, err := stmt.ExecContext(ctx, snap.ID.String(), string(l.kind), i, u.Username, u.ProfileURL, u.Timestamp); err != nil {
				return fmt.Errorf("failed to insert %s entry: %w", l.kind, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.logger.InfoWithFields("Snapshot saved", map[string]interface{}{
		"snapshot_id": snap.ID.String(),
		"source":      string(snap.Source),
		"followers":   len(snap.Followers),
		"following":   len(snap.Following),
	})
	return nil
}

// Get loads the snapshot with id
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	snap := &Snapshot{ID: id}
	var (
		created int64
		source  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, source FROM snapshots WHERE id = ?`, id.String(),
	).Scan(&created, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap.CreatedAt = time.Unix(0, created).UTC()
	snap.Source = Source(source)

	rows, err := s.db.QueryContext(ctx,
		`SELECT list, username, profile_url, followed_at FROM snapshot_users WHERE snapshot_id = ? ORDER BY list, position`,
		id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			list string
			u    User
		)
		if err := rows.Scan(&list, &u.Username, &u.ProfileURL, &u.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot user: %w", err)
		}
		if ListKind(list) == KindFollowers {
			snap.Followers = append(snap.Followers, u)
		} else {
			snap.Following = append(snap.Following, u)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot users: %w", err)
	}
	return snap, nil
}

// Latest loads the most recent snapshot
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	return s.getOne(ctx, `SELECT id FROM snapshots ORDER BY created_at DESC LIMIT 1`)
}

// Previous loads the snapshot taken just before snap
func (s *Store) Previous(ctx context.Context, snap *Snapshot) (*Snapshot, error) {
	return s.getOne(ctx,
		`SELECT id FROM snapshots WHERE created_at < ? ORDER BY created_at DESC LIMIT 1`,
		snap.CreatedAt.UnixNano())
}

// Find resolves a full ID or a unique ID prefix
func (s *Store) Find(ctx context.Context, idOrPrefix string) (*Snapshot, error) {
	if id, err := uuid.Parse(idOrPrefix); err == nil {
		return s.Get(ctx, id)
	}

	prefix := strings.ToLower(idOrPrefix)
	if prefix == "" {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM snapshots WHERE substr(id, 1, ?) = ? LIMIT 2`,
		utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to look up snapshot: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to look up snapshot: %w", err)
	}

	switch len(ids) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return s.Get(ctx, uuid.MustParse(ids[0]))
	default:
		return nil, fmt.Errorf("snapshot id prefix %q is ambiguous", idOrPrefix)
	}
}

// List returns summaries of every snapshot, newest first
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, s.source,
			(SELECT COUNT(*) FROM snapshot_users u WHERE u.snapshot_id = s.id AND u.list = 'followers'),
			(SELECT COUNT(*) FROM snapshot_users u WHERE u.snapshot_id = s.id AND u.list = 'following')
		FROM snapshots s
		ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			id      string
			created int64
			source  string
		)
		if err := rows.Scan(&id, &created, &source, &sum.Followers, &sum.Following); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot summary: %w", err)
		}
		sum.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid snapshot id %q: %w", id, err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		sum.Source = Source(source)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a snapshot and its lists
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_users WHERE snapshot_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete snapshot users: %w", err)
	}
	return tx.Commit()
}

func (s *Store) getOne(ctx context.Context, query string, args ...interface{}) (*Snapshot, error) {
	var id string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot id %q: %w", id, err)
	}
	return s.Get(ctx, parsed)
}
