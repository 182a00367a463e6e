package snapshot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igunfollow/pkg/instagram"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "data", "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	snap := New(SourceExport,
		[]User{{Username: "b", ProfileURL: "https://www.instagram.com/b", Timestamp: 42}, {Username: "a", ProfileURL: "https://www.instagram.com/a"}},
		[]User{{Username: "z", ProfileURL: "https://www.instagram.com/z"}},
	)
	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, loaded.ID)
	assert.Equal(t, SourceExport, loaded.Source)
	assert.True(t, snap.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, snap.Followers, loaded.Followers, "order and fields survive")
	assert.Equal(t, snap.Following, loaded.Following)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreLatestPreviousAndList(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	older := New(SourceExport, users("a"), users("x", "y"))
	older.CreatedAt = time.Now().Add(-time.Hour).UTC()
	newer := New(SourceAPI, users("a", "b"), users("x"))
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	prev, err := store.Previous(ctx, latest)
	require.NoError(t, err)
	assert.Equal(t, older.ID, prev.ID)

	_, err = store.Previous(ctx, prev)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, 2, list[0].Followers)
	assert.Equal(t, 1, list[0].Following)
	assert.Equal(t, SourceExport, list[1].Source)
	assert.Equal(t, 2, list[1].Following)
}

func TestStoreFindByPrefixAndDelete(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	snap := New(SourceExport, users("a"), nil)
	require.NoError(t, store.Save(ctx, snap))

	found, err := store.Find(ctx, snap.ID.String()[:8])
	require.NoError(t, err)
	assert.Equal(t, snap.ID, found.ID)

	found, err = store.Find(ctx, snap.ID.String())
	require.NoError(t, err)
	assert.Equal(t, snap.ID, found.ID)

	_, err = store.Find(ctx, "zzzz")
	assert.ErrorIs(t, err, ErrNotFound)

	found, err = store.Find(ctx, strings.ToUpper(snap.ID.String()[:6]))
	require.NoError(t, err)
	assert.Equal(t, snap.ID, found.ID)

	// Prefixes are compared literally
	for _, prefix := range []string{"", "%", "_", snap.ID.String()[:2] + "%"} {
		_, err = store.Find(ctx, prefix)
		assert.ErrorIs(t, err, ErrNotFound, "prefix %q", prefix)
	}

	require.NoError(t, store.Delete(ctx, snap.ID))
	_, err = store.Get(ctx, snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, snap.ID), ErrNotFound)
}

func TestFromFriendships(t *testing.T) {
	got := FromFriendships([]instagram.FriendshipUser{
		{PK: 1, Username: "alice"},
		{PK: 2, Username: "bob"},
		{PK: 1, Username: "alice"},
	})
	assert.Equal(t, []string{"alice", "bob"}, Usernames(got))
	assert.Equal(t, "https://www.instagram.com/alice/", got[0].ProfileURL)
}
