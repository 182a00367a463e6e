package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func users(names ...string) []User {
	out := make([]User, len(names))
	for i, n := range names {
		out[i] = User{Username: n}
	}
	return out
}

func TestDiff(t *testing.T) {
	snap := New(SourceExport, users("a", "b", "c"), users("d", "b", "e", "a"))

	result := Diff(snap)
	assert.Equal(t, []string{"d", "e"}, Usernames(result.NotFollowingBack))
	assert.Equal(t, []string{"c"}, Usernames(result.Fans))
	assert.Equal(t, []string{"a", "b"}, Usernames(result.Mutuals))
}

func TestDiffEmpty(t *testing.T) {
	result := Diff(New(SourceExport, nil, users("x")))
	assert.Equal(t, []string{"x"}, Usernames(result.NotFollowingBack))
	assert.Empty(t, result.Fans)
	assert.Empty(t, result.Mutuals)
}

func TestHistory(t *testing.T) {
	previous := New(SourceExport, users("a", "b", "c"), users("a"))
	current := New(SourceAPI, users("b", "c", "d", "e"), users("a", "b"))
	current.CreatedAt = previous.CreatedAt.Add(time.Hour)

	entry := History(previous, current)
	assert.Equal(t, current.ID, entry.SnapshotID)
	assert.Equal(t, current.CreatedAt, entry.Date)
	assert.Equal(t, []string{"d", "e"}, Usernames(entry.NewFollowers))
	assert.Equal(t, []string{"a"}, Usernames(entry.LostFollowers))
	assert.Equal(t, 4, entry.TotalFollowers)
	assert.Equal(t, 2, entry.TotalFollowing)
}
