package snapshot

import (
	"time"

	"github.com/google/uuid"
)

// DiffResult splits a snapshot into the three relationship groups
type DiffResult struct {
	// NotFollowingBack are accounts you follow that do not follow you
	NotFollowingBack []User
	// Fans follow you without being followed back
	Fans []User
	// Mutuals follow each other with you
	Mutuals []User
}

// Diff computes the relationship groups of s. Each group keeps the order of
// the list it was taken from.
func Diff(s *Snapshot) DiffResult {
	followers := usernameSet(s.Followers)
	following := usernameSet(s.Following)

	var result DiffResult
	for _, u := range s.Following {
		if !followers[u.Username] {
			result.NotFollowingBack = append(result.NotFollowingBack, u)
		}
	}
	for _, u := range s.Followers {
		if following[u.Username] {
			result.Mutuals = append(result.Mutuals, u)
		} else {
			result.Fans = append(result.Fans, u)
		}
	}
	return result
}

// HistoryEntry describes how the followers changed between two snapshots
type HistoryEntry struct {
	SnapshotID     uuid.UUID
	Date           time.Time
	NewFollowers   []User
	LostFollowers  []User
	TotalFollowers int
	TotalFollowing int
}

// History compares current against previous
func History(previous, current *Snapshot) HistoryEntry {
	before := usernameSet(previous.Followers)
	now := usernameSet(current.Followers)

	entry := HistoryEntry{
		SnapshotID:     current.ID,
		Date:           current.CreatedAt,
		TotalFollowers: len(current.Followers),
		TotalFollowing: len(current.Following),
	}
	for _, u := range current.Followers {
		if !before[u.Username] {
			entry.NewFollowers = append(entry.NewFollowers, u)
		}
	}
	for _, u := range previous.Followers {
		if !now[u.Username] {
			entry.LostFollowers = append(entry.LostFollowers, u)
		}
	}
	return entry
}

func usernameSet(users []User) map[string]bool {
	set := make(map[string]bool, len(users))
	for _, u := range users {
		set[u.Username] = true
	}
	return set
}
