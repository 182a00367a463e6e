package snapshot

import (
	"time"

	"github.com/google/uuid"

	"igunfollow/pkg/instagram"
)

// Source records how a snapshot was obtained
type Source string

const (
	SourceExport Source = "export"
	SourcePaste  Source = "paste"
	SourceAPI    Source = "api"
)

// User is one account on a followers or following list
type User struct {
	Username   string `json:"username"`
	ProfileURL string `json:"profile_url"`
	// Timestamp is when the follow happened, in Unix seconds, when known
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Snapshot is the followers and following lists at one point in time
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Source    Source    `json:"source"`
	Followers []User    `json:"followers"`
	Following []User    `json:"following"`
}

// New creates a snapshot with a fresh ID
func New(source Source, followers, following []User) *Snapshot {
	return &Snapshot{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Source:    source,
		Followers: followers,
		Following: following,
	}
}

// Summary is the listing view of a stored snapshot
type Summary struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Source    Source
	Followers int
	Following int
}

// FromFriendships converts accounts returned by the friendships API
func FromFriendships(users []instagram.FriendshipUser) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, User{
			Username:   u.Username,
			ProfileURL: instagram.GetUserProfileURL(instagram.BaseURL, u.Username),
		})
	}
	return dedupe(out)
}

// Usernames returns the usernames of users in order
func Usernames(users []User) []string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	return names
}

func dedupe(users []User) []User {
	seen := make(map[string]bool, len(users))
	out := users[:0]
	for _, u := range users {
		if seen[u.Username] {
			continue
		}
		seen[u.Username] = true
		out = append(out, u)
	}
	return out
}
