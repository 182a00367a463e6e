package instagram

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnfollowURL(t *testing.T) {
	assert.Equal(t,
		"https://www.instagram.com/api/v1/web/friendships/john.doe/unfollow/",
		UnfollowURL(BaseURL, "john.doe"))
	assert.Equal(t,
		"http://127.0.0.1:1/api/v1/web/friendships/a%2Fb/unfollow/",
		UnfollowURL("http://127.0.0.1:1/", "a/b"))
}

func TestFriendshipsURL(t *testing.T) {
	assert.Equal(t,
		"https://i.instagram.com/api/v1/friendships/4242/followers/?count=100",
		FriendshipsURL(APIBaseURL, "4242", Followers, ""))
	assert.Equal(t,
		"https://i.instagram.com/api/v1/friendships/4242/following/?count=100&max_id=QVFE",
		FriendshipsURL(APIBaseURL, "4242", Following, "QVFE"))
}

func TestGetUserProfileURL(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/alice/", GetUserProfileURL(BaseURL, "alice"))
	assert.Empty(t, GetUserProfileURL(BaseURL, ""))
}

func TestSanitizeUsername(t *testing.T) {
	tests := map[string]string{
		"@alice":     "alice",
		" bob/ ":     "bob",
		"carol//":    "carol",
		"plain_name": "plain_name",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeUsername(in), "input %q", in)
	}
}

func TestCursorDecoding(t *testing.T) {
	tests := []struct {
		body string
		want Cursor
	}{
		{`{"next_max_id":"QVFE"}`, "QVFE"},
		{`{"next_max_id":200}`, "200"},
		{`{"next_max_id":null}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var page FriendshipsResponse
		require.NoError(t, json.Unmarshal([]byte(tt.body), &page), tt.body)
		assert.Equal(t, tt.want, page.NextMaxID, tt.body)
	}

	var page FriendshipsResponse
	assert.Error(t, json.Unmarshal([]byte(`{"next_max_id":true}`), &page))
}
