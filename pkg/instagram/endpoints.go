package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the Instagram web origin
	BaseURL = "https://www.instagram.com"

	// APIBaseURL serves the private friendship listing API
	APIBaseURL = "https://i.instagram.com"

	// AppID is the Instagram web app id expected by the private API
	AppID = "936619743392459"

	// UnfollowEndpoint is the web unfollow path, formatted with a username
	UnfollowEndpoint = "/api/v1/web/friendships/%s/unfollow/"

	// FriendshipsEndpoint lists followers or following, formatted with a user id and kind
	FriendshipsEndpoint = "/api/v1/friendships/%s/%s/"

	// FriendshipsPageSize is the count requested per page
	FriendshipsPageSize = 100

	// MaxFriendshipPages bounds a single listing
	MaxFriendshipPages = 100
)

// UnfollowURL builds the unfollow endpoint for username under base
func UnfollowURL(base, username string) string {
	return strings.TrimRight(base, "/") + fmt.Sprintf(UnfollowEndpoint, url.PathEscape(username))
}

// FriendshipsURL builds one page of a followers or following listing
func FriendshipsURL(apiBase, userID string, kind FriendshipKind, maxID string) string {
	params := url.Values{}
	params.Set("count", fmt.Sprint(FriendshipsPageSize))
	if maxID != "" {
		params.Set("max_id", maxID)
	}

	path := fmt.Sprintf(FriendshipsEndpoint, url.PathEscape(userID), kind)
	return strings.TrimRight(apiBase, "/") + path + "?" + params.Encode()
}

// GetUserProfileURL constructs the public profile URL for a user
func GetUserProfileURL(base, username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", strings.TrimRight(base, "/"), username)
}

// SanitizeUsername strips a leading @, surrounding spaces and trailing slashes
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}
