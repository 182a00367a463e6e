package instagram

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FriendshipKind selects which side of the follow graph to list
type FriendshipKind string

const (
	Followers FriendshipKind = "followers"
	Following FriendshipKind = "following"
)

// FriendshipUser is one account in a followers or following page
type FriendshipUser struct {
	PK       int64  `json:"pk"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

// FriendshipsResponse is one page of a friendship listing
type FriendshipsResponse struct {
	Users     []FriendshipUser `json:"users"`
	NextMaxID Cursor           `json:"next_max_id"`
	BigList   bool             `json:"big_list"`
	Status    string           `json:"status"`
}

// Cursor is a pagination token that Instagram sends either as a string or a number
type Cursor string

func (c *Cursor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cursor(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid cursor %s: %w", data, err)
	}
	*c = Cursor(n.String())
	return nil
}
