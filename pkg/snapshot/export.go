package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/instagram"
)

// ListKind tells which list an export file holds
type ListKind string

const (
	KindFollowers ListKind = "followers"
	KindFollowing ListKind = "following"
	KindUnknown   ListKind = ""
)

// ExportFile is one JSON file from an Instagram data export
type ExportFile struct {
	Name    string
	Content []byte
}

type exportEntry struct {
	Title          string `json:"title"`
	StringListData []struct {
		Href      string `json:"href"`
		Value     string `json:"value"`
		Timestamp int64  `json:"timestamp"`
	} `json:"string_list_data"`
}

// ClassifyFile decides from the file name which list a file holds.
// "following" is checked first since it also contains "follow".
func ClassifyFile(name string) ListKind {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case strings.Contains(lower, "following"):
		return KindFollowing
	case strings.Contains(lower, "follower"):
		return KindFollowers
	default:
		return KindUnknown
	}
}

// ParseExport extracts the accounts listed in one export file. The file is
// either a JSON array of entries or an object whose first array member holds
// them.
func ParseExport(data []byte) ([]User, error) {
	entries, err := exportEntries(data)
	if err != nil {
		return nil, err
	}

	var users []User
	for _, entry := range entries {
		for _, item := range entry.StringListData {
			username := item.Value
			if username == "" {
				username = usernameFromURL(item.Href)
			}
			if username == "" {
				username = entry.Title
			}
			if username == "" {
				continue
			}

			profileURL := item.Href
			if profileURL == "" {
				profileURL = instagram.GetUserProfileURL(instagram.BaseURL, username)
			}
			users = append(users, User{
				Username:   username,
				ProfileURL: profileURL,
				Timestamp:  item.Timestamp,
			})
		}
	}
	return users, nil
}

func exportEntries(data []byte) ([]exportEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errs.New(errs.ErrorTypeParsing, "invalid export format: empty file")
	}

	var entries []exportEntry
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeParsing, "invalid export format", err)
		}
		return entries, nil

	case '{':
		// Walk members in document order so the first array wins
		dec := json.NewDecoder(bytes.NewReader(data))
		if _, err := dec.Token(); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeParsing, "invalid export format", err)
		}
		for dec.More() {
			if _, err := dec.Token(); err != nil {
				return nil, errs.Wrap(errs.ErrorTypeParsing, "invalid export format", err)
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, errs.Wrap(errs.ErrorTypeParsing, "invalid export format", err)
			}
			if len(raw) > 0 && raw[0] == '[' {
				if err := json.Unmarshal(raw, &entries); err != nil {
					return nil, errs.Wrap(errs.ErrorTypeParsing, "invalid export format", err)
				}
				return entries, nil
			}
		}
		return nil, errs.New(errs.ErrorTypeParsing, "invalid export format: no array found in object")
	}

	return nil, errs.New(errs.ErrorTypeParsing, "invalid export format: expected an array or object")
}

// usernameFromURL returns the first path segment of a profile URL, skipping
// the "_u" prefix newer exports put in front of it
func usernameFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg != "" && seg != "_u" {
			return seg
		}
	}
	return ""
}

// ParseExportFiles merges the followers and following files of an export.
// Files of unknown kind are skipped and each list is deduplicated by
// username, keeping first occurrences.
func ParseExportFiles(files []ExportFile) (followers, following []User, err error) {
	for _, f := range files {
		kind := ClassifyFile(f.Name)
		if kind == KindUnknown {
			continue
		}

		users, err := ParseExport(f.Content)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		if kind == KindFollowers {
			followers = append(followers, users...)
		} else {
			following = append(following, users...)
		}
	}
	return dedupe(followers), dedupe(following), nil
}

// ReadExportFiles loads export files from paths. A directory contributes
// every .json file below it.
func ReadExportFiles(paths ...string) ([]ExportFile, error) {
	var files []ExportFile

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			files = append(files, ExportFile{Name: filepath.Base(path), Content: content})
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".json") {
				return nil
			}
			content, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			files = append(files, ExportFile{Name: d.Name(), Content: content})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read export directory: %w", err)
		}
	}

	return files, nil
}
