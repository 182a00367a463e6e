package batch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoUsernames is returned when a list holds nothing but blank entries
var ErrNoUsernames = errors.New("no usernames found")

// ParseUsernames reads one username per line. Lines are trimmed and blank
// lines dropped; order and duplicates are kept.
func ParseUsernames(r io.Reader) ([]string, error) {
	var usernames []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if u := strings.TrimSpace(scanner.Text()); u != "" {
			usernames = append(usernames, u)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usernames: %w", err)
	}

	if len(usernames) == 0 {
		return nil, ErrNoUsernames
	}
	return usernames, nil
}

// ReadUsernames loads a username list file
func ReadUsernames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseUsernames(f)
}

// NormalizeUsernames trims entries of an in-memory list and drops blanks
func NormalizeUsernames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, u := range in {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// WriteUsernames writes one username per line, the format ParseUsernames reads
func WriteUsernames(w io.Writer, usernames []string) error {
	bw := bufio.NewWriter(w)
	for _, u := range usernames {
		if _, err := bw.WriteString(u + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
