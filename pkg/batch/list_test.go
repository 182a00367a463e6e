package batch

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUsernames(t *testing.T) {
	usernames, err := ParseUsernames(strings.NewReader("  alice \n\nbob\r\n\t\nalice\ncarol"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "alice", "carol"}, usernames)
}

func TestParseUsernamesEmpty(t *testing.T) {
	_, err := ParseUsernames(strings.NewReader("\n   \n\t\n"))
	assert.ErrorIs(t, err, ErrNoUsernames)
}

func TestReadUsernames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unfollow_list.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0644))

	usernames, err := ReadUsernames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, usernames)

	_, err = ReadUsernames(filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestNormalizeUsernames(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, NormalizeUsernames([]string{" a ", "", "  ", "b"}))
	assert.Empty(t, NormalizeUsernames(nil))
}

func TestWriteUsernamesMatchesParse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUsernames(&buf, []string{"x", "y"}))
	assert.Equal(t, "x\ny\n", buf.String())

	back, err := ParseUsernames(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, back)
}
