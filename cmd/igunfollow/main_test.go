package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igunfollow/internal/igtest"
	"igunfollow/pkg/instagram"
	"igunfollow/pkg/ui"
)

// setupEnv isolates the command from the user's home, config and cookies.
// With a fake server the Instagram endpoints point at it.
func setupEnv(t *testing.T, fake *igtest.Server) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("NO_COLOR", "1")

	t.Setenv("IGUNFOLLOW_MIN_DELAY", "0")
	t.Setenv("IGUNFOLLOW_MAX_DELAY", "0")
	t.Setenv("IGUNFOLLOW_RATE_LIMIT_WAIT", "1ms")
	t.Setenv("IGUNFOLLOW_SESSION_ID", "")
	t.Setenv("IGUNFOLLOW_CSRF_TOKEN", "")
	t.Setenv("IGUNFOLLOW_DS_USER_ID", "")

	cookieFile := filepath.Join(dir, "cookies.json")
	require.NoError(t, os.WriteFile(cookieFile,
		[]byte(`{"sessionid":"sess-1234567890","csrftoken":"csrf-1234567890","ds_user_id":"42"}`), 0600))
	t.Setenv("IGUNFOLLOW_COOKIE_FILE", cookieFile)

	if fake != nil {
		t.Setenv("IGUNFOLLOW_BASE_URL", fake.URL())
		t.Setenv("IGUNFOLLOW_API_BASE_URL", fake.URL())
	}
	return dir
}

// runCLI executes the command line and returns everything it printed
func runCLI(t *testing.T, args ...string) (string, int) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))

	code := execute(context.Background(), cmd, args)
	return out.String(), code
}

func writeList(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestUsageWithoutList(t *testing.T) {
	setupEnv(t, nil)

	out, code := runCLI(t)

	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Usage: igunfollow <unfollow_list.txt>")
	assert.Contains(t, out, "Export the list from the app: Analysis → Download Unfollow List")
}

func TestMissingListFile(t *testing.T) {
	setupEnv(t, nil)

	out, code := runCLI(t, "nope.txt")

	assert.Equal(t, 1, code)
	assert.Equal(t, "File not found: nope.txt\n", out)
}

func TestBlankListFile(t *testing.T) {
	dir := setupEnv(t, nil)
	list := writeList(t, dir, "blank.txt", "", "   ", "\t")

	out, code := runCLI(t, list)

	assert.Equal(t, 1, code)
	assert.Equal(t, "No usernames found in file\n", out)
}

func TestRunTranscript(t *testing.T) {
	fake := igtest.NewServer()
	defer fake.Close()
	dir := setupEnv(t, fake)

	fake.Script("bob", http.StatusNotFound)
	fake.Script("carol", http.StatusTooManyRequests)
	list := writeList(t, dir, "unfollow_list.txt", "  alice  ", "", "bob", "carol")

	out, code := runCLI(t, list)

	// Failed unfollows are reported, not fatal
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "\nFound 3 users to unfollow\n\n")
	assert.Contains(t, out, "[1/3] Unfollowing alice... ✓\n    Waiting 0s...\n")
	assert.Contains(t, out, "[2/3] Unfollowing bob... ✗\n    HTTP 404: Not Found\n")
	assert.Contains(t, out, "[3/3] Unfollowing carol... \n    Rate limited! Waiting 1ms...\n")
	assert.True(t, strings.HasSuffix(out, "\nDone! ✓ 2 unfollowed, ✗ 1 failed\n"), out)
	assert.Equal(t, 2, strings.Count(out, "Waiting 0s..."))

	assert.Equal(t, []string{"alice", "bob", "carol", "carol"}, fake.Usernames())
}

func TestRunSubcommandQuiet(t *testing.T) {
	fake := igtest.NewServer()
	defer fake.Close()
	dir := setupEnv(t, fake)
	list := writeList(t, dir, "list.txt", "alice")

	out, code := runCLI(t, "run", "--quiet", list)

	assert.Equal(t, 0, code)
	assert.NotContains(t, out, "Unfollowing")
	assert.NotContains(t, out, "Done!")
	assert.Equal(t, []string{"alice"}, fake.Usernames())
}

type recordingSender struct {
	messages []string
}

func (r *recordingSender) Send(title, message string) error {
	r.messages = append(r.messages, title+": "+message)
	return nil
}

func TestRunNotifications(t *testing.T) {
	fake := igtest.NewServer()
	defer fake.Close()
	dir := setupEnv(t, fake)
	list := writeList(t, dir, "list.txt", "alice")

	sender := &recordingSender{}
	original := notificationSender
	notificationSender = func() ui.NotificationSender { return sender }
	t.Cleanup(func() { notificationSender = original })

	out, code := runCLI(t, "--notifications", list)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "igunfollow: 1 unfollowed, 0 failed")

	out, code = runCLI(t, "--notifications", "--quiet", list)
	require.Equal(t, 0, code, out)
	assert.NotContains(t, out, "unfollowed")

	assert.Equal(t, []string{
		"igunfollow: 1 unfollowed, 0 failed",
		"igunfollow: 1 unfollowed, 0 failed",
	}, sender.messages)
}

func TestRunResume(t *testing.T) {
	fake := igtest.NewServer()
	defer fake.Close()
	dir := setupEnv(t, fake)

	fake.Script("bob", http.StatusNotFound)
	list := writeList(t, dir, "list.txt", "alice", "bob", "carol")

	out, code := runCLI(t, "run", "--resume", list)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Done! ✓ 2 unfollowed, ✗ 1 failed")

	checkpoints, err := filepath.Glob(filepath.Join(dir, "data", "igunfollow", "checkpoints", "*.checkpoint.json"))
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)

	out, code = runCLI(t, "run", "--resume", list)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Resuming: 2 already unfollowed")
	assert.Contains(t, out, "[1/1] Unfollowing bob... ✓")

	assert.Equal(t, []string{"alice", "bob", "carol", "bob"}, fake.Usernames())

	// A fully successful pass clears the progress file
	_, err = os.Stat(checkpoints[0])
	assert.True(t, os.IsNotExist(err))
}

func TestRunPromptsForMissingCookies(t *testing.T) {
	fake := igtest.NewServer()
	defer fake.Close()
	dir := setupEnv(t, fake)

	cookieFile := filepath.Join(dir, "fresh", "cookies.json")
	t.Setenv("IGUNFOLLOW_COOKIE_FILE", cookieFile)
	list := writeList(t, dir, "list.txt", "alice")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader("sess\ncsrf\n42\n"))
	code := execute(context.Background(), cmd, []string{list})

	require.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "sessionid: ")
	assert.Contains(t, out.String(), "Cookies saved to "+cookieFile)

	saved, err := os.ReadFile(cookieFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionid":"sess","csrftoken":"csrf","ds_user_id":"42"}`, string(saved))

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "csrf", reqs[0].Header.Get("X-CSRFToken"))
}

func TestInvalidConfigFails(t *testing.T) {
	dir := setupEnv(t, nil)
	list := writeList(t, dir, "list.txt", "alice")
	t.Setenv("IGUNFOLLOW_PORT", "not-a-port")

	out, code := runCLI(t, list)

	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Error: ")
	assert.Contains(t, out, "IGUNFOLLOW_PORT")
}

const followersExport = `[
  {"title": "", "media_list_data": [], "string_list_data": [
    {"href": "https://www.instagram.com/alice", "value": "alice", "timestamp": 1700000000}
  ]},
  {"title": "", "media_list_data": [], "string_list_data": [
    {"href": "https://www.instagram.com/bob", "value": "bob", "timestamp": 1700000100}
  ]}
]`

const followingExport = `{"relationships_following": [
  {"title": "", "string_list_data": [
    {"href": "https://www.instagram.com/alice", "value": "alice", "timestamp": 1700000200}
  ]},
  {"title": "", "string_list_data": [
    {"href": "https://www.instagram.com/_u/carol", "timestamp": 1700000300}
  ]},
  {"title": "", "string_list_data": [
    {"href": "https://www.instagram.com/dave", "value": "dave", "timestamp": 1700000400}
  ]}
]}`

func TestSnapshotImportAndDiff(t *testing.T) {
	dir := setupEnv(t, nil)

	exportDir := filepath.Join(dir, "export")
	require.NoError(t, os.MkdirAll(exportDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "followers_1.json"), []byte(followersExport), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "following.json"), []byte(followingExport), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "close_friends.json"), []byte(`[]`), 0644))

	out, code := runCLI(t, "snapshot", "import", exportDir)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Followers: 2")
	assert.Contains(t, out, "Following: 3")

	out, code = runCLI(t, "snapshot", "list")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "export")

	listPath := filepath.Join(dir, "out", "unfollow_list.txt")
	out, code = runCLI(t, "snapshot", "diff", "-o", listPath)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Not following back: 2")
	assert.Contains(t, out, "Fans: 1")
	assert.Contains(t, out, "Mutuals: 1")

	written, err := os.ReadFile(listPath)
	require.NoError(t, err)
	assert.Equal(t, "carol\ndave\n", string(written))

	// The list is not replaced without --force
	out, code = runCLI(t, "snapshot", "diff", "-o", listPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "--force")

	_, code = runCLI(t, "snapshot", "diff", "-o", listPath, "--force")
	assert.Equal(t, 0, code)
}

func TestSnapshotPasteAndDiff(t *testing.T) {
	dir := setupEnv(t, nil)

	followers := writeList(t, dir, "followers.txt",
		"Followers", "alice's profile picture", "alice", "Alice Liddell", "@Bob", "More")
	following := writeList(t, dir, "following.txt",
		"Following", "128 following", "alice", "carol", "@carol", "dave.k")

	out, code := runCLI(t, "snapshot", "paste", "--followers", followers, "--following", following)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Followers: 2")
	assert.Contains(t, out, "Following: 3")

	out, code = runCLI(t, "snapshot", "list")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "paste")

	out, code = runCLI(t, "snapshot", "diff")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Not following back: 2")
	assert.Contains(t, out, "  carol\n")
	assert.Contains(t, out, "  dave.k\n")

	out, code = runCLI(t, "snapshot", "paste")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "--followers or --following")
}

func TestSnapshotDiffWithoutSnapshots(t *testing.T) {
	setupEnv(t, nil)

	out, code := runCLI(t, "snapshot", "diff")

	assert.Equal(t, 1, code)
	assert.Contains(t, out, "no snapshots yet")
}

func TestSnapshotFetchAndHistory(t *testing.T) {
	fake := igtest.NewServer()
	defer fake.Close()
	setupEnv(t, fake)

	fake.SetFriendships(instagram.Followers, []instagram.FriendshipUser{
		{PK: 1, Username: "alice"},
		{PK: 2, Username: "bob"},
	}, 0)
	fake.SetFriendships(instagram.Following, []instagram.FriendshipUser{
		{PK: 1, Username: "alice"},
		{PK: 3, Username: "carol"},
	}, 0)

	out, code := runCLI(t, "snapshot", "fetch")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Fetching followers...")
	assert.Contains(t, out, "Followers: 2")

	// bob unfollowed, erin followed
	fake.SetFriendships(instagram.Followers, []instagram.FriendshipUser{
		{PK: 1, Username: "alice"},
		{PK: 5, Username: "erin"},
	}, 0)

	out, code = runCLI(t, "snapshot", "fetch")
	require.Equal(t, 0, code, out)

	out, code = runCLI(t, "snapshot", "diff")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Not following back: 1")
	assert.Contains(t, out, "  carol\n")
	assert.Contains(t, out, "+1 new, -1 lost")
	assert.Contains(t, out, "  + erin\n")
	assert.Contains(t, out, "  - bob\n")
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := setupEnv(t, nil)
	path := filepath.Join(dir, "conf", "igunfollow.yaml")

	out, code := runCLI(t, "config", "init", "--config", path)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Configuration file created: "+path)

	out, code = runCLI(t, "config", "init", "--config", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "already exists")

	// Environment overrides from setupEnv still apply on top of the file
	out, code = runCLI(t, "config", "validate", "--config", path)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "Server: 127.0.0.1:5555")

	out, code = runCLI(t, "config", "show", "--config", path)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "min_delay: 0s")

	out, code = runCLI(t, "config", "show", "--port", "6000")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "unknown flag: --port")
}

func TestAuthImportShowLogout(t *testing.T) {
	dir := setupEnv(t, nil)
	cookieFile := filepath.Join(dir, "imported.json")
	t.Setenv("IGUNFOLLOW_COOKIE_FILE", cookieFile)

	netscape := strings.Join([]string{
		"# Netscape HTTP Cookie File",
		".instagram.com\tTRUE\t/\tTRUE\t4102444800\tsessionid\tsession-abcdefghijkl",
		"#HttpOnly_.instagram.com\tTRUE\t/\tTRUE\t4102444800\tcsrftoken\tcsrf-abcdefghijkl",
		".instagram.com\tTRUE\t/\tTRUE\t4102444800\tds_user_id\t4242",
		".example.com\tTRUE\t/\tFALSE\t4102444800\tsessionid\tnot-this-one",
	}, "\n") + "\n"
	txt := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(txt, []byte(netscape), 0600))

	out, code := runCLI(t, "auth", "import", txt)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "cookies for user 4242")

	saved, err := os.ReadFile(cookieFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionid":"session-abcdefghijkl","csrftoken":"csrf-abcdefghijkl","ds_user_id":"4242"}`, string(saved))

	out, code = runCLI(t, "auth", "show")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "sess...ijkl")
	assert.NotContains(t, out, "session-abcdefghijkl")

	out, code = runCLI(t, "auth", "logout")
	require.Equal(t, 0, code, out)
	_, err = os.Stat(cookieFile)
	assert.True(t, os.IsNotExist(err))

	out, code = runCLI(t, "auth", "show")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "No cookies stored.")
}

func TestAuthImportIncomplete(t *testing.T) {
	dir := setupEnv(t, nil)

	txt := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(txt, []byte("# Netscape HTTP Cookie File\n.instagram.com\tTRUE\t/\tTRUE\t4102444800\tcsrftoken\tabc\n"), 0600))

	out, code := runCLI(t, "auth", "import", txt)

	assert.Equal(t, 1, code)
	assert.Contains(t, out, "sessionid")
	assert.Contains(t, out, "Log into instagram.com")
}
