package batch_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igunfollow/internal/igtest"
	"igunfollow/pkg/auth"
	"igunfollow/pkg/batch"
	"igunfollow/pkg/checkpoint"
	"igunfollow/pkg/instagram"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ratelimit"
	"igunfollow/pkg/ui"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// fakeUnfollower fails the usernames in fail and records every call
type fakeUnfollower struct {
	calls []string
	fail  map[string]error
	after func(n int)
}

func (f *fakeUnfollower) Unfollow(ctx context.Context, username string) error {
	f.calls = append(f.calls, username)
	if f.after != nil {
		f.after(len(f.calls))
	}
	return f.fail[username]
}

func newPacer() *ratelimit.RandomInterval {
	return ratelimit.NewRandomInterval(20*time.Second, 30*time.Second).WithSeed(1)
}

func TestRunAgainstInstagram(t *testing.T) {
	srv := igtest.NewServer()
	defer srv.Close()
	srv.Script("bob", http.StatusNotFound)
	srv.Script("carol", http.StatusTooManyRequests)

	sleeps := &sleepRecorder{}
	var out bytes.Buffer
	console := ui.NewConsole(&out)

	opts := instagram.DefaultOptions()
	opts.BaseURL = srv.URL()
	opts.Sleep = sleeps.Sleep
	opts.OnRateLimit = func(_ string, wait time.Duration) { console.RateLimited(wait) }
	client := instagram.NewClient(&auth.CookieSet{SessionID: "s", CSRFToken: "c", DSUserID: "1"}, opts, logger.NewNopLogger())

	log := logger.NewTestLogger()
	runner := batch.NewRunner(client, newPacer(), console, log).WithSleep(sleeps.Sleep)

	result := runner.Run(context.Background(), []string{"alice", "bob", "carol"})

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Failure)
	assert.Equal(t, []string{"bob"}, result.Failed)
	assert.False(t, result.Interrupted)

	// carol is sent twice: once rate limited, once accepted
	assert.Equal(t, []string{"alice", "bob", "carol", "carol"}, srv.Usernames())

	transcript := out.String()
	assert.Contains(t, transcript, "[1/3] Unfollowing alice... ✓\n")
	assert.Contains(t, transcript, "[2/3] Unfollowing bob... ✗\n    HTTP 404: Not Found\n")
	assert.Contains(t, transcript, "[3/3] Unfollowing carol... \n    Rate limited! Waiting 5 minutes...\n    ✓\n")
	assert.Contains(t, transcript, "\nDone! ✓ 2 unfollowed, ✗ 1 failed\n")

	assert.Len(t, log.GetMessagesByLevel("INFO"), 4)
	assert.True(t, log.HasMessage("Unfollow failed"))
}

func TestRunPacesBetweenUsernamesOnly(t *testing.T) {
	sleeps := &sleepRecorder{}
	client := &fakeUnfollower{}
	var out bytes.Buffer

	runner := batch.NewRunner(client, newPacer(), ui.NewConsole(&out), logger.NewNopLogger()).WithSleep(sleeps.Sleep)
	runner.Run(context.Background(), []string{"a", "b", "c", "d"})

	delays := sleeps.Delays()
	require.Len(t, delays, 3)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, 20*time.Second)
		assert.Less(t, d, 30*time.Second)
	}
	assert.Equal(t, 3, bytes.Count(out.Bytes(), []byte("Waiting ")))
}

func TestRunSingleUsernameNeverWaits(t *testing.T) {
	sleeps := &sleepRecorder{}
	runner := batch.NewRunner(&fakeUnfollower{}, newPacer(), nil, logger.NewNopLogger()).WithSleep(sleeps.Sleep)

	result := runner.Run(context.Background(), []string{"solo"})

	assert.Equal(t, 1, result.Success)
	assert.Empty(t, sleeps.Delays())
}

func TestRunKeepsGoingAfterFailures(t *testing.T) {
	client := &fakeUnfollower{fail: map[string]error{
		"a": errors.New("network down"),
		"b": errors.New("network down"),
	}}
	var seen []string

	runner := batch.NewRunner(client, newPacer(), nil, logger.NewNopLogger()).WithSleep((&sleepRecorder{}).Sleep)
	runner.OnResult = func(username string, err error) { seen = append(seen, username) }

	result := runner.Run(context.Background(), []string{"a", "b", "c"})

	assert.Equal(t, []string{"a", "b", "c"}, client.calls)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 2, result.Failure)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeUnfollower{after: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	var out bytes.Buffer

	runner := batch.NewRunner(client, newPacer(), ui.NewConsole(&out), logger.NewNopLogger()).WithSleep((&sleepRecorder{}).Sleep)
	result := runner.Run(ctx, []string{"a", "b", "c", "d"})

	assert.True(t, result.Interrupted)
	assert.Equal(t, []string{"a", "b"}, client.calls)
	assert.Equal(t, 2, result.Success)
	assert.Contains(t, out.String(), "Done! ✓ 2 unfollowed, ✗ 0 failed")
}

func TestRunWithCheckpointResumes(t *testing.T) {
	dir := t.TempDir()
	listFile := filepath.Join(dir, "unfollow_list.txt")
	mgr, err := checkpoint.NewManager(filepath.Join(dir, "checkpoints"), listFile)
	require.NoError(t, err)

	usernames := []string{"a", "b", "c", "d"}
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeUnfollower{
		fail: map[string]error{"b": errors.New("HTTP 500")},
		after: func(n int) {
			if n == 3 {
				cancel()
			}
		},
	}

	runner := batch.NewRunner(first, newPacer(), nil, logger.NewNopLogger()).WithSleep((&sleepRecorder{}).Sleep)
	result, err := runner.RunWithCheckpoint(ctx, mgr, listFile, usernames)
	require.NoError(t, err)
	assert.True(t, result.Interrupted)
	assert.True(t, mgr.Exists())

	// The failed username is retried, the successful ones are skipped
	second := &fakeUnfollower{}
	runner = batch.NewRunner(second, newPacer(), nil, logger.NewNopLogger()).WithSleep((&sleepRecorder{}).Sleep)
	result, err = runner.RunWithCheckpoint(context.Background(), mgr, listFile, usernames)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "d"}, second.calls)
	assert.Equal(t, 2, result.Success)
	assert.False(t, mgr.Exists(), "a fully successful list clears its checkpoint")
}
