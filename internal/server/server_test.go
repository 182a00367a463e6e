package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igunfollow/pkg/batch"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ratelimit"
)

// gatedUnfollower blocks every call until release is closed
type gatedUnfollower struct {
	release chan struct{}
	fail    map[string]bool

	mu    sync.Mutex
	calls []string
}

func newGatedUnfollower() *gatedUnfollower {
	return &gatedUnfollower{release: make(chan struct{}), fail: map[string]bool{}}
}

func (g *gatedUnfollower) Unfollow(ctx context.Context, username string) error {
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.mu.Lock()
	g.calls = append(g.calls, username)
	g.mu.Unlock()
	if g.fail[username] {
		return errors.New("HTTP 404")
	}
	return nil
}

func (g *gatedUnfollower) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newTestServer(client batch.Unfollower, log logger.Logger) *Server {
	factory := func(l logger.Logger) *batch.Runner {
		pacer := ratelimit.NewRandomInterval(20*time.Second, 30*time.Second)
		return batch.NewRunner(client, pacer, nil, l).WithSleep(noSleep)
	}
	return New(Options{Port: 0}, factory, log)
}

func do(t *testing.T, h http.Handler, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/", r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func assertCORS(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestStatus(t *testing.T) {
	s := newTestServer(newGatedUnfollower(), logger.NewNopLogger())

	w := do(t, s.Handler(), http.MethodGet, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"status": "ready"}, decode(t, w))
	assertCORS(t, w)
}

func TestPreflight(t *testing.T) {
	s := newTestServer(newGatedUnfollower(), logger.NewNopLogger())

	w := do(t, s.Handler(), http.MethodOptions, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assertCORS(t, w)
}

func TestPostRejectsBadBodies(t *testing.T) {
	s := newTestServer(newGatedUnfollower(), logger.NewNopLogger())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", "usernames=alice", "Invalid JSON"},
		{"empty body", "", "Invalid JSON"},
		{"wrong shape", `{"usernames": "alice"}`, "Invalid JSON"},
		{"missing list", `{}`, "No usernames provided"},
		{"blank entries", `{"usernames": ["", "   "]}`, "No usernames provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s.Handler(), http.MethodPost, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decode(t, w)["error"])
			assertCORS(t, w)
		})
	}
	s.Wait()
}

func TestPostStartsBatchInBackground(t *testing.T) {
	client := newGatedUnfollower()
	client.fail["bob"] = true
	log := logger.NewTestLogger()
	s := newTestServer(client, log)

	w := do(t, s.Handler(), http.MethodPost, `{"usernames": [" alice ", "", "bob", "carol"]}`)

	// The response arrives while the batch is still blocked on its first username
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"started": true, "count": float64(3)}, decode(t, w))
	assert.Empty(t, client.Calls())

	close(client.release)
	s.Wait()

	assert.Equal(t, []string{"alice", "bob", "carol"}, client.Calls())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	body := rec.Body.String()
	assert.Contains(t, body, `igunfollow_unfollow_total{result="success"} 2`)
	assert.Contains(t, body, `igunfollow_unfollow_total{result="failure"} 1`)
	assert.Contains(t, body, "igunfollow_batches_started_total 1")
	assert.Contains(t, body, "igunfollow_batches_running 0")

	accepted := false
	for _, m := range log.GetMessages() {
		if m.Message == "Batch accepted" {
			accepted = true
			assert.NotEmpty(t, m.Fields["batch_id"])
		}
	}
	assert.True(t, accepted)
}

func TestOverlappingBatches(t *testing.T) {
	client := newGatedUnfollower()
	s := newTestServer(client, logger.NewNopLogger())

	require.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodPost, `{"usernames":["a","b"]}`).Code)
	require.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodPost, `{"usernames":["c"]}`).Code)

	close(client.release)
	s.Wait()

	assert.ElementsMatch(t, []string{"a", "b", "c"}, client.Calls())
}

func TestServeShutsDownAndCancelsBatches(t *testing.T) {
	client := newGatedUnfollower()
	s := newTestServer(client, logger.NewNopLogger())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/"
	resp, err := http.Post(url, "application/json", strings.NewReader(`{"usernames":["stuck"]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The batch is blocked; shutting down must cancel it rather than wait on it
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Empty(t, client.Calls())
}

func TestAddr(t *testing.T) {
	s := New(Options{Port: 5555}, nil, logger.NewNopLogger())
	assert.Equal(t, "127.0.0.1:5555", s.Addr())
}
