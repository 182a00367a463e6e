package instagram_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igunfollow/internal/igtest"
	"igunfollow/pkg/auth"
	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/instagram"
	"igunfollow/pkg/logger"
)

var cookies = &auth.CookieSet{
	SessionID: "sess%3Aabc",
	CSRFToken: "csrf123",
	DSUserID:  "4242",
}

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

func newTestClient(t *testing.T, srv *igtest.Server, sleeps *sleepRecorder, mutate ...func(*instagram.Options)) *instagram.Client {
	t.Helper()
	opts := instagram.DefaultOptions()
	opts.BaseURL = srv.URL()
	opts.APIBaseURL = srv.URL()
	opts.Timeout = 5 * time.Second
	opts.Sleep = sleeps.Sleep
	for _, m := range mutate {
		m(&opts)
	}
	return instagram.NewClient(cookies, opts, logger.NewNopLogger())
}

func TestUnfollowSendsBrowserRequest(t *testing.T) {
	srv := igtest.NewServer()
	defer srv.Close()

	client := newTestClient(t, srv, &sleepRecorder{})
	require.NoError(t, client.Unfollow(context.Background(), "alice"))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, int64(0), req.BodyLen)
	assert.Equal(t, instagram.DefaultUserAgent, req.Header.Get("User-Agent"))
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	assert.Equal(t, "csrf123", req.Header.Get("X-CSRFToken"))
	assert.Equal(t, "XMLHttpRequest", req.Header.Get("X-Requested-With"))
	assert.Equal(t, "1", req.Header.Get("X-Instagram-AJAX"))
	assert.Equal(t, srv.URL()+"/alice/", req.Header.Get("Referer"))
	assert.Equal(t, srv.URL(), req.Header.Get("Origin"))
	assert.Equal(t, "sessionid=sess%3Aabc; csrftoken=csrf123; ds_user_id=4242", req.Header.Get("Cookie"))
}

func TestUnfollowRetriesSameUserOnRateLimit(t *testing.T) {
	srv := igtest.NewServer()
	defer srv.Close()
	srv.Script("bob", http.StatusTooManyRequests, http.StatusTooManyRequests)

	sleeps := &sleepRecorder{}
	var notified []string
	client := newTestClient(t, srv, sleeps, func(o *instagram.Options) {
		o.OnRateLimit = func(username string, wait time.Duration) {
			notified = append(notified, username)
		}
	})

	require.NoError(t, client.Unfollow(context.Background(), "bob"))

	assert.Equal(t, []string{"bob", "bob", "bob"}, srv.Usernames())
	assert.Equal(t, []time.Duration{5 * time.Minute, 5 * time.Minute}, sleeps.Delays())
	assert.Equal(t, []string{"bob", "bob"}, notified)
}

func TestUnfollowBoundedRateLimitRetries(t *testing.T) {
	srv := igtest.NewServer()
	defer srv.Close()
	srv.Script("carol", 429, 429, 429, 429)

	client := newTestClient(t, srv, &sleepRecorder{}, func(o *instagram.Options) {
		o.MaxRateLimitRetries = 1
	})

	err := client.Unfollow(context.Background(), "carol")
	require.Error(t, err)
	assert.True(t, errs.IsRateLimit(err))
	assert.Len(t, srv.Requests(), 2)
}

func TestUnfollowFailureStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   errs.ErrorType
	}{
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusForbidden, errs.ErrorTypeAuth},
		{http.StatusBadRequest, errs.ErrorTypeHTTP},
		{http.StatusInternalServerError, errs.ErrorTypeServerError},
		{http.StatusCreated, errs.ErrorTypeHTTP},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := igtest.NewServer()
			defer srv.Close()
			srv.Script("dave", tt.status)

			sleeps := &sleepRecorder{}
			err := newTestClient(t, srv, sleeps).Unfollow(context.Background(), "dave")

			require.Error(t, err)
			assert.Equal(t, tt.want, errs.TypeOf(err))
			assert.Len(t, srv.Requests(), 1, "non-429 failures are not retried")
			assert.Empty(t, sleeps.Delays())
		})
	}
}

func TestUnfollowNetworkError(t *testing.T) {
	srv := igtest.NewServer()
	client := newTestClient(t, srv, &sleepRecorder{})
	srv.Close()

	err := client.Unfollow(context.Background(), "erin")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
}

func TestUnfollowCancelledDuringRateLimitWait(t *testing.T) {
	srv := igtest.NewServer()
	defer srv.Close()
	srv.Script("frank", 429)

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(t, srv, &sleepRecorder{}, func(o *instagram.Options) {
		o.Sleep = func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}
	})

	err := client.Unfollow(ctx, "frank")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, srv.Requests(), 1)
}

func friendshipUsers(names ...string) []instagram.FriendshipUser {
	users := make([]instagram.FriendshipUser, len(names))
	for i, n := range names {
		users[i] = instagram.FriendshipUser{PK: int64(i + 1), Username: n}
	}
	return users
}

func TestFetchFriendshipsPaginates(t *testing.T) {
	srv := igtest.NewServer()
	defer srv.Close()
	srv.SetFriendships(instagram.Followers, friendshipUsers("a", "b", "c", "d", "e"), 2)

	sleeps := &sleepRecorder{}
	client := newTestClient(t, srv, sleeps)

	users, err := client.FetchFriendships(context.Background(), "4242", instagram.Followers)
	require.NoError(t, err)

	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, names)
	assert.Equal(t, 3, srv.PageHits())

	// One pause between each pair of pages, within 1-2s
	delays := sleeps.Delays()
	require.Len(t, delays, 2)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}
}

func TestFetchFriendshipsAuthError(t *testing.T) {
	srv := igtest.NewServer()
	defer srv.Close()
	srv.SetFriendships(instagram.Following, friendshipUsers("a"), 1)
	srv.FailPage(0, http.StatusUnauthorized)

	_, err := newTestClient(t, srv, &sleepRecorder{}).FetchFriendships(context.Background(), "4242", instagram.Following)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
	assert.Contains(t, err.Error(), "session expired")
	assert.Equal(t, 1, srv.PageHits())
}

func TestFetchFriendshipsRetriesServerError(t *testing.T) {
	srv := igtest.NewServer()
	defer srv.Close()
	srv.SetFriendships(instagram.Following, friendshipUsers("a", "b"), 10)
	srv.FailPage(0, http.StatusBadGateway)

	users, err := newTestClient(t, srv, &sleepRecorder{}).FetchFriendships(context.Background(), "4242", instagram.Following)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 2, srv.PageHits())
}
