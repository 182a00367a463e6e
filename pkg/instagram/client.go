package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"igunfollow/pkg/auth"
	"igunfollow/pkg/config"
	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ratelimit"
	"igunfollow/pkg/retry"
)

// DefaultUserAgent is the desktop browser the requests pose as
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures a Client
type Options struct {
	BaseURL    string
	APIBaseURL string
	UserAgent  string
	Timeout    time.Duration

	// RateLimitWait is slept after every 429 before retrying the same request
	RateLimitWait time.Duration
	// MaxRateLimitRetries bounds 429 retries per request; 0 retries forever
	MaxRateLimitRetries int
	// OnRateLimit is called before each rate-limit wait
	OnRateLimit func(username string, wait time.Duration)

	// PageDelayMin and PageDelayMax space friendship listing pages
	PageDelayMin time.Duration
	PageDelayMax time.Duration

	// Sleep replaces real waiting, mainly for tests
	Sleep ratelimit.SleepFunc
}

// DefaultOptions returns the options used against the real Instagram
func DefaultOptions() Options {
	return Options{
		BaseURL:       BaseURL,
		APIBaseURL:    APIBaseURL,
		UserAgent:     DefaultUserAgent,
		Timeout:       30 * time.Second,
		RateLimitWait: 5 * time.Minute,
		PageDelayMin:  time.Second,
		PageDelayMax:  2 * time.Second,
		Sleep:         ratelimit.Sleep,
	}
}

// OptionsFromConfig maps the instagram and batch config sections onto Options
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg.Instagram.BaseURL != "" {
		opts.BaseURL = cfg.Instagram.BaseURL
	}
	if cfg.Instagram.APIBaseURL != "" {
		opts.APIBaseURL = cfg.Instagram.APIBaseURL
	}
	if cfg.Instagram.UserAgent != "" {
		opts.UserAgent = cfg.Instagram.UserAgent
	}
	if cfg.Instagram.Timeout > 0 {
		opts.Timeout = cfg.Instagram.Timeout
	}
	opts.RateLimitWait = cfg.Batch.RateLimitWait
	opts.MaxRateLimitRetries = cfg.Batch.MaxRateLimitRetries
	return opts
}

// Client talks to Instagram as the browser session described by a cookie set
type Client struct {
	httpClient *http.Client
	cookies    *auth.CookieSet
	opts       Options
	pagePacer  *ratelimit.RandomInterval
	logger     logger.Logger
}

// NewClient creates a new Instagram API client
func NewClient(cookies *auth.CookieSet, opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	defaults := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = defaults.BaseURL
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = defaults.APIBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Sleep == nil {
		opts.Sleep = ratelimit.Sleep
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		cookies:    cookies,
		opts:       opts,
		pagePacer:  ratelimit.NewRandomInterval(opts.PageDelayMin, opts.PageDelayMax).WithSleep(opts.Sleep),
		logger:     log,
	}
}

// Unfollow removes username from the session's following list. It succeeds
// only on HTTP 200. A 429 is waited out and the same request is sent again
// until it stops being rate limited or the retry bound is reached.
func (c *Client) Unfollow(ctx context.Context, username string) error {
	cfg := retry.RateLimitConfig(ctx, c.opts.RateLimitWait, c.opts.MaxRateLimitRetries)
	cfg.Logger = c.logger
	cfg.Sleep = c.opts.Sleep
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.LogRateLimit(c.logger, username, delay, attempt)
		if c.opts.OnRateLimit != nil {
			c.opts.OnRateLimit(username, delay)
		}
	}

	return retry.Do(func() error {
		return c.unfollowOnce(ctx, username)
	}, cfg)
}

func (c *Client) unfollowOnce(ctx context.Context, username string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, UnfollowURL(c.opts.BaseURL, username), http.NoBody)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeInput, "failed to create request", err)
	}

	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", c.cookies.CSRFToken)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Instagram-AJAX", "1")
	req.Header.Set("Referer", GetUserProfileURL(c.opts.BaseURL, username))
	req.Header.Set("Origin", c.opts.BaseURL)
	req.Header.Set("Cookie", c.cookies.Header())

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errs.FromStatus(resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}

// FetchFriendships lists every follower or followed account of userID,
// following next_max_id cursors with a short random pause between pages
func (c *Client) FetchFriendships(ctx context.Context, userID string, kind FriendshipKind) ([]FriendshipUser, error) {
	var users []FriendshipUser
	maxID := ""

	for page := 0; page < MaxFriendshipPages; page++ {
		if page > 0 {
			if err := c.pagePacer.Wait(ctx); err != nil {
				return users, err
			}
		}

		cfg := retry.DefaultConfig()
		cfg.Context = ctx
		cfg.Logger = c.logger
		cfg.Sleep = c.opts.Sleep

		resp, err := retry.DoWithResult(func() (*FriendshipsResponse, error) {
			return c.fetchFriendshipsPage(ctx, userID, kind, maxID)
		}, cfg)
		if err != nil {
			if errs.TypeOf(err) == errs.ErrorTypeAuth {
				return nil, fmt.Errorf("session expired or invalid, get fresh cookies: %w", err)
			}
			return nil, fmt.Errorf("failed to fetch %s page %d: %w", kind, page, err)
		}

		users = append(users, resp.Users...)
		c.logger.DebugWithFields("fetched friendship page", map[string]interface{}{
			"kind":  string(kind),
			"page":  page,
			"users": len(resp.Users),
			"total": len(users),
		})

		maxID = string(resp.NextMaxID)
		if maxID == "" {
			break
		}
	}

	return users, nil
}

func (c *Client) fetchFriendshipsPage(ctx context.Context, userID string, kind FriendshipKind, maxID string) (*FriendshipsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, FriendshipsURL(c.opts.APIBaseURL, userID, kind, maxID), nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeInput, "failed to create request", err)
	}

	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("X-IG-App-ID", AppID)
	req.Header.Set("X-CSRFToken", c.cookies.CSRFToken)
	req.Header.Set("X-IG-WWW-Claim", "0")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.opts.BaseURL+"/")
	req.Header.Set("Origin", c.opts.BaseURL)
	req.Header.Set("Cookie", c.cookies.Header())

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errs.FromStatus(resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "failed to read response body", err)
	}

	var page FriendshipsResponse
	if err := json.Unmarshal(body, &page); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"kind":         string(kind),
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return nil, errs.Wrap(errs.ErrorTypeParsing, "failed to parse friendships page", err)
	}
	return &page, nil
}

// doRequest sends req and logs its outcome. Transport failures become
// network errors.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err.Error(), err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}
