package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/sirupsen/logrus"
)

// Configuration settings for the upstream provider
type Configuration struct {
	TokenURL      string `toml:"tokenUrl" default:"" comment:"OAuth token endpoint"`
	DataURL       string `toml:"dataUrl" default:"" comment:"vehicle state endpoint"`
	ClientID      string `toml:"clientId" default:"" comment:"OAuth client id"`
	ClientSecret  string `toml:"clientSecret" default:"" comment:"OAuth client secret"`
	TimeoutSec    int    `toml:"timeoutSec" default:"15" comment:"HTTP timeout in seconds"`
	BackoffSec    int    `toml:"backoffSec" default:"60" comment:"rate-limit backoff window when no Retry-After is sent"`
}

// ErrNoCache is returned when an upstream call fails and no previously
// fetched data is available to fall back on.
var ErrNoCache = errors.New("upstream unavailable and no cached data")

// tokenRefreshMargin - refresh the bearer token this long before expiry
const tokenRefreshMargin = 2 * time.Minute

// Status describes the wrapper state for operators.
type Status struct {
	TokenValid   bool      `json:"tokenValid"`
	TokenExpires time.Time `json:"tokenExpires,omitempty"`
	InBackoff    bool      `json:"inBackoff"`
	BackoffUntil time.Time `json:"backoffUntil,omitempty"`
	CachedTracks int       `json:"cachedTracks"`
	LastFetch    time.Time `json:"lastFetch,omitempty"`
}

// Client wraps the upstream provider with credential caching and a
// rate-limit backoff window during which the cached track set is
// served instead of calling out.
type Client struct {
	Log  *logrus.Logger
	conf Configuration
	http *http.Client

	mu           sync.Mutex
	token        string
	tokenExpires time.Time
	backoffUntil time.Time
	cached       []app.Track
	lastFetch    time.Time
}

func New(log *logrus.Logger, conf Configuration) *Client {
	timeout := time.Duration(conf.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		Log:  log,
		conf: conf,
		http: &http.Client{Timeout: timeout},
	}
}

// FetchTracks returns the current upstream track set. While a backoff
// window is active the cached set is returned without touching the
// network. Any transient failure degrades to cached data; only with an
// empty cache does the error surface.
func (c *Client) FetchTracks(ctx context.Context) ([]app.Track, error) {
	c.mu.Lock()
	if time.Now().Before(c.backoffUntil) {
		cached := c.cached
		until := c.backoffUntil
		c.mu.Unlock()
		c.Log.WithContext(ctx).WithFields(logrus.Fields{
			"backoffUntil": until,
		}).Debug("In backoff window, serving cached tracks")
		return cached, nil
	}
	c.mu.Unlock()

	return c.fetch(ctx, false)
}

// ForceRefresh bypasses the backoff window and the cache for one call.
func (c *Client) ForceRefresh(ctx context.Context) ([]app.Track, error) {
	return c.fetch(ctx, true)
}

func (c *Client) fetch(ctx context.Context, force bool) ([]app.Track, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return c.fallback(ctx, fmt.Errorf("credential fetch: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.conf.DataURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fallback(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.enterBackoff(ctx, resp.Header.Get("Retry-After"))
		if force {
			return nil, fmt.Errorf("upstream rate limited (HTTP 429)")
		}
		return c.fallback(ctx, fmt.Errorf("upstream rate limited (HTTP 429)"))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// token likely revoked, drop it so the next call re-authenticates
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return c.fallback(ctx, fmt.Errorf("upstream auth rejected (HTTP %d)", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return c.fallback(ctx, fmt.Errorf("upstream HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fallback(ctx, err)
	}

	tracks, err := normalize(body)
	if err != nil {
		return c.fallback(ctx, err)
	}

	c.mu.Lock()
	c.cached = tracks
	c.lastFetch = time.Now()
	c.mu.Unlock()

	return tracks, nil
}

func (c *Client) fallback(ctx context.Context, cause error) ([]app.Track, error) {
	c.mu.Lock()
	cached := c.cached
	c.mu.Unlock()

	if cached != nil {
		c.Log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": cause,
		}).Warn("Upstream call failed, serving cached tracks")
		return cached, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrNoCache, cause)
}

func (c *Client) enterBackoff(ctx context.Context, retryAfter string) {
	window := time.Duration(c.conf.BackoffSec) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			window = time.Duration(secs) * time.Second
		}
	}

	c.mu.Lock()
	c.backoffUntil = time.Now().Add(window)
	until := c.backoffUntil
	c.mu.Unlock()

	c.Log.WithContext(ctx).WithFields(logrus.Fields{
		"backoffUntil": until,
	}).Warn("Upstream rate limited, entering backoff")
}

// ClearBackoff lifts an active backoff window.
func (c *Client) ClearBackoff() {
	c.mu.Lock()
	c.backoffUntil = time.Time{}
	c.mu.Unlock()
	c.Log.Info("Backoff window cleared")
}

// Status reports the wrapper state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		TokenValid:   c.token != "" && time.Now().Before(c.tokenExpires),
		TokenExpires: c.tokenExpires,
		InBackoff:    time.Now().Before(c.backoffUntil),
		BackoffUntil: c.backoffUntil,
		CachedTracks: len(c.cached),
		LastFetch:    c.lastFetch,
	}
}

// bearerToken returns the cached token, refreshing it proactively two
// minutes before expiry.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Add(tokenRefreshMargin).Before(c.tokenExpires) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.conf.ClientID)
	form.Set("client_secret", c.conf.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.conf.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint HTTP %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", errors.New("token endpoint returned empty access_token")
	}

	c.mu.Lock()
	c.token = payload.AccessToken
	c.tokenExpires = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	c.mu.Unlock()

	return payload.AccessToken, nil
}
