// Package api is the typed client for the food-ordering backend.
//
// Every call attaches the session's bearer token, records metrics under
// the endpoint template, and maps failures onto ErrUnauthorized,
// ErrNotFound, *APIError or *NetworkError. A 401 on anything but the
// profile endpoints clears the session, which logs every view out at once.
package api

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shashiranjanraj/platter/config"
	"github.com/shashiranjanraj/platter/pkg/cache"
	"github.com/shashiranjanraj/platter/pkg/http"
	"github.com/shashiranjanraj/platter/pkg/logger"
	"github.com/shashiranjanraj/platter/pkg/metrics"
	"github.com/shashiranjanraj/platter/pkg/reqid"
	"github.com/shashiranjanraj/platter/pkg/session"
)

// Profile lookups answer 401 while the backend is still warming up the
// account, so they are exempt from forced logout.
var logoutExempt = map[string]bool{
	"/customer/profile":   true,
	"/delivery/profile":   true,
	"/restaurant/profile": true,
}

const catalogTTL = 5 * time.Minute

type Client struct {
	base    string
	timeout time.Duration
	sess    *session.Session
	catalog cache.Cache

	attempts int
	backoff  time.Duration
}

type Option func(*Client)

// WithBaseURL overrides API_BASE_URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.base = strings.TrimRight(u, "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCache sets the store for restaurant and menu lookups. Without it
// catalog calls always hit the backend.
func WithCache(cc cache.Cache) Option {
	return func(c *Client) { c.catalog = cc }
}

// WithRetry retries GET requests that got no response at all. Calls are
// sent once by default.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) { c.attempts, c.backoff = attempts, backoff }
}

func New(sess *session.Session, opts ...Option) *Client {
	c := &Client{
		base:    config.APIBaseURL(),
		timeout: config.APITimeout(),
		sess:    sess,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.base }

func (c *Client) Session() *session.Session { return c.sess }

// route fills {id} placeholders left to right.
func route(tmpl string, ids ...int) string {
	out := tmpl
	for _, id := range ids {
		out = strings.Replace(out, "{id}", strconv.Itoa(id), 1)
	}
	return out
}

// call sends one request. tmpl is the endpoint template used for metrics
// and the logout exemption; out may be nil.
func (c *Client) call(ctx context.Context, method, tmpl string, ids []int, body, out interface{}) error {
	ctx, _ = reqid.Ensure(ctx)
	token := c.sess.Token()

	req := http.New(method, c.base+route(tmpl, ids...)).
		Bearer(token).
		Timeout(c.timeout).
		WithContext(ctx)
	if body != nil {
		req.Body(body)
	}
	if method == "GET" && c.attempts > 1 {
		req.Retry(c.attempts, c.backoff)
	}

	start := time.Now()
	resp, err := req.Send()
	if err != nil {
		metrics.ObserveAPI(method, tmpl, 0, start)
		logger.WithCtx(ctx).Warn("api: no response", "method", method, "endpoint", tmpl, "error", err)
		return networkError(c.base, err)
	}
	metrics.ObserveAPI(method, tmpl, resp.StatusCode, start)

	if !resp.OK() {
		apiErr := &APIError{
			Method:   method,
			Endpoint: tmpl,
			Status:   resp.StatusCode,
			Message:  backendMessage(resp.Raw),
		}
		if resp.StatusCode == 401 {
			c.forceLogout(ctx, tmpl, token)
		}
		logger.WithCtx(ctx).Debug("api: error status", "method", method, "endpoint", tmpl, "status", resp.StatusCode)
		return apiErr
	}

	if out != nil {
		if err := resp.JSON(out); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) forceLogout(ctx context.Context, tmpl, token string) {
	if logoutExempt[tmpl] || token == "" {
		return
	}
	metrics.ForcedLogouts.Inc()
	logger.WithCtx(ctx).Info("api: session rejected, signing out", "endpoint", tmpl)
	if err := c.sess.Clear(ctx, session.ReasonUnauthorized); err != nil {
		logger.WithCtx(ctx).Error("api: clear session", "error", err)
	}
}

// Health pings the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, "GET", "/health", nil, nil, nil)
}

// Reachable reports whether the backend answered at all, whatever the status.
func (c *Client) Reachable(ctx context.Context) bool {
	err := c.Health(ctx)
	var ne *NetworkError
	return !errors.As(err, &ne)
}
