// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"crypto/tls"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/jeranaias/qachat/internal/config"
	"github.com/jeranaias/qachat/internal/util"
)

// Configuration constants for the chat API.
const (
	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of attempts made for idempotent requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed non-streaming response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// RequestIDHeader carries a per-request UUID.
	RequestIDHeader = "X-Request-ID"

	userAgent = "qachat/0.1.0"
)

// PERFORMANCE: one pooled transport shared by every client.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the qachat server. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	jar     http.CookieJar

	// httpClient is bounded by the configured timeout.
	httpClient *http.Client
	// streamClient has no timeout; streams are bounded by their context.
	streamClient *http.Client

	limiter     *rate.Limiter
	maxRetries  int
	backoffBase time.Duration
	cookieName  string
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid server url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	return &Client{
		baseURL: u,
		jar:     jar,
		httpClient: &http.Client{
			Transport: sharedTransport,
			Jar:       jar,
			Timeout:   DefaultTimeout,
		},
		streamClient: &http.Client{
			Transport: sharedTransport,
			Jar:       jar,
		},
		maxRetries:  DefaultMaxRetries,
		backoffBase: retryBaseDelay,
		cookieName:  "session",
	}, nil
}

// NewClientFromConfig creates a client from the server and chat sections.
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	c, err := NewClient(cfg.Server.URL)
	if err != nil {
		return nil, err
	}
	c.WithTimeout(cfg.Timeout()).
		WithRateLimit(cfg.Chat.RequestsPerSecond).
		WithSessionCookie(cfg.Server.SessionCookieName, cfg.Server.SessionCookie)
	return c, nil
}

// WithTimeout sets the timeout for non-streaming requests.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithMaxRetries sets the number of attempts for GET requests.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	c.maxRetries = maxRetries
	return c
}

// WithRateLimit limits outgoing requests per second. rps <= 0 disables it.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	// Bootstrap fires two requests at once; let them through together.
	burst := int(math.Max(2, math.Ceil(rps)))
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithSessionCookie seeds the jar with a session cookie for the server.
// An empty value only records the cookie name.
func (c *Client) WithSessionCookie(name, value string) *Client {
	if name != "" {
		c.cookieName = name
	}
	if value != "" {
		c.jar.SetCookies(c.baseURL, []*http.Cookie{{
			Name:  c.cookieName,
			Value: value,
			Path:  "/",
		}})
	}
	return c
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// HasSession reports whether the jar holds the session cookie.
func (c *Client) HasSession() bool {
	for _, ck := range c.jar.Cookies(c.baseURL) {
		if ck.Name == c.cookieName && ck.Value != "" {
			return true
		}
	}
	return false
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// endpoint resolves path against the base URL, keeping any base path prefix.
func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// newRequest builds a request with the standard headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// wait blocks until the rate limiter admits a request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, "rate limiter")
	}
	return nil
}

// send performs a single request and logs its outcome without headers or body.
func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	if err := c.wait(req.Context()); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := hc.Do(req)
	ev := log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("request_id", req.Header.Get(RequestIDHeader)).
		Dur("duration", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("api request failed")
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "request failed")
	}
	ev.Int("status", resp.StatusCode).Msg("api request")
	return resp, nil
}

// doWithRetry performs an idempotent request, retrying transport errors and
// 5xx replies with exponential backoff. The successful response body is
// read (bounded) and returned.
func (c *Client) doWithRetry(ctx context.Context, method, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.calculateBackoff(attempt - 1)):
			}
		}

		req, err := c.newRequest(ctx, method, path, nil)
		if err != nil {
			return nil, err
		}

		body, err := c.roundTrip(c.httpClient, req)
		if err == nil {
			return body, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", attempt+1).Str("path", path).Msg("retrying")
	}
	return nil, errors.Wrap(lastErr, "max retries exceeded")
}

// roundTrip sends req and returns the bounded body of a 2xx reply.
func (c *Client) roundTrip(hc *http.Client, req *http.Request) ([]byte, error) {
	resp, err := c.send(hc, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, body); err != nil {
		return nil, err
	}
	return body, nil
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, errors.Wrapf(ErrResponseTooLarge, "limit %d bytes", MaxResponseSize)
	}
	return body, nil
}

// checkStatus converts non-2xx replies to errors.
func checkStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		Message:    util.Preview(string(body), 200),
		RequestID:  resp.Request.Header.Get(RequestIDHeader),
	}
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrResponseTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	// Transport failures (connection refused, reset).
	return true
}

// calculateBackoff returns the delay to wait before the next retry.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := c.backoffBase * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
