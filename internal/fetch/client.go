package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/markcrawl/internal/fingerprint"
)

// Retry defaults. A 429 or 403 is retried after 2s, 4s and 8s; a 503 after
// 3s, 9s and 27s.
const (
	DefaultMaxRetries       = 3
	DefaultRateLimitBackoff = 2 * time.Second
	DefaultUnavailableBase  = 3 * time.Second
	DefaultMaxBodySize      = 10 * 1024 * 1024
)

// ProfileSource hands out browser fingerprints. *fingerprint.Generator
// implements it.
type ProfileSource interface {
	Next() *fingerprint.Profile
}

// Response is a successful fetch with its body decoded to UTF-8.
type Response struct {
	// URL is the final URL after redirects.
	URL string
	// StatusCode is the final HTTP status.
	StatusCode int
	// Header holds the response headers.
	Header http.Header
	// ContentType is the Content-Type header.
	ContentType string
	// Body is the decoded body, truncated at the client's body limit.
	Body string
	// Attempts is the number of requests sent.
	Attempts int
	// FetchedAt is when the final response arrived.
	FetchedAt time.Time
}

// Client fetches pages with fingerprinted requests and bounded retries.
// It is safe for concurrent use when its ProfileSource is.
type Client struct {
	httpClient  *http.Client
	profiles    ProfileSource
	maxBodySize int64
	maxRetries  int

	rateLimitBase   time.Duration
	unavailableBase time.Duration
	sleep           func(ctx context.Context, d time.Duration) error

	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client, usually built by NewHTTPClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithProfiles sets the fingerprint source.
func WithProfiles(src ProfileSource) Option {
	return func(c *Client) {
		c.profiles = src
	}
}

// WithMaxBodySize limits how many body bytes are read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithMaxRetries sets how often a retryable status is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the base delays. The n-th retry (from 0) of a 429/403
// waits rateLimited·2^n, of a 503 unavailable·3^n.
func WithBackoff(rateLimited, unavailable time.Duration) Option {
	return func(c *Client) {
		c.rateLimitBase = rateLimited
		c.unavailableBase = unavailable
	}
}

// WithSleeper replaces the backoff sleep. It must return ctx.Err() when the
// context ends first.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client. Without WithProfiles, fingerprints come from a
// generator seeded from the clock.
func NewClient(opts ...Option) *Client {
	c := &Client{
		maxBodySize:     DefaultMaxBodySize,
		maxRetries:      DefaultMaxRetries,
		rateLimitBase:   DefaultRateLimitBackoff,
		unavailableBase: DefaultUnavailableBase,
		sleep:           SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(TransportConfig{})
	}
	if c.profiles == nil {
		c.profiles = fingerprint.NewGenerator(uint64(time.Now().UnixNano())) //nolint:gosec // seed only
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Fetch GETs rawURL. Responses below 400 succeed. 429 and 403 are retried
// with doubling backoff, 503 with tripling backoff; every other failure is
// returned at once.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if err == nil {
			err = errors.New("not an absolute http(s) URL")
		}
		return nil, &Error{URL: rawURL, Kind: KindInvalidURL, Err: err}
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.do(ctx, u.String())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &Error{URL: rawURL, Kind: KindNetwork, Attempts: attempt, Err: err}
		}

		if resp.StatusCode < http.StatusBadRequest {
			return c.read(rawURL, resp, attempt)
		}

		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // best effort
		_ = resp.Body.Close()                                          //nolint:errcheck // body fully handled

		kind, cause := classify(resp.StatusCode)
		if !kind.Retryable() || attempt > c.maxRetries {
			return nil, &Error{URL: rawURL, Status: resp.StatusCode, Kind: kind, Attempts: attempt, Err: cause}
		}

		delay := c.backoff(kind, attempt-1)
		c.logger.Debug("retrying request",
			"url", rawURL,
			"status", resp.StatusCode,
			"attempt", attempt,
			"delay", delay,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) do(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	c.profiles.Next().Apply(req.Header)
	return c.httpClient.Do(req)
}

func (c *Client) read(rawURL string, resp *http.Response, attempts int) (*Response, error) {
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	decoded, err := charset.NewReader(io.LimitReader(resp.Body, c.maxBodySize), contentType)
	if err != nil {
		return nil, &Error{URL: rawURL, Status: resp.StatusCode, Kind: KindDecode, Attempts: attempts, Err: err}
	}
	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, &Error{URL: rawURL, Status: resp.StatusCode, Kind: KindDecode, Attempts: attempts, Err: fmt.Errorf("read body: %w", err)}
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		ContentType: contentType,
		Body:        string(body),
		Attempts:    attempts,
		FetchedAt:   time.Now(),
	}, nil
}

// backoff returns the delay before retry n (from 0).
func (c *Client) backoff(kind Kind, n int) time.Duration {
	base, factor := c.rateLimitBase, time.Duration(2)
	if kind == KindUnavailable {
		base, factor = c.unavailableBase, 3
	}
	d := base
	for range n {
		d *= factor
	}
	return d
}

func classify(status int) (Kind, error) {
	switch status {
	case http.StatusTooManyRequests:
		return KindRateLimited, ErrRateLimited
	case http.StatusForbidden:
		return KindBlocked, ErrBlocked
	case http.StatusServiceUnavailable:
		return KindUnavailable, ErrUnavailable
	case http.StatusNotFound:
		return KindNotFound, ErrNotFound
	default:
		return KindStatus, fmt.Errorf("%w: %d %s", ErrHTTPStatus, status, http.StatusText(status))
	}
}

// SleepContext waits for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
