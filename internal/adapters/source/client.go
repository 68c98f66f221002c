// Package source fetches event calendars and results from the upstream
// providers and converts them into provider-neutral raw events.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/gridelo/internal/adapters/cache"
	"github.com/okian/gridelo/pkg/logger"
	"github.com/okian/gridelo/pkg/metrics"
)

// Client defaults.
const (
	defaultTimeout   = 20 * time.Second
	defaultRetries   = 2
	defaultBackoff   = 500 * time.Millisecond
	defaultRateLimit = 3
	defaultBurst     = 1
	maxBodyBytes     = 8 << 20
	maxRetryAfter    = 30 * time.Second
	userAgent        = "gridelo/1.0"
)

// Client is the shared JSON fetcher used by every provider.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cache   cache.Store
	ttl     time.Duration
	retries int
	backoff time.Duration
	log     logger.Logger
}

// NewClient creates a Client with defaults and no cache.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(defaultRateLimit, defaultBurst),
		cache:   cache.Nop{},
		retries: defaultRetries,
		backoff: defaultBackoff,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// statusError carries an unexpected HTTP status.
type statusError struct {
	code       int
	retryAfter time.Duration
}

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// GetJSON fetches url and decodes it into out. provider labels metrics.
// Cached payloads are served without a request; cache failures count as misses.
func (c *Client) GetJSON(ctx context.Context, provider, url string, out any) error {
	if body, ok := c.cached(ctx, url); ok {
		if err := json.Unmarshal(body, out); err == nil {
			return nil
		}
		// Corrupt entry: refetch and overwrite.
		_ = c.cache.Delete(ctx, url)
	}

	body, err := c.fetch(ctx, provider, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.RecordSourceError(provider, "decode")
		return fmt.Errorf("%w: %s: %w", ErrDecode, url, err)
	}
	if err := c.cache.Set(ctx, url, body, c.ttl); err != nil {
		c.log.Warn(ctx, "cache write failed", logger.String("url", url), logger.Error(err))
	}
	return nil
}

// Forget drops the cached payload of url. Providers call it when a successful
// response carries no data yet, so the next run asks upstream again instead of
// replaying the empty body for the whole TTL.
func (c *Client) Forget(ctx context.Context, url string) {
	if err := c.cache.Delete(ctx, url); err != nil {
		c.log.Warn(ctx, "cache delete failed", logger.String("url", url), logger.Error(err))
	}
}

func (c *Client) cached(ctx context.Context, url string) ([]byte, bool) {
	body, ok, err := c.cache.Get(ctx, url)
	if err != nil {
		c.log.Warn(ctx, "cache read failed", logger.String("url", url), logger.Error(err))
		ok = false
	}
	metrics.RecordCacheLookup(ok)
	return body, ok
}

func (c *Client) fetch(ctx context.Context, provider, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			var se *statusError
			if errors.As(lastErr, &se) && se.retryAfter > delay {
				delay = se.retryAfter
			}
			c.log.Debug(ctx, "retrying upstream request",
				logger.String("url", url),
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Error(lastErr))
			if err := sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, url, err)
			}
		}

		body, err := c.do(ctx, provider, url)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrNotAvailable) {
			return nil, err
		}
		lastErr = err
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, url, lastErr)
}

func (c *Client) do(ctx context.Context, provider, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RecordSourceFetch(provider, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordSourceError(provider, "transport")
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordSourceError(provider, "not_found")
		return nil, fmt.Errorf("%w: %s", ErrNotAvailable, url)
	case resp.StatusCode != http.StatusOK:
		metrics.RecordSourceError(provider, "status_"+strconv.Itoa(resp.StatusCode))
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &statusError{code: resp.StatusCode, retryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordSourceError(provider, "read")
		return nil, err
	}
	return body, nil
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
