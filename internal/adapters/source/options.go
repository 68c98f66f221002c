package source

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/gridelo/internal/adapters/cache"
	"github.com/okian/gridelo/pkg/logger"
)

// ClientOption applies a configuration option to the Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client (its Timeout is kept).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds a single request.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit paces requests to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRetries sets how many extra attempts a retryable failure gets.
func WithRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the base delay between retries; it doubles per attempt.
func WithBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithCache stores successful payloads for ttl.
func WithCache(store cache.Store, ttl time.Duration) ClientOption {
	return func(c *Client) {
		if store != nil {
			c.cache = store
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
