package pdsession

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client during construction.
type Option func(*Client)

// WithBaseURL overrides the API base URL, e.g. to target a mock server or a
// regional endpoint. A trailing slash is permitted and ignored.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithAuthType selects the Authorization scheme. The default is AuthToken.
func WithAuthType(authType AuthType) Option {
	return func(c *Client) {
		c.authType = authType
	}
}

// WithDefaultFrom sets the email address of the user on whose behalf
// mutating requests are made; it is sent as the From header on POST, PUT and
// DELETE requests.
func WithDefaultFrom(email string) Option {
	return func(c *Client) {
		c.defaultFrom = email
	}
}

// WithDefaultPageSize sets the page size requested when iterating over
// resource collections. The default is 100.
func WithDefaultPageSize(pageSize int) Option {
	return func(c *Client) {
		c.defaultPageSize = pageSize
	}
}

// WithTimeout sets the per-attempt request timeout. The default is 60s.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
		if c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRetryPolicy sets per-status retry behavior; see RetryPolicy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithMaxNetworkAttempts sets the number of times connecting to the API will
// be attempted before a transport error is treated as non-transient. The
// default is 3.
func WithMaxNetworkAttempts(attempts int) Option {
	return func(c *Client) {
		c.maxNetworkAttempts = attempts
	}
}

// WithMaxHTTPAttempts sets the global ceiling on retries across all statuses
// with a positive retry policy. The default is 10.
func WithMaxHTTPAttempts(attempts int) Option {
	return func(c *Client) {
		c.maxHTTPAttempts = attempts
	}
}

// WithInitialCooldown sets the wait before the first reattempt. The default
// is 1.5s.
func WithInitialCooldown(initial time.Duration) Option {
	return func(c *Client) {
		c.sleepTimer = initial
	}
}

// WithCooldownBase sets the factor by which the cooldown interval grows
// after each reattempt. The default is 2.
func WithCooldownBase(base float64) Option {
	return func(c *Client) {
		c.sleepTimerBase = base
	}
}

// WithStaggerCooldown adds randomized jitter to cooldown growth: each
// reattempt multiplies the interval by base*(1+stagger*r) with r drawn
// uniformly from [0,1). Zero (the default) disables jitter; negative values
// are treated as zero.
func WithStaggerCooldown(stagger float64) Option {
	return func(c *Client) {
		if stagger < 0 {
			stagger = 0
		}
		c.staggerCooldown = stagger
	}
}

// WithHTTPClient supplies a custom *http.Client, e.g. one with a proxy or a
// tuned transport. The session timeout is applied to it.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
		if c.httpClient != nil {
			c.httpClient.Timeout = c.timeout
		}
	}
}

// WithLogger attaches a Logger implementation. The default discards all
// messages.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithZerologLogger attaches a zerolog logger.
func WithZerologLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = NewZerologLogger(logger)
	}
}

// WithDebugLogging attaches a human-readable debug logger writing to
// standard error.
func WithDebugLogging() Option {
	return func(c *Client) {
		c.logger = NewSimpleLogger()
	}
}

// WithMetrics enables Prometheus metrics collection with a collector
// registered to its own registry; retrieve it with Metrics.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector attaches a specific metrics collector, e.g. one
// registered to a shared registry.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// Metrics returns the attached metrics collector, or nil when metrics are
// disabled.
func (c *Client) Metrics() *MetricsCollector {
	return c.metrics
}
