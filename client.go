package pdsession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ambiyansyah-risyal/pdsession/internal/cooldown"
)

const (
	defaultBaseURL  = "https://api.pagerduty.com"
	defaultTimeout  = 60 * time.Second
	defaultPageSize = 100

	// defaultMaxNetworkAttempts is the number of times connecting to the API
	// will be attempted before treating the failure as non-transient.
	defaultMaxNetworkAttempts = 3
	// defaultMaxHTTPAttempts is the global cross-status ceiling on retries
	// for statuses with a positive retry policy.
	defaultMaxHTTPAttempts = 10

	defaultSleepTimer     = 1500 * time.Millisecond
	defaultSleepTimerBase = 2.0

	acceptHeader = "application/vnd.pagerduty+json;version=2"
)

// AuthType selects the scheme used for the Authorization header.
type AuthType int

const (
	// AuthToken authenticates with a REST API access token
	// ("Token token=...").
	AuthToken AuthType = iota
	// AuthBearer authenticates with an OAuth2 bearer token ("Bearer ...").
	AuthBearer
)

// RetryPolicy maps a HTTP status code to its retry behavior:
//
//   - -1 to retry indefinitely
//   - 0 to return the response as-is (the default for unlisted statuses)
//   - n > 0 to retry up to n times for that status, bounded additionally by
//     the global HTTP attempt ceiling, and return the last response received
//     once exhausted
//
// By default a 429 is retried indefinitely; listing 429 here, including with
// a value of 0, overrides that.
type RetryPolicy map[int]int

// Params holds query parameters. Values may be strings, ints, bools or
// fmt.Stringer implementations; a []string value denotes a set filter and
// its parameter name is automatically suffixed with "[]" unless already so
// suffixed.
type Params map[string]any

// RequestOptions carries optional per-call settings for a request.
type RequestOptions struct {
	// Params are query parameters appended to the request URL.
	Params Params
	// Headers override the session's default headers key-by-key; defaults
	// are merged, never replaced wholesale.
	Headers map[string]string
	// Body, when non-nil, is JSON-encoded as the request body.
	Body any
}

// memoCell is an explicit memoization slot; it is invalidated whenever the
// credential changes.
type memoCell struct {
	value string
	set   bool
}

// Client is a session for the PagerDuty REST API v2. It keeps a connection
// pool open for reuse and owns instance-level mutable state (call metrics,
// memoized account lookups); it provides no internal locking, so a Client
// shared across goroutines must be synchronized externally.
type Client struct {
	httpClient *http.Client

	apiKey      string
	authType    AuthType
	baseURL     string
	defaultFrom string

	defaultPageSize    int
	timeout            time.Duration
	retry              RetryPolicy
	maxNetworkAttempts int
	maxHTTPAttempts    int
	sleepTimer         time.Duration
	sleepTimerBase     float64
	staggerCooldown    float64

	logger  Logger
	metrics *MetricsCollector
	sleep   func(time.Duration)

	// Per-endpoint accounting, updated by the postprocess hook.
	apiCallCounts map[string]int
	apiTime       map[string]time.Duration

	subdomain    memoCell
	apiKeyAccess memoCell
}

// New constructs a Client using the provided functional options. The API key
// must be a non-empty string.
func New(apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, &ClientError{msg: "API credential must be a non-empty string"}
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		apiKey:             apiKey,
		authType:           AuthToken,
		baseURL:            defaultBaseURL,
		defaultPageSize:    defaultPageSize,
		timeout:            defaultTimeout,
		retry:              RetryPolicy{},
		maxNetworkAttempts: defaultMaxNetworkAttempts,
		maxHTTPAttempts:    defaultMaxHTTPAttempts,
		sleepTimer:         defaultSleepTimer,
		sleepTimerBase:     defaultSleepTimerBase,
		staggerCooldown:    0,
		logger:             noopLogger{},
		sleep:              time.Sleep,
		apiCallCounts:      map[string]int{},
		apiTime:            map[string]time.Duration{},
	}

	for _, option := range options {
		option(c)
	}

	if err := c.validateConfiguration(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) validateConfiguration() error {
	var problems []string
	if c.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.sleepTimer <= 0 {
		problems = append(problems, "initial cooldown must be positive")
	}
	if c.sleepTimerBase < 1 {
		problems = append(problems, "cooldown base must be at least 1")
	}
	if c.defaultPageSize <= 0 {
		problems = append(problems, "default page size must be positive")
	}
	if c.maxNetworkAttempts < 1 {
		problems = append(problems, "maximum network attempts must be at least 1")
	}
	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}
	if len(problems) > 0 {
		return &ClientError{msg: "configuration validation failed: " + strings.Join(problems, "; ")}
	}
	return nil
}

// SetAPIKey replaces the credential used for authentication and invalidates
// memoized account lookups.
func (c *Client) SetAPIKey(apiKey string) error {
	if apiKey == "" {
		return &ClientError{msg: "API credential must be a non-empty string"}
	}
	c.apiKey = apiKey
	c.subdomain = memoCell{}
	c.apiKeyAccess = memoCell{}
	return nil
}

// BaseURL returns the base API URL of this session.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// truncKey is the display form of the credential for log and error messages.
func (c *Client) truncKey() string {
	if len(c.apiKey) < 4 {
		return "*" + c.apiKey
	}
	return "*" + c.apiKey[len(c.apiKey)-4:]
}

func (c *Client) authHeader() string {
	if c.authType == AuthBearer {
		return "Bearer " + c.apiKey
	}
	return "Token token=" + c.apiKey
}

var permittedMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
}

// prepareHeaders merges per-call headers over the session defaults. The
// actor-identifying From header is only attached to mutating requests.
func (c *Client) prepareHeaders(method string, userHeaders map[string]string) http.Header {
	headers := http.Header{}
	headers.Set("Accept", acceptHeader)
	headers.Set("User-Agent", userAgent())
	headers.Set("Authorization", c.authHeader())
	if c.defaultFrom != "" && method != http.MethodGet {
		headers.Set("From", c.defaultFrom)
	}
	if method == http.MethodPost || method == http.MethodPut {
		headers.Set("Content-Type", "application/json")
	}
	for name, value := range userHeaders {
		headers.Set(name, value)
	}
	return headers
}

// normalizeParams converts Params to URL values, suffixing the names of
// list-valued (set filter) parameters with "[]" as the API requires.
func normalizeParams(params Params) neturl.Values {
	values := neturl.Values{}
	for name, value := range params {
		switch v := value.(type) {
		case []string:
			if !strings.HasSuffix(name, "[]") {
				name += "[]"
			}
			for _, item := range v {
				values.Add(name, item)
			}
		case string:
			values.Set(name, v)
		case bool:
			values.Set(name, strconv.FormatBool(v))
		case int:
			values.Set(name, strconv.Itoa(v))
		case fmt.Stringer:
			values.Set(name, v.String())
		default:
			values.Set(name, fmt.Sprint(v))
		}
	}
	return values
}

// canonicalEndpoint renders "METHOD /canonical/path" for metrics and
// accounting, falling back to the literal URL for APIs not yet in the
// catalog so that profiling still works for them.
func (c *Client) canonicalEndpoint(method, url string) string {
	path, err := CanonicalPath(c.baseURL, url)
	if err != nil {
		return method + " " + url
	}
	return method + " " + path
}

// postprocess performs supplemental actions immediately after every
// completed attempt: per-endpoint call-count and latency accounting, metrics
// and request metadata logging.
func (c *Client) postprocess(resp *http.Response, elapsed time.Duration) {
	method := resp.Request.Method
	url := resp.Request.URL.String()
	endpoint := c.canonicalEndpoint(method, url)

	c.apiCallCounts[endpoint]++
	c.apiTime[endpoint] += elapsed
	if c.metrics != nil {
		c.metrics.RecordRequest(method, endpoint, resp.StatusCode, elapsed)
	}

	requestID := resp.Header.Get("X-Request-Id")
	requestDate := resp.Header.Get("Date")
	c.logger.Debug("request completed",
		"method", method, "url", url, "status", resp.StatusCode,
		"x_request_id", requestID, "date", requestDate, "wall_time", elapsed)
	if resp.StatusCode >= 500 {
		c.logger.Error("API server error; for additional diagnostics, reference the request ID",
			"status", resp.StatusCode, "x_request_id", requestID, "date", requestDate)
	}
}

// TotalCallCount returns the total number of API calls made by this
// instance.
func (c *Client) TotalCallCount() int {
	total := 0
	for _, n := range c.apiCallCounts {
		total += n
	}
	return total
}

// TotalCallTime returns the total time spent making API calls.
func (c *Client) TotalCallTime() time.Duration {
	var total time.Duration
	for _, d := range c.apiTime {
		total += d
	}
	return total
}

// Get performs a GET request. The URL may be a path relative to the base URL
// or a full URL on the API host.
func (c *Client) Get(ctx context.Context, url string, opts *RequestOptions) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, opts)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, url string, opts *RequestOptions) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, url, opts)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, url string, opts *RequestOptions) (*http.Response, error) {
	return c.Do(ctx, http.MethodPut, url, opts)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, opts *RequestOptions) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, url, opts)
}

// Do executes one logical API request, reattempting it with auto-increasing
// cooldown intervals as needed.
//
// Transport failures are retried up to the network attempt ceiling; rate
// limiting (429) is retried indefinitely with cooldown unless the retry
// policy explicitly covers that status; authentication failures (401) fail
// immediately with a HTTPError regardless of any configured retry policy;
// any other non-2xx status is handled
// according to the retry policy, and returned as-is once the policy (or its
// absence) says to stop; interpreting such a response is up to the caller.
func (c *Client) Do(ctx context.Context, method, url string, opts *RequestOptions) (*http.Response, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	permitted := false
	for _, m := range permittedMethods {
		if m == method {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, &ClientError{msg: fmt.Sprintf(
			"method %s not supported by this API; permitted methods: %s",
			method, strings.Join(permittedMethods, ", "))}
	}
	if opts == nil {
		opts = &RequestOptions{}
	}

	fullURL, err := normalizeURL(c.baseURL, url)
	if err != nil {
		return nil, err
	}
	requestURL, err := buildRequestURL(fullURL, opts.Params)
	if err != nil {
		return nil, &ClientError{msg: "malformed request URL", Method: method, URL: fullURL, cause: err}
	}

	var body []byte
	if opts.Body != nil {
		body, err = json.Marshal(opts.Body)
		if err != nil {
			return nil, &ClientError{msg: "could not JSON-encode request body", Method: method, URL: fullURL, cause: err}
		}
	}
	headers := c.prepareHeaders(method, opts.Headers)
	endpoint := method + " " + requestURL
	metricsEndpoint := c.canonicalEndpoint(method, fullURL)

	if c.metrics != nil {
		c.metrics.RecordRequestStart(method, metricsEndpoint)
		defer c.metrics.RecordRequestEnd(method, metricsEndpoint)
	}

	cd := cooldown.New(c.sleepTimer, c.sleepTimerBase, c.staggerCooldown)
	networkAttempts := 0
	httpAttempts := map[int]int{}

	for {
		req, err := c.newRequest(ctx, method, requestURL, headers, body)
		if err != nil {
			return nil, &ClientError{msg: "could not build request", Method: method, URL: requestURL, cause: err}
		}
		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			networkAttempts++
			if networkAttempts > c.maxNetworkAttempts {
				if c.metrics != nil {
					c.metrics.RecordError("network", method, metricsEndpoint)
				}
				return nil, &ClientError{
					msg: fmt.Sprintf(
						"%s: non-transient network error; exceeded maximum number of attempts (%d) to connect to the API",
						endpoint, c.maxNetworkAttempts),
					Method: method,
					URL:    requestURL,
					cause:  err,
				}
			}
			interval := cd.Next()
			c.logger.Warn("HTTP or network error; retrying",
				"endpoint", endpoint, "error", err.Error(), "cooldown", interval)
			if c.metrics != nil {
				c.metrics.RecordRetry(method, metricsEndpoint, "network")
			}
			c.sleep(interval)
			continue
		}
		c.postprocess(resp, time.Since(start))

		status := resp.StatusCode
		policy, explicit := c.retry[status]
		success := status >= 200 && status < 300

		switch {
		case status == http.StatusUnauthorized:
			// Stop: authentication failed, and retrying cannot succeed
			// without new credentials. No retry policy applies here.
			if c.metrics != nil {
				c.metrics.RecordError("auth", method, metricsEndpoint)
			}
			return nil, newHTTPError(fmt.Sprintf(
				"received 401 Unauthorized response from the API; the key (%s) may be invalid or deactivated",
				c.truncKey()), resp)

		case !success && explicit && policy != 0:
			// Take special action as defined by the retry policy.
			if policy != -1 {
				// Retry a specific number of times (-1 implies infinite).
				if httpAttempts[status] >= policy || sumAttempts(httpAttempts) > c.maxHTTPAttempts {
					limit := policy
					if limit > c.maxHTTPAttempts {
						limit = c.maxHTTPAttempts
					}
					c.logger.Error("non-transient HTTP error: exceeded maximum number of attempts to make a successful request",
						"endpoint", endpoint, "attempts", limit, "status", status)
					return resp, nil
				}
				httpAttempts[status]++
			}
			drainBody(resp)
			interval := cd.Next()
			c.logger.Warn("HTTP error; retrying",
				"endpoint", endpoint, "status", status, "cooldown", interval)
			if c.metrics != nil {
				c.metrics.RecordRetry(method, metricsEndpoint, "http_error")
			}
			c.sleep(interval)

		case status == http.StatusTooManyRequests && !explicit:
			drainBody(resp)
			interval := cd.Next()
			c.logger.Debug("hit API rate limit (status 429); retrying",
				"endpoint", endpoint, "cooldown", interval)
			if c.metrics != nil {
				c.metrics.RecordRetry(method, metricsEndpoint, "rate_limit")
			}
			c.sleep(interval)

		default:
			// All went according to plan.
			return resp, nil
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, url string, headers http.Header, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header = headers.Clone()
	return req, nil
}

func buildRequestURL(fullURL string, params Params) (string, error) {
	if len(params) == 0 {
		return fullURL, nil
	}
	u, err := neturl.Parse(fullURL)
	if err != nil {
		return "", err
	}
	query := u.Query()
	for name, values := range normalizeParams(params) {
		for _, value := range values {
			query.Add(name, value)
		}
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func sumAttempts(attempts map[int]int) int {
	total := 0
	for _, n := range attempts {
		total += n
	}
	return total
}

// drainBody discards and closes a response body so the underlying connection
// can be reused for the retry.
func drainBody(resp *http.Response) {
	if resp.Body != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}
