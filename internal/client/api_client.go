package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds every upstream request.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes   = 10 << 20
	maxLoggedBytes = 512
	cacheKeyPrefix = "upstream:"
)

// Result is the outcome of one upstream request. Failures are reported in
// the result, never as a panic or a separate error value.
type Result struct {
	Success bool
	Status  int
	Data    json.RawMessage
	Message string
	Err     error
}

func failure(status int, err error) Result {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	return Result{Success: false, Status: status, Message: message, Err: err}
}

// ResponseCache stores successful upstream bodies.
type ResponseCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
}

// RequestRecord describes a finished upstream request.
type RequestRecord struct {
	Endpoint  string
	Status    int
	Success   bool
	ErrorKind string
	Message   string
	Duration  time.Duration
	CacheHit  bool
	At        time.Time
}

// RequestObserver is told about every upstream request.
type RequestObserver interface {
	ObserveRequest(ctx context.Context, rec RequestRecord)
}

// APIClient talks to the remote product API.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	cache      ResponseCache
	observer   RequestObserver
	timeout    time.Duration
}

type Option func(*APIClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) { c.httpClient = hc }
}

// WithTimeout bounds each request. It applies to a client passed through
// WithHTTPClient as well, without modifying that client.
func WithTimeout(d time.Duration) Option {
	return func(c *APIClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *APIClient) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithCache(cache ResponseCache) Option {
	return func(c *APIClient) { c.cache = cache }
}

func WithObserver(o RequestObserver) Option {
	return func(c *APIClient) { c.observer = o }
}

func NewAPIClient(baseURL string, opts ...Option) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.httpClient == nil:
		timeout := c.timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	case c.timeout > 0:
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the upstream base URL.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

type requestOptions struct {
	headers   map[string]string
	skipCache bool
}

// RequestOption overrides part of a single request.
type RequestOption func(*requestOptions)

func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// SkipCache forces the request to go to the upstream.
func SkipCache() RequestOption {
	return func(o *requestOptions) { o.skipCache = true }
}

// Get performs GET {baseURL}{endpoint}.
func (c *APIClient) Get(ctx context.Context, endpoint string, overrides ...RequestOption) Result {
	var opts requestOptions
	for _, o := range overrides {
		o(&opts)
	}

	start := time.Now()
	result, cacheHit := c.get(ctx, endpoint, opts)

	if c.observer != nil {
		c.observer.ObserveRequest(ctx, RequestRecord{
			Endpoint:  endpoint,
			Status:    result.Status,
			Success:   result.Success,
			ErrorKind: ErrorKind(result.Err),
			Message:   result.Message,
			Duration:  time.Since(start),
			CacheHit:  cacheHit,
			At:        start,
		})
	}

	return result
}

func (c *APIClient) get(ctx context.Context, endpoint string, opts requestOptions) (Result, bool) {
	url := c.baseURL + endpoint
	useCache := c.cache != nil && !opts.skipCache

	if useCache {
		var cached json.RawMessage
		err := c.cache.Get(ctx, cacheKeyPrefix+endpoint, &cached)
		if err == nil && len(cached) > 0 {
			c.logger.Debug("📦 Cache HIT", zap.String("endpoint", endpoint))
			return Result{Success: true, Status: http.StatusOK, Data: cached}, true
		}
		c.logger.Debug("💾 Cache MISS", zap.String("endpoint", endpoint), zap.Error(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return c.fail(url, http.StatusInternalServerError, &TransportError{URL: url, Err: err}), false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range opts.headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("🚀 API request", zap.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(url, http.StatusInternalServerError, &TransportError{URL: url, Err: err}), false
	}
	defer resp.Body.Close()

	c.logger.Debug("📡 API response", zap.String("url", url), zap.Int("status", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.fail(url, http.StatusInternalServerError, &TransportError{URL: url, Err: fmt.Errorf("failed to read body: %w", err)}), false
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(url, resp.StatusCode, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}), false
	}

	if !json.Valid(body) {
		return c.fail(url, resp.StatusCode, &DecodeError{URL: url, Err: fmt.Errorf("invalid JSON body")}), false
	}

	c.logger.Debug("✅ API response data", zap.String("url", url), zap.ByteString("body", truncate(body)))

	if useCache {
		if err := c.cache.Set(ctx, cacheKeyPrefix+endpoint, json.RawMessage(body)); err != nil {
			c.logger.Warn("⚠️ Failed to cache response", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}

	return Result{Success: true, Status: resp.StatusCode, Data: body}, false
}

func (c *APIClient) fail(url string, status int, err error) Result {
	c.logger.Warn("❌ API request failed",
		zap.String("url", url),
		zap.Int("status", status),
		zap.String("kind", ErrorKind(err)),
		zap.Error(err),
	)
	return failure(status, err)
}

func truncate(body []byte) []byte {
	if len(body) <= maxLoggedBytes {
		return body
	}
	return body[:maxLoggedBytes]
}
