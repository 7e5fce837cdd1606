package hinsell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mulverseco/hinsell-go/internal/backoff"
)

// DefaultBaseURL is the production Hinsell API endpoint.
const DefaultBaseURL = "https://api.hinsell.com"

// Client is a resilient Hinsell API client that layers retries, circuit
// breaking, rate limiting, caching, de-duplication, middleware and metrics
// around the standard net/http Client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	apiKey     string
	userAgent  string

	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitter            float64
	timeout           time.Duration
	retryCondition    RetryCondition
	retryPolicy       RetryPolicy
	retryBudget       *RetryBudget
	circuitBreaker    *CircuitBreaker
	middleware        []Middleware
	rateLimiter       *RateLimiterRegistry
	cache             Cache
	cacheTTL          time.Duration
	cacheKeyFunc      func(*http.Request) string
	cacheCondition    CacheCondition
	metrics           *MetricsCollector
	debug             *DebugConfig
	logger            Logger
	dedup             *DeduplicationGroup
	dedupKeyFunc      DeduplicationKeyFunc
	dedupCondition    DeduplicationCondition
	validator         *schemaValidator
	validationError   error

	// Resource services, one per API resource group.
	Accounts      *AccountsService
	Items         *ItemsService
	Licenses      *LicensesService
	Webhooks      *WebhooksService
	Notifications *NotificationsService
	Campaigns     *CampaignsService
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	base, _ := url.Parse(DefaultBaseURL)

	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:           base,
		userAgent:         "hinsell-go/" + Version,
		maxRetries:        3,
		initialBackoff:    100 * time.Millisecond,
		maxBackoff:        10 * time.Second,
		backoffMultiplier: 2.0,
		jitter:            0.1,
		timeout:           30 * time.Second,
		retryCondition:    DefaultRetryCondition,
		circuitBreaker:    NewCircuitBreaker(CircuitBreakerConfig{}),
		middleware:        []Middleware{},
		cacheTTL:          5 * time.Minute,
		cacheKeyFunc:      DefaultCacheKeyFunc,
		cacheCondition:    DefaultCacheCondition,
		debug:             DefaultDebugConfig(),
		dedupKeyFunc:      DefaultDeduplicationKeyFunc,
		dedupCondition:    DefaultDeduplicationCondition,
		validator:         newSchemaValidator(),
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	client.Accounts = &AccountsService{client: client}
	client.Items = &ItemsService{client: client}
	client.Licenses = &LicensesService{client: client}
	client.Webhooks = &WebhooksService{client: client}
	client.Notifications = &NotificationsService{client: client}
	client.Campaigns = &CampaignsService{client: client}

	return client
}

// Get performs an HTTP GET with context.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post performs an HTTP POST with the given content type.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req)
}

// Do executes a prepared *http.Request applying all reliability features.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	endpoint := endpointFromRequest(req)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("starting request", "requestID", requestID, "method", req.Method, "url", req.URL.String(), "endpoint", endpoint)
	}

	if c.metrics != nil {
		c.metrics.RecordRequestStart(req.Method, endpoint)
	}

	var resp *http.Response
	var err error

	if c.dedup != nil && c.dedupCondition(req) {
		dedupKey := c.dedupKeyFunc(req)
		var shared bool
		resp, err, shared = c.dedup.Do(dedupKey, func() (*http.Response, error) {
			return c.execute(req, requestID, start)
		})
		if shared {
			if c.metrics != nil {
				c.metrics.RecordDeduplicationHit(req.Method, endpoint)
			}
			if c.debug != nil && c.debug.Enabled && c.logger != nil {
				c.logger.Debug("request coalesced onto in-flight call", "requestID", requestID, "dedupKey", dedupKey)
			}
		}
	} else {
		resp, err = c.execute(req, requestID, start)
	}

	if c.metrics != nil {
		c.metrics.RecordRequestEnd(req.Method, endpoint)

		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}
		c.metrics.RecordRequest(req.Method, endpoint, statusCode, time.Since(start))
	}

	return resp, err
}

// execute runs the cache lookup and the retry loop for a single logical
// request (the dedup owner's path).
func (c *Client) execute(req *http.Request, requestID string, start time.Time) (*http.Response, error) {
	endpoint := endpointFromRequest(req)
	cacheEnabled := c.shouldCacheRequest(req)

	if cacheEnabled {
		cacheKey := c.cacheKeyFunc(req)
		if entry, found := c.cache.Get(cacheKey); found {
			if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
				c.logger.Debug("cache hit", "requestID", requestID, "cacheKey", cacheKey)
			}
			if c.metrics != nil {
				c.metrics.RecordCacheHit(req.Method, endpoint)
			}
			return c.responseFromCache(entry), nil
		}
		if c.metrics != nil {
			c.metrics.RecordCacheMiss(req.Method, endpoint)
		}
		if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
			c.logger.Debug("cache miss", "requestID", requestID, "cacheKey", cacheKey)
		}
	}

	resp, err := c.doWithRetry(req, requestID, start)

	if cacheEnabled && err == nil && resp.StatusCode < 400 {
		if entry := c.cacheEntryFromResponse(resp); entry != nil {
			ttl := c.cacheTTLForResponse(req, resp)
			if ttl > 0 {
				cacheKey := c.cacheKeyFunc(req)
				c.cache.Set(cacheKey, entry, ttl)

				if imc, ok := c.cache.(*InMemoryCache); ok && c.metrics != nil {
					c.metrics.RecordCacheSize("default", imc.Len())
				}
				if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
					c.logger.Debug("response cached", "requestID", requestID, "cacheKey", cacheKey, "ttl", ttl)
				}
			}
		}
	}

	return resp, err
}

func (c *Client) doWithRetry(req *http.Request, requestID string, startTime time.Time) (*http.Response, error) {
	endpoint := endpointFromRequest(req)

	for attempt := 0; ; attempt++ {
		if c.rateLimiter != nil {
			allowed, limiterKey := c.rateLimiter.Allow(req)
			if !allowed {
				if c.debug != nil && c.debug.Enabled && c.debug.LogRateLimit && c.logger != nil {
					c.logger.Warn("rate limit exceeded", "requestID", requestID, "endpoint", endpoint, "limiter", limiterKey)
				}
				if c.metrics != nil {
					c.metrics.RecordError(ErrorTypeRateLimit, req.Method, endpoint)
				}
				return nil, c.newError(ErrorTypeRateLimit, "rate limit exceeded", ErrRateLimited, requestID, req, attempt, time.Since(startTime))
			}
			if c.metrics != nil {
				if limiter, key := c.rateLimiter.GetLimiter(req); limiter != nil {
					if rl, ok := limiter.(*RateLimiter); ok {
						c.metrics.RecordRateLimiterTokens(key, rl.Tokens())
					}
				}
			}
		}

		if !c.circuitBreaker.Allow() {
			if c.debug != nil && c.debug.Enabled && c.debug.LogCircuit && c.logger != nil {
				c.logger.Warn("circuit breaker open", "requestID", requestID, "endpoint", endpoint)
			}
			if c.metrics != nil {
				c.metrics.RecordError(ErrorTypeCircuitOpen, req.Method, endpoint)
			}
			return nil, c.newError(ErrorTypeCircuitOpen, "circuit breaker is open", ErrCircuitOpen, requestID, req, attempt, time.Since(startTime))
		}

		if attempt > 0 {
			// Rewind the body so the attempt replays the same payload.
			if req.Body != nil && req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, c.newError(ErrorTypeNetwork, "request body replay failed", err, requestID, req, attempt, time.Since(startTime))
				}
				req.Body = body
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
				c.logger.Info("retry attempt", "requestID", requestID, "attempt", attempt, "maxRetries", c.maxRetries, "endpoint", endpoint)
			}
			if c.metrics != nil {
				c.metrics.RecordRetry(req.Method, endpoint, attempt)
			}
		}

		resp, err := c.executeMiddleware(req)

		if err != nil || (resp != nil && resp.StatusCode >= 500) {
			c.circuitBreaker.RecordFailure()
			if c.metrics != nil {
				c.metrics.RecordCircuitBreakerState("default", c.circuitBreaker.State())
				if err != nil {
					c.metrics.RecordError(ErrorTypeNetwork, req.Method, endpoint)
				} else {
					c.metrics.RecordError(ErrorTypeServer, req.Method, endpoint)
				}
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogCircuit && c.logger != nil {
				if err != nil {
					c.logger.Warn("circuit breaker failure recorded", "requestID", requestID, "error", err.Error())
				} else {
					c.logger.Warn("circuit breaker failure recorded", "requestID", requestID, "statusCode", resp.StatusCode)
				}
			}
		} else {
			c.circuitBreaker.RecordSuccess()
			if c.metrics != nil {
				c.metrics.RecordCircuitBreakerState("default", c.circuitBreaker.State())
			}
		}

		var shouldRetry bool
		var delay time.Duration

		if c.retryPolicy != nil {
			delay, shouldRetry = c.retryPolicy.ShouldRetry(resp, err, attempt)
		} else {
			shouldRetry = attempt < c.maxRetries && c.retryCondition(resp, err)
			if shouldRetry {
				delay = c.calculateBackoff(attempt)
			}
		}

		if !shouldRetry {
			if err != nil {
				return nil, c.wrapTransportError(err, requestID, req, attempt, time.Since(startTime))
			}
			return resp, nil
		}

		if c.retryBudget != nil && !c.retryBudget.Allow() {
			if c.metrics != nil {
				c.metrics.RecordRetryBudgetExceeded(endpoint)
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
				c.logger.Warn("retry budget exceeded", "requestID", requestID, "endpoint", endpoint)
			}
			return nil, c.newError(ErrorTypeRetryBudgetExceeded, "retry budget exceeded", ErrRetryBudgetExceeded, requestID, req, attempt, time.Since(startTime))
		}

		if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
			c.logger.Info("scheduling retry", "requestID", requestID, "attempt", attempt+1, "backoff", delay, "endpoint", endpoint)
		}

		// Drain the failed response so the connection can be reused.
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		select {
		case <-req.Context().Done():
			return nil, c.wrapTransportError(req.Context().Err(), requestID, req, attempt, time.Since(startTime))
		case <-time.After(delay):
		}
	}
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	return backoff.ExponentialJitter{}.Calculate(attempt, c.initialBackoff, c.maxBackoff, c.backoffMultiplier, c.jitter)
}

// DefaultRetryCondition retries on any transport error, on 5xx responses and
// on 429.
func DefaultRetryCondition(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

func (c *Client) newError(errorType, message string, cause error, requestID string, req *http.Request, attempt int, duration time.Duration) *Error {
	return &Error{
		Type:       errorType,
		Message:    message,
		Cause:      cause,
		RequestID:  requestID,
		Method:     req.Method,
		URL:        req.URL.String(),
		Endpoint:   endpointFromRequest(req),
		Attempt:    attempt,
		MaxRetries: c.maxRetries,
		Timestamp:  time.Now(),
		Duration:   duration,
	}
}

// wrapTransportError classifies a transport failure as Timeout or Network.
func (c *Client) wrapTransportError(err error, requestID string, req *http.Request, attempt int, duration time.Duration) *Error {
	errorType := ErrorTypeNetwork
	message := "network request failed"

	if isTimeout(err) {
		errorType = ErrorTypeTimeout
		message = "request timed out"
	}

	return c.newError(errorType, message, err, requestID, req, attempt, duration)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// ValidateConfigurationStrict panics if configuration is invalid.
func (c *Client) ValidateConfigurationStrict() {
	if err := c.ValidateConfiguration(); err != nil {
		panic(fmt.Sprintf("invalid client configuration: %v", err))
	}
}

func endpointFromRequest(req *http.Request) string {
	if req.URL == nil {
		return "unknown"
	}

	host := req.URL.Host
	path := req.URL.Path

	var builder strings.Builder
	builder.WriteString(host)

	if path != "" && path != "/" {
		builder.WriteString(path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
