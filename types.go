package hinsell

import (
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RetryCondition determines whether a request should be retried.
type RetryCondition func(resp *http.Response, err error) bool

// Middleware wraps a request on its way to the transport.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper is the transport interface middleware composes over.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc adapts a function to the RoundTripper interface.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option configures a Client at construction time.
type Option func(*Client)

type contextKey string

const cacheControlKey contextKey = "hinsell_cache_control"

// CacheControl overrides caching behaviour for a single request via context.
type CacheControl struct {
	Enabled bool
	TTL     time.Duration
}

// ListParams carries the cursor pagination and sorting knobs shared by every
// List operation.
type ListParams struct {
	Cursor string
	Limit  int
	Sort   string
}

// Values encodes the params as a URL query.
func (p ListParams) Values() url.Values {
	q := url.Values{}
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	return q
}

// Page is the cursor-paginated list envelope every collection endpoint
// returns.
type Page[T any] struct {
	Data       []T    `json:"data" validate:"dive"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}
