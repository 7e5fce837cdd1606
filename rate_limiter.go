package hinsell

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the minimal interface the pipeline needs from a rate limiter.
type Limiter interface {
	Allow() bool
}

// RateLimiter is a token bucket backed by golang.org/x/time/rate. One token
// is refilled every refillInterval up to burst.
type RateLimiter struct {
	bucket *rate.Limiter
}

// NewRateLimiter creates a limiter holding at most burst tokens.
func NewRateLimiter(burst int, refillInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		bucket: rate.NewLimiter(rate.Every(refillInterval), burst),
	}
}

// Allow consumes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	return rl.bucket.Allow()
}

// Tokens reports the tokens currently available, for metrics.
func (rl *RateLimiter) Tokens() float64 {
	return rl.bucket.Tokens()
}

// KeyFunc derives the registry key for a request.
type KeyFunc func(*http.Request) string

// RateLimiterRegistry routes requests to per-key limiters with a shared
// fallback, so hot endpoints can be throttled independently.
type RateLimiterRegistry struct {
	mu       sync.RWMutex
	limiters map[string]Limiter
	keyFunc  KeyFunc
	fallback Limiter
}

// NewRateLimiterRegistry creates a registry with the given key function and
// fallback limiter. A nil keyFunc sends everything to the fallback.
func NewRateLimiterRegistry(keyFunc KeyFunc, fallback Limiter) *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limiters: make(map[string]Limiter),
		keyFunc:  keyFunc,
		fallback: fallback,
	}
}

// RegisterLimiter adds a limiter for the given key.
func (r *RateLimiterRegistry) RegisterLimiter(key string, limiter Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[key] = limiter
}

// GetLimiter returns the limiter responsible for req and the key it resolved
// to. Falls back to the shared limiter when no specific one is registered.
func (r *RateLimiterRegistry) GetLimiter(req *http.Request) (Limiter, string) {
	if r.keyFunc == nil {
		return r.fallback, "default"
	}

	key := r.keyFunc(req)

	r.mu.RLock()
	limiter, exists := r.limiters[key]
	r.mu.RUnlock()

	if exists {
		return limiter, key
	}
	if r.fallback != nil {
		return r.fallback, "default"
	}
	return nil, key
}

// Allow checks the request against the resolved limiter. No limiter means no
// limiting.
func (r *RateLimiterRegistry) Allow(req *http.Request) (bool, string) {
	limiter, key := r.GetLimiter(req)
	if limiter == nil {
		return true, key
	}
	return limiter.Allow(), key
}

// HostKeyFunc keys limiters by request host.
func HostKeyFunc(req *http.Request) string {
	if req.URL != nil && req.URL.Host != "" {
		return "host:" + req.URL.Host
	}
	if req.Host != "" {
		return "host:" + req.Host
	}
	return "host:unknown"
}

// RouteKeyFunc keys limiters by method and path.
func RouteKeyFunc(req *http.Request) string {
	return "route:" + req.Method + ":" + req.URL.Path
}
