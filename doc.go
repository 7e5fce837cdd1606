// Package hinsell is the Go client SDK for the Hinsell business-management
// API (accounting, inventory, licensing, notifications, webhooks and
// campaigns). Every resource method runs through one resilient pipeline:
//
//   - Schema validation of request and response bodies
//   - Retries with exponential backoff + jitter (Retry-After aware)
//   - Request de-duplication (merges concurrent identical in-flight requests)
//   - Circuit breaker (open / half-open / closed states)
//   - Client-side rate limiting (token bucket, per host/route registry)
//   - In-memory response caching with per-request overrides
//   - Middleware chain for cross-cutting concerns (request IDs, logging,
//     compression annotation, timing)
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Safe concurrent use of a single *Client instance
//   - Extensibility via user supplied middleware & pluggable cache / metrics
//
// Typical usage:
//
//	client := hinsell.New(
//	    hinsell.WithAPIKey(os.Getenv("HINSELL_API_KEY")),
//	    hinsell.WithMaxRetries(3),
//	    hinsell.WithDeduplication(),
//	    hinsell.WithCache(time.Minute),
//	)
//	account, err := client.Accounts.Get(ctx, accountID)
//
// NewFromEnv builds a fully configured client from HINSELL_* environment
// variables. All 4xx/5xx responses surface as *Error values carrying the
// classification, status code and the backend's error code.
package hinsell
