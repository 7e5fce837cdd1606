package hinsell

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// HeaderRequestID carries the generated per-request identifier.
const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware tags every outgoing request with a UUID unless the
// caller already set one.
func RequestIDMiddleware() Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if req.Header.Get(HeaderRequestID) == "" {
			req.Header.Set(HeaderRequestID, uuid.NewString())
		}
		return next.RoundTrip(req)
	}
}

// SecurityHeadersMiddleware sets the conservative defaults the backend
// expects from first-party clients.
func SecurityHeadersMiddleware() Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if req.Header.Get("X-Requested-With") == "" {
			req.Header.Set("X-Requested-With", "XMLHttpRequest")
		}
		req.Header.Set("X-Content-Type-Options", "nosniff")
		return next.RoundTrip(req)
	}
}

// CompressionMiddleware advertises gzip support. The transport transparently
// decompresses when it negotiated the encoding itself; this only annotates.
func CompressionMiddleware() Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if req.Header.Get("Accept-Encoding") == "" {
			req.Header.Set("Accept-Encoding", "gzip")
		}
		return next.RoundTrip(req)
	}
}

// LoggingMiddleware emits one structured line per attempt with method, URL,
// status and elapsed time.
func LoggingMiddleware(logger Logger) Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("request failed",
				"method", req.Method,
				"url", req.URL.String(),
				"requestID", req.Header.Get(HeaderRequestID),
				"elapsed", elapsed,
				"error", err.Error(),
			)
			return resp, err
		}

		logger.Debug("request completed",
			"method", req.Method,
			"url", req.URL.String(),
			"requestID", req.Header.Get(HeaderRequestID),
			"status", resp.StatusCode,
			"elapsed", elapsed,
		)
		return resp, err
	}
}

// TimingMiddleware stamps the response with the round-trip duration in
// milliseconds so callers can surface it without their own clock.
func TimingMiddleware() Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)
		if resp != nil {
			resp.Header.Set("X-Client-Elapsed-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
		}
		return resp, err
	}
}
