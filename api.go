package hinsell

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HeaderIdempotencyKey lets the backend drop accidental replays of mutating
// calls.
const HeaderIdempotencyKey = "Idempotency-Key"

// call is the generic operation every resource method delegates to:
// validate the request body, perform the HTTP call through the pipeline,
// then decode and validate the response into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if c.validationError != nil {
		return c.validationError
	}

	var reqBody io.Reader
	havePayload := false
	if body != nil {
		if err := c.validator.check(body); err != nil {
			return &Error{
				Type:      ErrorTypeValidation,
				Message:   "request validation failed",
				Cause:     err,
				Method:    method,
				URL:       path,
				Timestamp: time.Now(),
			}
		}
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{
				Type:      ErrorTypeDecode,
				Message:   "request encoding failed",
				Cause:     err,
				Method:    method,
				URL:       path,
				Timestamp: time.Now(),
			}
		}
		reqBody = bytes.NewReader(raw)
		havePayload = true
	}

	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if havePayload {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if isMutating(method) {
		req.Header.Set(HeaderIdempotencyKey, uuid.NewString())
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(req, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return &Error{
			Type:       ErrorTypeDecode,
			Message:    "unexpected content type " + ct,
			Method:     req.Method,
			URL:        req.URL.String(),
			Endpoint:   endpointFromRequest(req),
			StatusCode: resp.StatusCode,
			Timestamp:  time.Now(),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{
			Type:       ErrorTypeDecode,
			Message:    "response decoding failed",
			Cause:      err,
			Method:     req.Method,
			URL:        req.URL.String(),
			Endpoint:   endpointFromRequest(req),
			StatusCode: resp.StatusCode,
			Timestamp:  time.Now(),
		}
	}

	if err := c.validator.check(out); err != nil {
		return &Error{
			Type:       ErrorTypeValidation,
			Message:    "response validation failed",
			Cause:      err,
			Method:     req.Method,
			URL:        req.URL.String(),
			Endpoint:   endpointFromRequest(req),
			StatusCode: resp.StatusCode,
			Timestamp:  time.Now(),
		}
	}

	return nil
}

// errorFromResponse converts a 4xx/5xx response into a typed error, decoding
// the backend envelope when present.
func (c *Client) errorFromResponse(req *http.Request, resp *http.Response) *Error {
	const maxErrorBody = 1 << 20
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	code := ""
	message := http.StatusText(resp.StatusCode)

	var env apiErrorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		code = env.Error.Code
		message = env.Error.Message
	}

	errorType := ErrorTypeClient
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		errorType = ErrorTypeRateLimit
	case resp.StatusCode >= 500:
		errorType = ErrorTypeServer
	}

	return &Error{
		Type:       errorType,
		Message:    message,
		Code:       code,
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get(HeaderRequestID),
		Method:     req.Method,
		URL:        req.URL.String(),
		Endpoint:   endpointFromRequest(req),
		MaxRetries: c.maxRetries,
		Timestamp:  time.Now(),
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
