package hinsell

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"

	"github.com/mulverseco/hinsell-go/internal/singleflight"
)

// DeduplicationGroup coalesces concurrent identical requests onto one
// upstream call. The owner's response is buffered once and every caller gets
// an independently readable copy, so no two callers fight over one body.
type DeduplicationGroup struct {
	group *singleflight.Group
}

// NewDeduplicationGroup returns an in-memory de-duplication group.
func NewDeduplicationGroup() *DeduplicationGroup {
	return &DeduplicationGroup{group: singleflight.New()}
}

type bufferedResponse struct {
	statusCode int
	header     http.Header
	body       []byte
}

func (b *bufferedResponse) response() *http.Response {
	return &http.Response{
		StatusCode: b.statusCode,
		Header:     b.header.Clone(),
		Body:       io.NopCloser(bytes.NewReader(b.body)),
	}
}

// Do runs fn once per key across concurrent callers. shared reports whether
// the caller received another call's result. The in-flight entry is dropped
// as soon as the owning call settles.
func (g *DeduplicationGroup) Do(key string, fn func() (*http.Response, error)) (resp *http.Response, err error, shared bool) {
	v, err, shared := g.group.Do(key, func() (interface{}, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		return bufferResponse(resp)
	})
	if err != nil {
		return nil, err, shared
	}
	return v.(*bufferedResponse).response(), nil, shared
}

func bufferResponse(resp *http.Response) (*bufferedResponse, error) {
	buf := &bufferedResponse{
		statusCode: resp.StatusCode,
		header:     resp.Header.Clone(),
	}
	if resp.Body != nil {
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, err
		}
		buf.body = body
	}
	return buf, nil
}

// DeduplicationKeyFunc builds a key identifying identical in-flight requests.
type DeduplicationKeyFunc func(*http.Request) string

// DefaultDeduplicationKeyFunc keys requests by method + URL, mixing in a body
// hash for mutating verbs so distinct payloads never coalesce.
func DefaultDeduplicationKeyFunc(req *http.Request) string {
	h := fnv.New64a()
	h.Write([]byte(req.Method))
	h.Write([]byte(req.URL.String()))

	if req.Body != nil && (req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch) {
		bodyHash := sha256.New()
		if req.GetBody != nil {
			if body, err := req.GetBody(); err == nil {
				_, _ = io.Copy(bodyHash, body)
			}
		}
		h.Write(bodyHash.Sum(nil))
	}

	return fmt.Sprintf("%x", h.Sum64())
}

// DeduplicationCondition decides whether a request is eligible for
// de-duplication.
type DeduplicationCondition func(req *http.Request) bool

// DefaultDeduplicationCondition coalesces safe idempotent methods only.
func DefaultDeduplicationCondition(req *http.Request) bool {
	return req.Method == http.MethodGet || req.Method == http.MethodHead || req.Method == http.MethodOptions
}
