package hinsell

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testResponseBody       = "test response"
	contentTypeJSON        = "application/json"
	expectedStatus200Msg   = "Expected status 200, got %d"
	failedWriteResponseMsg = "Failed to write response: %v"
)

func TestNew(t *testing.T) {
	client := New()

	if client == nil {
		t.Fatal("New() returned nil")
	}

	if client.maxRetries != 3 {
		t.Errorf("Expected maxRetries=3, got %d", client.maxRetries)
	}

	if client.initialBackoff != 100*time.Millisecond {
		t.Errorf("Expected initialBackoff=100ms, got %v", client.initialBackoff)
	}

	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("Expected timeout=30s, got %v", client.httpClient.Timeout)
	}

	if client.baseURL.String() != DefaultBaseURL {
		t.Errorf("Expected baseURL=%s, got %s", DefaultBaseURL, client.baseURL)
	}

	if client.Accounts == nil || client.Items == nil || client.Licenses == nil ||
		client.Webhooks == nil || client.Notifications == nil || client.Campaigns == nil {
		t.Error("Expected all resource services to be bound")
	}

	if !client.IsValid() {
		t.Errorf("Expected default client to be valid, got %v", client.ValidationError())
	}
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(testResponseBody)); err != nil {
			t.Fatalf(failedWriteResponseMsg, err)
		}
	}))
	defer server.Close()

	client := New()
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf(expectedStatus200Msg, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	if string(body) != testResponseBody {
		t.Errorf("Expected '%s', got '%s'", testResponseBody, string(body))
	}
}

func TestPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != contentTypeJSON {
			t.Errorf("Expected Content-Type %s, got %s", contentTypeJSON, ct)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New()
	resp, err := client.Post(context.Background(), server.URL, contentTypeJSON, strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Post() returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", resp.StatusCode)
	}
}

func TestRetryOn500(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithMaxRetries(3),
		WithInitialBackoff(time.Millisecond),
		WithMaxBackoff(5*time.Millisecond),
	)

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf(expectedStatus200Msg, resp.StatusCode)
	}

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 upstream calls, got %d", got)
	}
}

func TestRetryOn429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithMaxRetries(2),
		WithInitialBackoff(time.Millisecond),
		WithMaxBackoff(5*time.Millisecond),
	)

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf(expectedStatus200Msg, resp.StatusCode)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", got)
	}
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(
		WithMaxRetries(2),
		WithInitialBackoff(time.Millisecond),
		WithMaxBackoff(5*time.Millisecond),
	)

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.StatusCode)
	}

	// Initial attempt plus two retries.
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 upstream calls, got %d", got)
	}
}

func TestNetworkErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // force connection refused

	client := New(WithMaxRetries(0))

	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for refused connection")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if apiErr.Type != ErrorTypeNetwork {
		t.Errorf("Expected error type %s, got %s", ErrorTypeNetwork, apiErr.Type)
	}
}

func TestTimeoutErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := New(WithMaxRetries(0), WithTimeout(20*time.Millisecond))

	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected timeout error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if apiErr.Type != ErrorTypeTimeout {
		t.Errorf("Expected error type %s, got %s", ErrorTypeTimeout, apiErr.Type)
	}
}

func TestContextCancellationDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(
		WithMaxRetries(3),
		WithInitialBackoff(5*time.Second),
		WithMaxBackoff(10*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Get(ctx, server.URL)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Expected error after context cancellation")
	}
	if elapsed > time.Second {
		t.Errorf("Expected backoff wait to abort quickly, took %v", elapsed)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var order []string
	mw := func(name string) Middleware {
		return func(req *http.Request, next RoundTripper) (*http.Response, error) {
			order = append(order, name+":before")
			resp, err := next.RoundTrip(req)
			order = append(order, name+":after")
			return resp, err
		}
	}

	client := New(WithMiddleware(mw("outer"), mw("inner")))

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	resp.Body.Close()

	want := []string{"outer:before", "inner:before", "inner:after", "outer:after"}
	if len(order) != len(want) {
		t.Fatalf("Expected %d middleware events, got %d (%v)", len(want), len(order), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected event %d to be %s, got %s", i, want[i], order[i])
		}
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(
		WithMaxRetries(0),
		WithCircuitBreaker(CircuitBreakerConfig{
			FailureThreshold: 2,
			RecoveryTimeout:  time.Minute,
			SuccessThreshold: 1,
		}),
	)

	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Get() %d returned error: %v", i, err)
		}
		resp.Body.Close()
	}

	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected circuit open error")
	}
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 upstream calls before circuit opened, got %d", got)
	}
}

func TestRateLimiterDeniesWhenExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithMaxRetries(0),
		WithRateLimiter(1, time.Hour),
	)

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("First Get() returned error: %v", err)
	}
	resp.Body.Close()

	_, err = client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected rate limit error")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
}

func TestRetryBudgetExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(
		WithMaxRetries(5),
		WithInitialBackoff(time.Millisecond),
		WithMaxBackoff(2*time.Millisecond),
		WithRetryBudget(1, time.Hour),
	)

	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected retry budget error")
	}
	if !errors.Is(err, ErrRetryBudgetExceeded) {
		t.Errorf("Expected ErrRetryBudgetExceeded, got %v", err)
	}
}

func TestCachedGet(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(testResponseBody)); err != nil {
			t.Fatalf(failedWriteResponseMsg, err)
		}
	}))
	defer server.Close()

	client := New(WithCache(time.Minute))

	for i := 0; i < 3; i++ {
		resp, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Get() %d returned error: %v", i, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != testResponseBody {
			t.Errorf("Get() %d: expected '%s', got '%s'", i, testResponseBody, string(body))
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 upstream call with caching, got %d", got)
	}
}

func TestInvalidConfigurationSurfaces(t *testing.T) {
	client := New(WithMaxRetries(-1))

	if client.IsValid() {
		t.Error("Expected client with negative maxRetries to be invalid")
	}
	if client.ValidationError() == nil {
		t.Error("Expected ValidationError() to be non-nil")
	}
}

func TestDefaultRetryCondition(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
		err  error
		want bool
	}{
		{"network error", nil, errors.New("boom"), true},
		{"server error", &http.Response{StatusCode: 502}, nil, true},
		{"rate limited", &http.Response{StatusCode: 429}, nil, true},
		{"success", &http.Response{StatusCode: 200}, nil, false},
		{"client error", &http.Response{StatusCode: 404}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryCondition(tt.resp, tt.err); got != tt.want {
				t.Errorf("DefaultRetryCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEndpointFromRequest(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://api.hinsell.com/v1/accounts", nil)
	if got := endpointFromRequest(req); got != "api.hinsell.com/v1/accounts" {
		t.Errorf("endpointFromRequest() = %s", got)
	}

	req, _ = http.NewRequest(http.MethodGet, "https://api.hinsell.com", nil)
	if got := endpointFromRequest(req); got != "api.hinsell.com/" {
		t.Errorf("endpointFromRequest() root = %s", got)
	}
}
