package hinsell

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDeduplicationGroupCoalesces(t *testing.T) {
	group := NewDeduplicationGroup()

	var calls int32
	release := make(chan struct{})

	fn := func() (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
			Body:       io.NopCloser(strings.NewReader("shared body")),
		}, nil
	}

	const waiters = 10
	var wg sync.WaitGroup
	results := make(chan string, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err, _ := group.Do("key", fn)
			if err != nil {
				t.Errorf("Do() returned error: %v", err)
				return
			}
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				t.Errorf("reading body: %v", err)
				return
			}
			results <- string(body)
		}()
	}

	// Give the waiters time to pile onto the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}

	count := 0
	for body := range results {
		count++
		if body != "shared body" {
			t.Errorf("Expected every caller to read the full body, got %q", body)
		}
	}
	if count != waiters {
		t.Errorf("Expected %d results, got %d", waiters, count)
	}
}

func TestDeduplicationGroupPropagatesErrors(t *testing.T) {
	group := NewDeduplicationGroup()
	boom := errors.New("boom")

	_, err, _ := group.Do("key", func() (*http.Response, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}

func TestDeduplicationGroupSequentialCallsNotShared(t *testing.T) {
	group := NewDeduplicationGroup()

	var calls int32
	fn := func() (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("ok")),
		}, nil
	}

	for i := 0; i < 2; i++ {
		resp, err, shared := group.Do("key", fn)
		if err != nil {
			t.Fatalf("Do() %d returned error: %v", i, err)
		}
		resp.Body.Close()
		if shared {
			t.Errorf("Expected sequential call %d to not be shared", i)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 calls for sequential requests, got %d", got)
	}
}

func TestDefaultDeduplicationKeyFunc(t *testing.T) {
	reqA, _ := http.NewRequest(http.MethodGet, "https://api.hinsell.com/v1/items", nil)
	reqB, _ := http.NewRequest(http.MethodGet, "https://api.hinsell.com/v1/items", nil)
	reqC, _ := http.NewRequest(http.MethodGet, "https://api.hinsell.com/v1/accounts", nil)

	if DefaultDeduplicationKeyFunc(reqA) != DefaultDeduplicationKeyFunc(reqB) {
		t.Error("Expected identical GETs to share a key")
	}
	if DefaultDeduplicationKeyFunc(reqA) == DefaultDeduplicationKeyFunc(reqC) {
		t.Error("Expected different URLs to have different keys")
	}
}

func TestDefaultDeduplicationKeyFuncBodyHash(t *testing.T) {
	reqA, _ := http.NewRequest(http.MethodPost, "https://api.hinsell.com/v1/items", strings.NewReader(`{"sku":"A"}`))
	reqB, _ := http.NewRequest(http.MethodPost, "https://api.hinsell.com/v1/items", strings.NewReader(`{"sku":"B"}`))

	if DefaultDeduplicationKeyFunc(reqA) == DefaultDeduplicationKeyFunc(reqB) {
		t.Error("Expected POSTs with different payloads to have different keys")
	}
}

func TestDefaultDeduplicationCondition(t *testing.T) {
	get, _ := http.NewRequest(http.MethodGet, "https://api.hinsell.com/", nil)
	post, _ := http.NewRequest(http.MethodPost, "https://api.hinsell.com/", nil)

	if !DefaultDeduplicationCondition(get) {
		t.Error("Expected GET to be eligible")
	}
	if DefaultDeduplicationCondition(post) {
		t.Error("Expected POST to not be eligible")
	}
}

func TestClientDeduplicatesConcurrentGets(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(testResponseBody)); err != nil {
			t.Errorf(failedWriteResponseMsg, err)
		}
	}))
	defer server.Close()

	client := New(WithDeduplication())

	const waiters = 8
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(context.Background(), server.URL)
			if err != nil {
				t.Errorf("Get() returned error: %v", err)
				return
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(body) != testResponseBody {
				t.Errorf("Expected '%s', got '%s'", testResponseBody, string(body))
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 upstream call for %d concurrent GETs, got %d", waiters, got)
	}
}
