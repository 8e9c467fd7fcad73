package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(endpoint string, maxRetries int) *Client {
	return NewClient(Config{
		Endpoint:         endpoint,
		Timeout:          2 * time.Second,
		MaxRetries:       maxRetries,
		Backoff:          time.Millisecond,
		RateLimitBackoff: 5 * time.Millisecond,
	})
}

func TestClientQuerySuccess(t *testing.T) {
	var gotBody queryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path = %s, want /query", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response": "fallback answer",
			"metadata": map[string]interface{}{"model": "secondary-v2"},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	result, err := c.Query(context.Background(), "what is go?", "some context", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Response != "fallback answer" {
		t.Errorf("Response = %q", result.Response)
	}
	if result.Metadata["model"] != "secondary-v2" {
		t.Errorf("Metadata = %v", result.Metadata)
	}

	if gotBody.Query != "what is go?" || gotBody.Context != "some context" {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.Timestamp == "" {
		t.Error("timestamp missing from request")
	}
}

func TestClientRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"response": "after backoff"})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	result, err := c.Query(context.Background(), "q", "", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Response != "after backoff" {
		t.Errorf("Response = %q", result.Response)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClientRetriesTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusRequestTimeout)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"response": "second try"})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	result, err := c.Query(context.Background(), "q", "", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Response != "second try" {
		t.Errorf("Response = %q", result.Response)
	}
}

func TestClientExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	_, err := c.Query(context.Background(), "q", "", nil)
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("err = %v, want ErrExhausted", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClientEmptyResponseIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{"response": ""})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	_, err := c.Query(context.Background(), "q", "", nil)
	if err == nil {
		t.Fatal("expected error for empty response")
	}
	if errors.Is(err, ErrExhausted) {
		t.Errorf("malformed payloads must not retry, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClientHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{
		Endpoint:         srv.URL,
		MaxRetries:       5,
		Backoff:          time.Millisecond,
		RateLimitBackoff: time.Minute, // would stall without ctx
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Query(ctx, "q", "", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}
