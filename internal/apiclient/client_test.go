package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func noSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
}

func TestRetryBoundOnNetworkError(t *testing.T) {
	var calls int32
	var delays []time.Duration

	c := New("http://upstream.invalid/api", NewTokenStore("tok"), nil)
	c.Retries = 3
	c.BaseDelay = 10 * time.Millisecond
	c.Sleep = noSleep(&delays)
	c.HTTP = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("connection refused")
	})}

	_, err := c.Get(context.Background(), "/games", nil)
	if !IsNetwork(err) {
		t.Fatalf("want network error, got %v", err)
	}
	if calls != 4 {
		t.Fatalf("want retries+1 = 4 transport calls, got %d", calls)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: want %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestNoRetryOn404(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, nil, nil)
	c.Sleep = noSleep(nil)

	_, err := c.Get(context.Background(), "/games/99", nil)
	ae, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("want APIError, got %v", err)
	}
	if ae.Status != http.StatusNotFound || ae.Message != "The requested resource was not found" {
		t.Fatalf("unexpected error: %+v", ae)
	}
	if calls != 1 {
		t.Fatalf("want exactly one call, got %d", calls)
	}
}

func TestRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, nil)
	c.Sleep = noSleep(nil)
	var retries int
	c.OnRetry = func() { retries++ }

	raw, err := c.Get(context.Background(), "/games", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"data":[]}` || calls != 3 || retries != 2 {
		t.Fatalf("unexpected result raw=%s calls=%d retries=%d", raw, calls, retries)
	}
}

func TestBearerAndJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization header = %q", got)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Errorf("missing request id")
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		b, _ := io.ReadAll(r.Body)
		var in map[string]any
		if err := json.Unmarshal(b, &in); err != nil || in["name"] != "Roulette" {
			t.Errorf("unexpected body %s", b)
		}
		_, _ = w.Write([]byte(`{"data":{"id":"g1"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, NewTokenStore("secret"), nil)
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.DoJSON(context.Background(), http.MethodPost, "/games", map[string]string{"name": "Roulette"}, nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Data.ID != "g1" {
		t.Fatalf("want g1, got %q", out.Data.ID)
	}
}

func TestSkipAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("authorization must be omitted")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, NewTokenStore("secret"), nil)
	raw, err := c.Do(context.Background(), http.MethodGet, "/health", nil, &Options{SkipAuth: true})
	if err != nil || raw != nil {
		t.Fatalf("want empty success, got %s %v", raw, err)
	}
}

func TestServerMessageWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"alias already taken","code":"DUPLICATE","details":{"field":"alias"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, nil)
	_, err := c.Post(context.Background(), "/games", map[string]string{})
	ae, ok := AsAPIError(err)
	if !ok || ae.Message != "alias already taken" || ae.Code != "DUPLICATE" || !strings.Contains(string(ae.Details), "alias") {
		t.Fatalf("unexpected error %#v", err)
	}
}

func TestTimeoutIsRetryable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, nil, nil)
	c.Timeout = 20 * time.Millisecond
	c.Retries = 1
	c.Sleep = noSleep(nil)

	_, err := c.Get(context.Background(), "/slow", nil)
	var ne *NetworkError
	if !errors.As(err, &ne) || !ne.Timeout {
		t.Fatalf("want timeout network error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("want 2 attempts, got %d", calls)
	}
}

func TestDefaultMessages(t *testing.T) {
	cases := map[int]string{
		401: "Authentication required",
		403: "You do not have permission to perform this action",
		500: "Internal server error",
		503: "Service temporarily unavailable",
		418: "Request failed with status 418",
	}
	for status, want := range cases {
		if got := newAPIError(status, nil).Message; got != want {
			t.Fatalf("%d: want %q, got %q", status, want, got)
		}
	}
}

func TestWritesNotRetriedUnlessIdempotent(t *testing.T) {
	var calls int32
	c := New("http://upstream.invalid/api", NewTokenStore("tok"), nil)
	c.Retries = 2
	c.Sleep = noSleep(nil)
	c.HTTP = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("connection reset")
	})}
	ctx := context.Background()

	if _, err := c.Post(ctx, "/brands", map[string]string{"name": "Spin"}); !IsNetwork(err) {
		t.Fatalf("want network error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("POST must not be repeated, got %d calls", calls)
	}

	atomic.StoreInt32(&calls, 0)
	c.Patch(ctx, "/brands/b1/toggle-status", nil)
	if calls != 1 {
		t.Fatalf("PATCH must not be repeated, got %d calls", calls)
	}

	atomic.StoreInt32(&calls, 0)
	c.Do(ctx, http.MethodPost, "/brands", map[string]string{"name": "Spin"}, &Options{Idempotent: true})
	if calls != 3 {
		t.Fatalf("idempotent POST want retries+1 = 3 calls, got %d", calls)
	}

	atomic.StoreInt32(&calls, 0)
	c.Put(ctx, "/brands/b1", map[string]string{"name": "Spin"})
	if calls != 3 {
		t.Fatalf("PUT is retried, want 3 calls, got %d", calls)
	}
}
