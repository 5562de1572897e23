package resilience

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(4, 0.5, time.Minute)

	b.Report(ctx, true)
	b.Report(ctx, false)
	b.Report(ctx, false)
	if !b.Allow(ctx) {
		t.Fatal("breaker should stay closed below the minimum request count")
	}
	b.Report(ctx, false)
	if b.Allow(ctx) {
		t.Fatal("breaker should be open after exceeding the failure ratio")
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(1, 0.5, 10*time.Millisecond)
	b.Report(ctx, false)
	if b.Allow(ctx) {
		t.Fatal("expected open breaker")
	}
	time.Sleep(15 * time.Millisecond)
	if !b.Allow(ctx) {
		t.Fatal("expected half-open probe after cool-off")
	}
	b.Report(ctx, true)
	if !b.Allow(ctx) {
		t.Fatal("successful probe should close the breaker")
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(1, 0.5, 5*time.Millisecond)
	b.Report(ctx, false)
	time.Sleep(10 * time.Millisecond)
	if !b.Allow(ctx) {
		t.Fatal("expected half-open probe")
	}
	b.Report(ctx, false)
	if b.Allow(ctx) {
		t.Fatal("failed probe should reopen the breaker")
	}
}

func TestHTTPClientRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl := HTTPClient{
		Client:      srv.Client(),
		Breaker:     NewBreaker(10, 0.9, time.Minute),
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := cl.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after retries, got %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestHTTPClientFallbackWhenOpen(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(1, 0.5, time.Minute)
	b.Report(ctx, false) // force open

	fallbackHit := false
	cl := HTTPClient{
		Client:  http.DefaultClient,
		Breaker: b,
		Fallback: func(_ context.Context, _ *http.Request, err error) (*http.Response, error) {
			fallbackHit = true
			return nil, err
		},
	}
	req, _ := http.NewRequest(http.MethodGet, "http://unreachable.invalid", nil)
	_, err := cl.Do(ctx, req)
	if err != ErrOpenCircuit {
		t.Fatalf("expected ErrOpenCircuit, got %v", err)
	}
	if !fallbackHit {
		t.Fatal("fallback must run when the breaker rejects the request")
	}
}
