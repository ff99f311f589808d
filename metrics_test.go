package pdsession

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"users": []}`)
	}))
	defer server.Close()
	c, _ := newTestClient(t, server, WithMetrics())

	resp, err := c.Get(context.Background(), "/users", nil)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	resp.Body.Close()

	mc := c.Metrics()
	if mc == nil {
		t.Fatal("WithMetrics should attach a collector")
	}
	got := testutil.ToFloat64(mc.requestsTotal.WithLabelValues("GET", "200", "GET /users"))
	if got != 1 {
		t.Errorf("requests_total = %v, want 1", got)
	}
	inFlight := testutil.ToFloat64(mc.requestsInFlight.WithLabelValues("GET", "GET /users"))
	if inFlight != 0 {
		t.Errorf("requests_in_flight = %v, want 0 after completion", inFlight)
	}
}

func TestMetricsRecordRetry(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"error": "rate limited"}`)
			return
		}
		io.WriteString(w, `{"users": []}`)
	}))
	defer server.Close()
	c, _ := newTestClient(t, server, WithMetrics())

	resp, err := c.Get(context.Background(), "/users", nil)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	resp.Body.Close()

	mc := c.Metrics()
	got := testutil.ToFloat64(mc.retriesTotal.WithLabelValues("GET", "GET /users", "rate_limit"))
	if got != 1 {
		t.Errorf("retries_total{reason=\"rate_limit\"} = %v, want 1", got)
	}
	// Both the 429 attempt and the successful one are recorded.
	attempts := testutil.ToFloat64(mc.requestsTotal.WithLabelValues("GET", "429", "GET /users")) +
		testutil.ToFloat64(mc.requestsTotal.WithLabelValues("GET", "200", "GET /users"))
	if attempts != 2 {
		t.Errorf("recorded attempts = %v, want 2", attempts)
	}
}

func TestMetricsRecordAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error": "unauthorized"}`)
	}))
	defer server.Close()
	c, _ := newTestClient(t, server, WithMetrics())

	if _, err := c.Get(context.Background(), "/users", nil); err == nil {
		t.Fatal("expected an authentication error")
	}
	got := testutil.ToFloat64(c.Metrics().errorsTotal.WithLabelValues("auth", "GET", "GET /users"))
	if got != 1 {
		t.Errorf("errors_total{type=\"auth\"} = %v, want 1", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	mc := NewMetricsCollector()
	if mc.Handler() == nil {
		t.Error("a collector with its own registry should expose a handler")
	}
	external := NewMetricsCollectorWithRegistry(prometheus.NewRegistry())
	if external.Handler() != nil {
		t.Error("a collector on an external registerer has no handler of its own")
	}
}
