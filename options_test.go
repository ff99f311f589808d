package pdsession

import (
	"net/http"
	"testing"
	"time"
)

func TestOptionsApply(t *testing.T) {
	custom := &http.Client{}
	c, err := New("key",
		WithBaseURL("https://api.eu.pagerduty.com"),
		WithAuthType(AuthBearer),
		WithDefaultFrom("admin@example.com"),
		WithDefaultPageSize(50),
		WithTimeout(5*time.Second),
		WithRetryPolicy(RetryPolicy{404: 3}),
		WithMaxNetworkAttempts(5),
		WithMaxHTTPAttempts(20),
		WithInitialCooldown(500*time.Millisecond),
		WithCooldownBase(1.5),
		WithStaggerCooldown(0.3),
		WithHTTPClient(custom),
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if c.baseURL != "https://api.eu.pagerduty.com" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.authType != AuthBearer {
		t.Error("authType not applied")
	}
	if c.defaultFrom != "admin@example.com" {
		t.Errorf("defaultFrom = %q", c.defaultFrom)
	}
	if c.defaultPageSize != 50 {
		t.Errorf("defaultPageSize = %d", c.defaultPageSize)
	}
	if c.retry[404] != 3 {
		t.Errorf("retry policy not applied: %v", c.retry)
	}
	if c.maxNetworkAttempts != 5 || c.maxHTTPAttempts != 20 {
		t.Errorf("attempt ceilings = %d, %d", c.maxNetworkAttempts, c.maxHTTPAttempts)
	}
	if c.sleepTimer != 500*time.Millisecond || c.sleepTimerBase != 1.5 {
		t.Errorf("cooldown settings = %v, %v", c.sleepTimer, c.sleepTimerBase)
	}
	if c.staggerCooldown != 0.3 {
		t.Errorf("staggerCooldown = %v", c.staggerCooldown)
	}
	if c.httpClient != custom {
		t.Error("custom HTTP client not applied")
	}
	if custom.Timeout != 5*time.Second {
		t.Errorf("timeout not propagated to the HTTP client: %v", custom.Timeout)
	}
}

func TestWithStaggerCooldownClampsNegative(t *testing.T) {
	c, err := New("key", WithStaggerCooldown(-1))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.staggerCooldown != 0 {
		t.Errorf("staggerCooldown = %v, want 0", c.staggerCooldown)
	}
}

func TestWithLoggerNilKeepsDefault(t *testing.T) {
	c, err := New("key", WithLogger(nil))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.logger == nil {
		t.Error("logger must never be nil")
	}
}

func TestDefaults(t *testing.T) {
	c, err := New("key")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.baseURL != defaultBaseURL {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.defaultPageSize != defaultPageSize {
		t.Errorf("defaultPageSize = %d", c.defaultPageSize)
	}
	if c.maxNetworkAttempts != defaultMaxNetworkAttempts {
		t.Errorf("maxNetworkAttempts = %d", c.maxNetworkAttempts)
	}
	if c.maxHTTPAttempts != defaultMaxHTTPAttempts {
		t.Errorf("maxHTTPAttempts = %d", c.maxHTTPAttempts)
	}
	if c.sleepTimer != defaultSleepTimer || c.sleepTimerBase != defaultSleepTimerBase {
		t.Errorf("cooldown defaults = %v, %v", c.sleepTimer, c.sleepTimerBase)
	}
	if c.httpClient.Timeout != defaultTimeout {
		t.Errorf("timeout = %v", c.httpClient.Timeout)
	}
	if c.metrics != nil {
		t.Error("metrics must be opt-in")
	}
}
