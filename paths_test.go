package pdsession

import (
	"errors"
	"testing"
)

func TestCanonicalPath(t *testing.T) {
	base := "https://api.pagerduty.com"
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"index", "/users", "/users"},
		{"individual resource", "/users/PABC123", "/users/{id}"},
		{"nested", "/services/PDEF456/integrations/PGHI789", "/services/{id}/integrations/{integration_id}"},
		{"full URL", base + "/schedules/PSCHED1/overrides/POVR2", "/schedules/{id}/overrides/{override_id}"},
		{"query string ignored", "/incidents?limit=10&offset=20", "/incidents"},
		{"literal outranks parameter", "/users/me", "/users/me"},
		{"trailing literal node", "/incidents/PINC123/alerts", "/incidents/{id}/alerts"},
		{"audit records", "/audit/records", "/audit/records"},
		{"status literal under variable sibling", "/abilities/teams", "/abilities/{id}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalPath(base, tt.url)
			if err != nil {
				t.Fatalf("CanonicalPath(%q) returned error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("CanonicalPath(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestCanonicalPathNoMatch(t *testing.T) {
	_, err := CanonicalPath("https://api.pagerduty.com", "/not/a/real/api")
	var urlErr *URLError
	if !errors.As(err, &urlErr) {
		t.Fatalf("expected a *URLError for an uncataloged path, got %v", err)
	}
}

func TestCanonicalPathWrongHost(t *testing.T) {
	_, err := CanonicalPath("https://api.pagerduty.com", "https://example.com/users")
	var urlErr *URLError
	if !errors.As(err, &urlErr) {
		t.Fatalf("expected a *URLError for a foreign host, got %v", err)
	}
}

func TestNormalizeURL(t *testing.T) {
	base := "https://api.pagerduty.com"
	tests := []struct {
		in   string
		want string
	}{
		{"/users", base + "/users"},
		{"users", base + "/users"},
		{base + "/users", base + "/users"},
	}
	for _, tt := range tests {
		got, err := normalizeURL(base, tt.in)
		if err != nil {
			t.Fatalf("normalizeURL(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSupportsCursorPagination(t *testing.T) {
	if !supportsCursorPagination("/audit/records") {
		t.Error("expected /audit/records to use cursor-based pagination")
	}
	if supportsCursorPagination("/users") {
		t.Error("expected /users to use classic pagination")
	}
}

func TestIsPathParam(t *testing.T) {
	if !isPathParam("{id}") {
		t.Error("{id} should be a path parameter")
	}
	if isPathParam("users") {
		t.Error("users should not be a path parameter")
	}
}
