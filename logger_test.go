package pdsession

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologLoggerKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Warn("HTTP error; retrying", "status", 502, "endpoint", "GET /users")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %s", buf.String())
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["message"] != "HTTP error; retrying" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["status"] != float64(502) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["endpoint"] != "GET /users" {
		t.Errorf("endpoint = %v", entry["endpoint"])
	}
}

func TestZerologLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Debug("d")
	logger.Info("i")
	logger.Error("e")

	out := buf.String()
	for _, level := range []string{"debug", "info", "error"} {
		if !strings.Contains(out, `"level":"`+level+`"`) {
			t.Errorf("missing %s entry in output: %s", level, out)
		}
	}
}

func TestNoopLoggerIsDefault(t *testing.T) {
	c, err := New("key")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := c.logger.(noopLogger); !ok {
		t.Errorf("default logger = %T, want noopLogger", c.logger)
	}
}
