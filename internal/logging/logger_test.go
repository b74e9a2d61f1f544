package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		level  string
		format string
	}{
		{"empty level", "", "text"},
		{"empty format", "info", ""},
		{"bad level", "loud", "text"},
		{"bad format", "info", "xml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(&bytes.Buffer{}, tc.level, tc.format); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hidden")
	logger.Error("environment marker not found", "marker", "/w/venv/bin/activate")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d: %s", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["marker"] != "/w/venv/bin/activate" || record["level"] != "ERROR" {
		t.Fatalf("unexpected record %v", record)
	}
}
