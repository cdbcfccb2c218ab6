package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"  info  ", LevelInfo},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Level: LevelWarn, Output: &buf, Name: "test"})

	logger.Debug("not logged")
	logger.Info("not logged either")
	logger.Warn("warning shown")
	logger.Error("error shown")

	out := buf.String()
	if strings.Contains(out, "not logged") {
		t.Errorf("below-level entries were written: %q", out)
	}
	if !strings.Contains(out, "warning shown") || !strings.Contains(out, "error shown") {
		t.Errorf("expected warn and error entries, got: %q", out)
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Level: LevelDebug, Output: &buf, Name: "asr"})

	logger.Info("session started", "trace_id", "ab12cd", "sample_rate", 16000)

	out := buf.String()
	for _, want := range []string{"[INFO]", "[asr]", "session started", "trace_id=ab12cd", "sample_rate=16000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf, Name: "pipeline"})

	logger.Info("transcript injected", "len", 7)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "transcript injected" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["logger"] != "pipeline" {
		t.Errorf("logger = %v", entry["logger"])
	}
	if entry["len"] != float64(7) {
		t.Errorf("len = %v", entry["len"])
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Level: LevelInfo, Output: &buf}).
		WithFields(Fields{"trace_id": "xyz"})

	logger.Info("first")
	logger.Info("second", "extra", true)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "trace_id=xyz") {
			t.Errorf("line missing contextual field: %q", line)
		}
	}
	if !strings.Contains(lines[1], "extra=true") {
		t.Errorf("second line missing call-site field: %q", lines[1])
	}
}

func TestLogger_OddKeyValuesIgnored(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Level: LevelInfo, Output: &buf})

	logger.Info("dangling key", "orphan")

	if strings.Contains(buf.String(), "orphan") {
		t.Errorf("dangling key should be dropped: %q", buf.String())
	}
}
