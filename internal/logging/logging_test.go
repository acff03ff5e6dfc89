package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Options{Level: "debug", Format: "json"}); err != nil {
		t.Errorf("valid options rejected: %v", err)
	}
	if err := Validate(Options{Level: "loud"}); err == nil {
		t.Error("unknown level accepted")
	}
	if err := Validate(Options{Format: "xml"}); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", "user", "alice")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if record["msg"] != "shown" || record["user"] != "alice" {
		t.Errorf("unexpected record %v", record)
	}
}

func TestSetupInstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	if err := Setup(Options{Level: "info", Format: "text", Output: &buf}); err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	slog.Info("hello", "channel", "general")
	if !strings.Contains(buf.String(), "channel=general") {
		t.Errorf("default logger did not write to the configured output: %q", buf.String())
	}
}
