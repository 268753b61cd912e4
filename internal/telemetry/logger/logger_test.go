package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	return entry
}

func TestNew(t *testing.T) {
	for _, cfg := range []Config{
		DefaultConfig(),
		{Level: "debug", Format: "text"},
		{Level: "info", Format: "json"},
		{},
	} {
		l, err := New(cfg)
		if err != nil {
			t.Fatalf("New(%+v) error = %v", cfg, err)
		}
		if l.Slog() == nil {
			t.Fatalf("New(%+v) returned nil slog logger", cfg)
		}
	}

	for _, cfg := range []Config{{Level: "trace"}, {Format: "xml"}} {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) should fail", cfg)
		}
	}
}

func TestLogger_Levels(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")

	tests := []struct {
		name  string
		log   func(string, ...any)
		level string
	}{
		{"debug", l.Debug, "DEBUG"},
		{"info", l.Info, "INFO"},
		{"warn", l.Warn, "WARN"},
		{"error", l.Error, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log("test message", "k", "v")
			entry := decodeLine(t, buf)
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["msg"] != "test message" {
				t.Errorf("msg = %v, want test message", entry["msg"])
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.With("component", "respserver").Info("hello")

	entry := decodeLine(t, buf)
	if entry["component"] != "respserver" {
		t.Errorf("component = %v, want respserver", entry["component"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %s", buf.String())
	}
	l.Warn("shown")
	if buf.Len() == 0 {
		t.Error("expected warn output")
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	defer SetLevel("info")

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatal("debug logged at info level")
	}

	SetLevel("debug")
	l.Debug("now visible")
	if buf.Len() == 0 {
		t.Error("debug not logged after SetLevel(debug)")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "debug"},
		{"INFO", "info"},
		{"warning", "warn"},
		{"error", "error"},
		{"bogus", "error"},
	}
	for _, tt := range tests {
		SetLevel(tt.input)
		if got := GetLevel(); got != tt.expected {
			t.Errorf("SetLevel(%q); GetLevel() = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warn", "warning", "error"} {
		if !ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = false", lvl)
		}
	}
	for _, lvl := range []string{"", "trace", "fatal"} {
		if ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = true", lvl)
		}
	}
}

func TestSetDefault_InstallsSlogDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	l, buf := newJSONLogger(t, "debug")
	SetDefault(l)

	slog.Info("via slog default")
	if buf.Len() == 0 {
		t.Error("slog.Info produced no output after SetDefault")
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("test message", "component", "engine")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("Text output should contain message, got: %s", output)
	}
	if !strings.Contains(output, "component=engine") {
		t.Errorf("Text output should contain component=engine, got: %s", output)
	}
}
