/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func capture(t *testing.T, config Config) *bytes.Buffer {
	t.Helper()
	Initialize(config)
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { Initialize(Config{Level: InfoLevel}) })
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", TraceLevel},
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"info", InfoLevel},
		{"nonsense", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, Config{Level: WarnLevel})

	Debug("hidden")
	Info("hidden too")
	Warn("visible")
	Error("also visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level leaked: %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "also visible") {
		t.Errorf("messages at or above the level missing: %q", out)
	}
}

func TestPrettyFieldsSorted(t *testing.T) {
	buf := capture(t, Config{Level: InfoLevel})

	Info("patched",
		String("zeta", "z"),
		Int("alpha", 1),
		Bool("mid", true))

	out := buf.String()
	want := "{alpha=1, mid=true, zeta=z}"
	if !strings.Contains(out, want) {
		t.Errorf("fields not rendered sorted: %q", out)
	}
	if !strings.Contains(out, "[INFO]") {
		t.Errorf("level tag missing: %q", out)
	}
}

func TestJSONOutput(t *testing.T) {
	buf := capture(t, Config{Level: InfoLevel, JSON: true, Component: "apply"})

	Info("written", String("file", "project.pbxproj"), Err(errors.New("oops")))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry.Level != "INFO" || entry.Message != "written" || entry.Component != "apply" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["file"] != "project.pbxproj" {
		t.Errorf("fields = %v", entry.Fields)
	}
	if entry.Fields["error"] != "oops" {
		t.Errorf("error field = %v", entry.Fields["error"])
	}
}

func TestComponentPrefix(t *testing.T) {
	buf := capture(t, Config{Level: InfoLevel, Component: "validate"})
	Info("checked")
	if !strings.Contains(buf.String(), "validate: checked") {
		t.Errorf("component prefix missing: %q", buf.String())
	}
}
