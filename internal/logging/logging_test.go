package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		config    LogLevel
		message   LogLevel
		expectLog bool
	}{
		{"debug at debug", DebugLevel, DebugLevel, true},
		{"debug at info", InfoLevel, DebugLevel, false},
		{"info at info", InfoLevel, InfoLevel, true},
		{"warn at error", ErrorLevel, WarnLevel, false},
		{"error at warn", WarnLevel, ErrorLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(Config{Format: HumanFormat, Level: tt.config, Output: &buf})

			l.log(tt.message, "hello", nil)

			got := buf.Len() > 0
			if got != tt.expectLog {
				t.Errorf("logged=%v, want %v", got, tt.expectLog)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	l.Info("indexed file", map[string]interface{}{"path": "main.go", "nodes": 3})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["message"] != "indexed file" {
		t.Errorf("message = %v, want %q", entry["message"], "indexed file")
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	fields, ok := entry["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("fields missing from entry: %v", entry)
	}
	if fields["path"] != "main.go" {
		t.Errorf("fields.path = %v, want main.go", fields["path"])
	}
}

func TestNamedComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	child := l.Named("detector").Named("git")
	child.Info("scan complete", nil)

	if !strings.Contains(buf.String(), "(detector.git)") {
		t.Errorf("output missing nested component: %q", buf.String())
	}
}

func TestHumanFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	l.Info("msg", map[string]interface{}{"zeta": 1, "alpha": 2})

	out := buf.String()
	if strings.Index(out, "alpha") > strings.Index(out, "zeta") {
		t.Errorf("fields not sorted: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != DebugLevel {
		t.Error("expected debug")
	}
	if ParseLevel("bogus") != InfoLevel {
		t.Error("unknown level should default to info")
	}
}
