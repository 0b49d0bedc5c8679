package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
	"testing"
	"time"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{TraceLevel, "TRACE"},
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"}, // Invalid level
	}

	for _, test := range tests {
		if result := test.level.String(); result != test.expected {
			t.Errorf("Level.String() = %v, expected %v", result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"trace", TraceLevel},
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"WARN", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"nonsense", InfoLevel},
	}

	for _, test := range tests {
		if result := ParseLevel(test.input); result != test.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", test.input, result, test.expected)
		}
	}
}

func TestLoggerInitialization(t *testing.T) {
	config := Config{
		Level:    InfoLevel,
		UseColor: false,
		JSON:     false,
	}

	if err := Initialize(config); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	if defaultLogger == nil {
		t.Fatal("Initialize() did not set defaultLogger")
	}

	if defaultLogger.config.Component != "modelkeep" {
		t.Errorf("Initialize() did not default component, got: %s", defaultLogger.config.Component)
	}
}

func TestLoggerPrettyFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{
		config: Config{
			Level:     InfoLevel,
			UseColor:  false,
			JSON:      false,
			Component: "test",
		},
		logger: log.New(&buf, "", 0),
	}

	entry := LogEntry{
		Time:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Level:     "INFO",
		Message:   "test message",
		Component: "test",
		Fields:    map[string]interface{}{"key": "value"},
	}

	result := logger.formatPretty(entry)

	expectedParts := []string{
		"2026-01-01 12:00:00",
		"[INFO]",
		"test:",
		"test message",
		"{key=value}",
	}

	for _, part := range expectedParts {
		if !strings.Contains(result, part) {
			t.Errorf("formatPretty() result missing expected part: %s\nResult: %s", part, result)
		}
	}
}

func TestLoggerDryRunMarker(t *testing.T) {
	logger := &Logger{
		config: Config{Level: InfoLevel, DryRun: true, Component: "test"},
		logger: log.New(&bytes.Buffer{}, "", 0),
	}

	result := logger.formatPretty(LogEntry{Time: time.Now(), Level: "INFO", Message: "m"})
	if !strings.Contains(result, "[DRY-RUN]") {
		t.Errorf("formatPretty() missing dry-run marker: %s", result)
	}
}

func TestLoggerJSONFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{
		config: Config{
			Level:     InfoLevel,
			JSON:      true,
			Component: "test",
		},
		logger: log.New(&buf, "", 0),
	}

	logger.Log(InfoLevel, "test message", String("key", "value"), Int64("size", 42))

	var entry LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("Log() with JSON config did not produce valid JSON: %v\nOutput: %s", err, buf.String())
	}
	if entry.Message != "test message" {
		t.Errorf("message = %q, want %q", entry.Message, "test message")
	}
	if entry.Fields["key"] != "value" {
		t.Errorf("field key = %v, want value", entry.Fields["key"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{
		config: Config{Level: WarnLevel, Component: "test"},
		logger: log.New(&buf, "", 0),
	}

	logger.Log(InfoLevel, "filtered")
	if buf.Len() != 0 {
		t.Errorf("info message leaked through warn-level filter: %s", buf.String())
	}

	logger.Log(ErrorLevel, "surfaced")
	if !strings.Contains(buf.String(), "surfaced") {
		t.Errorf("error message missing: %s", buf.String())
	}
}

func TestFieldHelpers(t *testing.T) {
	tests := []struct {
		field Field
		key   string
	}{
		{String("s", "v"), "s"},
		{Int("i", 1), "i"},
		{Int64("i64", 2), "i64"},
		{Bool("b", true), "b"},
	}
	for _, test := range tests {
		if test.field.Key != test.key {
			t.Errorf("field key = %q, want %q", test.field.Key, test.key)
		}
	}
}
