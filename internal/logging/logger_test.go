package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, data string) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line is not valid JSON: %v: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNew(t *testing.T) {
	t.Run("writes to stderr when file is empty", func(t *testing.T) {
		logger, err := New(Options{Level: LevelInfo})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer logger.Close()

		if logger.closer != nil {
			t.Error("expected no closer when writing to stderr")
		}
	})

	t.Run("creates log file and parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dynoscaler.log")

		logger, err := New(Options{Level: LevelDebug, File: path})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		logger.Info("hello")
		if err := logger.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		entries := decodeLines(t, string(content))
		if len(entries) != 1 || entries[0]["msg"] != "hello" {
			t.Errorf("unexpected log content: %s", content)
		}
	})
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelDebug)

	logger.Debug("debug message", "key", "value")
	logger.Info("info message", "key", "value")
	logger.Warn("warn message", "key", "value")
	logger.Error("error message", "key", "value")

	entries := decodeLines(t, buf.String())
	if len(entries) != 4 {
		t.Fatalf("expected 4 log lines, got %d", len(entries))
	}

	expectedLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	for i, entry := range entries {
		if entry["level"] != expectedLevels[i] {
			t.Errorf("line %d: expected level %s, got %v", i, expectedLevels[i], entry["level"])
		}
		if entry["key"] != "value" {
			t.Errorf("line %d: expected key=value, got key=%v", i, entry["key"])
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := decodeLines(t, buf.String())
	if len(entries) != 2 {
		t.Fatalf("expected 2 log lines at WARN level, got %d", len(entries))
	}
	if entries[0]["msg"] != "warn message" {
		t.Errorf("first entry = %v, want warn message", entries[0]["msg"])
	}
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithWriter(&buf, LevelInfo)

	cycleLogger := root.WithComponent("loop").WithCycle(7)
	cycleLogger.Info("resize requested", "target", 3)
	root.Info("root message")

	entries := decodeLines(t, buf.String())
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0]["component"] != "loop" {
		t.Errorf("component = %v, want loop", entries[0]["component"])
	}
	// JSON numbers decode as float64
	if entries[0]["cycle"] != float64(7) {
		t.Errorf("cycle = %v, want 7", entries[0]["cycle"])
	}
	if entries[0]["target"] != float64(3) {
		t.Errorf("target = %v, want 3", entries[0]["target"])
	}
	if _, ok := entries[1]["component"]; ok {
		t.Error("child attributes leaked into the root logger")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelInfo)

	if logger.With() != logger {
		t.Error("With() without args should return the same logger")
	}

	logger.With("queue", "jobs", 42, "ignored-key-type", "provider", "sqs").Info("sampled")

	entries := decodeLines(t, buf.String())
	if entries[0]["queue"] != "jobs" {
		t.Errorf("queue = %v, want jobs", entries[0]["queue"])
	}
	if entries[0]["provider"] != "sqs" {
		t.Errorf("provider = %v, want sqs", entries[0]["provider"])
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Error("discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidLevels(t *testing.T) {
	levels := ValidLevels()
	if len(levels) != 4 {
		t.Errorf("expected 4 levels, got %d", len(levels))
	}
}

func TestConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dynoscaler.log")
	logger, err := New(Options{Level: LevelInfo, File: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			child := logger.WithCycle(uint64(n))
			for j := 0; j < 20; j++ {
				child.Info("tick", "j", j)
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if got := len(decodeLines(t, string(content))); got != 200 {
		t.Errorf("expected 200 lines, got %d", got)
	}
}
