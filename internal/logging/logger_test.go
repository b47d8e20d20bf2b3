package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(Options{Dir: dir, Level: "DEBUG", MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.WithSession("s-1").WithComponent("registry").Info("session added", "worktree", "/repo/wt-a")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "agentmux.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\nline: %s", err, line)
	}

	if entry["msg"] != "session added" {
		t.Errorf("msg = %v, want 'session added'", entry["msg"])
	}
	if entry["session_id"] != "s-1" {
		t.Errorf("session_id = %v, want s-1", entry["session_id"])
	}
	if entry["component"] != "registry" {
		t.Errorf("component = %v, want registry", entry["component"])
	}
	if entry["worktree"] != "/repo/wt-a" {
		t.Errorf("worktree = %v, want /repo/wt-a", entry["worktree"])
	}
}

func TestChildLoggerDoesNotMutateParent(t *testing.T) {
	parent := Nop()
	child := parent.WithSession("s-1")

	if len(parent.attrs) != 0 {
		t.Errorf("parent attrs mutated: %v", parent.attrs)
	}
	if len(child.attrs) != 1 {
		t.Errorf("child should carry one attr, got %d", len(child.attrs))
	}
}

func TestWith_IgnoresNonStringKeys(t *testing.T) {
	l := Nop().With(42, "value", "ok", "fine")
	if len(l.attrs) != 1 {
		t.Errorf("expected 1 attr (non-string key skipped), got %d", len(l.attrs))
	}
}
