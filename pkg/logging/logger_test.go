package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestInitJSONWithComponent(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := Init(Config{Level: "info", Format: "json", Output: &buf})
	NewComponentLogger(logger, "dialog").Info("frame_committed", slog.String("kind", "light"))

	line := strings.TrimSpace(buf.String())
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("expected one json record, got %q: %v", line, err)
	}
	if rec["component"] != "dialog" || rec["msg"] != "frame_committed" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestInitWarnsOnBadLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Init(Config{Level: "loud", Format: "text", Output: &buf})
	if !strings.Contains(buf.String(), "invalid log level") {
		t.Fatalf("expected warning about level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, ok := ParseLevel("warning"); !ok || lvl != slog.LevelWarn {
		t.Fatalf("expected warn, got %v %v", lvl, ok)
	}
	if _, ok := ParseLevel("nope"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}
