package observers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/harunnryd/domov/pkg/metrics"
)

func TestJournalKeepsCommittedFrames(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)

	j.RecordEvent(metrics.MetricsEvent{
		Name:   "frame_committed",
		Time:   time.Unix(100, 0),
		Tags:   map[string]string{"session_id": "ui/1", "kind": "light"},
		Fields: map[string]any{"summary": "[Light] on světlo barva ? jas ? v 'light.obyvak'"},
	})
	j.RecordEvent(metrics.MetricsEvent{Name: "recognize_miss", Tags: map[string]string{"session_id": "ui/1"}})
	j.RecordEvent(metrics.MetricsEvent{Name: "frame_committed"})
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := j.Path("ui/1")
	if filepath.Base(path) != "ui_1.jsonl" {
		t.Fatalf("unexpected journal path %s", path)
	}
	got, err := ReadJournal(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	want := []Entry{{
		Time:      time.Unix(100, 0).UTC(),
		Event:     "frame_committed",
		SessionID: "ui/1",
		Kind:      "light",
		Summary:   "[Light] on světlo barva ? jas ? v 'light.obyvak'",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestPurgeJournalsRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.jsonl")
	fresh := filepath.Join(dir, "fresh.jsonl")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-72 * time.Hour)
	for _, p := range []string{old, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	n, err := PurgeJournals(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one removal, got %d", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old journal should be gone")
	}
	for _, p := range []string{fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s should stay: %v", p, err)
		}
	}
	if n, err := PurgeJournals(filepath.Join(dir, "missing"), time.Hour); err != nil || n != 0 {
		t.Fatalf("missing dir: n=%d err=%v", n, err)
	}
}

func TestMultiObserverSkipsNil(t *testing.T) {
	mem := metrics.NewMemoryObserver()
	m := NewMultiObserver(nil, mem, NewLoggerObserver(nil))
	m.RecordEvent(metrics.MetricsEvent{Name: "frame_failed"})
	if len(mem.Events()) != 1 {
		t.Fatalf("expected event delivered")
	}
}
