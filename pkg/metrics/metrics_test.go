package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestAsyncObserverDeliversBeforeClose(t *testing.T) {
	mem := NewMemoryObserver()
	async := NewAsyncObserver(mem, 8)
	for i := 0; i < 5; i++ {
		async.RecordEvent(MetricsEvent{Name: "frame_committed"})
	}
	async.Close()
	if got := len(mem.Named("frame_committed")); got != 5 {
		t.Fatalf("expected 5 events, got %d", got)
	}
	async.RecordEvent(MetricsEvent{Name: "late"})
	if len(mem.Named("late")) != 0 {
		t.Fatalf("events after close must be ignored")
	}
}

func TestJSONLObserverWritesTags(t *testing.T) {
	var buf bytes.Buffer
	obs := NewJSONLObserver(&buf)
	obs.RecordEvent(MetricsEvent{
		Name:   "frame_failed",
		Time:   time.Unix(0, 0),
		Tags:   map[string]string{"session_id": "s1", "kind": "light"},
		Fields: map[string]any{"summary": "[Light] on"},
	})
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line["name"] != "frame_failed" || line["session_id"] != "s1" || line["summary"] != "[Light] on" {
		t.Fatalf("unexpected line %v", line)
	}
	if _, ok := line["value"]; ok {
		t.Fatalf("zero value should be omitted")
	}
}

func TestObserverFunc(t *testing.T) {
	var got string
	var obs Observer = ObserverFunc(func(ev MetricsEvent) { got = ev.Name })
	obs.RecordEvent(MetricsEvent{Name: "recognize_miss"})
	if got != "recognize_miss" {
		t.Fatalf("expected recognize_miss, got %q", got)
	}
}
