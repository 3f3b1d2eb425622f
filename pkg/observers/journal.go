package observers

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/domov/pkg/metrics"
	"github.com/harunnryd/domov/pkg/redact"
)

// JournalEvents are the event names the journal keeps by default.
var JournalEvents = []string{"frame_committed"}

// Entry is one journal line.
type Entry struct {
	Time      time.Time         `json:"time"`
	Event     string            `json:"event"`
	SessionID string            `json:"session_id"`
	Kind      string            `json:"kind,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Fields    map[string]any    `json:"fields,omitempty"`
}

// Journal appends session events to <dir>/<session_id>.jsonl.
type Journal struct {
	dir    string
	events map[string]bool
	mu     sync.Mutex
	files  map[string]*os.File
}

// NewJournal keeps the named events, or JournalEvents when none are given.
func NewJournal(dir string, events ...string) *Journal {
	if len(events) == 0 {
		events = JournalEvents
	}
	keep := make(map[string]bool, len(events))
	for _, e := range events {
		keep[e] = true
	}
	return &Journal{dir: dir, events: keep, files: make(map[string]*os.File)}
}

// RecordEvent implements metrics.Observer.
func (j *Journal) RecordEvent(ev metrics.MetricsEvent) {
	if !j.events[ev.Name] || strings.TrimSpace(j.dir) == "" {
		return
	}
	id := ev.Tags["session_id"]
	if id == "" {
		return
	}
	fields := sanitizeFields(ev.Fields)
	entry := Entry{
		Time:      ev.Time.UTC(),
		Event:     ev.Name,
		SessionID: id,
		Kind:      ev.Tags["kind"],
		Tags:      extraTags(ev.Tags),
	}
	if s, ok := fields["summary"].(string); ok {
		entry.Summary = s
		delete(fields, "summary")
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	f := j.fileFor(id)
	if f == nil {
		return
	}
	j.mu.Lock()
	_, _ = f.Write(append(line, '\n'))
	j.mu.Unlock()
}

// Close closes any open files.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var err error
	for _, f := range j.files {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	j.files = make(map[string]*os.File)
	return err
}

// Path is the journal file of a session.
func (j *Journal) Path(sessionID string) string {
	return filepath.Join(j.dir, sanitizeID(sessionID)+".jsonl")
}

// ReadJournal loads every entry of a journal file.
func ReadJournal(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(strings.TrimSpace(sc.Text())) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func (j *Journal) fileFor(id string) *os.File {
	safe := sanitizeID(id)
	if safe == "" {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if f := j.files[safe]; f != nil {
		return f
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(j.dir, safe+".jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	j.files[safe] = f
	return f
}

func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

func extraTags(in map[string]string) map[string]string {
	var out map[string]string
	for k, v := range in {
		if k == "session_id" || k == "kind" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = v
	}
	return out
}

func sanitizeFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = redact.Text(s)
			continue
		}
		out[k] = v
	}
	return out
}

var _ metrics.Observer = (*Journal)(nil)
