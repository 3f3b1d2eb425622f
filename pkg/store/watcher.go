package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/harunnryd/domov/pkg/logging"
)

// Watcher reports outside edits of the store documents. Directories are
// watched rather than files so atomic replacements are seen. Events are
// debounced per file and writes made through the Store are ignored.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	onChange func(path string)
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher watches the store's documents and calls onChange from the
// watcher goroutine.
func NewWatcher(s *Store, debounce time.Duration, onChange func(path string), logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	w := &Watcher{
		store:    s,
		watcher:  fw,
		files:    make(map[string]bool),
		debounce: debounce,
		onChange: onChange,
		logger:   logging.NewComponentLogger(logger, "watcher"),
		pending:  make(map[string]time.Time),
	}
	dirs := make(map[string]bool)
	for _, p := range []string{s.paths.Grammar, s.paths.FriendlyNames, s.paths.Scenes} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			w.logger.Warn("watch_failed", slog.String("dir", dir), slog.String("error", err.Error()))
			continue
		}
		w.logger.Debug("watching", slog.String("dir", dir))
	}
	return w, nil
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher_error", slog.String("error", err.Error()))
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		name = filepath.Clean(event.Name)
	}
	if !w.files[name] {
		return
	}
	w.mu.Lock()
	w.pending[name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	now := time.Now()
	var ready []string
	w.mu.Lock()
	for name, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, name)
			delete(w.pending, name)
		}
	}
	w.mu.Unlock()
	for _, name := range ready {
		if !w.store.Changed(name) {
			continue
		}
		w.logger.Info("document_changed", slog.String("path", name))
		if w.onChange != nil {
			w.onChange(name)
		}
	}
}
