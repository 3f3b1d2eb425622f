// Package store persists the grammar, friendly names and scenes as flat
// JSON documents.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/lexicon"
	"github.com/harunnryd/domov/pkg/logging"
)

// ErrNotFound is returned for a scene that is not saved.
var ErrNotFound = errors.New("not found")

// Paths locates the documents. The grammar may be JSON or YAML.
type Paths struct {
	Grammar       string
	FriendlyNames string
	Scenes        string
}

// NameSet is the friendly-names record of one entity.
type NameSet struct {
	FriendlyNames []string `json:"friendly_names"`
}

// FriendlyNames maps entity ids to every name they were ever known by.
type FriendlyNames map[string]NameSet

// Scene is a saved list of inbound messages replayed on activation.
type Scene struct {
	Actions []json.RawMessage `json:"actions"`
}

// Scenes maps scene names to scenes.
type Scenes map[string]Scene

// Names returns the scene names, sorted.
func (s Scenes) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store reads and writes the documents. Writes replace files atomically
// and remember a digest so the watcher can tell them from outside edits.
type Store struct {
	paths  Paths
	logger *slog.Logger

	mu      sync.Mutex
	digests map[string][sha256.Size]byte
}

func New(paths Paths, logger *slog.Logger) *Store {
	return &Store{
		paths:   paths,
		logger:  logging.NewComponentLogger(logger, "store"),
		digests: make(map[string][sha256.Size]byte),
	}
}

// Paths returns the configured locations.
func (s *Store) Paths() Paths { return s.paths }

// Grammar loads the grammar file, falling back to the built-in grammar
// when the file does not exist.
func (s *Store) Grammar() (lexicon.Grammar, error) {
	data, err := s.read(s.paths.Grammar)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("grammar_default", slog.String("path", s.paths.Grammar))
		return lexicon.Default(), nil
	}
	if err != nil {
		return lexicon.Grammar{}, err
	}
	g, err := lexicon.Decode(s.paths.Grammar, data)
	if err != nil {
		return lexicon.Grammar{}, errorsx.Wrap(fmt.Errorf("decode %s: %w", s.paths.Grammar, err), errorsx.ReasonStoreDecode)
	}
	return g, nil
}

// SaveGrammar writes g in the format of the grammar path.
func (s *Store) SaveGrammar(g lexicon.Grammar) error {
	data, err := lexicon.Encode(s.paths.Grammar, g)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonStoreWrite)
	}
	return s.write(s.paths.Grammar, data)
}

// FriendlyNames loads the friendly-names document. A missing file is an
// empty document.
func (s *Store) FriendlyNames() (FriendlyNames, error) {
	out := FriendlyNames{}
	if err := s.readJSON(s.paths.FriendlyNames, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = FriendlyNames{}
	}
	return out, nil
}

func (s *Store) SaveFriendlyNames(names FriendlyNames) error {
	if names == nil {
		names = FriendlyNames{}
	}
	return s.writeJSON(s.paths.FriendlyNames, names, "    ")
}

// ExtendFriendlyNames records the names currently reported for each
// entity and returns every known name of those entities. Entities absent
// from current are kept in the file but not returned. The file is only
// rewritten when something was added.
func (s *Store) ExtendFriendlyNames(current map[string]string) (map[string][]string, error) {
	stored, err := s.FriendlyNames()
	if err != nil {
		return nil, err
	}
	changed := false
	out := make(map[string][]string, len(current))
	for id, name := range current {
		if name == "" {
			continue
		}
		set := stored[id]
		if !contains(set.FriendlyNames, name) {
			set.FriendlyNames = append(set.FriendlyNames, name)
			stored[id] = set
			changed = true
		}
		out[id] = append([]string(nil), set.FriendlyNames...)
	}
	if changed {
		if err := s.SaveFriendlyNames(stored); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Scenes loads the scenes document. A missing file has no scenes.
func (s *Store) Scenes() (Scenes, error) {
	out := Scenes{}
	if err := s.readJSON(s.paths.Scenes, &out); err != nil {
		return nil, err
	}
	// A "null" document decodes to a nil map.
	if out == nil {
		out = Scenes{}
	}
	return out, nil
}

// Scene returns one scene or ErrNotFound.
func (s *Store) Scene(name string) (Scene, error) {
	scenes, err := s.Scenes()
	if err != nil {
		return Scene{}, err
	}
	sc, ok := scenes[name]
	if !ok {
		return Scene{}, fmt.Errorf("scene %q: %w", name, ErrNotFound)
	}
	return sc, nil
}

// SceneActions returns the saved actions of one scene.
func (s *Store) SceneActions(name string) ([]json.RawMessage, error) {
	sc, err := s.Scene(name)
	if err != nil {
		return nil, err
	}
	return sc.Actions, nil
}

// SaveScene adds or replaces a scene.
func (s *Store) SaveScene(name string, actions []json.RawMessage) error {
	scenes, err := s.Scenes()
	if err != nil {
		return err
	}
	if actions == nil {
		actions = []json.RawMessage{}
	}
	scenes[name] = Scene{Actions: actions}
	return s.writeJSON(s.paths.Scenes, scenes, "    ")
}

// Changed reports whether path differs from what the store last read or
// wrote, and remembers the new content.
func (s *Store) Changed(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return !errors.Is(err, fs.ErrNotExist)
	}
	sum := sha256.Sum256(data)
	key := digestKey(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.digests[key]; ok && prev == sum {
		return false
	}
	s.digests[key] = sum
	return true
}

func (s *Store) read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, errorsx.Wrap(fmt.Errorf("read %s: %w", path, err), errorsx.ReasonStoreRead)
	}
	s.remember(path, data)
	return data, nil
}

func (s *Store) readJSON(path string, out any) error {
	data, err := s.read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errorsx.Wrap(fmt.Errorf("decode %s: %w", path, err), errorsx.ReasonStoreDecode)
	}
	return nil
}

func (s *Store) writeJSON(path string, v any, indent string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonStoreWrite)
	}
	return s.write(path, buf.Bytes())
}

func (s *Store) write(path string, data []byte) error {
	if path == "" {
		return errorsx.New(errorsx.ReasonStoreWrite, "empty path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errorsx.Wrap(fmt.Errorf("write %s: %w", path, err), errorsx.ReasonStoreWrite)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errorsx.Wrap(fmt.Errorf("write %s: %w", path, err), errorsx.ReasonStoreWrite)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), path)
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
		return errorsx.Wrap(fmt.Errorf("write %s: %w", path, werr), errorsx.ReasonStoreWrite)
	}
	s.remember(path, data)
	s.logger.Debug("document_saved", slog.String("path", path), slog.Int("bytes", len(data)))
	return nil
}

func (s *Store) remember(path string, data []byte) {
	s.mu.Lock()
	s.digests[digestKey(path)] = sha256.Sum256(data)
	s.mu.Unlock()
}

func digestKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
