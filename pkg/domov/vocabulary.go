package domov

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/harunnryd/domov/pkg/homeassistant"
	"github.com/harunnryd/domov/pkg/lexicon"
	"github.com/harunnryd/domov/pkg/logging"
	"github.com/harunnryd/domov/pkg/redact"
	"github.com/harunnryd/domov/pkg/slu"
	"github.com/harunnryd/domov/pkg/store"
)

// StateSource lists every entity of the home.
type StateSource interface {
	States(ctx context.Context) ([]homeassistant.State, error)
}

var entityDomains = []string{"light", "climate", "switch"}

// BuildExtractor assembles the phrase index from the grammar, the entity
// names and the scenes. Names currently reported by the home are added
// to the friendly-names file first; when the home is unreachable the
// names already in the file are used.
func BuildExtractor(ctx context.Context, cfg Config, st *store.Store, states StateSource, logger *slog.Logger) (*slu.Extractor, error) {
	logger = logging.NewComponentLogger(logger, "vocabulary")
	grammar, err := st.Grammar()
	if err != nil {
		return nil, err
	}

	names, err := entityNames(ctx, st, states, logger)
	if err != nil {
		return nil, err
	}
	byDomain := make(map[string]map[string][]string, len(entityDomains))
	for _, d := range entityDomains {
		byDomain[d] = make(map[string][]string)
	}
	for id, list := range names {
		domain, _, _ := strings.Cut(id, ".")
		if m, ok := byDomain[domain]; ok {
			m[id] = list
		}
	}

	scenes, err := st.Scenes()
	if err != nil {
		return nil, err
	}

	idx := lexicon.Assemble(lexicon.Inputs{
		Grammar:  grammar,
		Lights:   byDomain["light"],
		Climates: byDomain["climate"],
		Switches: lexicon.ExcludeEntities(byDomain["switch"], cfg.Lexicon.SwitchExclude),
		Scenes:   scenes.Names(),
	})

	mode, _ := slu.ParseMatchMode(cfg.SLU.Match)
	opts := []slu.Option{slu.WithMatchMode(mode)}
	if n := slu.NewNormalizer(cfg.SLU.Replacements); n != nil {
		opts = append(opts, slu.WithNormalizer(n))
	}
	logger.Info("vocabulary_built",
		slog.Int("phrases", idx.Len()),
		slog.Int("lights", len(byDomain["light"])),
		slog.Int("climates", len(byDomain["climate"])),
		slog.Int("switches", len(byDomain["switch"])),
		slog.Int("scenes", len(scenes)),
		slog.String("match", string(mode)),
	)
	return slu.New(idx, opts...), nil
}

func entityNames(ctx context.Context, st *store.Store, states StateSource, logger *slog.Logger) (map[string][]string, error) {
	if states != nil {
		list, err := states.States(ctx)
		if err == nil {
			current := make(map[string]string)
			for _, s := range list {
				if !isEntityDomain(s.Domain()) {
					continue
				}
				if v, ok := s.Attr("friendly_name"); ok {
					if name, ok := v.(string); ok && name != "" {
						current[s.EntityID] = name
					}
				}
			}
			return st.ExtendFriendlyNames(current)
		}
		logger.Warn("entity_names_unavailable", slog.String("error", redact.Text(err.Error())))
	}
	stored, err := st.FriendlyNames()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(stored))
	for id, set := range stored {
		out[id] = append([]string(nil), set.FriendlyNames...)
	}
	return out, nil
}

func isEntityDomain(d string) bool {
	for _, e := range entityDomains {
		if e == d {
			return true
		}
	}
	return false
}

// sharedExtractor lets every session read the current index while a
// rebuild swaps it.
type sharedExtractor struct {
	p atomic.Pointer[slu.Extractor]
}

func (s *sharedExtractor) Extract(text string) slu.SlotSet {
	e := s.p.Load()
	if e == nil {
		return slu.SlotSet{}
	}
	return e.Extract(text)
}

func (s *sharedExtractor) Store(e *slu.Extractor) { s.p.Store(e) }

func (s *sharedExtractor) Load() *slu.Extractor { return s.p.Load() }
