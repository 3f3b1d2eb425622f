package domov

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/harunnryd/domov/pkg/homeassistant"
	"github.com/harunnryd/domov/pkg/lexicon"
	"github.com/harunnryd/domov/pkg/slu"
	"github.com/harunnryd/domov/pkg/store"
)

type stateSource struct {
	states []homeassistant.State
	err    error
}

func (s stateSource) States(context.Context) ([]homeassistant.State, error) {
	return s.states, s.err
}

func named(id, name string) homeassistant.State {
	return homeassistant.State{EntityID: id, State: "on", Attributes: map[string]any{"friendly_name": name}}
}

func vocabularyStore(t *testing.T, cfg Config) *store.Store {
	t.Helper()
	return store.New(store.Paths{
		Grammar:       cfg.Storage.GrammarPath,
		FriendlyNames: cfg.Storage.FriendlyNamesPath,
		Scenes:        cfg.Storage.ScenesPath,
	}, nil)
}

func TestBuildExtractorFromHomeAndScenes(t *testing.T) {
	cfg := testConfig(t)
	st := vocabularyStore(t, cfg)
	if err := st.SaveFriendlyNames(store.FriendlyNames{
		"light.obyvak": {FriendlyNames: []string{"Velké světlo"}},
	}); err != nil {
		t.Fatalf("seed names: %v", err)
	}
	if err := st.SaveScene("Kino", []json.RawMessage{json.RawMessage(`{"type":"toggle_light","entity_id":"light.obyvak"}`)}); err != nil {
		t.Fatalf("seed scene: %v", err)
	}
	home := stateSource{states: []homeassistant.State{
		named("light.obyvak", "Obývák"),
		named("switch.lampa", "Lampa"),
		named("switch.detsky_zamek", "Zámek"),
		named("sensor.venku", "Venku"),
	}}

	ex, err := BuildExtractor(context.Background(), cfg, st, home, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	cases := []struct {
		text string
		want slu.SlotSet
	}{
		{"zapni obývák", slu.SlotSet{lexicon.SlotAction: "on", lexicon.SlotLightEntity: "light.obyvak"}},
		{"vypni velké světlo", slu.SlotSet{lexicon.SlotAction: "off", lexicon.SlotLightEntity: "light.obyvak", lexicon.SlotTarget: "light"}},
		{"vypni lampa", slu.SlotSet{lexicon.SlotAction: "off", lexicon.SlotSwitchEntity: "switch.lampa"}},
		{"vypni zámek", slu.SlotSet{lexicon.SlotAction: "off"}},
		{"pusť kino", slu.SlotSet{lexicon.SlotScene: "Kino"}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, ex.Extract(tc.text)); diff != "" {
			t.Fatalf("%q mismatch (-want +got):\n%s", tc.text, diff)
		}
	}

	names, err := st.FriendlyNames()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if diff := cmp.Diff([]string{"Velké světlo", "Obývák"}, names["light.obyvak"].FriendlyNames); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if _, ok := names["sensor.venku"]; ok {
		t.Fatalf("sensors are not part of the vocabulary")
	}
}

func TestBuildExtractorFallsBackToStoredNames(t *testing.T) {
	cfg := testConfig(t)
	st := vocabularyStore(t, cfg)
	if err := st.SaveFriendlyNames(store.FriendlyNames{
		"climate.loznice": {FriendlyNames: []string{"Ložnice"}},
	}); err != nil {
		t.Fatalf("seed names: %v", err)
	}

	ex, err := BuildExtractor(context.Background(), cfg, st, stateSource{err: errors.New("connection refused")}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got := ex.Extract("nastav ložnice na 21")
	if got[lexicon.SlotClimateEntity] != "climate.loznice" || got[lexicon.SlotTemperature] != "21" {
		t.Fatalf("unexpected slots %v", got)
	}
}

func TestBuildExtractorWordMatching(t *testing.T) {
	cfg := testConfig(t)
	cfg.SLU.Match = "word"
	st := vocabularyStore(t, cfg)
	home := stateSource{states: []homeassistant.State{named("switch.lampa", "Lampa")}}

	ex, err := BuildExtractor(context.Background(), cfg, st, home, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := ex.Extract("lampami"); got.Has(lexicon.SlotSwitchEntity) {
		t.Fatalf("word matching must not match inside words, got %v", got)
	}
	if got := ex.Extract("zapni lampa"); got[lexicon.SlotSwitchEntity] != "switch.lampa" {
		t.Fatalf("expected switch, got %v", got)
	}
}

func TestSharedExtractorBeforeFirstBuild(t *testing.T) {
	var s sharedExtractor
	if got := s.Extract("zapni obývák"); len(got) != 0 {
		t.Fatalf("expected no slots, got %v", got)
	}
}
