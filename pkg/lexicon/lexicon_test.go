package lexicon

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGrammarJSONRoundTrip(t *testing.T) {
	g := Default()
	data, err := EncodeJSON(g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"přepni na"`) {
		t.Fatalf("expected non-ascii phrases unescaped, got %s", data)
	}
	back, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !g.Equal(back) {
		t.Fatalf("round trip changed grammar")
	}
	var names []string
	for _, c := range back.Categories {
		names = append(names, c.Name)
	}
	want := []string{CategoryAction, CategoryBoolResponse, CategoryTarget, CategoryTemperature, CategoryBrightness, CategoryColor, CategoryQueryType}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("category order mismatch (-want +got):\n%s", diff)
	}
}

func TestGrammarYAMLRoundTrip(t *testing.T) {
	g := Default()
	data, err := Encode("grammar.yaml", g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode("grammar.yaml", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !g.Equal(back) {
		t.Fatalf("yaml round trip changed grammar")
	}
	temps := back.Values(CategoryTemperature)
	if len(temps) == 0 || temps[0].Name != "15" || temps[0].Phrases[0] != "15" {
		t.Fatalf("numeric keys should stay strings, got %+v", temps)
	}
}

func TestEqualComparesPhrasesAsSets(t *testing.T) {
	var a, b Grammar
	a.Ensure(CategoryColor).Add("red", "červená", "červené")
	b.Ensure(CategoryColor).Add("red", "červené", "červená")
	if !a.Equal(b) {
		t.Fatalf("expected phrase order to be ignored")
	}
	b.Ensure(CategoryColor).Add("red", "rudá")
	if a.Equal(b) {
		t.Fatalf("expected extra phrase to differ")
	}
}

func TestDecodeJSONCanonicalizesBoolKeys(t *testing.T) {
	doc := `{"BOOL_RESPONSE": {"True": ["ano"], "1": ["jo"], "false": ["ne"]}}`
	g, err := DecodeJSON([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := g.Values(CategoryBoolResponse)
	want := []Value{
		{Name: "true", Phrases: []string{"ano", "jo"}},
		{Name: "false", Phrases: []string{"ne"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("bool values mismatch (-want +got):\n%s", diff)
	}

	if _, err := DecodeJSON([]byte(`{"BOOL_RESPONSE": {"maybe": ["asi"]}}`)); err == nil {
		t.Fatalf("expected error for non-boolean key")
	}
}

func TestDecodeJSONRejectsMalformed(t *testing.T) {
	cases := []string{
		`[]`,
		`{"ACTION": ["zapni"]}`,
		`{"ACTION": {"on": "zapni"}}`,
	}
	for _, doc := range cases {
		if _, err := DecodeJSON([]byte(doc)); err == nil {
			t.Fatalf("expected error for %s", doc)
		}
	}
}

func TestBuildKeepsInsertionOrderAndAccumulates(t *testing.T) {
	idx := Build(
		Source{Slot: "action", Values: []Value{{Name: "on", Phrases: []string{"zapni", "", "  "}}}},
		Source{Slot: "target", Values: []Value{{Name: "light", Phrases: []string{"světlo", "zapni"}}}},
	)
	if idx.Len() != 2 {
		t.Fatalf("expected 2 phrases, got %d", idx.Len())
	}
	entries := idx.Entries()
	if entries[0].Phrase != "zapni" || entries[1].Phrase != "světlo" {
		t.Fatalf("unexpected order: %+v", entries)
	}
	pairs, ok := idx.Lookup("zapni")
	if !ok {
		t.Fatalf("expected zapni in index")
	}
	want := []Pair{{Slot: "action", Value: "on"}, {Slot: "target", Value: "light"}}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Fatalf("pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleEntitiesAndScenes(t *testing.T) {
	var g Grammar
	g.Ensure(CategoryAction).Add("on", "zapni")
	idx := Assemble(Inputs{
		Grammar: g,
		Lights:  map[string][]string{"light.obyvak": {"Obývák"}},
		Switches: ExcludeEntities(map[string][]string{
			"switch.lampa":        {"lampa"},
			"switch.detsky_zamek": {"zámek"},
		}, []string{"detsky_zamek", "security_camera"}),
		Scenes: []string{"Večerní Klid"},
	})

	if pairs, ok := idx.Lookup("obývák"); !ok || pairs[0] != (Pair{Slot: SlotLightEntity, Value: "light.obyvak"}) {
		t.Fatalf("expected lower-cased entity name, got %v %v", pairs, ok)
	}
	if _, ok := idx.Lookup("zámek"); ok {
		t.Fatalf("excluded switch should not be indexed")
	}
	for _, phrase := range []string{"Večerní Klid", "večerní klid", "večerníklid"} {
		pairs, ok := idx.Lookup(phrase)
		if !ok || pairs[0] != (Pair{Slot: SlotScene, Value: "Večerní Klid"}) {
			t.Fatalf("scene phrase %q: got %v %v", phrase, pairs, ok)
		}
	}
	if entries := idx.Entries(); entries[0].Phrase != "zapni" {
		t.Fatalf("grammar phrases should come first, got %q", entries[0].Phrase)
	}
}
