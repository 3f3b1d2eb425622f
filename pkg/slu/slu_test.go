package slu

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/harunnryd/domov/pkg/lexicon"
)

func testIndex() *lexicon.Index {
	var g lexicon.Grammar
	g.Ensure(lexicon.CategoryAction).Add("on", "zapni")
	g.Ensure(lexicon.CategoryBoolResponse).Add("false", "ne")
	g.Ensure(lexicon.CategoryBrightness).Add("255", "co nejvíc")
	return lexicon.Assemble(lexicon.Inputs{
		Grammar: g,
		Lights:  map[string][]string{"light.obyvak": {"obývák"}},
	})
}

func TestExtractLightCommand(t *testing.T) {
	e := New(testIndex())
	got := e.Extract("Zapni OBÝVÁK")
	want := SlotSet{"action": "on", "light_entity": "light.obyvak"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("slot set mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractEmptyWhenNothingMatches(t *testing.T) {
	e := New(testIndex())
	if got := e.Extract("dobrý den"); len(got) != 0 {
		t.Fatalf("expected empty slot set, got %v", got)
	}
	var nilExtractor *Extractor
	if got := nilExtractor.Extract("zapni"); len(got) != 0 {
		t.Fatalf("expected empty slot set from nil extractor, got %v", got)
	}
}

func TestSubstringMatchKeepsEmbeddedFalsePositive(t *testing.T) {
	e := New(testIndex())
	got := e.Extract("zapni co nejvíc")
	if got["bool_response"] != "false" {
		t.Fatalf("expected \"ne\" inside \"nejvíc\" to match in substring mode, got %v", got)
	}
	if got["brightness"] != "255" {
		t.Fatalf("expected brightness 255, got %v", got)
	}
}

func TestWordMatchRequiresBoundaries(t *testing.T) {
	e := New(testIndex(), WithMatchMode(MatchWord))
	got := e.Extract("zapni co nejvíc")
	if got.Has("bool_response") {
		t.Fatalf("word mode should not match \"ne\" inside a word, got %v", got)
	}
	got = e.Extract("nejvíc? ne!")
	if got["bool_response"] != "false" {
		t.Fatalf("word mode should match a standalone word, got %v", got)
	}
}

func TestFirstReadingPerSlotWins(t *testing.T) {
	idx := lexicon.Build(
		lexicon.Source{Slot: "color", Values: []lexicon.Value{
			{Name: "white", Phrases: []string{"bílá"}},
			{Name: "warmwhite", Phrases: []string{"teplá bílá"}},
		}},
	)
	e := New(idx)
	for i := 0; i < 20; i++ {
		if got := e.Extract("teplá bílá"); got["color"] != "white" {
			t.Fatalf("run %d: expected index order to pick white, got %v", i, got)
		}
	}
}

func TestNormalizerAppliedBeforeMatching(t *testing.T) {
	n := NewNormalizer(map[string]string{"Zapny": "zapni", "": "x"})
	e := New(testIndex(), WithNormalizer(n))
	if got := e.Extract("zapny obývák"); got["action"] != "on" {
		t.Fatalf("expected normalized action, got %v", got)
	}
	if NewNormalizer(nil) != nil {
		t.Fatalf("expected nil normalizer without replacements")
	}
}

func TestParseMatchMode(t *testing.T) {
	if m, ok := ParseMatchMode(""); !ok || m != MatchSubstring {
		t.Fatalf("expected substring default")
	}
	if m, ok := ParseMatchMode(" Word "); !ok || m != MatchWord {
		t.Fatalf("expected word mode")
	}
	if _, ok := ParseMatchMode("fuzzy"); ok {
		t.Fatalf("expected unknown mode to be rejected")
	}
}
