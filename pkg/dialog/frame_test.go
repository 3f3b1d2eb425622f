package dialog

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/harunnryd/domov/pkg/slu"
)

func TestFirstWriteWinsForEveryFrame(t *testing.T) {
	cases := []struct {
		decl   *Declaration
		first  slu.SlotSet
		second slu.SlotSet
		slot   string
		want   string
	}{
		{Light, slu.SlotSet{"action": "on"}, slu.SlotSet{"action": "off"}, SlotAction, "on"},
		{Temperature, slu.SlotSet{"temperature": "21"}, slu.SlotSet{"temperature": "25"}, SlotTemperature, "21"},
		{Query, slu.SlotSet{"query": "state"}, slu.SlotSet{"query": "color"}, SlotQueryType, "state"},
		{Scene, slu.SlotSet{"scene": "večer"}, slu.SlotSet{"scene": "ráno"}, SlotScene, "večer"},
		{Switch, slu.SlotSet{"switch_entity": "switch.a"}, slu.SlotSet{"switch_entity": "switch.b"}, SlotDevice, "switch.a"},
	}
	for _, tc := range cases {
		f := NewFrame(tc.decl)
		f.Update(tc.first)
		f.Update(tc.second)
		if got := f.Value(tc.slot); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.decl.Kind, tc.want, got)
		}
		if len(f.History()) != 1 {
			t.Fatalf("%s: expected one assignment, got %v", tc.decl.Kind, f.History())
		}
	}
}

func TestUndoDrainsInAssignmentOrder(t *testing.T) {
	f := NewFrame(Light)
	f.Update(slu.SlotSet{"light_entity": "light.obyvak"})
	f.Update(slu.SlotSet{"action": "on", "color": "red"})

	if diff := cmp.Diff([]string{SlotDevice, SlotAction, SlotColor}, f.History()); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if !f.UndoLast() {
		t.Fatalf("expected undo")
	}
	if _, ok := f.Get(SlotColor); ok {
		t.Fatalf("color should be unset after undo")
	}
	if !f.Complete() {
		t.Fatalf("frame should still be complete")
	}
	if !f.UndoLast() || f.Complete() {
		t.Fatalf("undoing action should make the frame incomplete")
	}
	if !f.UndoLast() {
		t.Fatalf("expected last undo")
	}
	if f.UndoLast() {
		t.Fatalf("expected undo to report exhaustion")
	}
	if diff := cmp.Diff([]string{SlotAction, SlotDevice}, f.MissingSlots()); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteMatchesMissingSlots(t *testing.T) {
	inputs := []slu.SlotSet{
		{},
		{"action": "on"},
		{"light_entity": "light.a", "climate_entity": "climate.b", "switch_entity": "switch.c"},
		{"temperature": "20", "query": "state", "scene": "s"},
	}
	for _, decl := range Declarations {
		f := NewFrame(decl)
		for _, in := range inputs {
			f.Update(in)
			if f.Complete() != (len(f.MissingSlots()) == 0) {
				t.Fatalf("%s: complete disagrees with missing slots %v", decl.Kind, f.MissingSlots())
			}
		}
		for f.UndoLast() {
			if f.Complete() != (len(f.MissingSlots()) == 0) {
				t.Fatalf("%s: complete disagrees after undo", decl.Kind)
			}
		}
	}
}

func TestLightRendersAfterOneUpdate(t *testing.T) {
	f := NewFrame(Light)
	f.Update(slu.SlotSet{"action": "on", "light_entity": "light.obyvak"})
	if !f.Complete() {
		t.Fatalf("expected complete light frame")
	}
	want := "[Light] on světlo barva ? jas ? v 'light.obyvak'"
	if got := f.String(); got != want {
		t.Fatalf("render mismatch:\nwant %q\ngot  %q", want, got)
	}
}

func TestBrightnessParseFailureIsDroppedButUndoable(t *testing.T) {
	f := NewFrame(Light)
	f.Update(slu.SlotSet{"brightness": "abc"})
	if _, ok := f.Get(SlotBrightness); ok {
		t.Fatalf("brightness should stay unset")
	}
	if diff := cmp.Diff([]string{SlotBrightness}, f.History()); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if !f.UndoLast() {
		t.Fatalf("expected the dropped assignment to be undoable")
	}
	f.Update(slu.SlotSet{"brightness": "170"})
	if got := f.Value(SlotBrightness); got != "170" {
		t.Fatalf("expected brightness 170, got %q", got)
	}
}

func TestRenderPlaceholders(t *testing.T) {
	cases := map[*Declaration]string{
		Temperature: "[Temp] Nastavit teplotu na ?°C v '?'",
		Query:       "[Query] Zjistit '?' pro '?'",
		Scene:       "[Scene] ?",
		Switch:      "[Switch] ? zásuvku '?'",
	}
	for decl, want := range cases {
		if got := NewFrame(decl).String(); got != want {
			t.Fatalf("%s: want %q got %q", decl.Kind, want, got)
		}
	}
}

func TestQueryDeviceFromAnyEntity(t *testing.T) {
	f := NewFrame(Query)
	f.Update(slu.SlotSet{"query": "state", "switch_entity": "switch.lampa"})
	if got := f.Value(SlotDevice); got != "switch.lampa" {
		t.Fatalf("expected switch device, got %q", got)
	}
	f = NewFrame(Query)
	f.Update(slu.SlotSet{"climate_entity": "climate.b", "light_entity": "light.a"})
	if got := f.Value(SlotDevice); got != "light.a" {
		t.Fatalf("light entity should win, got %q", got)
	}
}

func TestRoutePriority(t *testing.T) {
	cases := []struct {
		in   slu.SlotSet
		want *Declaration
	}{
		{slu.SlotSet{"query": "state", "light_entity": "light.a"}, Query},
		{slu.SlotSet{"color": "red", "temperature": "20"}, Light},
		{slu.SlotSet{"target": "climate"}, Temperature},
		{slu.SlotSet{"switch_entity": "switch.a", "scene": "s"}, Switch},
		{slu.SlotSet{"target": "scene"}, Scene},
		{slu.SlotSet{"action": "on"}, nil},
	}
	for _, tc := range cases {
		if got := Route(tc.in); got != tc.want {
			t.Fatalf("route(%v): unexpected declaration", tc.in)
		}
	}
}

func TestQuestionAsksFirstOrAll(t *testing.T) {
	light := NewFrame(Light)
	if got := Question(light); got != "Jakou akci mám provést - zapnutí, vypnutí, nebo se chcete zeptat?" {
		t.Fatalf("light should ask only the first slot, got %q", got)
	}
	temp := NewFrame(Temperature)
	if got := Question(temp); got != "Na kolik stupňů? Jaké zařízení myslíte?" {
		t.Fatalf("temperature should ask all slots, got %q", got)
	}
}
