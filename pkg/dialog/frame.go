package dialog

import (
	"github.com/harunnryd/domov/pkg/slu"
)

// Frame slot names.
const (
	SlotAction      = "action"
	SlotDevice      = "device"
	SlotColor       = "color"
	SlotBrightness  = "brightness"
	SlotTemperature = "temperature"
	SlotQueryType   = "query_type"
	SlotScene       = "scene"
)

// Kind names an intent family.
type Kind string

const (
	KindLight       Kind = "light"
	KindTemperature Kind = "temperature"
	KindQuery       Kind = "query"
	KindScene       Kind = "scene"
	KindSwitch      Kind = "switch"
)

// SlotSpec declares one frame slot.
type SlotSpec struct {
	Name string
	// Sources are slot-set keys read in order; the first present one is used.
	Sources  []string
	Required bool
	// Coerce validates and canonicalizes a value. A rejected value leaves
	// the slot unset but still counts as an assignment for undo.
	Coerce func(string) (string, bool)
}

// Declaration describes one intent family.
type Declaration struct {
	Kind  Kind
	Slots []SlotSpec
	// AskAll asks for every missing slot at once instead of the first.
	AskAll bool
	// Triggers reports whether a fresh slot-set starts this intent.
	Triggers func(slu.SlotSet) bool
	Render   func(f *Frame) string
}

// Frame accumulates the slots of one intent across turns. Slots are
// first-write-wins; the undo history records assignments in the order
// they happened.
type Frame struct {
	decl    *Declaration
	values  map[string]string
	history []string
}

func NewFrame(decl *Declaration) *Frame {
	return &Frame{decl: decl, values: make(map[string]string)}
}

func (f *Frame) Kind() Kind { return f.decl.Kind }

// Declaration returns the frame's declaration.
func (f *Frame) Declaration() *Declaration { return f.decl }

// Update fills every unset slot that has a source in s.
func (f *Frame) Update(s slu.SlotSet) {
	for _, sl := range f.decl.Slots {
		if _, set := f.values[sl.Name]; set {
			continue
		}
		raw, ok := firstSource(s, sl.Sources)
		if !ok {
			continue
		}
		if sl.Coerce != nil {
			if v, ok := sl.Coerce(raw); ok {
				f.values[sl.Name] = v
			}
		} else {
			f.values[sl.Name] = raw
		}
		f.history = append(f.history, sl.Name)
	}
}

// Get returns a slot value.
func (f *Frame) Get(slot string) (string, bool) {
	v, ok := f.values[slot]
	return v, ok
}

// Value returns a slot value or "".
func (f *Frame) Value(slot string) string {
	return f.values[slot]
}

// MissingSlots lists unset required slots in declaration order.
func (f *Frame) MissingSlots() []string {
	var missing []string
	for _, sl := range f.decl.Slots {
		if !sl.Required {
			continue
		}
		if _, ok := f.values[sl.Name]; !ok {
			missing = append(missing, sl.Name)
		}
	}
	return missing
}

func (f *Frame) Complete() bool {
	return len(f.MissingSlots()) == 0
}

// UndoLast clears the most recently assigned slot. It returns false when
// there is nothing left to undo.
func (f *Frame) UndoLast() bool {
	if len(f.history) == 0 {
		return false
	}
	last := f.history[len(f.history)-1]
	f.history = f.history[:len(f.history)-1]
	delete(f.values, last)
	return true
}

// History returns the assignment order, oldest first.
func (f *Frame) History() []string {
	return append([]string(nil), f.history...)
}

// String renders the frame for display and history.
func (f *Frame) String() string {
	return f.decl.Render(f)
}

// or returns the slot value or "?".
func (f *Frame) or(slot string) string {
	if v, ok := f.values[slot]; ok && v != "" {
		return v
	}
	return "?"
}

func firstSource(s slu.SlotSet, sources []string) (string, bool) {
	for _, src := range sources {
		if v, ok := s[src]; ok {
			return v, true
		}
	}
	return "", false
}
