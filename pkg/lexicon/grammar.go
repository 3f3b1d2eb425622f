// Package lexicon holds the phrase grammar of the assistant and the
// reverse index derived from it.
package lexicon

import "strings"

// Category names of the grammar file.
const (
	CategoryAction       = "ACTION"
	CategoryBoolResponse = "BOOL_RESPONSE"
	CategoryTarget       = "TARGET"
	CategoryTemperature  = "TEMPERATURE"
	CategoryBrightness   = "BRIGHTNESS"
	CategoryColor        = "COLOR"
	CategoryQueryType    = "QUERY_TYPE"
)

// Value is one canonical slot value and the phrases that express it.
type Value struct {
	Name    string
	Phrases []string
}

// Category groups the values of one slot family. Value order is the
// order the values were authored in.
type Category struct {
	Name   string
	Values []Value
}

// Grammar is an ordered collection of categories.
type Grammar struct {
	Categories []Category
}

// Category returns the named category.
func (g *Grammar) Category(name string) (*Category, bool) {
	for i := range g.Categories {
		if g.Categories[i].Name == name {
			return &g.Categories[i], true
		}
	}
	return nil, false
}

// Values returns the values of a category, or nil when it is absent.
func (g *Grammar) Values(name string) []Value {
	c, ok := g.Category(name)
	if !ok {
		return nil
	}
	return c.Values
}

// Ensure returns the named category, appending an empty one if needed.
func (g *Grammar) Ensure(name string) *Category {
	if c, ok := g.Category(name); ok {
		return c
	}
	g.Categories = append(g.Categories, Category{Name: name})
	return &g.Categories[len(g.Categories)-1]
}

// Add appends phrases to value, creating the value if needed.
// Duplicate phrases are ignored.
func (c *Category) Add(value string, phrases ...string) {
	idx := -1
	for i := range c.Values {
		if c.Values[i].Name == value {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.Values = append(c.Values, Value{Name: value})
		idx = len(c.Values) - 1
	}
	v := &c.Values[idx]
	for _, p := range phrases {
		if !containsString(v.Phrases, p) {
			v.Phrases = append(v.Phrases, p)
		}
	}
}

// Equal compares two grammars category by category and value by value,
// treating the phrases of a value as a set.
func (g Grammar) Equal(other Grammar) bool {
	if len(g.Categories) != len(other.Categories) {
		return false
	}
	for _, c := range g.Categories {
		oc, ok := other.Category(c.Name)
		if !ok || len(oc.Values) != len(c.Values) {
			return false
		}
		for _, v := range c.Values {
			ov, ok := oc.value(v.Name)
			if !ok || !samePhraseSet(v.Phrases, ov.Phrases) {
				return false
			}
		}
	}
	return true
}

func (c *Category) value(name string) (Value, bool) {
	for _, v := range c.Values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

func samePhraseSet(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	other := make(map[string]struct{}, len(b))
	for _, p := range b {
		if _, ok := set[p]; !ok {
			return false
		}
		other[p] = struct{}{}
	}
	return len(set) == len(other)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
