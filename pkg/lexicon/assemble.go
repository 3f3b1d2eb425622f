package lexicon

import (
	"sort"
	"strings"
)

// Slot names produced by the index.
const (
	SlotAction        = "action"
	SlotTemperature   = "temperature"
	SlotBrightness    = "brightness"
	SlotColor         = "color"
	SlotQuery         = "query"
	SlotBoolResponse  = "bool_response"
	SlotTarget        = "target"
	SlotLightEntity   = "light_entity"
	SlotClimateEntity = "climate_entity"
	SlotSwitchEntity  = "switch_entity"
	SlotScene         = "scene"
)

// Inputs are the documents the assistant's index is assembled from.
// Entity maps go from entity id to every known name of the entity.
type Inputs struct {
	Grammar  Grammar
	Lights   map[string][]string
	Climates map[string][]string
	Switches map[string][]string
	Scenes   []string
}

// Sources lays out the index sources in matching priority order:
// grammar categories first, then entity names, then scenes.
func Sources(in Inputs) []Source {
	return []Source{
		{Slot: SlotAction, Values: in.Grammar.Values(CategoryAction)},
		{Slot: SlotTemperature, Values: in.Grammar.Values(CategoryTemperature)},
		{Slot: SlotBrightness, Values: in.Grammar.Values(CategoryBrightness)},
		{Slot: SlotColor, Values: in.Grammar.Values(CategoryColor)},
		{Slot: SlotQuery, Values: in.Grammar.Values(CategoryQueryType)},
		{Slot: SlotBoolResponse, Values: in.Grammar.Values(CategoryBoolResponse)},
		{Slot: SlotTarget, Values: in.Grammar.Values(CategoryTarget)},
		{Slot: SlotLightEntity, Values: entityValues(in.Lights)},
		{Slot: SlotClimateEntity, Values: entityValues(in.Climates)},
		{Slot: SlotSwitchEntity, Values: entityValues(in.Switches)},
		{Slot: SlotScene, Values: sceneValues(in.Scenes)},
	}
}

// Assemble is Build(Sources(in)...).
func Assemble(in Inputs) *Index {
	return Build(Sources(in)...)
}

// ExcludeEntities drops entities whose id contains any of the fragments.
func ExcludeEntities(names map[string][]string, fragments []string) map[string][]string {
	out := make(map[string][]string, len(names))
	for id, list := range names {
		skip := false
		for _, f := range fragments {
			if f != "" && strings.Contains(id, f) {
				skip = true
				break
			}
		}
		if !skip {
			out[id] = list
		}
	}
	return out
}

func entityValues(names map[string][]string) []Value {
	ids := make([]string, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	values := make([]Value, 0, len(ids))
	for _, id := range ids {
		var c Category
		c.Add(id)
		for _, name := range names[id] {
			c.Add(id, name, strings.ToLower(name))
		}
		values = append(values, c.Values[0])
	}
	return values
}

// Scene phrases are the name as saved, lower-cased and lower-cased
// without spaces. The slot value is the saved name.
func sceneValues(scenes []string) []Value {
	values := make([]Value, 0, len(scenes))
	for _, name := range scenes {
		lower := strings.ToLower(strings.TrimSpace(name))
		var c Category
		c.Add(name, name, lower, strings.ReplaceAll(lower, " ", ""))
		values = append(values, c.Values[0])
	}
	return values
}
