package dialog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harunnryd/domov/pkg/lexicon"
	"github.com/harunnryd/domov/pkg/slu"
)

var (
	// Light turns lights on or off with optional color and brightness.
	Light = &Declaration{
		Kind: KindLight,
		Slots: []SlotSpec{
			{Name: SlotAction, Sources: []string{lexicon.SlotAction}, Required: true},
			{Name: SlotDevice, Sources: []string{lexicon.SlotLightEntity}, Required: true},
			{Name: SlotColor, Sources: []string{lexicon.SlotColor}},
			{Name: SlotBrightness, Sources: []string{lexicon.SlotBrightness}, Coerce: coerceInt},
		},
		Triggers: func(s slu.SlotSet) bool {
			return s.Has(lexicon.SlotLightEntity) || s[lexicon.SlotTarget] == "light" ||
				s.Has(lexicon.SlotColor) || s.Has(lexicon.SlotBrightness)
		},
		Render: func(f *Frame) string {
			return fmt.Sprintf("[Light] %s světlo barva %s jas %s v '%s'",
				f.or(SlotAction), f.or(SlotColor), f.or(SlotBrightness), f.or(SlotDevice))
		},
	}

	// Temperature sets the target temperature of a climate device.
	Temperature = &Declaration{
		Kind: KindTemperature,
		Slots: []SlotSpec{
			{Name: SlotTemperature, Sources: []string{lexicon.SlotTemperature}, Required: true},
			{Name: SlotDevice, Sources: []string{lexicon.SlotClimateEntity}, Required: true},
		},
		AskAll: true,
		Triggers: func(s slu.SlotSet) bool {
			return s.Has(lexicon.SlotClimateEntity) || s[lexicon.SlotTarget] == "climate" ||
				s.Has(lexicon.SlotTemperature)
		},
		Render: func(f *Frame) string {
			return fmt.Sprintf("[Temp] Nastavit teplotu na %s°C v '%s'", f.or(SlotTemperature), f.or(SlotDevice))
		},
	}

	// Query answers a question about one device.
	Query = &Declaration{
		Kind: KindQuery,
		Slots: []SlotSpec{
			{Name: SlotQueryType, Sources: []string{lexicon.SlotQuery}, Required: true},
			{Name: SlotDevice, Sources: []string{lexicon.SlotLightEntity, lexicon.SlotClimateEntity, lexicon.SlotSwitchEntity}, Required: true},
		},
		AskAll: true,
		Triggers: func(s slu.SlotSet) bool {
			return s.Has(lexicon.SlotQuery)
		},
		Render: func(f *Frame) string {
			return fmt.Sprintf("[Query] Zjistit '%s' pro '%s'", f.or(SlotQueryType), f.or(SlotDevice))
		},
	}

	// Scene activates a saved scene.
	Scene = &Declaration{
		Kind: KindScene,
		Slots: []SlotSpec{
			{Name: SlotScene, Sources: []string{lexicon.SlotScene}, Required: true},
		},
		AskAll: true,
		Triggers: func(s slu.SlotSet) bool {
			return s.Has(lexicon.SlotScene) || s[lexicon.SlotTarget] == "scene"
		},
		Render: func(f *Frame) string {
			return fmt.Sprintf("[Scene] %s", f.or(SlotScene))
		},
	}

	// Switch turns a smart plug on or off.
	Switch = &Declaration{
		Kind: KindSwitch,
		Slots: []SlotSpec{
			{Name: SlotAction, Sources: []string{lexicon.SlotAction}, Required: true},
			{Name: SlotDevice, Sources: []string{lexicon.SlotSwitchEntity}, Required: true},
		},
		AskAll: true,
		Triggers: func(s slu.SlotSet) bool {
			return s.Has(lexicon.SlotSwitchEntity) || s[lexicon.SlotTarget] == "switch"
		},
		Render: func(f *Frame) string {
			return fmt.Sprintf("[Switch] %s zásuvku '%s'", f.or(SlotAction), f.or(SlotDevice))
		},
	}
)

// Declarations in routing priority order.
var Declarations = []*Declaration{Query, Light, Temperature, Switch, Scene}

// Route picks the intent a fresh slot-set starts, or nil.
func Route(s slu.SlotSet) *Declaration {
	for _, d := range Declarations {
		if d.Triggers(s) {
			return d
		}
	}
	return nil
}

func coerceInt(v string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}
