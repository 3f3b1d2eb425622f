package dialog

import (
	"testing"

	"github.com/harunnryd/domov/pkg/homeassistant"
)

func TestAnswer(t *testing.T) {
	light := homeassistant.State{
		EntityID: "light.obyvak",
		State:    "on",
		Attributes: map[string]any{
			"friendly_name": "Obývák",
			"brightness":    float64(170),
			"rgb_color":     []any{float64(255), float64(0), float64(0)},
		},
	}
	climate := homeassistant.State{
		EntityID:   "climate.loznice",
		Attributes: map[string]any{"current_temperature": 21.5},
	}
	cases := []struct {
		query string
		id    string
		st    homeassistant.State
		found bool
		want  string
	}{
		{"temperature", "climate.loznice", climate, true, "Aktuální teplota v climate.loznice je 21.5°C."},
		{"temperature", "light.obyvak", light, true, "Nepodařilo se zjistit teplotu zařízení Obývák."},
		{"state", "light.obyvak", light, true, "Zařízení Obývák je on."},
		{"switch", "switch.lampa", homeassistant.State{}, false, "Nepodařilo se zjistit stav zařízení switch.lampa."},
		{"brightness", "light.obyvak", light, true, "Jas světla Obývák je 170."},
		{"color", "light.obyvak", light, true, "Barva světla Obývák je [255, 0, 0]."},
		{"color", "climate.loznice", climate, true, "Barvu světla climate.loznice se nepodařilo zjistit."},
		{"weather", "light.obyvak", light, true, "Tento typ dotazu zatím není podporován."},
	}
	for _, tc := range cases {
		if got := Answer(tc.query, tc.id, tc.st, tc.found); got != tc.want {
			t.Fatalf("%s/%s:\nwant %q\ngot  %q", tc.query, tc.id, tc.want, got)
		}
	}
}
