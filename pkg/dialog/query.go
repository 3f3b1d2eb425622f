package dialog

import (
	"fmt"
	"strings"

	"github.com/harunnryd/domov/pkg/homeassistant"
)

// Answer phrases the reply to a query about one entity. found is false
// when the entity state could not be read.
func Answer(queryType, entityID string, st homeassistant.State, found bool) string {
	name := entityID
	if found {
		name = st.FriendlyName()
	}
	switch queryType {
	case "temperature":
		if v, ok := st.Attr("current_temperature"); found && ok {
			return fmt.Sprintf("Aktuální teplota v %s je %s°C.", name, format(v))
		}
		return fmt.Sprintf("Nepodařilo se zjistit teplotu zařízení %s.", name)
	case "state", "switch":
		if !found {
			return fmt.Sprintf("Nepodařilo se zjistit stav zařízení %s.", name)
		}
		status := st.State
		if status == "" {
			status = "neznámý stav"
		}
		return fmt.Sprintf("Zařízení %s je %s.", name, status)
	case "brightness":
		if v, ok := st.Attr("brightness"); found && ok && !isZero(v) {
			return fmt.Sprintf("Jas světla %s je %s.", name, format(v))
		}
		return fmt.Sprintf("Jas světla %s se nepodařilo zjistit.", name)
	case "color":
		if found {
			if v, ok := st.Attr("color_name"); ok && !isZero(v) {
				return fmt.Sprintf("Barva světla %s je %s.", name, format(v))
			}
			if v, ok := st.Attr("rgb_color"); ok && !isZero(v) {
				return fmt.Sprintf("Barva světla %s je %s.", name, format(v))
			}
		}
		return fmt.Sprintf("Barvu světla %s se nepodařilo zjistit.", name)
	default:
		return msgUnsupported
	}
}

// format renders JSON-decoded attribute values: whole numbers without a
// fraction, lists as [a, b, c].
func format(v any) string {
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case []any:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = format(p)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

func isZero(v any) bool {
	switch x := v.(type) {
	case float64:
		return x == 0
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	}
	return false
}
