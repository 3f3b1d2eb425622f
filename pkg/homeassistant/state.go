package homeassistant

import (
	"fmt"
	"strings"
)

// State is one entity as returned by GET /states.
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed,omitempty"`
	LastUpdated string         `json:"last_updated,omitempty"`
}

// Domain returns the part of the entity id before the dot.
func (s State) Domain() string {
	domain, _, _ := strings.Cut(s.EntityID, ".")
	return domain
}

// Attr returns an attribute, treating JSON null as absent.
func (s State) Attr(name string) (any, bool) {
	v, ok := s.Attributes[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// FriendlyName returns the friendly_name attribute or the entity id.
func (s State) FriendlyName() string {
	if v, ok := s.Attr("friendly_name"); ok {
		if name := fmt.Sprint(v); name != "" {
			return name
		}
	}
	return s.EntityID
}
