// Package messages defines the JSON envelopes exchanged with the UI and
// voice clients.
package messages

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harunnryd/domov/pkg/errorsx"
)

// Type is the "type" field of an inbound message.
type Type string

const (
	TypeToggleLight     Type = "toggle_light"
	TypeSetLightColor   Type = "set_light_color"
	TypeSetBrightness   Type = "set_brightness"
	TypeSetTemperature  Type = "set_temperature"
	TypeControlLight    Type = "control_light"
	TypeGetTemperature  Type = "get_temperature"
	TypeChatInput       Type = "chat_input"
	TypeToggleTTS       Type = "toggleTTS"
	TypeToggleRec       Type = "toggleRec"
	TypeSettings        Type = "settings"
	TypeSetFriendlyName Type = "set_friendly_names"
	TypeGetScenes       Type = "get_scenes"
	TypeSaveScene       Type = "save_scene"
	TypeActivateScene   Type = "activate_scene"
	TypeGetGrammar      Type = "get_grammar"
	TypeSetGrammar      Type = "set_grammar"
	TypeGetDeviceStates Type = "get_device_states"
	TypeToggleSwitch    Type = "toggle_switch"
	TypeControlSwitch   Type = "control_switch"
	TypeSetLightTemp    Type = "set_light_temperature"
)

// Inbound is the union of every inbound payload. Only the fields of the
// message's Type are meaningful.
type Inbound struct {
	Type        Type              `json:"type"`
	EntityID    string            `json:"entity_id,omitempty"`
	Action      string            `json:"action,omitempty"`
	Color       string            `json:"color,omitempty"`
	Brightness  json.Number       `json:"brightness,omitempty"`
	Temperature json.Number       `json:"temperature,omitempty"`
	Mireds      json.Number       `json:"mireds,omitempty"`
	ElementID   string            `json:"elementId,omitempty"`
	Name        string            `json:"name,omitempty"`
	Scene       string            `json:"scene,omitempty"`
	Actions     []json.RawMessage `json:"actions,omitempty"`
	Data        json.RawMessage   `json:"data,omitempty"`
}

// Decode parses one inbound envelope. It does not check the type against
// the known set; see Known.
func Decode(data []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, errorsx.Wrap(fmt.Errorf("decode message: %w", err), errorsx.ReasonMessageDecode)
	}
	if msg.Type == "" {
		return Inbound{}, errorsx.New(errorsx.ReasonMessageDecode, "message without type")
	}
	return msg, nil
}

// Known reports whether t is one of the inbound types.
func Known(t Type) bool {
	switch t {
	case TypeToggleLight, TypeSetLightColor, TypeSetBrightness, TypeSetTemperature,
		TypeControlLight, TypeGetTemperature, TypeChatInput, TypeToggleTTS, TypeToggleRec,
		TypeSettings, TypeSetFriendlyName, TypeGetScenes, TypeSaveScene, TypeActivateScene,
		TypeGetGrammar, TypeSetGrammar, TypeGetDeviceStates, TypeToggleSwitch, TypeControlSwitch,
		TypeSetLightTemp:
		return true
	default:
		return false
	}
}

// Validate checks the payload fields the message type requires.
func (m Inbound) Validate() error {
	var missing []string
	need := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}
	switch m.Type {
	case TypeToggleLight, TypeSetBrightness, TypeControlLight, TypeToggleSwitch, TypeControlSwitch:
		need(m.EntityID != "", "entity_id")
	case TypeSetLightColor:
		need(m.EntityID != "", "entity_id")
		need(m.Color != "", "color")
	case TypeSetTemperature:
		need(m.EntityID != "", "entity_id")
		need(m.Temperature != "", "temperature")
	case TypeSetLightTemp:
		need(m.EntityID != "", "entity_id")
		need(m.Mireds != "", "mireds")
	case TypeGetTemperature:
		need(m.EntityID != "", "entity_id")
		need(m.ElementID != "", "elementId")
	case TypeChatInput, TypeSetFriendlyName, TypeSetGrammar:
		need(len(m.Data) > 0 && string(m.Data) != "null", "data")
	case TypeSaveScene:
		need(m.Name != "", "name")
	case TypeActivateScene:
		need(m.Scene != "", "scene")
	}
	if len(missing) > 0 {
		return errorsx.New(errorsx.ReasonMessageDecode, fmt.Sprintf("%s: missing %v", m.Type, missing))
	}
	return nil
}

// Text returns Data as a string for chat_input.
func (m Inbound) Text() (string, error) {
	var s string
	if err := json.Unmarshal(m.Data, &s); err != nil {
		return "", errorsx.Wrap(fmt.Errorf("chat_input data: %w", err), errorsx.ReasonMessageDecode)
	}
	return s, nil
}

// BrightnessValue returns the brightness field, if set and numeric.
func (m Inbound) BrightnessValue() (int, bool) {
	if m.Brightness == "" {
		return 0, false
	}
	if v, err := m.Brightness.Int64(); err == nil {
		return int(v), true
	}
	f, err := m.Brightness.Float64()
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// TemperatureValue parses the temperature field.
func (m Inbound) TemperatureValue() (float64, error) {
	if m.Temperature == "" {
		return 0, errors.New("temperature not set")
	}
	return m.Temperature.Float64()
}

// Encode marshals any inbound message, used when scenes are saved.
func (m Inbound) Encode() (json.RawMessage, error) {
	return json.Marshal(m)
}

// MiredsValue parses the mireds field of set_light_temperature.
func (m Inbound) MiredsValue() (int, error) {
	if v, err := m.Mireds.Int64(); err == nil {
		return int(v), nil
	}
	f, err := m.Mireds.Float64()
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
