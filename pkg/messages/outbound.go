package messages

import "encoding/json"

// Outbound message types.
const (
	OutInit              = "init"
	OutChat              = "chat-dm"
	OutStateUpdate       = "state_update"
	OutTemperatureUpdate = "temperature_update"
	OutSettings          = "settings"
	OutSceneList         = "scene_list"
	OutGrammar           = "grammar"
	OutMicOn             = "mic_on"
	OutMicOff            = "mic_off"
	OutThinking          = "thinking"
)

// Outbound is a message sent to the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// TemperatureReading is the payload of temperature_update.
type TemperatureReading struct {
	ElementID          string `json:"elementId"`
	CurrentTemperature any    `json:"current_temperature"`
}

func Init(states any) Outbound        { return Outbound{Type: OutInit, Data: states} }
func Chat(text string) Outbound       { return Outbound{Type: OutChat, Data: text} }
func StateUpdate(states any) Outbound { return Outbound{Type: OutStateUpdate, Data: states} }
func Settings(data any) Outbound      { return Outbound{Type: OutSettings, Data: data} }
func Grammar(data any) Outbound       { return Outbound{Type: OutGrammar, Data: data} }
func MicOn() Outbound                 { return Outbound{Type: OutMicOn} }
func MicOff() Outbound                { return Outbound{Type: OutMicOff} }
func Thinking() Outbound              { return Outbound{Type: OutThinking} }

// SceneList never encodes as null.
func SceneList(names []string) Outbound {
	if names == nil {
		names = []string{}
	}
	return Outbound{Type: OutSceneList, Data: names}
}

func TemperatureUpdate(elementID string, current any) Outbound {
	return Outbound{Type: OutTemperatureUpdate, Data: TemperatureReading{ElementID: elementID, CurrentTemperature: current}}
}

// Encode marshals the message.
func (m Outbound) Encode() ([]byte, error) {
	return json.Marshal(m)
}
