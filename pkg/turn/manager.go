// Package turn tracks who holds the floor in a voice session: the
// microphone, the dialog engine or the speaker.
package turn

type State int

const (
	StateIdle State = iota
	StateListening
	StateThinking
	StateSpeaking
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateListening:
		return "LISTENING"
	case StateThinking:
		return "THINKING"
	case StateSpeaking:
		return "SPEAKING"
	default:
		return "UNKNOWN"
	}
}

// Manager drives the state machine from session events. Every method is
// safe to call from any state; intermediate states are passed through
// when the target is not directly reachable.
type Manager interface {
	OnListenStart()
	OnListenEnd()
	OnSpeakStart()
	OnSpeakEnd()
	OnTurnEnd()
	AddListener(listener StateListener)
	State() State
}
