package turn

type manager struct {
	sm *stateMachine
}

func NewManager() Manager {
	return &manager{sm: newStateMachine()}
}

func (m *manager) State() State {
	return m.sm.State()
}

func (m *manager) AddListener(listener StateListener) {
	m.sm.AddListener(listener)
}

// OnListenStart opens the microphone.
func (m *manager) OnListenStart() {
	if m.sm.State() == StateListening {
		return
	}
	_ = m.sm.Transition(StateListening, "listen start")
}

// OnListenEnd closes the microphone and hands the utterance to the engine.
func (m *manager) OnListenEnd() {
	if m.sm.State() != StateListening {
		return
	}
	_ = m.sm.Transition(StateThinking, "listen end")
}

func (m *manager) OnSpeakStart() {
	switch m.sm.State() {
	case StateSpeaking:
		return
	case StateListening:
		// Through THINKING so the microphone is reported closed first.
		_ = m.sm.Transition(StateThinking, "speak start - leaving listening")
	}
	_ = m.sm.Transition(StateSpeaking, "speak start")
}

func (m *manager) OnSpeakEnd() {
	if m.sm.State() != StateSpeaking {
		return
	}
	_ = m.sm.Transition(StateIdle, "speak end")
}

func (m *manager) OnTurnEnd() {
	if m.sm.State() == StateIdle {
		return
	}
	_ = m.sm.Transition(StateIdle, "turn end")
}
