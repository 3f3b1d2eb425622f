package turn

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/harunnryd/domov/pkg/messages"
)

type captureSender struct {
	mu    sync.Mutex
	types []string
}

func (c *captureSender) send(msg messages.Outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = append(c.types, msg.Type)
}

func (c *captureSender) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.types...)
}

func TestStateMachineRejectsInvalidTransition(t *testing.T) {
	sm := newStateMachine()
	err := sm.Transition(StateThinking, "skip listening")
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) || invalid.From != StateIdle || invalid.To != StateThinking {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
	if sm.State() != StateIdle {
		t.Fatalf("state changed on invalid transition: %s", sm.State())
	}
}

func TestMicSignalsAroundRecognition(t *testing.T) {
	capture := &captureSender{}
	m := NewManager()
	m.AddListener(MicSignals(capture.send))

	m.OnListenStart()
	m.OnListenEnd()
	m.OnSpeakStart()
	m.OnSpeakEnd()

	want := []string{messages.OutMicOn, messages.OutMicOff, messages.OutThinking}
	if diff := cmp.Diff(want, capture.Types()); diff != "" {
		t.Fatalf("signals mismatch (-want +got):\n%s", diff)
	}
	if m.State() != StateIdle {
		t.Fatalf("expected IDLE, got %s", m.State())
	}
}

func TestSpeakWhileListeningPassesThroughThinking(t *testing.T) {
	var seen []State
	m := NewManager()
	m.AddListener(ListenerFunc(func(ev StateChange) { seen = append(seen, ev.ToState) }))

	m.OnListenStart()
	m.OnSpeakStart()
	m.OnTurnEnd()
	m.OnTurnEnd()

	want := []State{StateListening, StateThinking, StateSpeaking, StateIdle}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestListenAbortSendsMicOff(t *testing.T) {
	capture := &captureSender{}
	m := NewManager()
	m.AddListener(MicSignals(capture.send))
	m.OnListenStart()
	m.OnTurnEnd()
	want := []string{messages.OutMicOn, messages.OutMicOff}
	if diff := cmp.Diff(want, capture.Types()); diff != "" {
		t.Fatalf("signals mismatch (-want +got):\n%s", diff)
	}
}
