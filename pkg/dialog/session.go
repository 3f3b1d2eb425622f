package dialog

import "sync/atomic"

// Session is the state of one dialog. The flags may be flipped from any
// goroutine; the pending frame and history belong to the goroutine that
// runs the turns.
type Session struct {
	ID string

	running   atomic.Bool
	listening atomic.Bool
	tts       atomic.Bool

	// pending is the intent in progress, nil when none is.
	pending *Frame
	history []string
}

func NewSession(id string) *Session {
	s := &Session{ID: id}
	s.running.Store(true)
	return s
}

func (s *Session) Running() bool       { return s.running.Load() }
func (s *Session) Stop()               { s.running.Store(false) }
func (s *Session) Listening() bool     { return s.listening.Load() }
func (s *Session) SetListening(v bool) { s.listening.Store(v) }
func (s *Session) TTS() bool           { return s.tts.Load() }
func (s *Session) SetTTS(v bool)       { s.tts.Store(v) }

// ToggleListening flips continuous listening and returns the new value.
func (s *Session) ToggleListening() bool {
	for {
		old := s.listening.Load()
		if s.listening.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// ToggleTTS flips speech output and returns the new value.
func (s *Session) ToggleTTS() bool {
	for {
		old := s.tts.Load()
		if s.tts.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Pending returns the intent in progress.
func (s *Session) Pending() *Frame { return s.pending }

// History returns the committed frame summaries.
func (s *Session) History() []string {
	return append([]string(nil), s.history...)
}

func (s *Session) clear() { s.pending = nil }
