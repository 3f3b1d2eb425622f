// Package mock provides in-process speech vendors for local runs and
// tests. Audio is treated as UTF-8 text.
package mock

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/harunnryd/domov/pkg/adapters/stt"
)

type STTConfig struct {
	// Transcripts are returned in order, one per audio chunk. When they
	// run out the chunk itself is the transcript.
	Transcripts []string
	EmitInterim bool
}

type StreamingSTT struct {
	cfg     STTConfig
	out     chan stt.Transcript
	mu      sync.Mutex
	started bool
	closed  bool
}

func NewSTT(cfg STTConfig) *StreamingSTT {
	return &StreamingSTT{cfg: cfg, out: make(chan stt.Transcript, 16)}
}

func (s *StreamingSTT) Name() string { return "mock_stt" }

func (s *StreamingSTT) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("closed")
	}
	s.started = true
	return nil
}

func (s *StreamingSTT) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	s.started = false
	return nil
}

func (s *StreamingSTT) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errors.New("not started")
	}
	text := strings.TrimSpace(string(chunk))
	if len(s.cfg.Transcripts) > 0 {
		text = s.cfg.Transcripts[0]
		s.cfg.Transcripts = s.cfg.Transcripts[1:]
	}
	if text == "" {
		return nil
	}
	if s.cfg.EmitInterim {
		s.emit(stt.Transcript{Text: text})
	}
	s.emit(stt.Transcript{Text: text, Final: true, EndOfSpeech: true})
	return nil
}

func (s *StreamingSTT) Results() <-chan stt.Transcript { return s.out }

func (s *StreamingSTT) emit(t stt.Transcript) {
	select {
	case s.out <- t:
	default:
	}
}

var _ stt.StreamingSTT = (*StreamingSTT)(nil)
