package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/harunnryd/domov/pkg/adapters/tts"
)

type TTSConfig struct {
	// ChunkSize splits the echoed text; zero sends it whole.
	ChunkSize int
}

// StreamingTTS echoes the text back as audio bytes.
type StreamingTTS struct {
	cfg     TTSConfig
	out     chan tts.Chunk
	mu      sync.Mutex
	started bool
	closed  bool
	spoken  []string
}

func NewTTS(cfg TTSConfig) *StreamingTTS {
	return &StreamingTTS{cfg: cfg, out: make(chan tts.Chunk, 64)}
}

func (s *StreamingTTS) Name() string { return "mock_tts" }

func (s *StreamingTTS) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("closed")
	}
	s.started = true
	return nil
}

func (s *StreamingTTS) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	s.started = false
	return nil
}

func (s *StreamingTTS) SendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errors.New("not started")
	}
	s.spoken = append(s.spoken, text)
	data := []byte(text)
	size := s.cfg.ChunkSize
	if size <= 0 || size > len(data) {
		size = len(data)
	}
	for len(data) > size {
		s.emit(tts.Chunk{Audio: data[:size]})
		data = data[size:]
	}
	s.emit(tts.Chunk{Audio: data, Final: true})
	return nil
}

func (s *StreamingTTS) Flush() {
	for {
		select {
		case _, ok := <-s.out:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *StreamingTTS) Results() <-chan tts.Chunk { return s.out }

// Spoken returns every text passed to SendText.
func (s *StreamingTTS) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func (s *StreamingTTS) emit(c tts.Chunk) {
	select {
	case s.out <- c:
	default:
	}
}

var _ tts.StreamingTTS = (*StreamingTTS)(nil)
