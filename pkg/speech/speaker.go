package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/domov/pkg/adapters/tts"
	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/logging"
)

// AudioSink plays synthesized audio to the user.
type AudioSink interface {
	SendAudio(ctx context.Context, chunk []byte) error
}

// AudioSinkFunc adapts a function to AudioSink.
type AudioSinkFunc func(ctx context.Context, chunk []byte) error

func (f AudioSinkFunc) SendAudio(ctx context.Context, chunk []byte) error { return f(ctx, chunk) }

// Speaker synthesizes one utterance at a time and returns once its last
// chunk was handed to the sink.
type Speaker struct {
	tts     tts.StreamingTTS
	sink    AudioSink
	timeout time.Duration
	logger  *slog.Logger

	speakMu sync.Mutex
	done    chan struct{}
}

// NewSpeaker uses timeout as the upper bound of one utterance; zero means
// 30 seconds.
func NewSpeaker(t tts.StreamingTTS, sink AudioSink, timeout time.Duration, logger *slog.Logger) *Speaker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Speaker{
		tts:     t,
		sink:    sink,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "speaker"),
		done:    make(chan struct{}, 1),
	}
}

// Run pumps synthesized audio into the sink until the vendor closes its
// results or ctx ends.
func (s *Speaker) Run(ctx context.Context) {
	results := s.tts.Results()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-results:
			if !ok {
				return
			}
			if len(c.Audio) > 0 {
				if err := s.sink.SendAudio(ctx, c.Audio); err != nil && ctx.Err() == nil {
					s.logger.Warn("audio_send_failed", slog.String("error", err.Error()))
				}
			}
			if c.Final {
				select {
				case s.done <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (s *Speaker) Speak(ctx context.Context, text string) error {
	s.speakMu.Lock()
	defer s.speakMu.Unlock()
	select {
	case <-s.done:
	default:
	}
	if err := s.tts.SendText(text); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSpeakFailed)
	}
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.tts.Flush()
		return ctx.Err()
	case <-timer.C:
		s.tts.Flush()
		return errorsx.New(errorsx.ReasonSpeakFailed, "synthesis timed out")
	case <-s.done:
		return nil
	}
}
