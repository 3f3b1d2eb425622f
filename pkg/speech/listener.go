// Package speech binds streaming recognition and synthesis vendors to a
// dialog session.
package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/domov/pkg/adapters/stt"
	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/logging"
	"github.com/harunnryd/domov/pkg/redact"
)

// ErrNoSpeech is returned when nothing was recognized before the timeout.
var ErrNoSpeech = errorsx.New(errorsx.ReasonRecognizeTimeout, "no speech recognized")

// Listener turns the transcript stream of one session into utterances.
// Transcripts arriving while nobody is listening are dropped.
type Listener struct {
	stt    stt.StreamingSTT
	logger *slog.Logger

	mu        sync.Mutex
	listening bool
	segments  []string
	utter     chan string
}

func NewListener(s stt.StreamingSTT, logger *slog.Logger) *Listener {
	return &Listener{
		stt:    s,
		logger: logging.NewComponentLogger(logger, "listener"),
		utter:  make(chan string, 4),
	}
}

// Run consumes transcripts until the vendor closes its results or ctx ends.
func (l *Listener) Run(ctx context.Context) {
	results := l.stt.Results()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-results:
			if !ok {
				return
			}
			l.accept(t)
		}
	}
}

// Feed forwards caller audio to the recognizer.
func (l *Listener) Feed(chunk []byte) error {
	return l.stt.SendAudio(chunk)
}

// Recognize waits for the next complete utterance.
func (l *Listener) Recognize(ctx context.Context, timeout time.Duration) (string, error) {
	l.mu.Lock()
	l.listening = true
	l.segments = nil
	l.drainLocked()
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.listening = false
		l.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", ErrNoSpeech
	case text := <-l.utter:
		l.logger.Debug("utterance_recognized", slog.String("text", redact.Text(text)))
		return text, nil
	}
}

func (l *Listener) accept(t stt.Transcript) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.listening {
		return
	}
	if t.Final && strings.TrimSpace(t.Text) != "" {
		l.segments = append(l.segments, strings.TrimSpace(t.Text))
	}
	if !t.EndOfSpeech || len(l.segments) == 0 {
		return
	}
	text := strings.Join(l.segments, " ")
	l.segments = nil
	select {
	case l.utter <- text:
	default:
		l.logger.Warn("utterance_dropped")
	}
}

func (l *Listener) drainLocked() {
	for {
		select {
		case <-l.utter:
		default:
			return
		}
	}
}
