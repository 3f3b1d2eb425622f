package domov

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/domov/pkg/adapters/stt"
	"github.com/harunnryd/domov/pkg/adapters/tts"
	"github.com/harunnryd/domov/pkg/configutil"
	"github.com/harunnryd/domov/pkg/dialog"
	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/messages"
	"github.com/harunnryd/domov/pkg/metrics"
	"github.com/harunnryd/domov/pkg/speech"
	"github.com/harunnryd/domov/pkg/transports"
	"github.com/harunnryd/domov/pkg/turn"
)

const (
	sessionQueueSize = 32
	recognizeLang    = "cs"
)

// session owns the dialog of one connected client. Messages are queued to
// a single worker goroutine so dialog turns never interleave; toggles are
// applied on arrival since they only flip flags.
type session struct {
	id     string
	a      *Assistant
	media  transports.Media
	state  *dialog.Session
	logger *slog.Logger

	manager    *dialog.Manager
	listener   *speech.Listener
	speaker    *speech.Speaker
	recognizer stt.StreamingSTT
	synth      tts.StreamingTTS

	tasks chan func(context.Context)
	wake  chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	created   time.Time
}

// newSession prepares a session. Without withSpeech no recognizer or
// synthesizer is opened; the event bus session runs that way.
func newSession(a *Assistant, id string, media transports.Media, withSpeech bool) (*session, error) {
	ctx, cancel := context.WithCancel(a.ctx)
	state := dialog.NewSession(id)
	state.SetTTS(a.cfg.Session.TTS || media.VoiceOnly)
	state.SetListening(withSpeech && (a.cfg.Session.Listen || media.VoiceOnly))

	s := &session{
		id:      id,
		a:       a,
		media:   media,
		state:   state,
		logger:  a.logger.With(slog.String("session_id", id)),
		tasks:   make(chan func(context.Context), sessionQueueSize),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		created: time.Now(),
	}

	turns := turn.NewManager()
	turns.AddListener(turn.MicSignals(func(msg messages.Outbound) {
		_ = s.Send(s.ctx, msg)
	}))
	deps := dialog.Deps{
		Extractor: a.extractor,
		Channel:   s,
		Devices:   a.home,
		Scenes:    a.store,
		Replayer:  s,
		Turns:     turns,
		Observer:  a.observer,
		Logger:    a.baseLogger,
	}

	if withSpeech && a.sttFactory != nil {
		rec, err := a.sttFactory(stt.Config{
			SessionID:  id,
			SampleRate: media.SampleRate,
			Encoding:   media.Encoding,
			Language:   recognizeLang,
		})
		if err == nil {
			err = rec.Start(ctx)
		}
		if err != nil {
			cancel()
			return nil, errorsx.Wrap(err, errorsx.ReasonSTTConnect)
		}
		s.recognizer = rec
		s.listener = speech.NewListener(rec, a.baseLogger)
		deps.Recognizer = s.listener
	}
	if withSpeech && a.ttsFactory != nil {
		synth, err := a.ttsFactory(tts.Config{
			SessionID:  id,
			SampleRate: media.SampleRate,
			Format:     media.TTSFormat,
		})
		if err == nil {
			err = synth.Start(ctx)
		}
		if err != nil {
			if s.recognizer != nil {
				_ = s.recognizer.Close()
			}
			cancel()
			return nil, errorsx.Wrap(err, errorsx.ReasonTTSConnect)
		}
		s.synth = synth
		timeout := configutil.DurationMS(a.cfg.Session.SpeakTimeoutMS, 30*time.Second)
		s.speaker = speech.NewSpeaker(synth, speech.AudioSinkFunc(s.sendAudio), timeout, a.baseLogger)
		deps.Speaker = s
	}

	s.manager = dialog.NewManager(state, deps, dialog.Config{
		RecognizeTimeout: a.cfg.Session.RecognizeTimeout(),
		SettleDelay:      configutil.DurationMS(a.cfg.Session.SettleDelayMS, 0),
		MaxReprompts:     a.cfg.Session.MaxReprompts,
	})
	return s, nil
}

// start launches the speech pumps and the worker. greet sends the
// snapshot and greeting first.
func (s *session) start(greet bool) {
	if s.listener != nil {
		go s.listener.Run(s.ctx)
	}
	if s.speaker != nil {
		go s.speaker.Run(s.ctx)
	}
	go s.run(greet)
}

func (s *session) run(greet bool) {
	defer close(s.done)
	if greet {
		s.manager.Greet(s.ctx)
	}
	for s.ctx.Err() == nil && s.state.Running() {
		select {
		case task := <-s.tasks:
			task(s.ctx)
			continue
		default:
		}
		if s.listener != nil && s.state.Listening() {
			s.manager.ListenOnce(s.ctx)
			continue
		}
		select {
		case <-s.ctx.Done():
		case task := <-s.tasks:
			task(s.ctx)
		case <-s.wake:
		}
	}
	if s.ctx.Err() != nil {
		return
	}
	// The user said goodbye.
	s.manager.Finish(s.ctx)
	if h, ok := s.a.transport.(transports.Hanger); ok {
		if err := h.Hangup(s.ctx, s.id); err != nil {
			s.logger.Warn("hangup_failed", slog.String("error", err.Error()))
		}
	}
	s.a.endSession(s.id, "farewell")
}

// handle decodes one client message and schedules it.
func (s *session) handle(raw []byte) {
	msg, err := messages.Decode(raw)
	if err != nil {
		s.logger.Warn("message_decode_failed", slog.String("error", err.Error()))
		return
	}
	if !messages.Known(msg.Type) {
		s.logger.Warn("unknown_message_type", slog.String("type", string(msg.Type)))
		return
	}
	switch msg.Type {
	case messages.TypeToggleTTS, messages.TypeToggleRec:
		_ = s.dispatch(s.ctx, msg, false)
		s.signal()
		return
	}
	s.enqueue(func(ctx context.Context) {
		if err := s.dispatch(ctx, msg, false); err != nil && ctx.Err() == nil {
			s.logger.Warn("message_failed",
				slog.String("type", string(msg.Type)),
				slog.String("reason", string(errorsx.Reason(err))),
				slog.String("error", err.Error()),
			)
		}
	})
}

func (s *session) enqueue(task func(context.Context)) {
	select {
	case s.tasks <- task:
	default:
		s.logger.Warn("session_queue_full")
	}
}

func (s *session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// feed forwards caller audio to the recognizer.
func (s *session) feed(chunk []byte) {
	if s.listener == nil || s.ctx.Err() != nil {
		return
	}
	if err := s.listener.Feed(chunk); err != nil {
		s.logger.Debug("audio_feed_failed", slog.String("error", err.Error()))
	}
}

// Send implements dialog.Channel. Outbound messages also go to the home
// event bus when one is connected.
func (s *session) Send(ctx context.Context, msg messages.Outbound) error {
	err := s.a.transport.Send(ctx, s.id, msg)
	s.a.publish(msg)
	return err
}

// Speak implements dialog.Speaker. Audio already queued on the transport
// is cleared when synthesis fails midway.
func (s *session) Speak(ctx context.Context, text string) error {
	err := s.speaker.Speak(ctx, text)
	if err != nil {
		if c, ok := s.a.transport.(transports.Clearer); ok {
			_ = c.Clear(context.WithoutCancel(ctx), s.id)
		}
	}
	return err
}

func (s *session) sendAudio(ctx context.Context, chunk []byte) error {
	return s.a.transport.SendAudio(ctx, s.id, chunk)
}

// close stops the session without waiting for its worker.
func (s *session) close(reason string) {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.recognizer != nil {
			_ = s.recognizer.Close()
		}
		if s.synth != nil {
			_ = s.synth.Close()
		}
		s.logger.Info("session_closed",
			slog.String("reason", reason),
			slog.Duration("duration", time.Since(s.created)),
		)
		s.a.observer.RecordEvent(metrics.MetricsEvent{
			Name:   "session_closed",
			Time:   time.Now(),
			Tags:   map[string]string{"session_id": s.id, "reason": reason},
			Fields: map[string]any{"duration_ms": time.Since(s.created).Milliseconds()},
		})
	})
}

var (
	_ dialog.Channel  = (*session)(nil)
	_ dialog.Speaker  = (*session)(nil)
	_ dialog.Replayer = (*session)(nil)
)
