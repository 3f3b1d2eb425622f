// Package dialog runs the multi-turn slot-filling conversation: it routes
// extracted slots to intent frames, asks for missing slots and commits
// complete frames against the home.
package dialog

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/homeassistant"
	"github.com/harunnryd/domov/pkg/lexicon"
	"github.com/harunnryd/domov/pkg/logging"
	"github.com/harunnryd/domov/pkg/messages"
	"github.com/harunnryd/domov/pkg/metrics"
	"github.com/harunnryd/domov/pkg/redact"
	"github.com/harunnryd/domov/pkg/slu"
	"github.com/harunnryd/domov/pkg/turn"
)

// Extractor turns an utterance into slots.
type Extractor interface {
	Extract(text string) slu.SlotSet
}

// Channel delivers messages to the client.
type Channel interface {
	Send(ctx context.Context, msg messages.Outbound) error
}

// Speaker synthesizes text and returns when playback has been handed off.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Recognizer waits for the next utterance. It returns an error when
// nothing was recognized within timeout.
type Recognizer interface {
	Recognize(ctx context.Context, timeout time.Duration) (string, error)
}

// Devices is the home-automation backend.
type Devices interface {
	ControlLight(ctx context.Context, action, entityID string, opts homeassistant.LightOptions) error
	SetTemperature(ctx context.Context, entityID string, temperature float64) error
	ControlSwitch(ctx context.Context, action, entityID string) error
	State(ctx context.Context, entityID string) (homeassistant.State, error)
	States(ctx context.Context) ([]homeassistant.State, error)
}

// Scenes looks up saved scenes.
type Scenes interface {
	SceneActions(name string) ([]json.RawMessage, error)
}

// Replayer executes one saved inbound message the way a client message
// is executed.
type Replayer interface {
	Replay(ctx context.Context, raw json.RawMessage) error
}

type Config struct {
	RecognizeTimeout time.Duration
	SettleDelay      time.Duration
	// MaxReprompts cancels the pending intent after that many consecutive
	// recognition misses. Zero keeps asking.
	MaxReprompts int
}

// Deps are the collaborators of a Manager. Speaker, Recognizer, Scenes,
// Replayer, Turns and Observer are optional.
type Deps struct {
	Extractor  Extractor
	Channel    Channel
	Speaker    Speaker
	Recognizer Recognizer
	Devices    Devices
	Scenes     Scenes
	Replayer   Replayer
	Turns      turn.Manager
	Observer   metrics.Observer
	Logger     *slog.Logger
}

// Manager runs the turns of one session. Turn methods must be called from
// a single goroutine; ActivateScene may also be called from others.
type Manager struct {
	cfg     Config
	session *Session
	deps    Deps
	logger  *slog.Logger
}

func NewManager(session *Session, deps Deps, cfg Config) *Manager {
	if cfg.RecognizeTimeout <= 0 {
		cfg.RecognizeTimeout = 5 * time.Second
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if deps.Turns == nil {
		deps.Turns = turn.NewManager()
	}
	if deps.Observer == nil {
		deps.Observer = metrics.NoopObserver{}
	}
	return &Manager{
		cfg:     cfg,
		session: session,
		deps:    deps,
		logger:  logging.NewComponentLogger(deps.Logger, "dialog").With(slog.String("session_id", session.ID)),
	}
}

func (m *Manager) Session() *Session { return m.session }

// Greet sends the entity snapshot and the greeting.
func (m *Manager) Greet(ctx context.Context) {
	states, err := m.deps.Devices.States(ctx)
	if err != nil {
		m.logger.Warn("initial_states_failed", slog.String("error", err.Error()))
		states = []homeassistant.State{}
	}
	m.send(ctx, messages.Init(states))
	m.display(ctx, msgGreeting)
}

// HandleText runs a chat turn. A missing slot suspends the intent until
// the next call.
func (m *Manager) HandleText(ctx context.Context, text string) {
	m.run(ctx, text, true)
}

// HandleSpeech runs a spoken turn. Missing slots are asked for and
// recognized in place.
func (m *Manager) HandleSpeech(ctx context.Context, text string) {
	m.run(ctx, text, false)
	m.deps.Turns.OnTurnEnd()
}

// ListenOnce is one round of continuous listening.
func (m *Manager) ListenOnce(ctx context.Context) {
	m.say(ctx, msgSayCommand)
	text, err := m.recognize(ctx)
	if err != nil {
		if ctx.Err() == nil && m.session.Running() {
			m.say(ctx, msgListenMiss)
		}
		m.deps.Turns.OnTurnEnd()
		return
	}
	m.HandleSpeech(ctx, text)
}

// Finish shows the committed history.
func (m *Manager) Finish(ctx context.Context) {
	m.display(ctx, msgHistory)
	for _, h := range m.session.history {
		m.display(ctx, h)
	}
}

func (m *Manager) run(ctx context.Context, text string, textTurn bool) {
	slots := m.extract(text)
	misses := 0
	for {
		if slots != nil {
			if slots[lexicon.SlotAction] == "end" {
				m.farewell(ctx)
				return
			}
			f := m.session.pending
			if f == nil {
				decl := Route(slots)
				if decl == nil {
					m.say(ctx, msgNotUnderstood)
					return
				}
				f = NewFrame(decl)
			}
			if m.control(ctx, f, slots) {
				return
			}
			if f.Complete() {
				m.commit(ctx, f)
				return
			}
		}

		m.say(ctx, Question(m.session.pending))
		if textTurn {
			return
		}
		heard, err := m.recognize(ctx)
		if err != nil {
			if ctx.Err() != nil || !m.session.Running() {
				return
			}
			misses++
			if m.cfg.MaxReprompts > 0 && misses >= m.cfg.MaxReprompts {
				m.record("frame_abandoned", m.session.pending)
				m.session.clear()
				m.say(ctx, msgCancelled)
				return
			}
			m.say(ctx, msgTryAgain)
			slots = nil
			continue
		}
		misses = 0
		slots = m.extract(heard)
	}
}

// control applies cancel, back or an update to f. It returns true when
// the turn is over.
func (m *Manager) control(ctx context.Context, f *Frame, slots slu.SlotSet) bool {
	switch slots[lexicon.SlotAction] {
	case "cancel":
		m.record("frame_cancelled", f)
		m.session.clear()
		m.say(ctx, msgCancelled)
		return true
	case "back":
		if f.UndoLast() {
			m.say(ctx, msgUndone)
			m.display(ctx, f.String())
			m.session.pending = f
			return true
		}
		m.record("frame_cancelled", f)
		m.session.clear()
		m.say(ctx, msgUndoExhausted)
		return true
	}
	f.Update(slots)
	m.session.pending = f
	m.display(ctx, f.String())
	return false
}

func (m *Manager) farewell(ctx context.Context) {
	m.send(ctx, messages.Chat(msgFarewell))
	if m.session.TTS() {
		m.speak(ctx, msgFarewellSpoken)
	}
	m.session.Stop()
	m.logger.Info("session_end_requested")
}

func (m *Manager) extract(text string) slu.SlotSet {
	slots := m.deps.Extractor.Extract(text)
	if slots == nil {
		slots = slu.SlotSet{}
	}
	m.logger.Debug("dialog_turn",
		slog.String("utterance", redact.Text(text)),
		slog.Any("slots", map[string]string(slots)),
	)
	return slots
}

func (m *Manager) recognize(ctx context.Context) (string, error) {
	if m.deps.Recognizer == nil {
		return "", errorsx.New(errorsx.ReasonRecognizeFailed, "no recognizer")
	}
	m.deps.Turns.OnListenStart()
	text, err := m.deps.Recognizer.Recognize(ctx, m.cfg.RecognizeTimeout)
	m.deps.Turns.OnListenEnd()
	if err == nil && strings.TrimSpace(text) == "" {
		err = errorsx.New(errorsx.ReasonRecognizeTimeout, "empty utterance")
	}
	if err != nil {
		if !errorsx.HasReason(err, errorsx.ReasonRecognizeTimeout) && ctx.Err() == nil {
			m.logger.Warn("recognize_failed", slog.String("error", err.Error()))
		}
		m.deps.Observer.RecordEvent(m.event("recognize_miss", nil))
		return "", err
	}
	return text, nil
}

// say shows text and speaks it when speech output is on.
func (m *Manager) say(ctx context.Context, text string) {
	if text == "" {
		return
	}
	m.display(ctx, text)
	if m.session.TTS() {
		m.speak(ctx, text)
	}
}

func (m *Manager) display(ctx context.Context, text string) {
	m.send(ctx, messages.Chat(text))
}

func (m *Manager) speak(ctx context.Context, text string) {
	if m.deps.Speaker == nil {
		return
	}
	m.deps.Turns.OnSpeakStart()
	err := m.deps.Speaker.Speak(ctx, text)
	m.deps.Turns.OnSpeakEnd()
	if err != nil && ctx.Err() == nil {
		m.logger.Warn("speak_failed", slog.String("error", err.Error()))
	}
}

func (m *Manager) send(ctx context.Context, msg messages.Outbound) {
	if err := m.deps.Channel.Send(ctx, msg); err != nil && ctx.Err() == nil {
		m.logger.Warn("send_failed", slog.String("type", msg.Type), slog.String("error", err.Error()))
	}
}

func (m *Manager) record(name string, f *Frame) {
	m.deps.Observer.RecordEvent(m.event(name, f))
}

func (m *Manager) event(name string, f *Frame) metrics.MetricsEvent {
	ev := metrics.MetricsEvent{
		Name: name,
		Time: time.Now(),
		Tags: map[string]string{"session_id": m.session.ID},
	}
	if f != nil {
		ev.Tags["kind"] = string(f.Kind())
		ev.Fields = map[string]any{"summary": f.String()}
	}
	return ev
}
