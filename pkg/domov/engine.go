// Package domov wires the dialog engine to the home, the speech vendors,
// the client transport and the storage into a running assistant.
package domov

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harunnryd/domov/pkg/adapters/stt"
	"github.com/harunnryd/domov/pkg/adapters/tts"
	"github.com/harunnryd/domov/pkg/configutil"
	"github.com/harunnryd/domov/pkg/dialog"
	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/events"
	"github.com/harunnryd/domov/pkg/homeassistant"
	"github.com/harunnryd/domov/pkg/logging"
	"github.com/harunnryd/domov/pkg/messages"
	"github.com/harunnryd/domov/pkg/metrics"
	"github.com/harunnryd/domov/pkg/observers"
	"github.com/harunnryd/domov/pkg/redact"
	"github.com/harunnryd/domov/pkg/runner"
	"github.com/harunnryd/domov/pkg/store"
	"github.com/harunnryd/domov/pkg/transports"
)

const (
	busSessionID   = "mqtt"
	drainTimeout   = 20 * time.Second
	watchDebounce  = 300 * time.Millisecond
	publishBacklog = 256
)

// Home is the device backend. *homeassistant.Client implements it.
type Home interface {
	dialog.Devices
	IsAlive(ctx context.Context) bool
	ToggleLight(ctx context.Context, entityID string) error
	SetLightColor(ctx context.Context, entityID, color string) error
	SetLightTemperature(ctx context.Context, entityID string, mireds int) error
	ToggleSwitch(ctx context.Context, entityID string) error
	Temperature(ctx context.Context, entityID string) (any, error)
}

type Options struct {
	// Providers defaults to DefaultProviders.
	Providers *ProviderRegistry
	// Transport and Home replace the configured ones when set.
	Transport transports.Transport
	Home      Home
	// Observer receives dialog and session events next to the log.
	Observer metrics.Observer
	Logger   *slog.Logger
}

// Assistant serves every client session of one home.
type Assistant struct {
	cfg        Config
	baseLogger *slog.Logger
	logger     *slog.Logger

	home       Home
	store      *store.Store
	transport  transports.Transport
	sttFactory stt.Factory
	ttsFactory tts.Factory
	extractor  *sharedExtractor
	reindexMu  sync.Mutex

	observer   metrics.Observer
	asyncObs   *metrics.AsyncObserver
	journal    *observers.Journal
	eventsFile *os.File

	bridge *events.Bridge
	pubCh  chan messages.Outbound
	bus    *session

	sessions sessionRegistry
	runner   *runner.LifecycleRunner

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config, opts Options) (*Assistant, error) {
	base := opts.Logger
	if base == nil {
		base = slog.Default()
	}
	redact.SetEnabled(cfg.Privacy.RedactPII)

	a := &Assistant{
		cfg:        cfg,
		baseLogger: base,
		logger:     logging.NewComponentLogger(base, "assistant"),
		extractor:  &sharedExtractor{},
		pubCh:      make(chan messages.Outbound, publishBacklog),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.home = opts.Home
	if a.home == nil {
		a.home = NewHomeAssistant(cfg, base)
	}
	a.store = NewStore(cfg, base)

	providers := opts.Providers
	if providers == nil {
		providers = DefaultProviders()
	}
	var err error
	if a.sttFactory, err = providers.BuildSTT(cfg.Vendors.STT); err != nil {
		return nil, err
	}
	if a.ttsFactory, err = providers.BuildTTS(cfg.Vendors.TTS); err != nil {
		return nil, err
	}
	a.transport = opts.Transport
	if a.transport == nil {
		a.transport, err = providers.BuildTransport(cfg.Transports, TransportOptions{
			Logger: base,
			Ready:  a.home.IsAlive,
		})
		if err != nil {
			return nil, err
		}
	}

	sinks := []metrics.Observer{observers.NewLoggerObserver(logging.NewComponentLogger(base, "events"))}
	if opts.Observer != nil {
		sinks = append(sinks, opts.Observer)
	}
	if dir := cfg.Storage.HistoryDir; dir != "" {
		if days := cfg.Storage.HistoryRetentionDays; days > 0 {
			removed, err := observers.PurgeJournals(dir, time.Duration(days)*24*time.Hour)
			if err != nil {
				a.logger.Warn("history_purge_failed", slog.String("error", err.Error()))
			} else if removed > 0 {
				a.logger.Info("history_purged", slog.Int("files", removed))
			}
		}
		a.journal = observers.NewJournal(dir)
		sinks = append(sinks, a.journal)
	}
	if path := cfg.Storage.EventsPath; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errorsx.Wrap(fmt.Errorf("open events log: %w", err), errorsx.ReasonStoreWrite)
		}
		a.eventsFile = f
		sinks = append(sinks, metrics.NewJSONLObserver(f))
	}
	a.asyncObs = metrics.NewAsyncObserver(observers.NewMultiObserver(sinks...), 1024)
	a.observer = a.asyncObs

	if cfg.MQTT.Enabled {
		a.bridge = events.NewBridge(cfg.MQTT, a.handleBus, base)
	}

	a.runner = runner.NewLifecycleRunner(runner.DrainerFunc(a.drain), runner.Hooks{
		OnStart: a.onStart,
		OnStop:  a.onStop,
	}, drainTimeout)
	return a, nil
}

// Run builds the vocabulary, starts the transport and serves sessions
// until ctx ends, then drains.
func (a *Assistant) Run(ctx context.Context) error {
	if err := a.Reindex(ctx); err != nil {
		return err
	}
	if err := a.transport.Start(a.ctx); err != nil {
		return err
	}
	bus, err := newSession(a, busSessionID, transports.Media{}, false)
	if err != nil {
		return err
	}
	a.bus = bus
	a.bus.start(false)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.route(a.ctx)
		return nil
	})
	if a.cfg.Storage.Watch {
		w, err := store.NewWatcher(a.store, watchDebounce, func(path string) {
			a.reindex(a.ctx, path)
		}, a.baseLogger)
		if err != nil {
			a.logger.Warn("watcher_unavailable", slog.String("error", err.Error()))
		} else {
			g.Go(func() error { return w.Run(a.ctx) })
		}
	}
	if a.bridge != nil {
		g.Go(func() error {
			if err := a.bridge.Start(a.ctx); err != nil {
				a.logger.Error("mqtt_start_failed", slog.String("error", err.Error()))
			}
			return nil
		})
		g.Go(func() error {
			a.publishLoop(a.ctx)
			return nil
		})
	}
	g.Go(func() error { return a.runner.Run(gctx) })
	return g.Wait()
}

// Stop drains the assistant.
func (a *Assistant) Stop() error {
	return a.runner.Stop()
}

// Reindex rebuilds the phrase index from the current grammar, entity
// names and scenes.
func (a *Assistant) Reindex(ctx context.Context) error {
	a.reindexMu.Lock()
	defer a.reindexMu.Unlock()
	ex, err := BuildExtractor(ctx, a.cfg, a.store, a.home, a.baseLogger)
	if err != nil {
		return err
	}
	a.extractor.Store(ex)
	return nil
}

func (a *Assistant) reindex(ctx context.Context, cause string) {
	if err := a.Reindex(ctx); err != nil {
		a.logger.Warn("reindex_failed", slog.String("cause", cause), slog.String("error", err.Error()))
		return
	}
	a.logger.Info("reindexed", slog.String("cause", cause))
}

func (a *Assistant) Transport() transports.Transport { return a.transport }

func (a *Assistant) Store() *store.Store { return a.store }

// Sessions is the number of connected clients.
func (a *Assistant) Sessions() int64 { return a.sessions.Count() }

func (a *Assistant) route(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.transport.Recv():
			if !ok {
				return
			}
			a.handleEvent(ev)
		}
	}
}

func (a *Assistant) handleEvent(ev transports.Event) {
	switch ev.Kind {
	case transports.EventOpen:
		a.openSession(ev)
	case transports.EventMessage:
		if s, ok := a.sessions.Get(ev.SessionID); ok {
			s.handle(ev.Data)
		}
	case transports.EventAudio:
		if s, ok := a.sessions.Get(ev.SessionID); ok {
			s.feed(ev.Data)
		}
	case transports.EventClose:
		a.endSession(ev.SessionID, ev.Reason)
	}
}

func (a *Assistant) openSession(ev transports.Event) {
	logger := a.logger.With(slog.String("session_id", ev.SessionID))
	if a.sessions.Draining() {
		logger.Warn("session_rejected", slog.String("reason", "draining"))
		a.hangup(ev.SessionID)
		return
	}
	s, err := newSession(a, ev.SessionID, ev.Media, true)
	if err != nil {
		logger.Error("session_start_failed", slog.String("error", err.Error()))
		a.hangup(ev.SessionID)
		return
	}
	if !a.sessions.Add(s) {
		s.close("duplicate")
		return
	}
	attrs := []any{
		slog.Bool("voice_only", ev.Media.VoiceOnly),
		slog.Bool("tts", s.state.TTS()),
		slog.Bool("listening", s.state.Listening()),
	}
	if from := ev.Meta["from"]; from != "" {
		attrs = append(attrs, slog.String("from", redact.Caller(from)))
	}
	logger.Info("session_opened", attrs...)
	s.start(true)
}

func (a *Assistant) endSession(id, reason string) {
	if s := a.sessions.Remove(id); s != nil {
		s.close(reason)
	}
}

func (a *Assistant) hangup(id string) {
	if h, ok := a.transport.(transports.Hanger); ok {
		_ = h.Hangup(a.ctx, id)
	}
}

// handleBus runs messages from the event bus on the headless session.
func (a *Assistant) handleBus(_ context.Context, payload []byte) {
	if a.bus == nil {
		return
	}
	a.bus.handle(payload)
}

func (a *Assistant) publish(msg messages.Outbound) {
	if a.bridge == nil {
		return
	}
	switch msg.Type {
	case messages.OutMicOn, messages.OutMicOff, messages.OutThinking:
		return
	}
	select {
	case a.pubCh <- msg:
	default:
		a.logger.Debug("mqtt_publish_dropped", slog.String("type", msg.Type))
	}
}

func (a *Assistant) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.pubCh:
			if err := a.bridge.Publish(msg); err != nil {
				a.logger.Warn("mqtt_publish_failed", slog.String("type", msg.Type), slog.String("error", err.Error()))
			}
		}
	}
}

func (a *Assistant) onStart() {
	fields := []any{"message", "Domov Assistant Ready", "transport", a.transport.Name()}
	if rr, ok := a.transport.(transports.ReadyReporter); ok {
		for k, v := range rr.ReadyFields() {
			fields = append(fields, k, v)
		}
	}
	slog.Info("engine_ready", fields...)
}

func (a *Assistant) onStop() {
	a.asyncObs.Close()
	if a.journal != nil {
		_ = a.journal.Close()
	}
	if a.eventsFile != nil {
		_ = a.eventsFile.Close()
	}
	slog.Info("shutdown",
		"goroutines", runtime.NumGoroutine(),
		"active_sessions", a.sessions.Count(),
		"dropped_events", a.asyncObs.Dropped())
}

func (a *Assistant) drain(ctx context.Context) error {
	a.sessions.SetDraining(true)
	a.sessions.Range(func(s *session) bool {
		a.hangup(s.id)
		a.endSession(s.id, "shutdown")
		return true
	})
	waitErr := a.sessions.WaitForEmpty(ctx, 200*time.Millisecond)
	stopErr := a.transport.Stop()
	if a.bus != nil {
		a.bus.close("shutdown")
	}
	if a.bridge != nil {
		a.bridge.Close()
	}
	a.cancel()
	return errorsx.Join(errorsx.ReasonShutdown, waitErr, stopErr)
}

// NewHomeAssistant builds the REST client described by cfg.HomeAssistant.
func NewHomeAssistant(cfg Config, logger *slog.Logger) *homeassistant.Client {
	ha := cfg.HomeAssistant
	return homeassistant.New(homeassistant.Config{
		URL:              ha.URL,
		Token:            ha.Token,
		Timeout:          configutil.DurationMS(ha.TimeoutMS, 10*time.Second),
		Retries:          ha.Retries,
		RetryBackoff:     configutil.DurationMS(ha.RetryBackoffMS, 200*time.Millisecond),
		CircuitThreshold: ha.CircuitThreshold,
		CircuitCooldown:  configutil.DurationMS(ha.CircuitCooldownMS, 10*time.Second),
		Logger:           logger,
	})
}

func NewStore(cfg Config, logger *slog.Logger) *store.Store {
	return store.New(store.Paths{
		Grammar:       cfg.Storage.GrammarPath,
		FriendlyNames: cfg.Storage.FriendlyNamesPath,
		Scenes:        cfg.Storage.ScenesPath,
	}, logger)
}
