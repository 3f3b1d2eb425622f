// Package twilio lets the assistant answer phone calls through Twilio
// Media Streams. Calls are voice-only sessions carrying 8 kHz mu-law audio.
package twilio

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/harunnryd/domov/pkg/configutil"
	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/logging"
	"github.com/harunnryd/domov/pkg/messages"
	"github.com/harunnryd/domov/pkg/transports"
)

type Config struct {
	ServerAddr         string   `mapstructure:"server_addr"`
	PublicURL          string   `mapstructure:"public_url"`
	AuthToken          string   `mapstructure:"auth_token"`
	AccountSID         string   `mapstructure:"account_sid"`
	VoicePath          string   `mapstructure:"voice_path"`
	WebsocketPath      string   `mapstructure:"ws_path"`
	StatusCallbackPath string   `mapstructure:"status_callback_path"`
	VoiceGreeting      string   `mapstructure:"voice_greeting"`
	VoiceLanguage      string   `mapstructure:"voice_language"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
}

var settingsSchema = configutil.Schema{
	Optional: []string{
		"server_addr", "public_url", "auth_token", "account_sid", "voice_path", "ws_path",
		"status_callback_path", "voice_greeting", "voice_language", "allowed_origins",
	},
}

// ParseConfig decodes transports.settings for the twilio provider.
func ParseConfig(raw map[string]any) (Config, error) {
	var c Config
	if err := configutil.Section(raw, settingsSchema, &c); err != nil {
		return Config{}, err
	}
	return c.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	def := func(v *string, fallback string) {
		if *v == "" {
			*v = fallback
		}
	}
	def(&c.ServerAddr, ":8080")
	def(&c.VoicePath, "/voice")
	def(&c.WebsocketPath, "/ws")
	def(&c.StatusCallbackPath, "/status")
	def(&c.VoiceLanguage, "cs-CZ")
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	return c
}

// Option customizes a Transport.
type Option func(*Transport)

func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = logging.NewComponentLogger(l, "twilio_transport") }
}

type callUpdater interface {
	UpdateCall(sid string, params *api.UpdateCallParams) (*api.ApiV2010Call, error)
}

// call is one live media stream and the call it belongs to.
type call struct {
	sid    string
	stream *stream
}

type Transport struct {
	cfg      Config
	server   *http.Server
	router   chi.Router
	upgrader websocket.Upgrader
	recvCh   chan transports.Event
	logger   *slog.Logger

	updateClient callUpdater

	mu      sync.Mutex
	calls   map[string]*call // by stream SID
	streams map[string]string

	draining atomic.Bool
	stopOnce sync.Once
}

func New(cfg Config, opts ...Option) *Transport {
	cfg = cfg.withDefaults()
	t := &Transport{
		cfg:     cfg,
		recvCh:  make(chan transports.Event, 512),
		calls:   make(map[string]*call),
		streams: make(map[string]string),
		logger:  logging.NewComponentLogger(nil, "twilio_transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return transports.OriginAllowed(r.Header.Get("Origin"), t.cfg.AllowedOrigins)
		},
	}
	r := chi.NewRouter()
	r.Post(cfg.VoicePath, t.handleVoice)
	r.Post(cfg.StatusCallbackPath, t.handleStatusCallback)
	r.Get(cfg.WebsocketPath, t.serveStream)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	t.router = r
	return t
}

func (t *Transport) Name() string { return "twilio" }

func (t *Transport) Recv() <-chan transports.Event { return t.recvCh }

func (t *Transport) Handler() http.Handler { return t.router }

func (t *Transport) ReadyFields() map[string]any {
	return map[string]any{
		"webhook_url":         t.voiceWebhookURL(),
		"status_callback_url": t.statusCallbackURL(),
		"stream_path":         t.cfg.WebsocketPath,
	}
}

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.server = &http.Server{
		Addr:              t.cfg.ServerAddr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           t.router,
	}
	go func() {
		<-ctx.Done()
		_ = t.Stop()
	}()
	go func() {
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("twilio_transport_server_error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (t *Transport) Stop() error {
	t.stopOnce.Do(func() {
		t.draining.Store(true)
		if t.server != nil {
			_ = t.server.Close()
		}
		t.mu.Lock()
		live := t.calls
		t.calls = make(map[string]*call)
		t.streams = make(map[string]string)
		close(t.recvCh)
		t.mu.Unlock()
		for _, c := range live {
			c.stream.close()
		}
	})
	return nil
}

// Send is a no-op: a phone call has no screen. Replies reach the caller
// as synthesized audio through SendAudio.
func (t *Transport) Send(context.Context, string, messages.Outbound) error {
	return nil
}

func (t *Transport) SendAudio(_ context.Context, streamSID string, chunk []byte) error {
	if s := t.stream(streamSID); s != nil {
		return s.sendMedia(chunk)
	}
	return nil
}

// Clear drops audio Twilio has buffered but not yet played.
func (t *Transport) Clear(_ context.Context, streamSID string) error {
	if s := t.stream(streamSID); s != nil {
		return s.sendClear()
	}
	return nil
}

// Hangup completes the call behind streamSID via the REST API. Unknown
// streams are ignored.
func (t *Transport) Hangup(_ context.Context, streamSID string) error {
	callSID := t.callFor(streamSID)
	if callSID == "" {
		return nil
	}
	updater := t.updateClient
	if updater == nil {
		if t.cfg.AccountSID == "" || t.cfg.AuthToken == "" {
			return errorsx.New(errorsx.ReasonConfigInvalid, "twilio hangup needs account_sid and auth_token")
		}
		updater = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: t.cfg.AccountSID,
			Password: t.cfg.AuthToken,
		}).Api
	}
	params := &api.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := updater.UpdateCall(callSID, params); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	t.logger.Info("twilio_call_hangup", slog.String("call_sid", callSID), slog.String("stream_id", streamSID))
	return nil
}

// Dial places an outbound call that connects back to this transport.
func (t *Transport) Dial(ctx context.Context, to, from, url string) (string, error) {
	return NewDialer(t.cfg).Dial(ctx, to, from, url)
}

// attach registers a stream. A new stream for a call that already has one
// replaces it; the old session is closed with reason "reconnected".
func (t *Transport) attach(streamSID, callSID, from string, s *stream) {
	t.mu.Lock()
	var replaced *call
	if prev, ok := t.streams[callSID]; ok && callSID != "" && prev != streamSID {
		replaced = t.calls[prev]
		delete(t.calls, prev)
		t.emitLocked(transports.Event{Kind: transports.EventClose, SessionID: prev, Reason: "reconnected"})
	}
	if callSID != "" {
		t.streams[callSID] = streamSID
	}
	t.calls[streamSID] = &call{sid: callSID, stream: s}
	t.emitLocked(transports.Event{
		Kind:      transports.EventOpen,
		SessionID: streamSID,
		Media: transports.Media{
			Encoding:   "mulaw",
			SampleRate: 8000,
			TTSFormat:  "ulaw_8000",
			VoiceOnly:  true,
		},
		Meta: map[string]string{"call_sid": callSID, "from": from},
	})
	t.mu.Unlock()

	attrs := []any{slog.String("stream_id", streamSID), slog.String("call_sid", callSID)}
	if replaced != nil {
		replaced.stream.close()
		attrs = append(attrs, slog.Bool("replaced", true))
	}
	t.logger.Info("twilio_call_started", attrs...)
}

func (t *Transport) detach(streamSID, reason string) {
	t.mu.Lock()
	c, ok := t.calls[streamSID]
	if ok {
		delete(t.calls, streamSID)
		if t.streams[c.sid] == streamSID {
			delete(t.streams, c.sid)
		}
		t.emitLocked(transports.Event{Kind: transports.EventClose, SessionID: streamSID, Reason: reason})
	}
	t.mu.Unlock()
	if ok {
		c.stream.close()
		t.logger.Info("twilio_call_ended", slog.String("stream_id", streamSID), slog.String("reason", reason))
	}
}

func (t *Transport) stream(streamSID string) *stream {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c := t.calls[streamSID]; c != nil {
		return c.stream
	}
	return nil
}

func (t *Transport) callFor(streamSID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c := t.calls[streamSID]; c != nil {
		return c.sid
	}
	return ""
}

func (t *Transport) streamForCall(callSID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streams[callSID]
}

func (t *Transport) emit(ev transports.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitLocked(ev)
}

func (t *Transport) emitLocked(ev transports.Event) {
	if t.draining.Load() {
		return
	}
	if !transports.NonBlockingSend(t.recvCh, ev) {
		t.logger.Warn("twilio_event_dropped", slog.String("stream_id", ev.SessionID), slog.String("kind", string(ev.Kind)))
	}
}

var (
	_ transports.Transport      = (*Transport)(nil)
	_ transports.Hanger         = (*Transport)(nil)
	_ transports.Clearer        = (*Transport)(nil)
	_ transports.OutboundDialer = (*Transport)(nil)
	_ transports.ReadyReporter  = (*Transport)(nil)
)
