// Package websocket serves the browser UI: one websocket connection per
// session carrying JSON messages and binary microphone audio.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/harunnryd/domov/pkg/configutil"
	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/logging"
	"github.com/harunnryd/domov/pkg/messages"
	"github.com/harunnryd/domov/pkg/transports"
)

type Config struct {
	ServerAddr     string   `mapstructure:"server_addr"`
	WebsocketPath  string   `mapstructure:"ws_path"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	StaticDir      string   `mapstructure:"static_dir"`
	Encoding       string   `mapstructure:"encoding"`
	SampleRate     int      `mapstructure:"sample_rate"`
	TTSFormat      string   `mapstructure:"tts_format"`
}

var settingsSchema = configutil.Schema{
	Optional: []string{"server_addr", "ws_path", "allowed_origins", "static_dir", "encoding", "sample_rate", "tts_format"},
}

// ParseConfig decodes transports.settings for the websocket provider.
func ParseConfig(raw map[string]any) (Config, error) {
	var c Config
	if err := configutil.Section(raw, settingsSchema, &c); err != nil {
		return Config{}, err
	}
	return c.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8765"
	}
	if c.WebsocketPath == "" {
		c.WebsocketPath = "/ws"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.Encoding == "" {
		c.Encoding = "linear16"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.TTSFormat == "" {
		c.TTSFormat = "pcm_16000"
	}
	return c
}

// Option customizes a Transport.
type Option func(*Transport)

// WithReadiness reports backend readiness on /readyz.
func WithReadiness(fn func(ctx context.Context) bool) Option {
	return func(t *Transport) { t.ready = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = logging.NewComponentLogger(l, "ws_transport") }
}

type Transport struct {
	cfg      Config
	server   *http.Server
	router   chi.Router
	upgrader websocket.Upgrader
	recvCh   chan transports.Event
	ready    func(ctx context.Context) bool
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	draining atomic.Bool
	stopOnce sync.Once
}

func New(cfg Config, opts ...Option) *Transport {
	cfg = cfg.withDefaults()
	t := &Transport{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		recvCh:   make(chan transports.Event, 512),
		sessions: make(map[string]*session),
		logger:   logging.NewComponentLogger(nil, "ws_transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.upgrader.CheckOrigin = t.checkOrigin
	t.router = t.routes()
	return t
}

func (t *Transport) Name() string { return "websocket" }

func (t *Transport) Recv() <-chan transports.Event { return t.recvCh }

// Handler exposes the router, used by tests and embedding servers.
func (t *Transport) Handler() http.Handler { return t.router }

func (t *Transport) ReadyFields() map[string]any {
	return map[string]any{
		"addr":    t.cfg.ServerAddr,
		"ws_path": t.cfg.WebsocketPath,
	}
}

func (t *Transport) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: t.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if t.draining.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "reason": "draining"})
			return
		}
		if t.ready != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
			defer cancel()
			if !t.ready(ctx) {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "reason": "backend_unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get(t.cfg.WebsocketPath, t.serveWS)
	if t.cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(t.cfg.StaticDir)))
	}
	return r
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
			t.logger.Error("ws_transport_server_error", slog.String("error", err.Error()))
		}
	}()
	t.logger.Info("ws_transport_started", slog.String("addr", t.cfg.ServerAddr), slog.String("path", t.cfg.WebsocketPath))
	return nil
}

func (t *Transport) Stop() error {
	t.stopOnce.Do(func() {
		t.draining.Store(true)
		if t.server != nil {
			_ = t.server.Close()
		}
		t.mu.Lock()
		for _, sess := range t.sessions {
			_ = sess.close()
		}
		t.sessions = make(map[string]*session)
		close(t.recvCh)
		t.mu.Unlock()
	})
	return nil
}

func (t *Transport) Send(_ context.Context, sessionID string, msg messages.Outbound) error {
	sess := t.session(sessionID)
	if sess == nil {
		return nil
	}
	b, err := msg.Encode()
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	return sess.enqueue(websocket.TextMessage, b)
}

func (t *Transport) SendAudio(_ context.Context, sessionID string, chunk []byte) error {
	sess := t.session(sessionID)
	if sess == nil {
		return nil
	}
	return sess.enqueue(websocket.BinaryMessage, append([]byte(nil), chunk...))
}

// Hangup closes the session's connection.
func (t *Transport) Hangup(_ context.Context, sessionID string) error {
	if sess := t.session(sessionID); sess != nil {
		return sess.close()
	}
	return nil
}

func (t *Transport) serveWS(w http.ResponseWriter, r *http.Request) {
	if t.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	id := uuid.NewString()
	sess := &session{conn: conn, sendCh: make(chan outgoing, 256)}
	t.mu.Lock()
	if t.draining.Load() {
		t.mu.Unlock()
		_ = conn.Close()
		return
	}
	t.sessions[id] = sess
	t.emitLocked(transports.Event{
		Kind:      transports.EventOpen,
		SessionID: id,
		Media: transports.Media{
			Encoding:   t.cfg.Encoding,
			SampleRate: t.cfg.SampleRate,
			TTSFormat:  t.cfg.TTSFormat,
		},
		Meta: map[string]string{"remote_addr": r.RemoteAddr},
	})
	t.mu.Unlock()
	go sess.loop()
	t.logger.Info("ws_session_opened", slog.String("session_id", id))

	reason := "client_closed"
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = "read_error"
			}
			break
		}
		switch kind {
		case websocket.TextMessage:
			t.emit(transports.Event{Kind: transports.EventMessage, SessionID: id, Data: data})
		case websocket.BinaryMessage:
			t.emit(transports.Event{Kind: transports.EventAudio, SessionID: id, Data: data})
		}
	}
	t.detach(id, reason)
}

func (t *Transport) detach(id, reason string) {
	t.mu.Lock()
	sess := t.sessions[id]
	delete(t.sessions, id)
	if sess != nil {
		t.emitLocked(transports.Event{Kind: transports.EventClose, SessionID: id, Reason: reason})
	}
	t.mu.Unlock()
	if sess != nil {
		_ = sess.close()
		t.logger.Info("ws_session_closed", slog.String("session_id", id), slog.String("reason", reason))
	}
}

func (t *Transport) session(id string) *session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[id]
}

func (t *Transport) emit(ev transports.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitLocked(ev)
}

// emitLocked must hold mu so Stop cannot close recvCh underneath it.
func (t *Transport) emitLocked(ev transports.Event) {
	if t.draining.Load() {
		return
	}
	if !transports.NonBlockingSend(t.recvCh, ev) {
		t.logger.Warn("ws_event_dropped", slog.String("session_id", ev.SessionID), slog.String("kind", string(ev.Kind)))
	}
}

func (t *Transport) checkOrigin(r *http.Request) bool {
	return transports.OriginAllowed(r.Header.Get("Origin"), t.cfg.AllowedOrigins)
}

type outgoing struct {
	kind int
	data []byte
}

type session struct {
	conn   *websocket.Conn
	sendCh chan outgoing
	mu     sync.Mutex
	closed atomic.Bool
}

func (s *session) enqueue(kind int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return nil
	}
	select {
	case s.sendCh <- outgoing{kind: kind, data: data}:
		return nil
	default:
		return errorsx.New(errorsx.ReasonTransportSend, "send buffer full")
	}
}

// loop writes queued frames and closes the connection once the queue is
// closed, so messages sent before a hangup still reach the client.
func (s *session) loop() {
	for msg := range s.sendCh {
		_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := s.conn.WriteMessage(msg.kind, msg.data); err != nil {
			_ = s.conn.Close()
		}
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = s.conn.Close()
}

func (s *session) close() error {
	s.mu.Lock()
	if s.closed.CompareAndSwap(false, true) {
		close(s.sendCh)
	}
	s.mu.Unlock()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

var _ transports.Transport = (*Transport)(nil)
var _ transports.Hanger = (*Transport)(nil)
