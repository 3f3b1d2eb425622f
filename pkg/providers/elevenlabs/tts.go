package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/domov/pkg/adapters/tts"
	"github.com/harunnryd/domov/pkg/configutil"
	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/logging"
)

const defaultBaseURL = "wss://api.elevenlabs.io"

// Settings is the vendors.tts.settings section for elevenlabs.
type Settings struct {
	APIKey       string  `mapstructure:"api_key"`
	VoiceID      string  `mapstructure:"voice_id"`
	ModelID      string  `mapstructure:"model_id"`
	OutputFormat string  `mapstructure:"output_format"`
	BaseURL      string  `mapstructure:"base_url"`
	Stability    float64 `mapstructure:"stability"`
	Similarity   float64 `mapstructure:"similarity_boost"`
}

var settingsSchema = configutil.Schema{
	Required: []string{"api_key", "voice_id"},
	Optional: []string{"model_id", "output_format", "base_url", "stability", "similarity_boost"},
}

func ParseSettings(raw map[string]any) (Settings, error) {
	var s Settings
	if err := configutil.Section(raw, settingsSchema, &s); err != nil {
		return Settings{}, fmt.Errorf("vendors.tts.settings: %w", err)
	}
	if s.ModelID == "" {
		s.ModelID = "eleven_multilingual_v2"
	}
	if s.OutputFormat == "" {
		s.OutputFormat = "pcm_16000"
	}
	if s.BaseURL == "" {
		s.BaseURL = defaultBaseURL
	}
	if s.Stability == 0 {
		s.Stability = 0.5
	}
	if s.Similarity == 0 {
		s.Similarity = 0.8
	}
	return s, nil
}

// Factory returns a tts.Factory over settings. A session Format
// overrides the configured output format.
func Factory(s Settings) tts.Factory {
	return func(cfg tts.Config) (tts.StreamingTTS, error) {
		return New(s, cfg), nil
	}
}

// ElevenLabsTTS synthesizes each utterance over its own stream-input
// connection; the vendor's isFinal message ends the utterance.
type ElevenLabsTTS struct {
	settings Settings
	cfg      tts.Config
	out      chan tts.Chunk
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func New(s Settings, cfg tts.Config) *ElevenLabsTTS {
	if cfg.Format != "" {
		s.OutputFormat = cfg.Format
	}
	return &ElevenLabsTTS{
		settings: s,
		cfg:      cfg,
		out:      make(chan tts.Chunk, 256),
		logger:   logging.NewComponentLogger(slog.Default(), "elevenlabs_tts").With(slog.String("session_id", cfg.SessionID)),
	}
}

func (s *ElevenLabsTTS) Name() string { return "elevenlabs_tts" }

func (s *ElevenLabsTTS) Start(ctx context.Context) error {
	if s.settings.APIKey == "" || s.settings.VoiceID == "" {
		return errorsx.New(errorsx.ReasonTTSConnect, "missing elevenlabs config")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	return nil
}

func (s *ElevenLabsTTS) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.closeConnLocked()
	close(s.out)
	return nil
}

func (s *ElevenLabsTTS) SendText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if s.ctx == nil {
		return errorsx.New(errorsx.ReasonTTSSend, "not started")
	}
	u, err := s.buildURL()
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTTSConnect)
	}
	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	conn, resp, err := dialer.DialContext(s.ctx, u, http.Header{"xi-api-key": []string{s.settings.APIKey}})
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %s)", err, resp.Status)
		}
		return errorsx.Wrap(err, errorsx.ReasonTTSConnect)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return errorsx.New(errorsx.ReasonTTSSend, "closed")
	}
	s.closeConnLocked()
	s.conn = conn
	s.mu.Unlock()

	messages := []map[string]any{
		{
			"text": " ",
			"voice_settings": map[string]any{
				"stability":        s.settings.Stability,
				"similarity_boost": s.settings.Similarity,
			},
		},
		{"text": text + " ", "try_trigger_generation": true},
		{"text": ""},
	}
	for _, m := range messages {
		if err := conn.WriteJSON(m); err != nil {
			_ = conn.Close()
			return errorsx.Wrap(err, errorsx.ReasonTTSSend)
		}
	}
	s.logger.Debug("tts_text_sent", slog.Int("chars", len(text)))
	go s.readLoop(conn)
	return nil
}

// Flush drops the utterance in flight and any buffered audio.
func (s *ElevenLabsTTS) Flush() {
	s.mu.Lock()
	s.closeConnLocked()
	s.mu.Unlock()
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

func (s *ElevenLabsTTS) Results() <-chan tts.Chunk { return s.out }

func (s *ElevenLabsTTS) buildURL() (string, error) {
	base, err := url.Parse(strings.TrimRight(s.settings.BaseURL, "/"))
	if err != nil {
		return "", err
	}
	base.Path += "/v1/text-to-speech/" + url.PathEscape(s.settings.VoiceID) + "/stream-input"
	q := url.Values{}
	q.Set("model_id", s.settings.ModelID)
	q.Set("output_format", s.settings.OutputFormat)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

type streamMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
}

func (s *ElevenLabsTTS) readLoop(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.logger.Warn("tts_read_failed", slog.String("error", err.Error()))
			}
			s.emit(conn, tts.Chunk{Final: true})
			return
		}
		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("tts_message_ignored", slog.Int("size_bytes", len(data)))
			continue
		}
		if msg.Audio != "" {
			raw, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				s.logger.Warn("tts_audio_decode_failed", slog.String("error", err.Error()))
			} else {
				s.emit(conn, tts.Chunk{Audio: raw})
			}
		}
		if msg.IsFinal {
			s.emit(conn, tts.Chunk{Final: true})
			return
		}
	}
}

// emit forwards a chunk unless conn was flushed or replaced.
func (s *ElevenLabsTTS) emit(conn *websocket.Conn, c tts.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.conn != conn {
		return
	}
	select {
	case s.out <- c:
	default:
		s.logger.Warn("tts_output_buffer_full")
	}
}

func (s *ElevenLabsTTS) closeConnLocked() {
	if s.conn == nil {
		return
	}
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = s.conn.Close()
	s.conn = nil
}

var _ tts.StreamingTTS = (*ElevenLabsTTS)(nil)
