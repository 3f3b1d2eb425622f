package deepgram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/harunnryd/domov/pkg/adapters/stt"
	"github.com/harunnryd/domov/pkg/configutil"
	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/logging"
	"github.com/harunnryd/domov/pkg/redact"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// Settings is the vendors.stt.settings section for deepgram.
type Settings struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Language       string `mapstructure:"language"`
	Encoding       string `mapstructure:"encoding"`
	SampleRate     int    `mapstructure:"sample_rate"`
	Interim        bool   `mapstructure:"interim"`
	UtteranceEndMS int    `mapstructure:"utterance_end_ms"`
}

var settingsSchema = configutil.Schema{
	Required: []string{"api_key"},
	Optional: []string{"model", "language", "encoding", "sample_rate", "interim", "utterance_end_ms"},
}

// ParseSettings validates and decodes a settings map, filling defaults
// for Czech recognition.
func ParseSettings(raw map[string]any) (Settings, error) {
	var s Settings
	if err := configutil.Section(raw, settingsSchema, &s); err != nil {
		return Settings{}, fmt.Errorf("vendors.stt.settings: %w", err)
	}
	if s.Model == "" {
		s.Model = "nova-2"
	}
	if s.Language == "" {
		s.Language = "cs"
	}
	if s.UtteranceEndMS > 0 {
		s.Interim = true
	}
	return s, nil
}

// Factory returns an stt.Factory over settings. Session values override
// encoding and sample rate when set.
func Factory(s Settings) stt.Factory {
	return func(cfg stt.Config) (stt.StreamingSTT, error) {
		return New(s, cfg), nil
	}
}

type StreamingSTT struct {
	settings Settings
	cfg      stt.Config
	dgClient *client.WSCallback
	out      chan stt.Transcript
	ctx      context.Context
	cancel   context.CancelFunc
	pipeR    *io.PipeReader
	pipeW    *io.PipeWriter
	logger   *slog.Logger

	mu       sync.Mutex
	closed   bool
	metaSeen bool
}

func New(s Settings, cfg stt.Config) *StreamingSTT {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = s.SampleRate
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Encoding == "" {
		cfg.Encoding = s.Encoding
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	if cfg.Language == "" {
		cfg.Language = s.Language
	}
	return &StreamingSTT{
		settings: s,
		cfg:      cfg,
		out:      make(chan stt.Transcript, 64),
		logger:   logging.NewComponentLogger(slog.Default(), "deepgram_stt").With(slog.String("session_id", cfg.SessionID)),
	}
}

func (s *StreamingSTT) Name() string { return "deepgram_streaming" }

func (s *StreamingSTT) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.pipeR, s.pipeW = io.Pipe()

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:          s.settings.Model,
		Language:       s.cfg.Language,
		Encoding:       s.cfg.Encoding,
		SampleRate:     s.cfg.SampleRate,
		InterimResults: s.settings.Interim,
		VadEvents:      s.settings.UtteranceEndMS > 0,
		SmartFormat:    true,
	}
	if s.settings.UtteranceEndMS > 0 {
		transcriptOptions.UtteranceEndMs = fmt.Sprintf("%d", s.settings.UtteranceEndMS)
	}

	s.logger.Info("deepgram_connecting",
		slog.String("model", s.settings.Model),
		slog.String("language", s.cfg.Language),
		slog.String("encoding", s.cfg.Encoding),
		slog.Int("sample_rate", s.cfg.SampleRate))

	dgClient, err := client.NewWSUsingCallback(s.ctx, s.settings.APIKey, clientOptions, transcriptOptions, &callback{parent: s})
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSTTConnect)
	}
	s.dgClient = dgClient
	if connected := s.dgClient.Connect(); !connected {
		return errorsx.New(errorsx.ReasonSTTConnect, "deepgram connection failed")
	}
	s.logger.Info("deepgram_connected")

	go func() {
		if err := s.dgClient.Stream(s.pipeR); err != nil && s.ctx.Err() == nil {
			s.logger.Error("deepgram_stream_error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (s *StreamingSTT) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.pipeW != nil {
		_ = s.pipeW.Close()
	}
	if s.dgClient != nil {
		s.dgClient.Stop()
	}
	close(s.out)
	s.logger.Info("deepgram_closed")
	return nil
}

func (s *StreamingSTT) SendAudio(chunk []byte) error {
	if s.pipeW == nil {
		return errorsx.New(errorsx.ReasonSTTSend, "not started")
	}
	if _, err := s.pipeW.Write(chunk); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSTTSend)
	}
	return nil
}

func (s *StreamingSTT) Results() <-chan stt.Transcript { return s.out }

func (s *StreamingSTT) emit(t stt.Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- t:
	default:
		s.logger.Warn("deepgram_out_channel_full")
	}
}

type callback struct {
	parent *StreamingSTT
}

func (c *callback) Open(*msginterfaces.OpenResponse) error {
	c.parent.logger.Debug("deepgram_connection_opened")
	return nil
}

func (c *callback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	text := strings.TrimSpace(mr.Channel.Alternatives[0].Transcript)
	if text == "" && !mr.SpeechFinal {
		return nil
	}
	c.parent.logger.Debug("transcript_received",
		slog.String("transcript", redact.Text(text)),
		slog.Bool("is_final", mr.IsFinal),
		slog.Bool("speech_final", mr.SpeechFinal))
	c.parent.emit(stt.Transcript{Text: text, Final: mr.IsFinal || mr.SpeechFinal, EndOfSpeech: mr.SpeechFinal})
	return nil
}

func (c *callback) Metadata(md *msginterfaces.MetadataResponse) error {
	c.parent.mu.Lock()
	first := !c.parent.metaSeen
	c.parent.metaSeen = true
	c.parent.mu.Unlock()
	if first {
		c.parent.logger.Info("deepgram_metadata_received", slog.String("request_id", md.RequestID))
	}
	return nil
}

func (c *callback) SpeechStarted(*msginterfaces.SpeechStartedResponse) error {
	c.parent.logger.Debug("speech_started_event")
	return nil
}

func (c *callback) UtteranceEnd(*msginterfaces.UtteranceEndResponse) error {
	c.parent.logger.Debug("utterance_end_event")
	c.parent.emit(stt.Transcript{EndOfSpeech: true})
	return nil
}

func (c *callback) Close(*msginterfaces.CloseResponse) error {
	c.parent.logger.Info("deepgram_connection_closed")
	return nil
}

func (c *callback) Error(er *msginterfaces.ErrorResponse) error {
	c.parent.logger.Error("deepgram_error",
		slog.String("error_code", er.ErrCode),
		slog.String("error_message", er.ErrMsg))
	return nil
}

func (c *callback) UnhandledEvent(byData []byte) error {
	c.parent.logger.Debug("deepgram_unhandled_event", slog.Int("size_bytes", len(byData)))
	return nil
}

var _ stt.StreamingSTT = (*StreamingSTT)(nil)
