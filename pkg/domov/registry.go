package domov

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/domov/pkg/adapters/stt"
	"github.com/harunnryd/domov/pkg/adapters/tts"
	"github.com/harunnryd/domov/pkg/configutil"
	"github.com/harunnryd/domov/pkg/providers/deepgram"
	"github.com/harunnryd/domov/pkg/providers/elevenlabs"
	"github.com/harunnryd/domov/pkg/providers/mock"
	"github.com/harunnryd/domov/pkg/transports"
	mocktransport "github.com/harunnryd/domov/pkg/transports/mock"
	"github.com/harunnryd/domov/pkg/transports/twilio"
	"github.com/harunnryd/domov/pkg/transports/websocket"
)

type STTFactoryBuilder func(settings map[string]any) (stt.Factory, error)
type TTSFactoryBuilder func(settings map[string]any) (tts.Factory, error)

// TransportOptions are the engine hooks a transport may use.
type TransportOptions struct {
	Logger *slog.Logger
	Ready  func(ctx context.Context) bool
}

type TransportBuilder func(settings map[string]any, opts TransportOptions) (transports.Transport, error)

// ProviderRegistry maps provider names from the configuration to
// constructors. Names are case-insensitive.
type ProviderRegistry struct {
	stt        map[string]STTFactoryBuilder
	tts        map[string]TTSFactoryBuilder
	transports map[string]TransportBuilder
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		stt:        make(map[string]STTFactoryBuilder),
		tts:        make(map[string]TTSFactoryBuilder),
		transports: make(map[string]TransportBuilder),
	}
}

// DefaultProviders knows every built-in vendor and transport.
func DefaultProviders() *ProviderRegistry {
	r := NewProviderRegistry()
	r.RegisterSTT("deepgram", func(settings map[string]any) (stt.Factory, error) {
		s, err := deepgram.ParseSettings(settings)
		if err != nil {
			return nil, err
		}
		return deepgram.Factory(s), nil
	})
	r.RegisterSTT("mock", func(settings map[string]any) (stt.Factory, error) {
		var cfg mock.STTConfig
		if err := configutil.DecodeSettings(settings, &cfg); err != nil {
			return nil, fmt.Errorf("vendors.stt.settings: %w", err)
		}
		return func(stt.Config) (stt.StreamingSTT, error) { return mock.NewSTT(cfg), nil }, nil
	})
	r.RegisterTTS("elevenlabs", func(settings map[string]any) (tts.Factory, error) {
		s, err := elevenlabs.ParseSettings(settings)
		if err != nil {
			return nil, err
		}
		return elevenlabs.Factory(s), nil
	})
	r.RegisterTTS("mock", func(settings map[string]any) (tts.Factory, error) {
		var cfg mock.TTSConfig
		if err := configutil.DecodeSettings(settings, &cfg); err != nil {
			return nil, fmt.Errorf("vendors.tts.settings: %w", err)
		}
		return func(tts.Config) (tts.StreamingTTS, error) { return mock.NewTTS(cfg), nil }, nil
	})
	r.RegisterTransport("websocket", func(settings map[string]any, opts TransportOptions) (transports.Transport, error) {
		cfg, err := websocket.ParseConfig(settings)
		if err != nil {
			return nil, fmt.Errorf("transports.settings: %w", err)
		}
		return websocket.New(cfg, websocket.WithLogger(opts.Logger), websocket.WithReadiness(opts.Ready)), nil
	})
	r.RegisterTransport("twilio", func(settings map[string]any, opts TransportOptions) (transports.Transport, error) {
		cfg, err := twilio.ParseConfig(settings)
		if err != nil {
			return nil, fmt.Errorf("transports.settings: %w", err)
		}
		return twilio.New(cfg, twilio.WithLogger(opts.Logger)), nil
	})
	r.RegisterTransport("mock", func(map[string]any, TransportOptions) (transports.Transport, error) {
		return mocktransport.New(), nil
	})
	return r
}

func (r *ProviderRegistry) RegisterSTT(name string, builder STTFactoryBuilder) {
	r.stt[providerKey(name)] = builder
}

func (r *ProviderRegistry) RegisterTTS(name string, builder TTSFactoryBuilder) {
	r.tts[providerKey(name)] = builder
}

func (r *ProviderRegistry) RegisterTransport(name string, builder TransportBuilder) {
	r.transports[providerKey(name)] = builder
}

// BuildSTT returns nil for an empty provider: the assistant then runs
// without speech input.
func (r *ProviderRegistry) BuildSTT(cfg VendorConfig) (stt.Factory, error) {
	if providerKey(cfg.Provider) == "" {
		return nil, nil
	}
	fn := r.stt[providerKey(cfg.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", cfg.Provider)
	}
	return fn(cfg.Settings)
}

// BuildTTS returns nil for an empty provider.
func (r *ProviderRegistry) BuildTTS(cfg VendorConfig) (tts.Factory, error) {
	if providerKey(cfg.Provider) == "" {
		return nil, nil
	}
	fn := r.tts[providerKey(cfg.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("tts provider not registered: %s", cfg.Provider)
	}
	return fn(cfg.Settings)
}

func (r *ProviderRegistry) BuildTransport(cfg TransportsConfig, opts TransportOptions) (transports.Transport, error) {
	fn := r.transports[providerKey(cfg.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("transport provider not registered: %s", cfg.Provider)
	}
	return fn(cfg.Settings, opts)
}

func providerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
