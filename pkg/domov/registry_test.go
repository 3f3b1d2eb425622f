package domov

import (
	"strings"
	"testing"

	"github.com/harunnryd/domov/pkg/adapters/stt"
	"github.com/harunnryd/domov/pkg/adapters/tts"
	"github.com/harunnryd/domov/pkg/transports/mock"
	"github.com/harunnryd/domov/pkg/transports/websocket"
)

func TestBuildVendorsFromRegistry(t *testing.T) {
	r := DefaultProviders()

	f, err := r.BuildSTT(VendorConfig{Provider: " Mock ", Settings: map[string]any{"transcripts": []any{"zapni obývák"}}})
	if err != nil || f == nil {
		t.Fatalf("build stt: %v", err)
	}
	rec, err := f(stt.Config{SessionID: "s1"})
	if err != nil {
		t.Fatalf("open stt: %v", err)
	}
	if rec.Name() != "mock_stt" {
		t.Fatalf("unexpected recognizer %q", rec.Name())
	}

	tf, err := r.BuildTTS(VendorConfig{Provider: "mock"})
	if err != nil || tf == nil {
		t.Fatalf("build tts: %v", err)
	}
	synth, err := tf(tts.Config{SessionID: "s1"})
	if err != nil || synth.Name() != "mock_tts" {
		t.Fatalf("open tts: %v", err)
	}
}

func TestBuildWithoutProviderDisablesSpeech(t *testing.T) {
	r := DefaultProviders()
	f, err := r.BuildSTT(VendorConfig{})
	if err != nil || f != nil {
		t.Fatalf("expected no recognizer, got %v %v", f != nil, err)
	}
	tf, err := r.BuildTTS(VendorConfig{Provider: "  "})
	if err != nil || tf != nil {
		t.Fatalf("expected no synthesizer, got %v %v", tf != nil, err)
	}
}

func TestBuildUnknownProvider(t *testing.T) {
	r := DefaultProviders()
	if _, err := r.BuildSTT(VendorConfig{Provider: "whisper"}); err == nil || !strings.Contains(err.Error(), "whisper") {
		t.Fatalf("expected unknown stt error, got %v", err)
	}
	if _, err := r.BuildTransport(TransportsConfig{Provider: "carrier-pigeon"}, TransportOptions{}); err == nil {
		t.Fatalf("expected unknown transport error")
	}
}

func TestBuildTransports(t *testing.T) {
	r := DefaultProviders()
	tr, err := r.BuildTransport(TransportsConfig{Provider: "MOCK"}, TransportOptions{})
	if err != nil {
		t.Fatalf("mock transport: %v", err)
	}
	if _, ok := tr.(*mock.Transport); !ok {
		t.Fatalf("expected mock transport, got %T", tr)
	}

	tr, err = r.BuildTransport(TransportsConfig{
		Provider: "websocket",
		Settings: map[string]any{"server_addr": "127.0.0.1:0"},
	}, TransportOptions{})
	if err != nil {
		t.Fatalf("websocket transport: %v", err)
	}
	if _, ok := tr.(*websocket.Transport); !ok {
		t.Fatalf("expected websocket transport, got %T", tr)
	}

	_, err = r.BuildTransport(TransportsConfig{
		Provider: "websocket",
		Settings: map[string]any{"no_such_key": true},
	}, TransportOptions{})
	if err == nil {
		t.Fatalf("expected unknown setting to be rejected")
	}
}
