package deepgram

import (
	"testing"

	"github.com/harunnryd/domov/pkg/adapters/stt"
	"github.com/harunnryd/domov/pkg/errorsx"
)

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings(map[string]any{"api_key": "k", "utterance_end_ms": "1000"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Model != "nova-2" || s.Language != "cs" || s.UtteranceEndMS != 1000 || !s.Interim {
		t.Fatalf("unexpected settings %+v", s)
	}

	_, err = ParseSettings(map[string]any{"model": "nova-2"})
	if !errorsx.HasReason(err, errorsx.ReasonConfigInvalid) {
		t.Fatalf("expected config_invalid, got %v", err)
	}
	_, err = ParseSettings(map[string]any{"api_key": "k", "bogus": 1})
	if err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestNewAppliesSessionOverrides(t *testing.T) {
	s := New(Settings{Encoding: "linear16", SampleRate: 16000, Language: "cs"}, stt.Config{Encoding: "mulaw", SampleRate: 8000})
	if s.cfg.Encoding != "mulaw" || s.cfg.SampleRate != 8000 || s.cfg.Language != "cs" {
		t.Fatalf("unexpected config %+v", s.cfg)
	}
	if err := s.SendAudio([]byte{1}); !errorsx.HasReason(err, errorsx.ReasonSTTSend) {
		t.Fatalf("expected stt_send before start, got %v", err)
	}
}
