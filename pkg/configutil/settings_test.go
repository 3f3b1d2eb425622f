package configutil

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/domov/pkg/errorsx"
)

type deepgramLike struct {
	APIKey     string `mapstructure:"api_key"`
	SampleRate int    `mapstructure:"sample_rate"`
	Interim    *bool  `mapstructure:"interim"`
}

func TestDecodeSettingsNormalizesKeys(t *testing.T) {
	var out deepgramLike
	err := DecodeSettings(map[string]any{
		"API-Key":     "secret",
		"sample_rate": "16000",
		"interim":     "true",
	}, &out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.APIKey != "secret" || out.SampleRate != 16000 {
		t.Fatalf("unexpected decode result: %+v", out)
	}
	if !BoolValue(out.Interim, false) {
		t.Fatalf("expected interim true")
	}
}

func TestValidateSettingsReportsMissingAndUnknown(t *testing.T) {
	schema := Schema{Required: []string{"api_key"}, Optional: []string{"model"}}
	err := ValidateSettings(map[string]any{"model": "nova-2", "colour": "red"}, schema)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "missing: api_key") || !strings.Contains(err.Error(), "unknown: colour") {
		t.Fatalf("unexpected message: %v", err)
	}
	if !errorsx.HasReason(err, errorsx.ReasonConfigInvalid) {
		t.Fatalf("expected config_invalid reason")
	}
}

func TestValidateSettingsKeyVariants(t *testing.T) {
	schema := Schema{Required: []string{"api_key", "voice_id"}}
	err := ValidateSettings(map[string]any{"apiKey": "k", "VOICE-ID": ""}, schema)
	var serr *SettingsError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SettingsError, got %v", err)
	}
	if len(serr.Unknown) != 0 || len(serr.Missing) != 1 || serr.Missing[0] != "voice_id" {
		t.Fatalf("unexpected result %+v", serr)
	}
	if err := ValidateSettings(map[string]any{"Api_Key": "k", "voiceId": "v"}, schema); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}
}

func TestSectionRejectsBlankRequired(t *testing.T) {
	var out deepgramLike
	err := Section(map[string]any{"api_key": "  "}, Schema{Required: []string{"api_key"}, AllowUnknown: true}, &out)
	if err == nil {
		t.Fatalf("expected blank api_key to be rejected")
	}
}

func TestDurationMS(t *testing.T) {
	if got := DurationMS(0, time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := DurationMS(250, time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", got)
	}
}
