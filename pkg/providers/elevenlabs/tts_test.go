package elevenlabs

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/domov/pkg/adapters/tts"
)

func TestParseSettingsDefaults(t *testing.T) {
	s, err := ParseSettings(map[string]any{"api_key": "k", "voice_id": "v"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.ModelID != "eleven_multilingual_v2" || s.OutputFormat != "pcm_16000" || s.BaseURL != defaultBaseURL {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if _, err := ParseSettings(map[string]any{"api_key": "k"}); err == nil {
		t.Fatalf("expected missing voice_id error")
	}
}

func TestSendTextStreamsAudioUntilFinal(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotText := make(chan string, 4)
	gotPath := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath <- r.URL.Path + "?" + r.URL.RawQuery
		if r.Header.Get("xi-api-key") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			text, _ := msg["text"].(string)
			if text == "" {
				break
			}
			gotText <- text
		}
		for _, part := range []string{"ahoj", "svete"} {
			_ = conn.WriteJSON(map[string]any{"audio": base64.StdEncoding.EncodeToString([]byte(part))})
		}
		_ = conn.WriteJSON(map[string]any{"isFinal": true})
	}))
	defer srv.Close()

	s := New(Settings{
		APIKey:       "secret",
		VoiceID:      "voice-1",
		ModelID:      "m",
		OutputFormat: "pcm_16000",
		BaseURL:      "ws" + strings.TrimPrefix(srv.URL, "http"),
	}, tts.Config{SessionID: "s1", Format: "ulaw_8000"})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Close()

	if err := s.SendText("Provádím akci."); err != nil {
		t.Fatalf("send: %v", err)
	}

	var audio []string
	timeout := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case c := <-s.Results():
			if len(c.Audio) > 0 {
				audio = append(audio, string(c.Audio))
			}
			done = c.Final
		case <-timeout:
			t.Fatalf("timed out waiting for final chunk, got %v", audio)
		}
	}
	if strings.Join(audio, " ") != "ahoj svete" {
		t.Fatalf("unexpected audio %v", audio)
	}
	if p := <-gotPath; p != "/v1/text-to-speech/voice-1/stream-input?model_id=m&output_format=ulaw_8000" {
		t.Fatalf("unexpected path %s", p)
	}
	<-gotText
	if text := <-gotText; text != "Provádím akci. " {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestStartRequiresCredentials(t *testing.T) {
	if err := New(Settings{}, tts.Config{}).Start(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
