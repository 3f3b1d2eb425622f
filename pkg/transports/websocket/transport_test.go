package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/domov/pkg/messages"
	"github.com/harunnryd/domov/pkg/transports"
)

func nextEvent(t *testing.T, tr *Transport) transports.Event {
	t.Helper()
	select {
	case ev := <-tr.Recv():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return transports.Event{}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestSessionRoundTrip(t *testing.T) {
	tr := New(Config{})
	srv := httptest.NewServer(tr.Handler())
	defer srv.Close()
	defer tr.Stop()

	conn := dial(t, srv)
	defer conn.Close()

	open := nextEvent(t, tr)
	if open.Kind != transports.EventOpen || open.SessionID == "" {
		t.Fatalf("expected open event, got %+v", open)
	}
	if open.Media.Encoding != "linear16" || open.Media.SampleRate != 16000 || open.Media.VoiceOnly {
		t.Fatalf("unexpected media %+v", open.Media)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat_input","text":"ahoj"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := nextEvent(t, tr)
	if msg.Kind != transports.EventMessage || string(msg.Data) != `{"type":"chat_input","text":"ahoj"}` {
		t.Fatalf("unexpected message event %+v", msg)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	audio := nextEvent(t, tr)
	if audio.Kind != transports.EventAudio || len(audio.Data) != 3 {
		t.Fatalf("unexpected audio event %+v", audio)
	}

	if err := tr.Send(context.Background(), open.SessionID, messages.Chat("Světlo rozsvíceno.")); err != nil {
		t.Fatalf("send: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", kind)
	}
	var out messages.Outbound
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Type != messages.OutChat || out.Data != "Světlo rozsvíceno." {
		t.Fatalf("unexpected outbound %+v", out)
	}

	if err := tr.SendAudio(context.Background(), open.SessionID, []byte{9, 9}); err != nil {
		t.Fatalf("send audio: %v", err)
	}
	kind, data, err = conn.ReadMessage()
	if err != nil || kind != websocket.BinaryMessage || len(data) != 2 {
		t.Fatalf("unexpected audio frame kind=%d len=%d err=%v", kind, len(data), err)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	closed := nextEvent(t, tr)
	if closed.Kind != transports.EventClose || closed.SessionID != open.SessionID {
		t.Fatalf("expected close event, got %+v", closed)
	}
}

func TestSendToUnknownSessionIsNoop(t *testing.T) {
	tr := New(Config{})
	defer tr.Stop()
	if err := tr.Send(context.Background(), "missing", messages.MicOn()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	var ready atomic.Bool
	tr := New(Config{}, WithReadiness(func(context.Context) bool { return ready.Load() }))
	srv := httptest.NewServer(tr.Handler())
	defer srv.Close()
	defer tr.Stop()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while backend is down, got %d", resp.StatusCode)
	}

	ready.Store(true)
	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRejectsForeignOrigin(t *testing.T) {
	tr := New(Config{AllowedOrigins: []string{"http://dum.local"}})
	srv := httptest.NewServer(tr.Handler())
	defer srv.Close()
	defer tr.Stop()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatalf("expected handshake to fail")
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(map[string]any{"server_addr": ":9000"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.ServerAddr != ":9000" || cfg.WebsocketPath != "/ws" || cfg.TTSFormat != "pcm_16000" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := ParseConfig(map[string]any{"bogus": 1}); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
