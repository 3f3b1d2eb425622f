package twilio

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/transports"
)

// streamEvent is one inbound Media Streams message.
type streamEvent struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
	Start     *struct {
		CallSID          string            `json:"callSid"`
		StreamSID        string            `json:"streamSid"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start,omitempty"`
	Media *struct {
		Track   string `json:"track"`
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
	Stop *struct {
		Reason string `json:"reason"`
	} `json:"stop,omitempty"`
}

// outboundMedia and outboundClear are the messages the assistant writes
// back into the stream.
type outboundMedia struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

type outboundClear struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
}

func (t *Transport) serveStream(w http.ResponseWriter, r *http.Request) {
	if t.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var sid string
	reason := "failed"
	defer func() {
		if sid != "" {
			t.detach(sid, reason)
		}
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev streamEvent
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		switch ev.Event {
		case "start":
			if ev.Start == nil || ev.Start.StreamSID == "" {
				continue
			}
			sid = ev.Start.StreamSID
			s := newStream(sid, conn)
			go s.writeLoop()
			t.attach(sid, ev.Start.CallSID, ev.Start.CustomParameters["from"], s)
		case "media":
			if sid == "" || ev.Media == nil || (ev.Media.Track != "" && ev.Media.Track != "inbound") {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(ev.Media.Payload)
			if err != nil {
				continue
			}
			t.emit(transports.Event{Kind: transports.EventAudio, SessionID: sid, Data: audio})
		case "stop":
			reason = "completed"
			if ev.Stop != nil {
				if r := callEndReason(ev.Stop.Reason); r != "" {
					reason = r
				}
			}
			return
		}
	}
}

// stream writes outbound messages for one call on its own goroutine.
type stream struct {
	sid  string
	conn *websocket.Conn
	out  chan []byte

	mu     sync.Mutex
	closed bool
}

func newStream(sid string, conn *websocket.Conn) *stream {
	return &stream{sid: sid, conn: conn, out: make(chan []byte, 256)}
}

func (s *stream) sendMedia(chunk []byte) error {
	msg := outboundMedia{Event: "media", StreamSID: s.sid}
	msg.Media.Payload = base64.StdEncoding.EncodeToString(chunk)
	return s.enqueue(msg)
}

func (s *stream) sendClear() error {
	return s.enqueue(outboundClear{Event: "clear", StreamSID: s.sid})
}

// enqueue drops the message when the writer is backed up; the caller
// hears a gap rather than the dialog stalling.
func (s *stream) enqueue(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.out <- b:
	default:
	}
	return nil
}

func (s *stream) writeLoop() {
	for b := range s.out {
		if s.conn == nil {
			continue
		}
		_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (s *stream) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// callEndReason maps Twilio call statuses and stream stop reasons onto
// the close reasons the assistant logs. In-flight statuses map to "".
func callEndReason(raw string) string {
	status := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	if status == "" {
		return ""
	}
	if r, ok := endReasons[status]; ok {
		return r
	}
	return "unknown"
}

var endReasons = map[string]string{
	"queued":            "",
	"ringing":           "",
	"in_progress":       "",
	"inprogress":        "",
	"completed":         "completed",
	"call_ended":        "completed",
	"completed_by_user": "completed",
	"hangup":            "completed",
	"busy":              "busy",
	"no_answer":         "no_answer",
	"noanswer":          "no_answer",
	"failed":            "failed",
	"error":             "failed",
	"canceled":          "failed",
	"cancelled":         "failed",
}
