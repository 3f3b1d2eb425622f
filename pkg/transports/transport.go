// Package transports connects clients (browser UI, phone calls, the
// in-memory test client) to the assistant as per-session event streams.
package transports

import (
	"context"
	"strings"

	"github.com/harunnryd/domov/pkg/messages"
)

type EventKind string

const (
	// EventOpen starts a session; Media describes its audio.
	EventOpen EventKind = "open"
	// EventMessage carries one raw inbound JSON envelope.
	EventMessage EventKind = "message"
	// EventAudio carries caller audio.
	EventAudio EventKind = "audio"
	// EventClose ends a session.
	EventClose EventKind = "close"
)

// Media describes the audio of one session.
type Media struct {
	Encoding   string
	SampleRate int
	// TTSFormat is the synthesis output format the client can play.
	TTSFormat string
	// VoiceOnly sessions have no screen: replies are always spoken and
	// the session listens continuously.
	VoiceOnly bool
}

// Event is one thing that happened on a session.
type Event struct {
	Kind      EventKind
	SessionID string
	Data      []byte
	Media     Media
	Meta      map[string]string
	Reason    string
}

// Transport defines a vendor-agnostic I/O boundary for client sessions.
// Implementations are responsible for their own network lifecycle.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Recv() <-chan Event
	Send(ctx context.Context, sessionID string, msg messages.Outbound) error
	SendAudio(ctx context.Context, sessionID string, chunk []byte) error
}

// Hanger ends a session from the server side, e.g. hangs up a call.
type Hanger interface {
	Hangup(ctx context.Context, sessionID string) error
}

// Clearer drops audio the client has buffered but not yet played.
type Clearer interface {
	Clear(ctx context.Context, sessionID string) error
}

// OutboundDialer allows transports to initiate outbound calls.
type OutboundDialer interface {
	Dial(ctx context.Context, to, from, url string) (callSID string, err error)
}

// ReadyReporter allows transports to expose readiness metadata (e.g., webhook URLs).
// Implementations are optional and used for informational logging only.
type ReadyReporter interface {
	ReadyFields() map[string]any
}

// NonBlockingSend drops ev when ch is full.
func NonBlockingSend(ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}

// OriginAllowed reports whether a browser Origin header matches one of
// allowed. Entries are full origins ("https://ui.local:8080"), bare hosts
// ("ui.local:8080") or "*". Requests without an Origin are not browsers
// and always pass.
func OriginAllowed(origin string, allowed []string) bool {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return true
	}
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	for _, a := range allowed {
		a = strings.TrimRight(strings.TrimSpace(a), "/")
		switch {
		case a == "":
		case a == "*":
			return true
		case strings.Contains(a, "://"):
			if strings.EqualFold(a, origin) {
				return true
			}
		case strings.EqualFold(a, host):
			return true
		}
	}
	return false
}
