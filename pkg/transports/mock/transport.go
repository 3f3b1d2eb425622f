// Package mock is an in-memory transport for local runs and tests.
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/harunnryd/domov/pkg/messages"
	"github.com/harunnryd/domov/pkg/transports"
)

// Transport implements transports.Transport without any network
// dependency. Outbound traffic is recorded per session.
type Transport struct {
	recvCh chan transports.Event
	closed atomic.Bool
	mu     sync.Mutex
	sent   map[string][]messages.Outbound
	audio  map[string][][]byte
	hungUp map[string]bool
	notify chan struct{}
}

func New() *Transport {
	return &Transport{
		recvCh: make(chan transports.Event, 256),
		sent:   make(map[string][]messages.Outbound),
		audio:  make(map[string][][]byte),
		hungUp: make(map[string]bool),
		notify: make(chan struct{}, 1),
	}
}

func (t *Transport) Name() string { return "mock" }

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		<-ctx.Done()
		_ = t.Stop()
	}()
	return nil
}

func (t *Transport) Stop() error {
	if t.closed.CompareAndSwap(false, true) {
		t.mu.Lock()
		close(t.recvCh)
		t.mu.Unlock()
	}
	return nil
}

func (t *Transport) Recv() <-chan transports.Event { return t.recvCh }

func (t *Transport) Send(_ context.Context, sessionID string, msg messages.Outbound) error {
	t.mu.Lock()
	t.sent[sessionID] = append(t.sent[sessionID], msg)
	t.mu.Unlock()
	t.signal()
	return nil
}

func (t *Transport) SendAudio(_ context.Context, sessionID string, chunk []byte) error {
	t.mu.Lock()
	t.audio[sessionID] = append(t.audio[sessionID], append([]byte(nil), chunk...))
	t.mu.Unlock()
	t.signal()
	return nil
}

func (t *Transport) Hangup(_ context.Context, sessionID string) error {
	t.mu.Lock()
	t.hungUp[sessionID] = true
	t.mu.Unlock()
	t.signal()
	return nil
}

// Open starts a session.
func (t *Transport) Open(sessionID string, media transports.Media) {
	t.push(transports.Event{Kind: transports.EventOpen, SessionID: sessionID, Media: media})
}

// Push injects a raw inbound message.
func (t *Transport) Push(sessionID string, raw []byte) {
	t.push(transports.Event{Kind: transports.EventMessage, SessionID: sessionID, Data: raw})
}

// PushAudio injects caller audio.
func (t *Transport) PushAudio(sessionID string, chunk []byte) {
	t.push(transports.Event{Kind: transports.EventAudio, SessionID: sessionID, Data: chunk})
}

// CloseSession ends a session.
func (t *Transport) CloseSession(sessionID, reason string) {
	t.push(transports.Event{Kind: transports.EventClose, SessionID: sessionID, Reason: reason})
}

// Sent returns the messages sent to a session so far.
func (t *Transport) Sent(sessionID string) []messages.Outbound {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]messages.Outbound(nil), t.sent[sessionID]...)
}

// Audio returns the audio chunks sent to a session so far.
func (t *Transport) Audio(sessionID string) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.audio[sessionID]...)
}

// HungUp reports whether Hangup was called for the session.
func (t *Transport) HungUp(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hungUp[sessionID]
}

// Changed is signalled after outbound traffic was recorded.
func (t *Transport) Changed() <-chan struct{} { return t.notify }

func (t *Transport) push(ev transports.Event) {
	if t.closed.Load() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return
	}
	transports.NonBlockingSend(t.recvCh, ev)
}

func (t *Transport) signal() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

var _ transports.Transport = (*Transport)(nil)
var _ transports.Hanger = (*Transport)(nil)
