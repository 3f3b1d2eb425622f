package twilio

import (
	"context"
	"errors"
	"testing"

	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/harunnryd/domov/pkg/errorsx"
)

type stubCreator struct {
	last *api.CreateCallParams
	sid  string
	err  error
}

func (s *stubCreator) CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error) {
	s.last = params
	if s.err != nil {
		return nil, s.err
	}
	return &api.ApiV2010Call{Sid: &s.sid}, nil
}

func TestDialerDialUsesDefaults(t *testing.T) {
	stub := &stubCreator{sid: "CA123"}
	d := NewDialer(Config{
		AccountSID: "AC1",
		AuthToken:  "token",
		PublicURL:  "https://dum.example.com",
	})
	d.client = stub

	sid, err := d.Dial(context.Background(), "+420100", "+420200", "")
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	if sid != "CA123" {
		t.Fatalf("expected sid CA123, got %s", sid)
	}
	if stub.last == nil || stub.last.To == nil || *stub.last.To != "+420100" {
		t.Fatalf("expected To param")
	}
	if stub.last.From == nil || *stub.last.From != "+420200" {
		t.Fatalf("expected From param")
	}
	if stub.last.Url == nil || *stub.last.Url != "https://dum.example.com/voice" {
		t.Fatalf("expected voice webhook url, got %v", stub.last.Url)
	}
	if stub.last.StatusCallback == nil || *stub.last.StatusCallback != "https://dum.example.com/status" {
		t.Fatalf("expected status callback url")
	}
	if stub.last.StatusCallbackEvent == nil || len(*stub.last.StatusCallbackEvent) != 1 {
		t.Fatalf("expected completed status callback event")
	}
}

func TestDialerDialUsesOverrideURL(t *testing.T) {
	stub := &stubCreator{sid: "CA999"}
	d := NewDialer(Config{AccountSID: "AC1", AuthToken: "token"})
	d.client = stub

	override := "https://override.example.com/voice"
	if _, err := d.Dial(context.Background(), "+100", "+200", override); err != nil {
		t.Fatalf("dial error: %v", err)
	}
	if stub.last == nil || stub.last.Url == nil || *stub.last.Url != override {
		t.Fatalf("expected override url")
	}
}

func TestDialerRequiresCredentialsAndNumbers(t *testing.T) {
	_, err := NewDialer(Config{}).Dial(context.Background(), "+100", "+200", "")
	if !errorsx.HasReason(err, errorsx.ReasonConfigInvalid) {
		t.Fatalf("expected credentials error, got %v", err)
	}
	d := NewDialer(Config{AccountSID: "AC1", AuthToken: "token"})
	d.client = &stubCreator{err: errors.New("boom")}
	if _, err := d.Dial(context.Background(), "", "+200", ""); err == nil {
		t.Fatalf("expected missing number error")
	}
	if _, err := d.Dial(context.Background(), "+100", "+200", ""); !errorsx.HasReason(err, errorsx.ReasonTransportSend) {
		t.Fatalf("expected api error, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Dial(ctx, "+100", "+200", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
