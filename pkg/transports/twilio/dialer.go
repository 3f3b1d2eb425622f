package twilio

import (
	"context"
	"strings"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/harunnryd/domov/pkg/errorsx"
)

type callCreator interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
}

// Dialer rings a number and connects the answered call to the voice
// webhook, so the callee talks to the assistant.
type Dialer struct {
	cfg    Config
	client callCreator
}

func NewDialer(cfg Config) *Dialer {
	return &Dialer{cfg: cfg.withDefaults()}
}

// Dial calls to from the number from and returns the call SID. An empty
// url uses the configured voice webhook.
func (d *Dialer) Dial(ctx context.Context, to, from, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	to, from = strings.TrimSpace(to), strings.TrimSpace(from)
	if to == "" || from == "" {
		return "", errorsx.New(errorsx.ReasonConfigInvalid, "dial needs both to and from numbers")
	}
	client := d.client
	if client == nil {
		if d.cfg.AccountSID == "" || d.cfg.AuthToken == "" {
			return "", errorsx.New(errorsx.ReasonConfigInvalid, "twilio dial needs account_sid and auth_token")
		}
		client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: d.cfg.AccountSID,
			Password: d.cfg.AuthToken,
		}).Api
	}
	t := &Transport{cfg: d.cfg}
	if url == "" {
		url = t.voiceWebhookURL()
	}
	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetUrl(url)
	params.SetStatusCallback(t.statusCallbackURL())
	params.SetStatusCallbackEvent([]string{"completed"})
	resp, err := client.CreateCall(params)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	if resp == nil || resp.Sid == nil {
		return "", errorsx.New(errorsx.ReasonTransportSend, "twilio returned no call sid")
	}
	return *resp.Sid, nil
}
