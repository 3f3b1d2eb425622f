package twilio

import (
	"bytes"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"strings"

	twilioclient "github.com/twilio/twilio-go/client"

	"github.com/harunnryd/domov/pkg/errorsx"
)

// TwiML answering a call: an optional greeting, then the media stream.
type twimlResponse struct {
	XMLName xml.Name    `xml:"Response"`
	Say     *twimlSay   `xml:"Say,omitempty"`
	Connect twimlStream `xml:"Connect"`
}

type twimlSay struct {
	Language string `xml:"language,attr"`
	Text     string `xml:",chardata"`
}

type twimlStream struct {
	Stream struct {
		URL        string           `xml:"url,attr"`
		Parameters []twimlParameter `xml:"Parameter"`
	} `xml:"Stream"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// handleVoice answers the voice webhook. Media Streams do not carry the
// caller number, so it travels as a custom stream parameter.
func (t *Transport) handleVoice(w http.ResponseWriter, r *http.Request) {
	if !t.authorized(r) {
		t.logger.Warn("twilio_invalid_signature",
			slog.String("path", r.URL.Path),
			slog.String("reason_code", string(errorsx.ReasonTransportInvalidSignature)))
		w.WriteHeader(http.StatusForbidden)
		return
	}
	_ = r.ParseForm()

	resp := twimlResponse{}
	if greeting := strings.TrimSpace(t.cfg.VoiceGreeting); greeting != "" {
		resp.Say = &twimlSay{Language: t.cfg.VoiceLanguage, Text: greeting}
	}
	resp.Connect.Stream.URL = t.streamURL(r)
	if from := r.FormValue("From"); from != "" {
		resp.Connect.Stream.Parameters = append(resp.Connect.Stream.Parameters, twimlParameter{Name: "from", Value: from})
	}
	body, err := xml.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

// handleStatusCallback ends the session of a call that finished without
// a stream stop, e.g. busy or no answer.
func (t *Transport) handleStatusCallback(w http.ResponseWriter, r *http.Request) {
	if !t.authorized(r) {
		t.logger.Warn("twilio_invalid_signature",
			slog.String("path", r.URL.Path),
			slog.String("reason_code", string(errorsx.ReasonTransportInvalidSignature)))
		w.WriteHeader(http.StatusForbidden)
		return
	}
	defer w.WriteHeader(http.StatusOK)
	if r.ParseForm() != nil {
		return
	}
	reason := callEndReason(r.FormValue("CallStatus"))
	if reason == "" {
		return
	}
	if sid := t.streamForCall(r.FormValue("CallSid")); sid != "" {
		t.detach(sid, reason)
	}
}

// authorized checks the X-Twilio-Signature header. Without an auth token
// every request passes.
func (t *Transport) authorized(r *http.Request) bool {
	if t.cfg.AuthToken == "" {
		return true
	}
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	validator := twilioclient.NewRequestValidator(t.cfg.AuthToken)
	return validator.ValidateBody(t.requestURL(r), body, signature)
}

// requestURL rebuilds the URL Twilio signed.
func (t *Transport) requestURL(r *http.Request) string {
	if t.cfg.PublicURL != "" {
		return "https://" + publicHost(t.cfg.PublicURL) + r.URL.RequestURI()
	}
	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.URL.Scheme != "" {
		scheme = r.URL.Scheme
	}
	return scheme + "://" + t.host(r) + r.URL.RequestURI()
}

func (t *Transport) streamURL(r *http.Request) string {
	if t.cfg.PublicURL != "" {
		return "wss://" + publicHost(t.cfg.PublicURL) + t.cfg.WebsocketPath
	}
	return "wss://" + t.host(r) + t.cfg.WebsocketPath
}

func (t *Transport) host(r *http.Request) string {
	if r != nil && r.Host != "" {
		return r.Host
	}
	return strings.TrimPrefix(t.cfg.ServerAddr, ":")
}

func (t *Transport) voiceWebhookURL() string   { return t.localOrPublic(t.cfg.VoicePath) }
func (t *Transport) statusCallbackURL() string { return t.localOrPublic(t.cfg.StatusCallbackPath) }

func (t *Transport) localOrPublic(path string) string {
	if t.cfg.PublicURL != "" {
		return "https://" + publicHost(t.cfg.PublicURL) + path
	}
	addr := t.cfg.ServerAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + path
}

// publicHost strips the scheme and trailing slashes of public_url.
func publicHost(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.Index(v, "://"); i >= 0 {
		v = v[i+3:]
	}
	return strings.TrimRight(v, "/")
}
