// Package homeassistant is a small client for the Home Assistant REST API.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/logging"
	"github.com/harunnryd/domov/pkg/redact"
	"github.com/harunnryd/domov/pkg/resilience"
)

// StatusError is a reply outside 200/201.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, strings.TrimSpace(e.Body))
}

// Config configures a Client. URL is the API root, e.g.
// http://homeassistant.local:8123/api.
type Config struct {
	URL              string
	Token            string
	Timeout          time.Duration
	Retries          int
	RetryBackoff     time.Duration
	CircuitThreshold int
	CircuitCooldown  time.Duration
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Client talks to one Home Assistant instance. Reads are retried;
// service calls are sent once.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	retry := resilience.NewRetryPolicy(cfg.Retries, cfg.RetryBackoff)
	retry.Retryable = resilience.IsUnavailable
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		token:   cfg.Token,
		http:    httpClient,
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitCooldown, nil),
		logger:  logging.NewComponentLogger(cfg.Logger, "homeassistant"),
	}
}

// IsAlive reports whether GET /config answers 200.
func (c *Client) IsAlive(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := c.do(ctx, http.MethodGet, "/config", nil); err != nil {
		c.logger.Warn("ha_not_alive", slog.String("error", redact.Text(err.Error())))
		return false
	}
	return true
}

// States returns every entity.
func (c *Client) States(ctx context.Context) ([]State, error) {
	var out []State
	err := c.retry.Do(ctx, func() error {
		body, err := c.do(ctx, http.MethodGet, "/states", nil)
		if err != nil {
			return err
		}
		out = nil
		return decode(body, &out)
	})
	return out, err
}

// State returns one entity.
func (c *Client) State(ctx context.Context, entityID string) (State, error) {
	var out State
	err := c.retry.Do(ctx, func() error {
		body, err := c.do(ctx, http.MethodGet, "/states/"+url.PathEscape(entityID), nil)
		if err != nil {
			return err
		}
		out = State{}
		return decode(body, &out)
	})
	return out, err
}

// Temperature returns the current_temperature attribute of a climate
// entity, or nil when it is not reported.
func (c *Client) Temperature(ctx context.Context, entityID string) (any, error) {
	st, err := c.State(ctx, entityID)
	if err != nil {
		return nil, err
	}
	v, _ := st.Attr("current_temperature")
	return v, nil
}

// FriendlyNames maps entity ids of a domain to their friendly names.
// Entities without a name are left out.
func (c *Client) FriendlyNames(ctx context.Context, domain string) (map[string]string, error) {
	states, err := c.States(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	prefix := domain + "."
	for _, st := range states {
		if !strings.HasPrefix(st.EntityID, prefix) {
			continue
		}
		if v, ok := st.Attr("friendly_name"); ok {
			if name := fmt.Sprint(v); name != "" {
				out[st.EntityID] = name
			}
		}
	}
	return out, nil
}

// EntitiesByDomain lists the entity ids of a domain, sorted.
func (c *Client) EntitiesByDomain(ctx context.Context, domain string) ([]string, error) {
	states, err := c.States(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, st := range states {
		if strings.HasPrefix(st.EntityID, domain+".") {
			out = append(out, st.EntityID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// CallService posts data to /services/{domain}/{service}.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonDeviceDecode)
	}
	_, err = c.do(ctx, http.MethodPost, "/services/"+domain+"/"+service, payload)
	if err != nil {
		c.logger.Warn("device_call_failed",
			slog.String("domain", domain),
			slog.String("service", service),
			slog.String("reason", string(errorsx.Reason(err))),
			slog.String("error", redact.Text(err.Error())),
		)
		return err
	}
	c.logger.Debug("device_call", slog.String("domain", domain), slog.String("service", service))
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, errorsx.New(errorsx.ReasonDeviceCircuitOpen, "home assistant circuit open")
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonDeviceUnavailable)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		err = errorsx.Wrap(fmt.Errorf("%s %s: %w", method, path, err), errorsx.ReasonDeviceUnavailable)
		c.breaker.OnError(err)
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		statusErr := &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(respBody)}
		reason := errorsx.ReasonDeviceStatus
		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			reason = errorsx.ReasonDeviceUnavailable
		}
		err := errorsx.Wrap(statusErr, reason)
		c.breaker.OnError(err)
		return nil, err
	}
	c.breaker.OnSuccess()
	return respBody, nil
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return errorsx.Wrap(fmt.Errorf("decode response: %w", err), errorsx.ReasonDeviceDecode)
	}
	return nil
}
