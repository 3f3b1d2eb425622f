// Package events mirrors assistant traffic onto an MQTT broker so other
// home automation can follow and drive it.
package events

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/logging"
	"github.com/harunnryd/domov/pkg/messages"
)

type Config struct {
	Enabled     bool   `mapstructure:"enabled"`
	BrokerURL   string `mapstructure:"broker_url"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// Handler receives the payload of a message published to the inbound
// topic. It is the same JSON envelope the UI sends.
type Handler func(ctx context.Context, payload []byte)

func TopicIn(prefix string) string { return strings.TrimRight(prefix, "/") + "/in" }

func TopicOut(prefix, msgType string) string {
	return strings.TrimRight(prefix, "/") + "/out/" + msgType
}

type Bridge struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger

	newClient func(*paho.ClientOptions) paho.Client

	mu     sync.Mutex
	client paho.Client
	ctx    context.Context
}

func NewBridge(cfg Config, handler Handler, logger *slog.Logger) *Bridge {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "domov"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "domov-" + uuid.NewString()[:8]
	}
	return &Bridge{
		cfg:       cfg,
		handler:   handler,
		logger:    logging.NewComponentLogger(logger, "mqtt"),
		newClient: paho.NewClient,
		ctx:       context.Background(),
	}
}

// Start connects and subscribes to the inbound topic. The connection is
// dropped when ctx ends.
func (b *Bridge) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(b.cfg.BrokerURL).
		SetClientID(b.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		b.logger.Error("mqtt_connection_lost", slog.String("error", err.Error()))
	})
	// A reconnect starts a clean session; subscribe again.
	opts.SetOnConnectHandler(func(c paho.Client) {
		go func() {
			if token := c.Subscribe(TopicIn(b.cfg.TopicPrefix), 1, b.handleInbound); token.Wait() && token.Error() != nil {
				b.logger.Warn("mqtt_resubscribe_failed", slog.String("error", token.Error().Error()))
			}
		}()
	})

	client := b.newClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return errorsx.Wrap(token.Error(), errorsx.ReasonTransportSend)
	}
	if token := client.Subscribe(TopicIn(b.cfg.TopicPrefix), 1, b.handleInbound); token.Wait() && token.Error() != nil {
		client.Disconnect(100)
		return errorsx.Wrap(token.Error(), errorsx.ReasonTransportSend)
	}
	b.mu.Lock()
	b.client = client
	b.ctx = ctx
	b.mu.Unlock()
	b.logger.Info("mqtt_connected", slog.String("broker", b.cfg.BrokerURL), slog.String("topic_in", TopicIn(b.cfg.TopicPrefix)))

	go func() {
		<-ctx.Done()
		b.Close()
	}()
	return nil
}

// Publish mirrors one outbound message. It is a no-op before Start.
func (b *Bridge) Publish(msg messages.Outbound) error {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		return nil
	}
	body, err := msg.Encode()
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	token := client.Publish(TopicOut(b.cfg.TopicPrefix, msg.Type), 0, false, body)
	if !token.WaitTimeout(5 * time.Second) {
		return errorsx.New(errorsx.ReasonTransportSend, "mqtt publish timeout")
	}
	if err := token.Error(); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	return nil
}

func (b *Bridge) Close() {
	b.mu.Lock()
	client := b.client
	b.client = nil
	b.mu.Unlock()
	if client != nil {
		client.Disconnect(100)
		b.logger.Info("mqtt_disconnected")
	}
}

func (b *Bridge) handleInbound(_ paho.Client, msg paho.Message) {
	if b.handler == nil {
		return
	}
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()
	b.logger.Debug("mqtt_inbound", slog.String("topic", msg.Topic()), slog.Int("bytes", len(msg.Payload())))
	b.handler(ctx, append([]byte(nil), msg.Payload()...))
}
