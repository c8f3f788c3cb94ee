// Package notify pushes committed zone events to external subscribers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/zonewatch/internal/domain/model"
	"github.com/okian/zonewatch/pkg/logger"
)

// Notifier delivers one event.
type Notifier interface {
	Notify(ctx context.Context, e model.Event) error
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, model.Event) error { return nil }

// Publisher is the part of mqtt.Client used for publishing.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes each event as JSON on <prefix>/<vehicle>/<zone>.
type MQTTNotifier struct {
	pub     Publisher
	prefix  string
	qos     byte
	timeout time.Duration
}

// MQTTOption configures an MQTTNotifier.
type MQTTOption func(*MQTTNotifier)

// WithQoS sets the publish QoS (0, 1 or 2).
func WithQoS(qos byte) MQTTOption {
	return func(n *MQTTNotifier) {
		if qos <= 2 {
			n.qos = qos
		}
	}
}

// WithPublishTimeout bounds the wait for a broker acknowledgement.
func WithPublishTimeout(d time.Duration) MQTTOption {
	return func(n *MQTTNotifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// NewMQTTNotifier returns a notifier publishing through pub.
func NewMQTTNotifier(pub Publisher, prefix string, opts ...MQTTOption) *MQTTNotifier {
	n := &MQTTNotifier{
		pub:     pub,
		prefix:  strings.TrimRight(prefix, "/"),
		qos:     1,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Topic returns the topic an event is published on.
func (n *MQTTNotifier) Topic(e model.Event) string {
	return n.prefix + "/" + topicLevel(e.VehicleID) + "/" + topicLevel(e.ZoneID)
}

// topicLevel makes s safe as a single topic level.
func topicLevel(s string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}

// Notify implements Notifier.
func (n *MQTTNotifier) Notify(ctx context.Context, e model.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPublish, err)
	}

	timeout := n.timeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	tok := n.pub.Publish(n.Topic(e), n.qos, false, payload)
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %s", ErrTimeout, n.Topic(e))
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, n.Topic(e), err)
	}
	return nil
}

// MQTTConfig describes a broker connection.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Connect dials the broker and returns the connected client. Callers
// disconnect it on shutdown.
func Connect(ctx context.Context, cfg MQTTConfig, log logger.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info(context.Background(), "mqtt connected", logger.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn(context.Background(), "mqtt connection lost", logger.String("broker", cfg.Broker), logger.Error(err))
	})

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Broker, ctx.Err())
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Broker, err)
	}
	return c, nil
}
