package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/utils"
)

// ErrNotConnected is returned by PublishTransient while the broker link
// is down. Transient payloads are superseded by the next tick, so they
// are never queued.
var ErrNotConnected = errors.New("mqtt: not connected")

// Client is the transport contract the services depend on.
type Client interface {
	Connect(ctx context.Context) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	PublishTransient(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, callback MQTT.MessageHandler) error
	Unsubscribe(topics ...string) error
	IsConnected() bool
	Disconnect(quiesce uint)
}

// PahoClient is the slice of the paho client the transport uses. Narrow
// on purpose so tests can substitute a mock.
type PahoClient interface {
	Connect() MQTT.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token
	Subscribe(topic string, qos byte, callback MQTT.MessageHandler) MQTT.Token
	Unsubscribe(topics ...string) MQTT.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// ConnectionConfig carries everything needed to reach the broker. Host
// and credentials come either from static configuration or from backend
// registration.
type ConnectionConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string

	QueueSize   int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxRetries  int
}

// BrokerURL renders the paho broker address.
func (c ConnectionConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

type subscription struct {
	qos      byte
	callback MQTT.MessageHandler
}

// Transport owns the broker connection: connect, reconnect with bounded
// exponential backoff, a bounded offline publish queue (drop-oldest), and
// re-subscription of all active topics after a reconnect. Paho's own
// auto-reconnect stays disabled so the retry policy lives in one place.
type Transport struct {
	config    ConnectionConfig
	logger    zerolog.Logger
	newClient func(*MQTT.ClientOptions) PahoClient

	client  PahoClient
	queue   *publishQueue
	closing atomic.Bool

	mu   sync.Mutex
	subs map[string]subscription
}

// NewTransport creates an unconnected Transport.
func NewTransport(config ConnectionConfig, logger zerolog.Logger) *Transport {
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	return &Transport{
		config: config,
		logger: logger,
		newClient: func(opts *MQTT.ClientOptions) PahoClient {
			return MQTT.NewClient(opts)
		},
		queue: newPublishQueue(config.QueueSize),
		subs:  make(map[string]subscription),
	}
}

// Connect dials the broker, retrying with backoff up to MaxRetries. A
// failure here is a startup failure; reconnects after a lost connection
// are handled internally and retry until shutdown.
func (t *Transport) Connect(ctx context.Context) error {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(t.config.BrokerURL())
	opts.SetClientID(t.config.ClientID)
	if t.config.Username != "" {
		opts.SetUsername(t.config.Username)
		opts.SetPassword(t.config.Password)
	}
	opts.SetAutoReconnect(false)
	opts.SetConnectionLostHandler(func(_ MQTT.Client, err error) {
		t.onConnectionLost(err)
	})
	opts.SetOnConnectHandler(func(_ MQTT.Client) {
		t.onConnected()
	})

	t.client = t.newClient(opts)

	backoff := utils.NewBackoff(t.config.BackoffBase, t.config.BackoffMax)
	var lastErr error
	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		token := t.client.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			lastErr = err
			t.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Broker connection failed")
			select {
			case <-time.After(backoff.Next()):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		t.logger.Info().Str("broker", t.config.BrokerURL()).Msg("Connected to MQTT broker")
		return nil
	}

	return fmt.Errorf("mqtt: connect failed after %d attempts: %w", t.config.MaxRetries+1, lastErr)
}

// onConnectionLost starts the reconnect loop unless the transport is
// shutting down.
func (t *Transport) onConnectionLost(err error) {
	if t.closing.Load() {
		return
	}
	t.logger.Warn().Err(err).Msg("Broker connection lost, reconnecting")
	go t.reconnectLoop()
}

func (t *Transport) reconnectLoop() {
	backoff := utils.NewBackoff(t.config.BackoffBase, t.config.BackoffMax)
	for {
		if t.closing.Load() {
			return
		}

		delay := backoff.Next()
		t.logger.Debug().Dur("delay", delay).Int("attempt", backoff.Attempt()).Msg("Waiting before reconnect attempt")
		time.Sleep(delay)

		if t.closing.Load() {
			return
		}

		token := t.client.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			t.logger.Warn().Err(err).Msg("Reconnect attempt failed")
			continue
		}

		t.logger.Info().Msg("Reconnected to MQTT broker")
		return
	}
}

// onConnected restores subscriptions and drains the offline queue. Runs
// on every successful connect, including the first.
func (t *Transport) onConnected() {
	t.mu.Lock()
	subs := make(map[string]subscription, len(t.subs))
	for topic, sub := range t.subs {
		subs[topic] = sub
	}
	t.mu.Unlock()

	for topic, sub := range subs {
		token := t.client.Subscribe(topic, sub.qos, sub.callback)
		token.Wait()
		if err := token.Error(); err != nil {
			t.logger.Error().Err(err).Str("topic", topic).Msg("Failed to restore subscription")
		}
	}

	for _, msg := range t.queue.drain() {
		token := t.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		token.Wait()
		if err := token.Error(); err != nil {
			t.logger.Error().Err(err).Str("topic", msg.topic).Msg("Failed to flush queued publish")
		}
	}
}

// Publish sends a message, or queues it while disconnected. When the
// queue is full the oldest queued message is dropped and counted.
func (t *Transport) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if !t.IsConnected() {
		if evicted := t.queue.add(queuedMessage{topic: topic, qos: qos, retained: retained, payload: payload}); evicted {
			t.logger.Warn().
				Str("topic", topic).
				Uint64("dropped_total", t.queue.droppedCount()).
				Msg("Publish queue full, dropped oldest message")
		}
		return nil
	}

	token := t.client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

// PublishTransient sends a message only if connected. Used for status
// snapshots, which must never accumulate.
func (t *Transport) PublishTransient(topic string, qos byte, retained bool, payload []byte) error {
	if !t.IsConnected() {
		return ErrNotConnected
	}

	token := t.client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

// Subscribe registers the handler and subscribes. The registration is
// kept so the subscription survives reconnects.
func (t *Transport) Subscribe(topic string, qos byte, callback MQTT.MessageHandler) error {
	t.mu.Lock()
	t.subs[topic] = subscription{qos: qos, callback: callback}
	t.mu.Unlock()

	token := t.client.Subscribe(topic, qos, callback)
	token.Wait()
	return token.Error()
}

// Unsubscribe removes topics from the broker and the resubscribe set.
func (t *Transport) Unsubscribe(topics ...string) error {
	t.mu.Lock()
	for _, topic := range topics {
		delete(t.subs, topic)
	}
	t.mu.Unlock()

	token := t.client.Unsubscribe(topics...)
	token.Wait()
	return token.Error()
}

// IsConnected reports the live broker link state.
func (t *Transport) IsConnected() bool {
	return t.client != nil && t.client.IsConnected()
}

// DroppedPublishes reports how many queued messages were evicted.
func (t *Transport) DroppedPublishes() uint64 {
	return t.queue.droppedCount()
}

// Disconnect stops reconnection and closes the link.
func (t *Transport) Disconnect(quiesce uint) {
	t.closing.Store(true)
	if t.client != nil {
		t.client.Disconnect(quiesce)
	}
}
