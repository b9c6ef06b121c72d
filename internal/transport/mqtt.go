// Package transport adapts the sync engine to a shared MQTT broker: one
// wildcard subscription per room, typed publishes with per-event delivery
// classes, and automatic reconnection with bounded backoff. The adapter
// never surfaces transport failures to callers; connectivity loss degrades
// to stale presence rather than errors.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeliveryClass pairs the broker QoS level with the retained flag.
type DeliveryClass struct {
	QoS      byte
	Retained bool
}

var (
	// Reliable is at-least-once delivery without retention: chat messages,
	// reactions and poll votes.
	Reliable = DeliveryClass{QoS: 1}
	// ReliableRetained is at-least-once delivery with broker retention, so
	// late joiners see current state: statuses and calendar events.
	ReliableRetained = DeliveryClass{QoS: 1, Retained: true}
	// BestEffort is fire-and-forget: heartbeats, typing, read receipts.
	BestEffort = DeliveryClass{QoS: 0}
)

var errNotConnected = errors.New("transport: not connected")

// MessageHandler receives the channel suffix and raw payload of every
// inbound event on the room's wildcard subscription.
type MessageHandler func(channel string, payload []byte)

// Config describes broker connectivity.
type Config struct {
	BrokerURL string
	Logger    *zap.Logger

	// KeepAlive is generous so background-throttled devices are not timed
	// out between pings. Zero values take the defaults below.
	KeepAlive         time.Duration
	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration
}

const (
	defaultKeepAlive         = 120 * time.Second
	defaultConnectTimeout    = 30 * time.Second
	defaultReconnectInterval = 2 * time.Second
	disconnectQuiesceMillis  = 250
)

// Adapter owns one broker connection scoped to one room.
type Adapter struct {
	brokerURL         string
	logger            *zap.Logger
	keepAlive         time.Duration
	connectTimeout    time.Duration
	reconnectInterval time.Duration

	mu        sync.Mutex
	client    mqtt.Client
	classCode string
}

// New constructs an adapter from config, applying defaults for unset
// durations.
func New(cfg Config) (*Adapter, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("transport: broker url is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	keepAlive := cfg.KeepAlive
	if keepAlive == 0 {
		keepAlive = defaultKeepAlive
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = defaultConnectTimeout
	}
	reconnectInterval := cfg.ReconnectInterval
	if reconnectInterval == 0 {
		reconnectInterval = defaultReconnectInterval
	}
	return &Adapter{
		brokerURL:         cfg.BrokerURL,
		logger:            logger,
		keepAlive:         keepAlive,
		connectTimeout:    connectTimeout,
		reconnectInterval: reconnectInterval,
	}, nil
}

// Connect establishes the broker session for a room and installs the inbound
// handler. Calling it again for the same room while connected is a no-op;
// naming a different room tears the old session down first. onConnect fires
// on every (re)connect after the wildcard subscription is in place, which is
// where the session publishes its immediate heartbeat.
func (a *Adapter) Connect(classCode string, onMessage MessageHandler, onConnect func()) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		if a.classCode == classCode && a.client.IsConnected() {
			return nil
		}
		a.client.Disconnect(disconnectQuiesceMillis)
		a.client = nil
	}

	a.classCode = classCode
	clientID := "bunkmate_" + uuid.NewString()[:8]
	opts := a.clientOptions(clientID)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		a.logger.Warn("broker connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		wildcard := Wildcard(classCode)
		token := client.Subscribe(wildcard, 0, func(_ mqtt.Client, msg mqtt.Message) {
			suffix, ok := Suffix(msg.Topic(), classCode)
			if !ok {
				return
			}
			onMessage(suffix, msg.Payload())
		})
		go func() {
			token.Wait()
			if err := token.Error(); err != nil {
				a.logger.Error("room subscription failed", zap.String("topic", wildcard), zap.Error(err))
				return
			}
			a.logger.Info("room subscription established", zap.String("topic", wildcard))
			if onConnect != nil {
				onConnect()
			}
		}()
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(a.connectTimeout) && token.Error() != nil {
		// Connect-retry keeps attempting in the background; local state
		// stays authoritative in the meantime.
		a.logger.Warn("initial broker connect failed", zap.Error(token.Error()))
	}

	a.client = client
	return nil
}

// clientOptions builds the tuned broker options. ConnectRetry covers the
// initial dial (auto-reconnect only fires after a session has been
// established once), so a daemon started while offline still comes up once
// the broker is reachable.
func (a *Adapter) clientOptions(clientID string) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(a.brokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetKeepAlive(a.keepAlive).
		SetConnectTimeout(a.connectTimeout).
		SetConnectRetry(true).
		SetConnectRetryInterval(a.reconnectInterval).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(a.reconnectInterval).
		SetResumeSubs(false)
}

// Publish serializes the payload as JSON and sends it on the room channel
// with the given delivery class. The send is fire-and-forget relative to
// local state; broker errors are logged, never returned to mutation paths.
func (a *Adapter) Publish(channelSuffix string, payload any, class DeliveryClass) error {
	a.mu.Lock()
	client := a.client
	classCode := a.classCode
	a.mu.Unlock()

	if client == nil {
		return errNotConnected
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("transport: encode %s payload: %w", channelSuffix, err)
	}

	topic := Topic(classCode, channelSuffix)
	token := client.Publish(topic, class.QoS, class.Retained, encoded)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			a.logger.Debug("publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
	return nil
}

// Wake forces a reconnect attempt after a suspend/foreground transition.
// Best-effort transports silently drop traffic while a device sleeps, so
// waking cannot rely on the keepalive loop noticing.
func (a *Adapter) Wake() {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil || client.IsConnected() {
		return
	}
	token := client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			a.logger.Warn("wake reconnect failed", zap.Error(err))
		}
	}()
}

// IsConnected reports current broker connectivity, feeding the passive
// offline indicator.
func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client != nil && a.client.IsConnected()
}

// Disconnect ends the broker session. It is terminal for the session: no
// further publishes occur until a new Connect call.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return
	}
	a.client.Disconnect(disconnectQuiesceMillis)
	a.client = nil
	a.classCode = ""
}
