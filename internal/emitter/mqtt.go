// Package emitter delivers interval reports to their consumers: the console
// and, when a broker is configured, an MQTT topic.
package emitter

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/visiona/spotter/internal/config"
	"github.com/visiona/spotter/internal/pipeline"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// MQTTEmitter publishes interval reports to a broker. It satisfies
// pipeline.Reporter; publish failures are logged, never surfaced to the
// loop.
type MQTTEmitter struct {
	cfg    config.MQTTConfig
	encode Encoder
	client mqtt.Client
	log    *slog.Logger

	mu        sync.Mutex
	connected bool
	published uint64
	errors    uint64
}

// NewMQTTEmitter prepares an emitter for the configured broker. The
// connection is not attempted until Connect.
func NewMQTTEmitter(cfg config.MQTTConfig, log *slog.Logger) (*MQTTEmitter, error) {
	encode, err := NewEncoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &MQTTEmitter{cfg: cfg, encode: encode, log: log}, nil
}

// Connect establishes the broker session with automatic reconnection.
func (e *MQTTEmitter) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.clientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.mu.Lock()
		e.connected = true
		e.mu.Unlock()
		e.log.Info("mqtt connection established",
			"broker", e.cfg.Broker,
			"topic", e.cfg.Topic)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.mu.Lock()
		e.connected = false
		e.mu.Unlock()
		e.log.Warn("mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", e.cfg.Broker)
	}

	e.client = mqtt.NewClient(opts)

	e.log.Info("connecting to mqtt broker", "broker", e.cfg.Broker)
	token := e.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

// Emit implements pipeline.Reporter.
func (e *MQTTEmitter) Emit(r pipeline.Report) {
	if !e.isConnected() {
		e.fail("mqtt not connected, report dropped", nil)
		return
	}

	payload, err := e.encode(r)
	if err != nil {
		e.fail("report encoding failed", err)
		return
	}

	token := e.client.Publish(e.cfg.Topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		e.fail("report publish timeout", nil)
		return
	}
	if err := token.Error(); err != nil {
		e.fail("report publish failed", err)
		return
	}

	e.mu.Lock()
	e.published++
	e.mu.Unlock()

	e.log.Debug("report published",
		"topic", e.cfg.Topic,
		"qos", e.cfg.QoS,
		"size", len(payload))
}

// Close disconnects from the broker, allowing in-flight publishes to drain.
func (e *MQTTEmitter) Close() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
	e.log.Info("mqtt emitter closed",
		"published", e.published,
		"errors", e.errors)
}

func (e *MQTTEmitter) clientID() string {
	if e.cfg.ClientID != "" {
		return e.cfg.ClientID
	}
	return fmt.Sprintf("spotter-%d", time.Now().UnixNano())
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

func (e *MQTTEmitter) fail(msg string, err error) {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
	if err != nil {
		e.log.Warn(msg, "error", err, "topic", e.cfg.Topic)
		return
	}
	e.log.Warn(msg, "topic", e.cfg.Topic)
}
