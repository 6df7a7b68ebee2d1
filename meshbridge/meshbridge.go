// Package meshbridge publishes a mesh clock node's diagnostic state to an
// MQTT broker, adapted from the teacher's cmd/mqttradio mq type: a thin,
// mutex-protected handle onto a persistent paho.mqtt.golang connection,
// trimmed down to the one thing a clock node needs to report (its sync
// state and offset) instead of mqttradio's general pub/sub packet bridge.
package meshbridge

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/tve/meshclock"
)

// LogPrintf matches the rest of the module's diagnostic hook shape.
type LogPrintf func(format string, v ...interface{})

// Config is the broker connection configuration, loaded the same way
// mqttradio.toml's MqttConfig is: BurntSushi/toml into a struct with plain
// field names.
type Config struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	ClientID string `toml:"client_id"`
	// Topic is the base MQTT topic status reports are published under,
	// e.g. "meshclock/node1". PublishStatus appends "/status" to it.
	Topic string `toml:"topic"`
}

// Status is the JSON payload published on Config.Topic+"/status" every publish
// interval.
type Status struct {
	SyncState  string `json:"sync_state"`
	OffsetUs   int64  `json:"offset_us"`
	MeshNowUs  uint64 `json:"mesh_now_us"`
	ObservedAt int64  `json:"observed_at_unix_ms"`
}

// Bridge holds a persistent MQTT connection used to publish a node's
// status. The connection auto-reconnects, the same as mqttradio's mq.
type Bridge struct {
	conn  mqtt.Client
	topic string
	log   LogPrintf

	mu     sync.Mutex
	closed bool
}

// New connects to the broker described by cfg and returns a Bridge. The
// connection is persistent: paho.mqtt.golang re-establishes it on its own
// after a disconnect, same as mqttradio's newMQ.
func New(cfg Config, logger LogPrintf) (*Bridge, error) {
	if logger == nil {
		logger = func(string, ...interface{}) {}
	}
	logger("meshbridge: connecting to %s:%d", cfg.Host, cfg.Port)

	mqtt.ERROR = log.New(os.Stderr, "", 0)
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "meshclock"
	}
	opts.ClientID = clientID
	opts.Username = cfg.User
	opts.Password = cfg.Password
	opts.AutoReconnect = true

	conn := mqtt.NewClient(opts)
	token := conn.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("meshbridge: connect to %s:%d timed out", cfg.Host, cfg.Port)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("meshbridge: %w", err)
	}

	logger("meshbridge: connected")
	return &Bridge{conn: conn, topic: cfg.Topic, log: logger}, nil
}

// StatusSource is the subset of meshclock.Core's API a Bridge reports on.
type StatusSource interface {
	SyncState() meshclock.SyncState
	MeshNowUs() uint64
	Offset() int64
}

// PublishStatus publishes one status snapshot of c, sourced from its
// SyncState, MeshNowUs, and Offset.
func (b *Bridge) PublishStatus(c StatusSource, nowUnixMs int64) error {
	status := Status{
		SyncState:  c.SyncState().String(),
		OffsetUs:   c.Offset(),
		MeshNowUs:  c.MeshNowUs(),
		ObservedAt: nowUnixMs,
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("meshbridge: %w", err)
	}
	topic := b.topic + "/status"
	token := b.conn.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("meshbridge: publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("meshbridge: publish to %s: %w", topic, err)
	}
	return nil
}

// Run publishes c's status every interval until stop is closed. Intended to
// be run in its own goroutine by cmd/meshnode.
func (b *Bridge) Run(stop <-chan struct{}, interval time.Duration, c StatusSource, nowUnixMs func() int64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := b.PublishStatus(c, nowUnixMs()); err != nil {
				b.log("%s", err)
			}
		case <-stop:
			return
		}
	}
}

// Close disconnects from the broker. Safe to call more than once.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.conn.Disconnect(250)
}
