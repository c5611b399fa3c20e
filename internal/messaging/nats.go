package messaging

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"signal-engine/config"
	"signal-engine/internal/events"
	"signal-engine/internal/logging"
)

// publisher is the part of *nats.Conn the forwarder needs
type publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Forwarder republishes bus events on NATS subjects of the form
// {prefix}.{event_type}.{SYMBOL}, e.g. signals.signal_generated.BTCUSDT.
type Forwarder struct {
	conn   publisher
	prefix string
	logger *logging.Logger

	published atomic.Int64
	failed    atomic.Int64
}

// Stats counts forwarded and failed publishes
type Stats struct {
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
}

// NewForwarder connects to NATS
func NewForwarder(cfg config.NATSConfig) (*Forwarder, error) {
	logger := logging.WithComponent("nats")
	opts := []nats.Option{
		nats.Name("signal-engine"),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return newForwarder(conn, cfg.SubjectPrefix, logger), nil
}

func newForwarder(conn publisher, prefix string, logger *logging.Logger) *Forwarder {
	if prefix == "" {
		prefix = "signals"
	}
	return &Forwarder{conn: conn, prefix: strings.TrimSuffix(prefix, "."), logger: logger}
}

// Subject returns the subject an event is published on
func (f *Forwarder) Subject(event events.Event) string {
	symbol := strings.ToUpper(event.Symbol)
	if symbol == "" {
		symbol = "_"
	}
	return fmt.Sprintf("%s.%s.%s", f.prefix, strings.ToLower(string(event.Type)), symbol)
}

// Handle publishes one event. Failures are logged and counted, never returned,
// so a NATS outage does not affect evaluations.
func (f *Forwarder) Handle(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		f.failed.Add(1)
		f.logger.Error("failed to marshal event", "type", event.Type, "error", err)
		return
	}

	subject := f.Subject(event)
	if err := f.conn.Publish(subject, data); err != nil {
		f.failed.Add(1)
		f.logger.Warn("failed to publish event", "subject", subject, "error", err)
		return
	}
	f.published.Add(1)
}

// Attach forwards every event on the bus
func (f *Forwarder) Attach(bus *events.EventBus) {
	bus.SubscribeAll(f.Handle)
	f.logger.Info("forwarding events to NATS", "prefix", f.prefix)
}

// GetStats returns publish counters
func (f *Forwarder) GetStats() Stats {
	return Stats{Published: f.published.Load(), Failed: f.failed.Load()}
}

// Close flushes pending messages and closes the connection
func (f *Forwarder) Close() error {
	return f.conn.Drain()
}
