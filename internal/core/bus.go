package core

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	scanStreamName    = "DOCUMENT_SCANS"
	scanSubjectPrefix = "docs.scans"
)

// EventBus wraps NATS JetStream for publishing and consuming scan events.
type EventBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	ns     *server.Server
	logger zerolog.Logger
	mu     sync.RWMutex
	subs   []*nats.Subscription

	published atomic.Int64
	failed    atomic.Int64
	acked     atomic.Int64
	naked     atomic.Int64
}

// NewEventBus connects to NATS. If cfg.Embedded is true, it first starts an
// in-process NATS server with JetStream on cfg.Port.
func NewEventBus(cfg *BusConfig, logger zerolog.Logger) (*EventBus, error) {
	bus := &EventBus{
		logger: logger.With().Str("component", "event_bus").Logger(),
		subs:   make([]*nats.Subscription, 0),
	}

	url := cfg.URL
	if cfg.Embedded {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating NATS data dir: %w", err)
		}

		ns, err := server.NewServer(&server.Options{
			Host:      "127.0.0.1",
			Port:      cfg.Port,
			JetStream: true,
			StoreDir:  cfg.DataDir,
			NoLog:     true,
			NoSigs:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedded NATS server: %w", err)
		}
		ns.Start()
		if !ns.ReadyForConnections(10 * time.Second) {
			ns.Shutdown()
			return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
		}
		bus.ns = ns
		url = ns.ClientURL()
		bus.logger.Info().Str("url", url).Msg("embedded NATS server started")
	}

	nc, err := nats.Connect(url,
		nats.Name("docshield"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				bus.logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			bus.logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		bus.shutdownServer()
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	bus.nc = nc

	js, err := nc.JetStream()
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}
	bus.js = js

	// AddStream fails if the stream exists with a different config, for
	// example after an upgrade; fall back to updating it.
	streamCfg := &nats.StreamConfig{
		Name:      scanStreamName,
		Subjects:  []string{scanSubjectPrefix + ".>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour * 30,
		MaxBytes:  256 * 1024 * 1024,
		Storage:   nats.FileStorage,
		Discard:   nats.DiscardOld,
	}
	if _, err := js.AddStream(streamCfg); err != nil {
		if _, updateErr := js.UpdateStream(streamCfg); updateErr != nil {
			bus.Close()
			return nil, fmt.Errorf("creating/updating scans stream: %w (original: %v)", updateErr, err)
		}
	}

	bus.logger.Info().Str("url", url).Str("stream", scanStreamName).Msg("connected to NATS JetStream")
	return bus, nil
}

// PublishScan publishes a ScanEvent on docs.scans.<format>.<level>.
func (b *EventBus) PublishScan(event *ScanEvent) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling scan event: %w", err)
	}

	subject := event.Subject()
	if _, err := b.js.Publish(subject, data); err != nil {
		b.failed.Add(1)
		return fmt.Errorf("publishing scan event to %s: %w", subject, err)
	}

	b.published.Add(1)

	b.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", subject).
		Str("risk_level", event.RiskLevel).
		Msg("scan event published")
	return nil
}

// Subscribe creates a subscription to a subject pattern, durable when
// durableName is set.
func (b *EventBus) Subscribe(subject, durableName string, handler func(msg *nats.Msg)) error {
	opts := []nats.SubOpt{nats.DeliverNew(), nats.AckExplicit()}
	if durableName != "" {
		opts = append(opts, nats.Durable(durableName))
	}
	sub, err := b.js.Subscribe(subject, handler, opts...)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", subject, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.logger.Debug().Str("subject", subject).Str("durable", durableName).Msg("subscribed")
	return nil
}

// SubscribeToScans delivers every new scan event to handler. Undecodable
// messages are nak'ed.
func (b *EventBus) SubscribeToScans(durableName string, handler func(event *ScanEvent)) error {
	return b.Subscribe(scanSubjectPrefix+".>", durableName, func(msg *nats.Msg) {
		event, err := UnmarshalScanEvent(msg.Data)
		if err != nil {
			b.logger.Error().Err(err).Msg("failed to unmarshal scan event")
			_ = msg.Nak()
			b.naked.Add(1)
			return
		}
		handler(event)
		_ = msg.Ack()
		b.acked.Add(1)
	})
}

// Close unsubscribes, drains the connection and stops the embedded server.
func (b *EventBus) Close() error {
	b.mu.Lock()
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil
	b.mu.Unlock()

	if b.nc != nil {
		b.nc.Close()
	}
	b.shutdownServer()
	return nil
}

func (b *EventBus) shutdownServer() {
	if b.ns != nil {
		b.ns.Shutdown()
		b.ns.WaitForShutdown()
		b.ns = nil
		b.logger.Info().Msg("embedded NATS server stopped")
	}
}

// IsConnected returns true if the NATS connection is active.
func (b *EventBus) IsConnected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

// GetMetrics returns a snapshot of bus counters.
func (b *EventBus) GetMetrics() map[string]int64 {
	return map[string]int64{
		"events_published": b.published.Load(),
		"events_failed":    b.failed.Load(),
		"messages_acked":   b.acked.Load(),
		"messages_naked":   b.naked.Load(),
	}
}
