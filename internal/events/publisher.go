package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher delivers domain events to whoever is listening. Delivery is
// fire-and-forget: the gameplay state of record lives in the session
// coordinator, not in the notifications.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Handler receives every event delivered to a subscriber.
type Handler func(env Envelope)

// Bus is a Publisher that also supports in-process subscription. Both
// the NATS bus and the local bus satisfy it, so the websocket gateway
// does not care which one is wired in.
type Bus interface {
	Publisher
	Subscribe(h Handler) (unsubscribe func(), err error)
}

func newEnvelope(eventType string, payload any) (Envelope, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	env := Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
		Payload:   raw,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}
	return env, data, nil
}

// NATSConfig holds connection settings for the NATS bus.
type NATSConfig struct {
	URL           string
	SubjectPrefix string // e.g. "simon.events"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns the default NATS bus configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "simon.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSBus publishes events on core NATS subjects
// <prefix>.<eventType>. Core NATS (no stream, no replay) matches the
// broadcast contract: a notification missed while nobody listens is
// simply gone.
type NATSBus struct {
	nc     *nats.Conn
	config NATSConfig
}

// NewNATSBus connects to NATS and returns a bus over it.
func NewNATSBus(config NATSConfig) (*NATSBus, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSBus{nc: nc, config: config}, nil
}

// Publish sends the enveloped event on its per-type subject.
func (b *NATSBus) Publish(ctx context.Context, eventType string, payload any) error {
	env, data, err := newEnvelope(eventType, payload)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s.%s", b.config.SubjectPrefix, eventType)
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	log.Debug().
		Str("event_id", env.EventID).
		Str("event_type", eventType).
		Str("subject", subject).
		Msg("event published")
	return nil
}

// Subscribe delivers every event under the configured prefix.
func (b *NATSBus) Subscribe(h Handler) (func(), error) {
	subject := fmt.Sprintf("%s.>", b.config.SubjectPrefix)
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to unmarshal event envelope")
			return
		}
		h(env)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			log.Error().Err(err).Msg("failed to unsubscribe")
		}
	}, nil
}

// Close drains the NATS connection.
func (b *NATSBus) Close() {
	if b.nc != nil {
		b.nc.Close()
	}
}

// LocalBus is an in-process Bus used when no broker is configured and in
// tests. Handlers run synchronously on the publishing goroutine and must
// not block.
type LocalBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[int]Handler)}
}

// Publish delivers the event to every subscriber.
func (b *LocalBus) Publish(ctx context.Context, eventType string, payload any) error {
	env, _, err := newEnvelope(eventType, payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(env)
	}
	return nil
}

// Subscribe registers a handler for every published event.
func (b *LocalBus) Subscribe(h Handler) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}, nil
}
