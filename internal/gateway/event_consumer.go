package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/simonsays-lab/scoreboard/internal/events"
)

// EventConsumer subscribes to the event bus and fans coordinator events
// out to connected browser websockets.
type EventConsumer struct {
	connectionManager *ConnectionManager
	bus               events.Bus
}

// NewEventConsumer creates a consumer over the given bus. The bus may be
// NATS-backed or in-process; the consumer does not care.
func NewEventConsumer(cm *ConnectionManager, bus events.Bus) *EventConsumer {
	return &EventConsumer{
		connectionManager: cm,
		bus:               bus,
	}
}

// Start subscribes and blocks until the context is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	unsubscribe, err := ec.bus.Subscribe(func(env events.Envelope) {
		event, err := convertToWebSocketEvent(env)
		if err != nil {
			log.Error().
				Err(err).
				Str("event_id", env.EventID).
				Str("event_type", env.EventType).
				Msg("failed to convert event for broadcast")
			return
		}
		ec.connectionManager.Broadcast(event)
	})
	if err != nil {
		return fmt.Errorf("subscribe to event bus: %w", err)
	}
	defer unsubscribe()

	log.Info().Msg("gateway event consumer started")
	<-ctx.Done()
	log.Info().Msg("gateway event consumer shutting down")
	return nil
}

// convertToWebSocketEvent maps a bus envelope to the browser event
// format.
func convertToWebSocketEvent(env events.Envelope) (*GameEvent, error) {
	var wsType EventType
	switch env.EventType {
	case events.TypeGameTriggered:
		wsType = EventTypeGameTriggered
	case events.TypeLeaderboardUpdated:
		wsType = EventTypeLeaderboardUpdate
	case events.TypeSessionExpired:
		wsType = EventTypeSessionExpired
	default:
		return nil, fmt.Errorf("unknown event type: %s", env.EventType)
	}

	return &GameEvent{
		ID:        env.EventID,
		Type:      wsType,
		Timestamp: time.Now(),
		Data:      env.Payload,
	}, nil
}
