package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBusDeliversToSubscribers(t *testing.T) {
	bus := NewLocalBus()

	var got []Envelope
	unsubscribe, err := bus.Subscribe(func(env Envelope) {
		got = append(got, env)
	})
	require.NoError(t, err)

	err = bus.Publish(context.Background(), TypeGameTriggered, GameTriggeredPayload{Player: "Alice"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, TypeGameTriggered, got[0].EventType)
	assert.NotEmpty(t, got[0].EventID)
	assert.False(t, got[0].Timestamp.IsZero())

	var payload GameTriggeredPayload
	require.NoError(t, json.Unmarshal(got[0].Payload, &payload))
	assert.Equal(t, "Alice", payload.Player)

	unsubscribe()
	err = bus.Publish(context.Background(), TypeSessionExpired, SessionExpiredPayload{Player: "Alice"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLocalBusWithoutSubscribersIsFireAndForget(t *testing.T) {
	bus := NewLocalBus()

	err := bus.Publish(context.Background(), TypeLeaderboardUpdated, LeaderboardUpdatedPayload{TotalPlayers: 0})
	assert.NoError(t, err)
}
