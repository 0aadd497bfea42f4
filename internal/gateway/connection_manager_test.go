package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonsays-lab/scoreboard/internal/events"
)

func startTestHub(t *testing.T, onStartGame func(ctx context.Context, player string)) (*ConnectionManager, *events.LocalBus, *httptest.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cm := NewConnectionManager(DefaultConnectionConfig(), onStartGame)
	go cm.Start(ctx)

	bus := events.NewLocalBus()
	consumer := NewEventConsumer(cm, bus)
	go consumer.Start(ctx)

	handler := NewWebSocketHandler(cm)
	server := httptest.NewServer(http.HandlerFunc(handler.HandleConnection))
	t.Cleanup(server.Close)

	return cm, bus, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBrowserReceivesBroadcastEvents(t *testing.T) {
	cm, bus, server := startTestHub(t, nil)

	conn := dial(t, server)
	require.Eventually(t, func() bool {
		return cm.ConnectionCount() == 1
	}, time.Second, 10*time.Millisecond)

	err := bus.Publish(context.Background(), events.TypeGameTriggered, events.GameTriggeredPayload{
		Player:      "Alice",
		TriggeredAt: time.Now(),
	})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event GameEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, EventTypeGameTriggered, event.Type)

	var payload events.GameTriggeredPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "Alice", payload.Player)
}

func TestBroadcastWithZeroClientsIsNotAnError(t *testing.T) {
	_, bus, _ := startTestHub(t, nil)

	err := bus.Publish(context.Background(), events.TypeLeaderboardUpdated, events.LeaderboardUpdatedPayload{})
	assert.NoError(t, err)
}

func TestInboundStartGameCommand(t *testing.T) {
	started := make(chan string, 1)
	cm, _, server := startTestHub(t, func(ctx context.Context, player string) {
		started <- player
	})

	conn := dial(t, server)
	require.Eventually(t, func() bool {
		return cm.ConnectionCount() == 1
	}, time.Second, 10*time.Millisecond)

	err := conn.WriteJSON(ClientMessage{Type: "start-game", Player: "Dana"})
	require.NoError(t, err)

	select {
	case player := <-started:
		assert.Equal(t, "Dana", player)
	case <-time.After(2 * time.Second):
		t.Fatal("start-game command was not forwarded")
	}
}

func TestConvertToWebSocketEvent(t *testing.T) {
	env := events.Envelope{
		EventID:   "evt-1",
		EventType: events.TypeLeaderboardUpdated,
		Payload:   json.RawMessage(`{"totalPlayers":3}`),
	}

	event, err := convertToWebSocketEvent(env)
	require.NoError(t, err)
	assert.Equal(t, EventTypeLeaderboardUpdate, event.Type)
	assert.Equal(t, "evt-1", event.ID)

	_, err = convertToWebSocketEvent(events.Envelope{EventType: "Bogus"})
	assert.Error(t, err)
}
