package gateway

import (
	"encoding/json"
	"time"
)

// GameEvent is the envelope pushed to browser websocket clients.
type GameEvent struct {
	ID        string          `json:"id"`        // Event UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType names the outbound browser events.
type EventType string

const (
	EventTypeGameTriggered     EventType = "game-triggered"
	EventTypeLeaderboardUpdate EventType = "leaderboard-update"
	EventTypeSessionExpired    EventType = "session-expired"
)

// ClientMessage is what a browser may send over the websocket. The only
// supported inbound command is a game start.
type ClientMessage struct {
	Type   string `json:"type"`
	Player string `json:"player"`
}

const clientMessageStartGame = "start-game"
