// Package events carries the coordinator's domain events between the
// session layer and the transports that fan them out.
package events

import (
	"encoding/json"
	"time"

	"github.com/simonsays-lab/scoreboard/internal/leaderboard"
)

// Event type names as they appear on the wire.
const (
	TypeGameTriggered      = "GameTriggered"
	TypeLeaderboardUpdated = "LeaderboardUpdated"
	TypeSessionExpired     = "SessionExpired"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// GameTriggeredPayload announces that a claim was created and the device
// should start the sequence for this player.
type GameTriggeredPayload struct {
	ClaimID     string    `json:"claimId"`
	Player      string    `json:"player"`
	TriggeredAt time.Time `json:"triggeredAt"`
}

// LeaderboardUpdatedPayload carries the freshly ranked leaderboard after
// a confirmed score.
type LeaderboardUpdatedPayload struct {
	Entries      []leaderboard.ScoreEntry `json:"entries"`
	TotalPlayers int                      `json:"totalPlayers"`
}

// SessionExpiredPayload announces that a stale claim was swept.
type SessionExpiredPayload struct {
	ClaimID   string    `json:"claimId"`
	Player    string    `json:"player"`
	ClaimedAt time.Time `json:"claimedAt"`
}
