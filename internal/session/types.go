// Package session owns the single game-in-progress claim and the state
// machine Idle -> Claimed -> {Confirmed, Expired} -> Idle.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/simonsays-lab/scoreboard/internal/leaderboard"
)

// State of the session claim.
type State string

const (
	StateIdle    State = "idle"
	StateClaimed State = "claimed"
	StateExpired State = "expired"
)

var (
	// ErrSessionBusy rejects a start while another claim is active.
	ErrSessionBusy = errors.New("a game is already in progress")
	// ErrNoActiveClaim rejects a score with no outstanding claim.
	ErrNoActiveClaim = errors.New("no active game claim")
	// ErrPlayerMismatch rejects a score whose player does not match the
	// outstanding claim.
	ErrPlayerMismatch = errors.New("score player does not match active claim")
)

// Claim is the token representing "a game is in progress for this
// player". At most one non-idle claim exists process-wide.
type Claim struct {
	ID        uuid.UUID `json:"id"`
	Player    string    `json:"player"`
	ClaimedAt time.Time `json:"claimedAt"`
	State     State     `json:"state"`

	// Last device poll that observed this claim, for operators.
	LastPolledBy string    `json:"lastPolledBy,omitempty"`
	LastPolledAt time.Time `json:"lastPolledAt,omitzero"`
}

// ScoreExtras are the optional analytics the device reports alongside
// the score.
type ScoreExtras struct {
	TotalDurationMs   int
	AvgResponseTimeMs int
	TimeBonus         int
	AccuracyBonus     int
}

// SubmitResult reports a confirmed score back to the submitter.
type SubmitResult struct {
	Entry        leaderboard.ScoreEntry
	Position     int
	TotalPlayers int
	Leaderboard  []leaderboard.ScoreEntry
}

// Status is the read-only snapshot exposed to the status endpoint.
type Status struct {
	Active      bool
	Player      string
	TriggeredAt *time.Time
}
