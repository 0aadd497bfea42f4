package leaderboard

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxPlayerNameLen caps player names on the scoreboard.
const MaxPlayerNameLen = 30

var (
	ErrInvalidPlayer = errors.New("player name must be 1-30 characters")
	ErrInvalidScore  = errors.New("score must be a non-negative number")
)

// ScoreEntry is one completed game result. Entries are immutable once
// stored; the leaderboard only ever grows by insertion and re-ranking.
//
// The analytics fields come from the device and default to zero for
// legacy entries. A zero duration or response time means the field was
// not reported.
type ScoreEntry struct {
	ID                uuid.UUID `json:"id"`
	Player            string    `json:"player"`
	Score             int       `json:"score"`
	Timestamp         time.Time `json:"timestamp"`
	TotalDurationMs   int       `json:"totalDurationMs,omitempty"`
	AvgResponseTimeMs int       `json:"avgResponseTimeMs,omitempty"`
	TimeBonus         int       `json:"timeBonus,omitempty"`
	AccuracyBonus     int       `json:"accuracyBonus,omitempty"`
}

// NormalizePlayerName trims and length-checks a player name.
func NormalizePlayerName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > MaxPlayerNameLen {
		return "", ErrInvalidPlayer
	}
	return trimmed, nil
}

// Validate checks the invariants a new entry must satisfy before it is
// persisted.
func (e ScoreEntry) Validate() error {
	if _, err := NormalizePlayerName(e.Player); err != nil {
		return err
	}
	if e.Score < 0 {
		return ErrInvalidScore
	}
	if e.TotalDurationMs < 0 || e.AvgResponseTimeMs < 0 || e.TimeBonus < 0 || e.AccuracyBonus < 0 {
		return ErrInvalidScore
	}
	return nil
}
