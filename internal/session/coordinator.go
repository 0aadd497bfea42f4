package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/simonsays-lab/scoreboard/internal/events"
	"github.com/simonsays-lab/scoreboard/internal/leaderboard"
)

// Config holds the coordinator's timing policy.
type Config struct {
	// ClaimVisibility is how long a claim stays visible to device polls.
	ClaimVisibility time.Duration
	// ClaimBackstop forcibly clears a stuck claim regardless of
	// transport state. Must be >= ClaimVisibility.
	ClaimBackstop time.Duration
	// SweepInterval is how often the background sweep runs.
	SweepInterval time.Duration
}

// DefaultConfig matches the device firmware's expectations: 30s trigger
// visibility, 45s backstop, sweep every 10s.
func DefaultConfig() Config {
	return Config{
		ClaimVisibility: 30 * time.Second,
		ClaimBackstop:   45 * time.Second,
		SweepInterval:   10 * time.Second,
	}
}

// Coordinator owns the session claim. Every transition runs under one
// mutex so a start, a score submission and the expiry sweep can never
// interleave mid-transition. Reads take the same mutex and therefore
// never observe a half-applied state.
type Coordinator struct {
	mu    sync.Mutex
	claim *Claim

	clock     clockwork.Clock
	store     leaderboard.Store
	publisher events.Publisher
	config    Config
}

// NewCoordinator creates a coordinator with injected clock, store and
// publisher. Use clockwork.NewRealClock() in production and a fake clock
// in tests.
func NewCoordinator(store leaderboard.Store, publisher events.Publisher, clock clockwork.Clock, config Config) *Coordinator {
	if config.ClaimVisibility <= 0 {
		config.ClaimVisibility = DefaultConfig().ClaimVisibility
	}
	if config.ClaimBackstop < config.ClaimVisibility {
		config.ClaimBackstop = config.ClaimVisibility + 15*time.Second
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Coordinator{
		clock:     clock,
		store:     store,
		publisher: publisher,
		config:    config,
	}
}

// Config returns the coordinator's timing policy.
func (c *Coordinator) Config() Config {
	return c.config
}

// StartGame claims the session for a player. Valid only from idle: while
// another claim is active it returns ErrSessionBusy without touching the
// existing claim. On success it publishes a GameTriggered event.
func (c *Coordinator) StartGame(ctx context.Context, player string) (Claim, error) {
	name, err := leaderboard.NormalizePlayerName(player)
	if err != nil {
		return Claim{}, err
	}

	c.mu.Lock()
	now := c.clock.Now()
	expired := c.expireLocked(now)
	if c.claim != nil {
		current := *c.claim
		c.mu.Unlock()
		c.publishExpired(ctx, expired)
		log.Warn().
			Str("player", name).
			Str("active_player", current.Player).
			Time("claimed_at", current.ClaimedAt).
			Msg("start rejected, session busy")
		return Claim{}, ErrSessionBusy
	}

	claim := &Claim{
		ID:        uuid.New(),
		Player:    name,
		ClaimedAt: now,
		State:     StateClaimed,
	}
	c.claim = claim
	snapshot := *claim
	c.mu.Unlock()

	c.publishExpired(ctx, expired)
	c.publish(ctx, events.TypeGameTriggered, events.GameTriggeredPayload{
		ClaimID:     snapshot.ID.String(),
		Player:      snapshot.Player,
		TriggeredAt: snapshot.ClaimedAt,
	})

	log.Info().
		Str("claim_id", snapshot.ID.String()).
		Str("player", snapshot.Player).
		Msg("game triggered")
	return snapshot, nil
}

// PollClaim is the device-side read. The claim stays visible to every
// poll inside its visibility window: the device may miss a response and
// must be able to recover the trigger on its next poll. Past the window
// the poll sees nothing, but the claim itself survives until the
// backstop so a late score can still land.
func (c *Coordinator) PollClaim(deviceID string) (Claim, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.claim == nil || now.Sub(c.claim.ClaimedAt) > c.config.ClaimVisibility {
		log.Debug().Str("device_id", deviceID).Msg("device poll, no active trigger")
		return Claim{}, false
	}

	c.claim.LastPolledBy = deviceID
	c.claim.LastPolledAt = now
	snapshot := *c.claim

	log.Debug().
		Str("device_id", deviceID).
		Str("player", snapshot.Player).
		Dur("claim_age", now.Sub(snapshot.ClaimedAt)).
		Msg("trigger delivered to device poll")
	return snapshot, true
}

// ConfirmScore records a completed game. It requires an active claim
// whose player matches exactly; otherwise the store is untouched. On a
// persistence failure the claim stays active so the device can retry
// inside its window; only a successful append resets the session.
func (c *Coordinator) ConfirmScore(ctx context.Context, player string, score int, extras ScoreExtras) (SubmitResult, error) {
	name, err := leaderboard.NormalizePlayerName(player)
	if err != nil {
		return SubmitResult{}, err
	}
	if score < 0 || extras.TotalDurationMs < 0 || extras.AvgResponseTimeMs < 0 || extras.TimeBonus < 0 || extras.AccuracyBonus < 0 {
		return SubmitResult{}, leaderboard.ErrInvalidScore
	}

	c.mu.Lock()
	now := c.clock.Now()
	expired := c.expireLocked(now)

	if c.claim == nil {
		c.mu.Unlock()
		c.publishExpired(ctx, expired)
		return SubmitResult{}, ErrNoActiveClaim
	}
	if c.claim.Player != name {
		claimed := c.claim.Player
		c.mu.Unlock()
		log.Warn().
			Str("submitted_player", name).
			Str("claimed_player", claimed).
			Msg("score rejected, player mismatch")
		return SubmitResult{}, ErrPlayerMismatch
	}

	entry := leaderboard.ScoreEntry{
		ID:                uuid.New(),
		Player:            name,
		Score:             score,
		Timestamp:         now,
		TotalDurationMs:   extras.TotalDurationMs,
		AvgResponseTimeMs: extras.AvgResponseTimeMs,
		TimeBonus:         extras.TimeBonus,
		AccuracyBonus:     extras.AccuracyBonus,
	}

	// The append happens under the session mutex: this is the
	// single-writer discipline that keeps a near-simultaneous second
	// submission from also believing it holds the claim. The store
	// checks the caller's context before touching its backing resource.
	ranked, err := c.store.Append(ctx, entry)
	if err != nil {
		c.mu.Unlock()
		log.Error().Err(err).Str("player", name).Int("score", score).Msg("score persistence failed")
		return SubmitResult{}, fmt.Errorf("persist score: %w", err)
	}

	claimID := c.claim.ID
	c.claim = nil // confirmed -> idle
	c.mu.Unlock()

	result := SubmitResult{
		Entry:        entry,
		Position:     leaderboard.Position(ranked, entry.ID),
		TotalPlayers: len(ranked),
		Leaderboard:  ranked,
	}

	c.publish(ctx, events.TypeLeaderboardUpdated, events.LeaderboardUpdatedPayload{
		Entries:      ranked,
		TotalPlayers: len(ranked),
	})

	log.Info().
		Str("claim_id", claimID.String()).
		Str("player", name).
		Int("score", score).
		Int("position", result.Position).
		Int("total_players", result.TotalPlayers).
		Msg("score confirmed")
	return result, nil
}

// ExpireIfStale clears the claim once it is older than the backstop.
// Called by the background sweeper so a stuck claim clears even with
// zero request traffic.
func (c *Coordinator) ExpireIfStale(ctx context.Context, now time.Time) {
	c.mu.Lock()
	expired := c.expireLocked(now)
	c.mu.Unlock()
	c.publishExpired(ctx, expired)
}

// Reset administratively clears the claim from any state.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	had := c.claim != nil
	c.claim = nil
	c.mu.Unlock()

	if had {
		log.Info().Msg("session claim reset")
	}
}

// Status returns a read-only snapshot for the status endpoint. A claim
// past its poll-visibility window still reports active until it is
// confirmed or swept.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.claim == nil {
		return Status{}
	}
	at := c.claim.ClaimedAt
	return Status{
		Active:      true,
		Player:      c.claim.Player,
		TriggeredAt: &at,
	}
}

// expireLocked transitions claimed -> expired -> idle when the claim is
// past the backstop. Returns a snapshot of the expired claim for
// publishing after the mutex is released, or nil.
func (c *Coordinator) expireLocked(now time.Time) *Claim {
	if c.claim == nil {
		return nil
	}
	age := now.Sub(c.claim.ClaimedAt)
	if age <= c.config.ClaimBackstop {
		return nil
	}

	expired := *c.claim
	expired.State = StateExpired
	c.claim = nil

	log.Info().
		Str("claim_id", expired.ID.String()).
		Str("player", expired.Player).
		Dur("claim_age", age).
		Msg("stale claim expired")
	return &expired
}

func (c *Coordinator) publishExpired(ctx context.Context, expired *Claim) {
	if expired == nil {
		return
	}
	c.publish(ctx, events.TypeSessionExpired, events.SessionExpiredPayload{
		ClaimID:   expired.ID.String(),
		Player:    expired.Player,
		ClaimedAt: expired.ClaimedAt,
	})
}

// publish is fire-and-forget: a broadcast that nobody hears must not
// fail the transition that produced it.
func (c *Coordinator) publish(ctx context.Context, eventType string, payload any) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, eventType, payload); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
