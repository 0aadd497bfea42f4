package leaderboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createScoresTable = `
CREATE TABLE IF NOT EXISTS scores (
	id UUID PRIMARY KEY,
	player VARCHAR(30) NOT NULL,
	score INTEGER NOT NULL CHECK (score >= 0),
	recorded_at TIMESTAMPTZ NOT NULL,
	total_duration_ms INTEGER NOT NULL DEFAULT 0,
	avg_response_time_ms INTEGER NOT NULL DEFAULT 0,
	time_bonus INTEGER NOT NULL DEFAULT 0,
	accuracy_bonus INTEGER NOT NULL DEFAULT 0
)`

const selectScores = `
SELECT id, player, score, recorded_at, total_duration_ms, avg_response_time_ms, time_bonus, accuracy_bonus
FROM scores
ORDER BY recorded_at`

const insertScore = `
INSERT INTO scores (id, player, score, recorded_at, total_duration_ms, avg_response_time_ms, time_bonus, accuracy_bonus)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const deleteScore = `DELETE FROM scores WHERE id = $1`

// PostgresStore persists the leaderboard in a scores table. Ranking is
// applied in Go on the read path so the comparator lives in one place;
// the append read-modify-write runs inside a single transaction.
type PostgresStore struct {
	pool      *pgxpool.Pool
	retention int
}

// NewPostgresStore creates a Postgres-backed store on an existing pool.
// retention <= 0 falls back to DefaultRetentionCap.
func NewPostgresStore(pool *pgxpool.Pool, retention int) *PostgresStore {
	if retention <= 0 {
		retention = DefaultRetentionCap
	}
	return &PostgresStore{
		pool:      pool,
		retention: retention,
	}
}

// EnsureSchema creates the scores table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createScoresTable); err != nil {
		return fmt.Errorf("failed to create scores table: %w", err)
	}
	return nil
}

// ReadAll returns every stored entry in ranked order.
func (s *PostgresStore) ReadAll(ctx context.Context) ([]ScoreEntry, error) {
	rows, err := s.pool.Query(ctx, selectScores)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	entries, err := scanScores(rows)
	if err != nil {
		return nil, err
	}
	return Rank(entries), nil
}

// Append inserts the entry, trims everything past the retention cap and
// returns the updated ranked leaderboard. Insert and trim commit
// together or not at all.
func (s *PostgresStore) Append(ctx context.Context, entry ScoreEntry) ([]ScoreEntry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, insertScore,
		entry.ID, entry.Player, entry.Score, entry.Timestamp,
		entry.TotalDurationMs, entry.AvgResponseTimeMs, entry.TimeBonus, entry.AccuracyBonus,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert score: %w", err)
	}

	rows, err := tx.Query(ctx, selectScores)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	entries, err := scanScores(rows)
	if err != nil {
		return nil, err
	}

	ranked := Rank(entries)
	for _, loser := range ranked[min(len(ranked), s.retention):] {
		if _, err := tx.Exec(ctx, deleteScore, loser.ID); err != nil {
			return nil, fmt.Errorf("failed to trim scores: %w", err)
		}
	}
	if len(ranked) > s.retention {
		ranked = ranked[:s.retention]
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit score: %w", err)
	}
	return ranked, nil
}

func scanScores(rows pgx.Rows) ([]ScoreEntry, error) {
	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		err := rows.Scan(
			&e.ID, &e.Player, &e.Score, &e.Timestamp,
			&e.TotalDurationMs, &e.AvgResponseTimeMs, &e.TimeBonus, &e.AccuracyBonus,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	return entries, nil
}
