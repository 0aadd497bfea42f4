package leaderboard

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T, retention int) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "leaderboard.json"), retention)
}

func TestFileStoreMissingFileReadsEmpty(t *testing.T) {
	store := newTestFileStore(t, 0)

	entries, err := store.ReadAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStoreCorruptFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaderboard.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	store := NewFileStore(path, 0)

	entries, err := store.ReadAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStoreAppendRoundTrip(t *testing.T) {
	store := newTestFileStore(t, 0)

	want := ScoreEntry{
		ID:                uuid.New(),
		Player:            "Alice",
		Score:             40,
		Timestamp:         time.Now().UTC().Truncate(time.Millisecond),
		TotalDurationMs:   5000,
		AvgResponseTimeMs: 320,
		TimeBonus:         12,
		AccuracyBonus:     4,
	}

	ranked, err := store.Append(context.Background(), want)
	require.NoError(t, err)
	require.Len(t, ranked, 1)

	entries, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, want.ID, entries[0].ID)
	assert.Equal(t, want.Player, entries[0].Player)
	assert.Equal(t, want.Score, entries[0].Score)
	assert.True(t, want.Timestamp.Equal(entries[0].Timestamp))
	assert.Equal(t, want.TotalDurationMs, entries[0].TotalDurationMs)
	assert.Equal(t, want.AvgResponseTimeMs, entries[0].AvgResponseTimeMs)
	assert.Equal(t, want.TimeBonus, entries[0].TimeBonus)
	assert.Equal(t, want.AccuracyBonus, entries[0].AccuracyBonus)
}

func TestFileStoreAppendReturnsRankedOrder(t *testing.T) {
	store := newTestFileStore(t, 0)
	ctx := context.Background()

	_, err := store.Append(ctx, ScoreEntry{ID: uuid.New(), Player: "low", Score: 10, Timestamp: time.Now()})
	require.NoError(t, err)
	ranked, err := store.Append(ctx, ScoreEntry{ID: uuid.New(), Player: "high", Score: 90, Timestamp: time.Now()})
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, "high", ranked[0].Player)
	assert.Equal(t, "low", ranked[1].Player)
}

func TestFileStoreAppendRanksTimedEntriesPastLegacyOnes(t *testing.T) {
	store := newTestFileStore(t, 0)
	ctx := context.Background()

	submit := func(player string, durationMs int) {
		t.Helper()
		_, err := store.Append(ctx, ScoreEntry{
			ID:              uuid.New(),
			Player:          player,
			Score:           40,
			Timestamp:       time.Now(),
			TotalDurationMs: durationMs,
		})
		require.NoError(t, err)
	}

	submit("fast", 1000)
	submit("slow", 2000)
	submit("legacy", 0)
	submit("mid", 1500)

	entries, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "fast", entries[0].Player)
	assert.Equal(t, "mid", entries[1].Player)
	assert.Equal(t, "slow", entries[2].Player)
	assert.Equal(t, "legacy", entries[3].Player)
}

func TestFileStoreRetentionCap(t *testing.T) {
	store := newTestFileStore(t, 3)
	ctx := context.Background()

	for i, score := range []int{10, 50, 30, 70, 20} {
		_, err := store.Append(ctx, ScoreEntry{
			ID:        uuid.New(),
			Player:    "player",
			Score:     score,
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	entries, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 70, entries[0].Score)
	assert.Equal(t, 50, entries[1].Score)
	assert.Equal(t, 30, entries[2].Score)
}

func TestFileStoreConcurrentAppendsLoseNoEntry(t *testing.T) {
	store := newTestFileStore(t, 0)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_, err := store.Append(ctx, ScoreEntry{
				ID:        uuid.New(),
				Player:    "player",
				Score:     score,
				Timestamp: time.Now(),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, writers)

	// Every score survived and came back ranked
	for i, e := range entries {
		assert.Equal(t, writers-1-i, e.Score)
	}
}

func TestFileStoreFileIsAlwaysValidJSONArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaderboard.json")
	store := NewFileStore(path, 0)

	_, err := store.Append(context.Background(), ScoreEntry{ID: uuid.New(), Player: "Alice", Score: 40, Timestamp: time.Now()})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 1)

	// No temp files left behind
	matches, err := filepath.Glob(filepath.Join(dir, ".leaderboard-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileStoreCancelledContext(t *testing.T) {
	store := newTestFileStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Append(ctx, ScoreEntry{ID: uuid.New(), Player: "Alice", Score: 40, Timestamp: time.Now()})
	assert.ErrorIs(t, err, context.Canceled)
}
