package leaderboard

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(player string, score int) ScoreEntry {
	return ScoreEntry{
		ID:        uuid.New(),
		Player:    player,
		Score:     score,
		Timestamp: time.Now(),
	}
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	entries := []ScoreEntry{
		entry("low", 10),
		entry("high", 90),
		entry("mid", 50),
	}

	ranked := Rank(entries)

	require.Len(t, ranked, 3)
	assert.Equal(t, "high", ranked[0].Player)
	assert.Equal(t, "mid", ranked[1].Player)
	assert.Equal(t, "low", ranked[2].Player)
}

func TestRankTieBreaksByTotalDuration(t *testing.T) {
	slow := entry("slow", 40)
	slow.TotalDurationMs = 9000
	fast := entry("fast", 40)
	fast.TotalDurationMs = 4000

	ranked := Rank([]ScoreEntry{slow, fast})

	assert.Equal(t, "fast", ranked[0].Player)
	assert.Equal(t, "slow", ranked[1].Player)
}

func TestRankUnreportedDurationSortsSlowest(t *testing.T) {
	// A legacy entry with no duration must not rank as "fastest" just
	// because its zero value is the smallest number.
	legacy := entry("legacy", 40)
	timed := entry("timed", 40)
	timed.TotalDurationMs = 4000

	ranked := Rank([]ScoreEntry{legacy, timed})

	assert.Equal(t, "timed", ranked[0].Player)
	assert.Equal(t, "legacy", ranked[1].Player)
}

func TestRankLegacyEntryBetweenTimedEntries(t *testing.T) {
	// A legacy entry sitting between two timed equal-score entries must
	// not stop the faster one from overtaking the slower one.
	slow := entry("slow", 40)
	slow.TotalDurationMs = 2000
	legacy := entry("legacy", 40)
	fast := entry("fast", 40)
	fast.TotalDurationMs = 1000

	ranked := Rank([]ScoreEntry{slow, legacy, fast})

	assert.Equal(t, "fast", ranked[0].Player)
	assert.Equal(t, "slow", ranked[1].Player)
	assert.Equal(t, "legacy", ranked[2].Player)
}

func TestRankFullTieBreakChain(t *testing.T) {
	a := entry("a", 40)
	a.TotalDurationMs = 5000
	a.AvgResponseTimeMs = 300
	a.TimeBonus = 10
	a.AccuracyBonus = 5

	b := a
	b.ID = uuid.New()
	b.Player = "b"
	b.AccuracyBonus = 8

	c := a
	c.ID = uuid.New()
	c.Player = "c"
	c.TimeBonus = 20

	d := a
	d.ID = uuid.New()
	d.Player = "d"
	d.AvgResponseTimeMs = 200

	ranked := Rank([]ScoreEntry{a, b, c, d})

	assert.Equal(t, "d", ranked[0].Player) // fastest avg response
	assert.Equal(t, "c", ranked[1].Player) // highest time bonus
	assert.Equal(t, "b", ranked[2].Player) // highest accuracy bonus
	assert.Equal(t, "a", ranked[3].Player)
}

func TestRankKeepsInsertionOrderForFullTies(t *testing.T) {
	first := entry("first", 40)
	second := entry("second", 40)
	third := entry("third", 40)

	ranked := Rank([]ScoreEntry{first, second, third})

	assert.Equal(t, "first", ranked[0].Player)
	assert.Equal(t, "second", ranked[1].Player)
	assert.Equal(t, "third", ranked[2].Player)
}

func TestRankIsIdempotent(t *testing.T) {
	entries := []ScoreEntry{
		entry("a", 40),
		entry("b", 90),
		entry("c", 40),
		entry("d", 10),
	}
	entries[0].TotalDurationMs = 3000
	entries[2].TotalDurationMs = 2000

	once := Rank(entries)
	twice := Rank(once)

	assert.Equal(t, once, twice)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	entries := []ScoreEntry{
		entry("low", 10),
		entry("high", 90),
	}

	Rank(entries)

	assert.Equal(t, "low", entries[0].Player)
	assert.Equal(t, "high", entries[1].Player)
}

func TestPosition(t *testing.T) {
	entries := []ScoreEntry{
		entry("a", 90),
		entry("b", 50),
	}

	assert.Equal(t, 2, Position(entries, entries[1].ID))
	assert.Equal(t, 0, Position(entries, uuid.New()))
}

func TestNormalizePlayerName(t *testing.T) {
	name, err := NormalizePlayerName("  Alice  ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	_, err = NormalizePlayerName("   ")
	assert.ErrorIs(t, err, ErrInvalidPlayer)

	_, err = NormalizePlayerName("this-name-is-way-too-long-for-the-board")
	assert.ErrorIs(t, err, ErrInvalidPlayer)
}

func TestScoreEntryValidate(t *testing.T) {
	valid := entry("Alice", 40)
	require.NoError(t, valid.Validate())

	negative := entry("Alice", -1)
	assert.ErrorIs(t, negative.Validate(), ErrInvalidScore)

	badBonus := entry("Alice", 40)
	badBonus.TimeBonus = -5
	assert.ErrorIs(t, badBonus.Validate(), ErrInvalidScore)
}
