package leaderboard

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Rank returns a new slice ordered by the scoreboard comparator:
//
//  1. score, highest first
//  2. total duration, fastest first
//  3. average response time, fastest first
//  4. time bonus, highest first
//  5. accuracy bonus, highest first
//
// An unreported duration or response time (zero value on a legacy
// entry) sorts as slowest, so missing analytics never outrank a timed
// run and the order stays total. Entries equal on every key keep their
// original relative order. Rank is idempotent: Rank(Rank(x)) == Rank(x).
func Rank(entries []ScoreEntry) []ScoreEntry {
	ranked := make([]ScoreEntry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranksHigher(ranked[i], ranked[j])
	})
	return ranked
}

func ranksHigher(a, b ScoreEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if da, db := timingKey(a.TotalDurationMs), timingKey(b.TotalDurationMs); da != db {
		return da < db
	}
	if ra, rb := timingKey(a.AvgResponseTimeMs), timingKey(b.AvgResponseTimeMs); ra != rb {
		return ra < rb
	}
	if a.TimeBonus != b.TimeBonus {
		return a.TimeBonus > b.TimeBonus
	}
	if a.AccuracyBonus != b.AccuracyBonus {
		return a.AccuracyBonus > b.AccuracyBonus
	}
	return false
}

// timingKey maps an unreported measurement to the slowest possible
// value. Comparing raw zeros would rank a legacy entry as fastest, and
// skipping the comparison when a side is missing would make the order
// intransitive.
func timingKey(ms int) int {
	if ms <= 0 {
		return math.MaxInt
	}
	return ms
}

// Position returns the 1-based rank of the entry with the given ID, or 0
// if it is not present (e.g. it fell past the retention cap).
func Position(ranked []ScoreEntry, id uuid.UUID) int {
	for i, entry := range ranked {
		if entry.ID == id {
			return i + 1
		}
	}
	return 0
}
