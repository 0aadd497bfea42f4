package leaderboard

import "context"

// DefaultRetentionCap bounds how many entries a store keeps. Entries
// that fall past the cap after re-ranking are discarded.
const DefaultRetentionCap = 100

// Store is the persistence contract for the leaderboard. Implementations
// must serialize Append internally (single-writer discipline) so that
// two concurrent submissions cannot lose an update, and every successful
// Append must leave the backing resource fully written.
//
// ReadAll returns an empty collection when the backing resource is
// missing or corrupt: the scoreboard stays available for new games even
// if history is lost.
type Store interface {
	ReadAll(ctx context.Context) ([]ScoreEntry, error)
	Append(ctx context.Context, entry ScoreEntry) ([]ScoreEntry, error)
}
