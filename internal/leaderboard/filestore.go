package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore persists the leaderboard as a single JSON array file.
// Writes go to a temp file in the same directory followed by an atomic
// rename, so the file on disk is always a complete, parseable array.
type FileStore struct {
	path      string
	retention int
	mu        sync.Mutex
}

// NewFileStore creates a file-backed store. retention <= 0 falls back to
// DefaultRetentionCap.
func NewFileStore(path string, retention int) *FileStore {
	if retention <= 0 {
		retention = DefaultRetentionCap
	}
	return &FileStore{
		path:      path,
		retention: retention,
	}
}

// ReadAll returns the stored entries. A missing or unparseable file
// reads as an empty leaderboard rather than an error.
func (s *FileStore) ReadAll(ctx context.Context) ([]ScoreEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// Append inserts the entry, re-ranks, truncates to the retention cap and
// rewrites the whole file. The read-modify-write runs under the store
// mutex so concurrent submissions cannot interleave.
func (s *FileStore) Append(ctx context.Context, entry ScoreEntry) ([]ScoreEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	entries = append(entries, entry)
	ranked := Rank(entries)
	if len(ranked) > s.retention {
		ranked = ranked[:s.retention]
	}

	if err := s.writeLocked(ranked); err != nil {
		return ranked, fmt.Errorf("persist leaderboard: %w", err)
	}
	return ranked, nil
}

func (s *FileStore) readLocked() ([]ScoreEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []ScoreEntry{}, nil
		}
		return nil, fmt.Errorf("read leaderboard file: %w", err)
	}

	var entries []ScoreEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().
			Err(err).
			Str("path", s.path).
			Msg("leaderboard file corrupt, starting with empty leaderboard")
		return []ScoreEntry{}, nil
	}
	return entries, nil
}

func (s *FileStore) writeLocked(entries []ScoreEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".leaderboard-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace leaderboard file: %w", err)
	}
	return nil
}
