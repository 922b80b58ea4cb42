package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"tournament-draft-system/models"
)

// CacheKey is the fixed name the whole draft collection is stored under.
const CacheKey = "tournament_drafts"

const localSchema = `
CREATE TABLE IF NOT EXISTS draft_cache (
	cache_key  TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// LocalStore is the durable single-keyspace cache backing the offline tier.
// It stores the entire draft collection as one serialized value and does no
// merging of its own — last full write wins; the repository computes what to
// write.
type LocalStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenLocalStore opens (creating if needed) the SQLite cache at path.
// Pure-Go driver, so the cache works on any host with no network and no cgo.
func OpenLocalStore(path string) (*LocalStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &LocalStorageError{Op: "local open", Err: err}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &LocalStorageError{Op: "local open", Err: err}
	}
	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, &LocalStorageError{Op: "local open", Err: err}
	}
	return &LocalStore{db: db}, nil
}

// Read returns the cached draft collection. A missing key yields an empty
// collection, not an error.
func (s *LocalStore) Read(ctx context.Context) ([]models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM draft_cache WHERE cache_key = ?", CacheKey,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.Draft{}, nil
	}
	if err != nil {
		return nil, &LocalStorageError{Op: "local read", Err: err}
	}
	var drafts []models.Draft
	if err := json.Unmarshal(payload, &drafts); err != nil {
		return nil, &LocalStorageError{Op: "local read", Err: err}
	}
	return drafts, nil
}

// Write replaces the cached collection with the given one.
func (s *LocalStore) Write(ctx context.Context, drafts []models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(drafts)
	if err != nil {
		return &LocalStorageError{Op: "local write", Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO draft_cache (cache_key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		CacheKey, payload, time.Now().UTC())
	if err != nil {
		return &LocalStorageError{Op: "local write", Err: err}
	}
	return nil
}

// Clear removes the cached collection entirely.
func (s *LocalStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM draft_cache WHERE cache_key = ?", CacheKey); err != nil {
		return &LocalStorageError{Op: "local clear", Err: err}
	}
	return nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}
