package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"odeslibot/pkg/musiclink"
)

const schema = `
CREATE TABLE IF NOT EXISTS song_cache (
	cache_key  TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS song_cache_expires_at ON song_cache (expires_at);
`

// SQLite persists resolved songs across restarts.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// OpenSQLite opens (creating if needed) the cache database at path.
func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite cache path is required")
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	s := &SQLite{db: db, logger: logger.Named("cache"), now: time.Now}
	if n, err := s.DeleteExpired(); err != nil {
		s.logger.Warn("Failed to purge expired cache entries", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("Purged expired cache entries", zap.Int64("count", n))
	}

	return s, nil
}

// Get returns the cached song if it has not expired.
func (s *SQLite) Get(key string) (*musiclink.SongInfo, bool) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM song_cache WHERE cache_key = ? AND expires_at > ?`,
		key, s.now().UnixMilli(),
	).Scan(&payload)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("Cache lookup failed", zap.String("cache_key", key), zap.Error(err))
		}
		return nil, false
	}

	var song musiclink.SongInfo
	if err := json.Unmarshal([]byte(payload), &song); err != nil {
		s.logger.Error("Corrupt cache entry", zap.String("cache_key", key), zap.Error(err))
		return nil, false
	}
	if song.IDs == nil {
		song.IDs = map[string]struct{}{}
	}
	return &song, true
}

// Set stores song for ttl, replacing any previous entry.
func (s *SQLite) Set(key string, song *musiclink.SongInfo, ttl time.Duration) {
	if ttl <= 0 || !song.Resolved() {
		return
	}

	payload, err := json.Marshal(song)
	if err != nil {
		s.logger.Error("Failed to encode cache entry", zap.String("cache_key", key), zap.Error(err))
		return
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO song_cache (cache_key, payload, expires_at) VALUES (?, ?, ?)`,
		key, string(payload), s.now().Add(ttl).UnixMilli(),
	)
	if err != nil {
		s.logger.Error("Failed to write cache entry", zap.String("cache_key", key), zap.Error(err))
	}
}

// Clear deletes every entry.
func (s *SQLite) Clear() {
	if _, err := s.db.Exec(`DELETE FROM song_cache`); err != nil {
		s.logger.Error("Failed to clear cache", zap.Error(err))
	}
}

// DeleteExpired removes stale rows and reports how many were deleted.
func (s *SQLite) DeleteExpired() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM song_cache WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Len returns the number of live entries.
func (s *SQLite) Len() int {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM song_cache WHERE expires_at > ?`, s.now().UnixMilli()).Scan(&n)
	if err != nil {
		s.logger.Error("Failed to count cache entries", zap.Error(err))
	}
	return n
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
