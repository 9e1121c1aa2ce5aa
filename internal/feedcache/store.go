// Package feedcache provides the SQLite-backed cold-start cache for feed
// columns. Strictly best-effort: callers treat every error as "no cache".
package feedcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/tbraaten/notefeed/internal/feed"
	"github.com/tbraaten/notefeed/internal/logging"
)

const (
	defaultMaxPerFeed  = 100
	defaultBusyTimeout = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS feed_cache (
	feed_key TEXT NOT NULL,
	position INTEGER NOT NULL,
	note_id  TEXT NOT NULL,
	payload  TEXT NOT NULL,
	saved_at TEXT NOT NULL,
	PRIMARY KEY (feed_key, position)
);
`

// Config configures the cache store.
type Config struct {
	// Path is the SQLite database file path.
	Path string

	// MaxPerFeed caps how many notes are kept per feed key.
	// Default: 100.
	MaxPerFeed int
}

// Store persists column heads so a remounted column can render before its
// first fetch completes. Implements feed.CacheStore.
type Store struct {
	db         *sql.DB
	maxPerFeed int
	log        zerolog.Logger
}

// Open opens (creating if necessary) the cache database.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache path required")
	}
	maxPerFeed := cfg.MaxPerFeed
	if maxPerFeed <= 0 {
		maxPerFeed = defaultMaxPerFeed
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		cfg.Path, defaultBusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Store{
		db:         db,
		maxPerFeed: maxPerFeed,
		log:        logging.Component("feedcache"),
	}, nil
}

// LoadCached returns the cached head of a feed, newest first. A malformed
// payload fails the whole load; the caller treats that as no cache available.
func (s *Store) LoadCached(ctx context.Context, feedKey string, limit int) ([]*feed.Note, error) {
	if limit <= 0 || limit > s.maxPerFeed {
		limit = s.maxPerFeed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM feed_cache
		WHERE feed_key = ?
		ORDER BY position ASC
		LIMIT ?`, feedKey, limit)
	if err != nil {
		return nil, fmt.Errorf("load cached feed %s: %w", feedKey, err)
	}
	defer rows.Close()

	var notes []*feed.Note
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("load cached feed %s: %w", feedKey, err)
		}
		var n feed.Note
		if err := json.Unmarshal([]byte(payload), &n); err != nil {
			return nil, fmt.Errorf("malformed cache entry in feed %s: %w", feedKey, err)
		}
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load cached feed %s: %w", feedKey, err)
	}
	return notes, nil
}

// Save replaces the cached head of a feed with the given notes, newest first,
// capped at MaxPerFeed.
func (s *Store) Save(ctx context.Context, feedKey string, notes []*feed.Note) error {
	if len(notes) > s.maxPerFeed {
		notes = notes[:s.maxPerFeed]
	}
	savedAt := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save feed %s: %w", feedKey, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM feed_cache WHERE feed_key = ?`, feedKey); err != nil {
		return fmt.Errorf("save feed %s: %w", feedKey, err)
	}
	for i, n := range notes {
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("save feed %s: %w", feedKey, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO feed_cache (feed_key, position, note_id, payload, saved_at)
			VALUES (?, ?, ?, ?, ?)`,
			feedKey, i, n.ID, string(payload), savedAt); err != nil {
			return fmt.Errorf("save feed %s: %w", feedKey, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save feed %s: %w", feedKey, err)
	}
	s.log.Debug().Str("feed_key", feedKey).Int("notes", len(notes)).Msg("feed head cached")
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
