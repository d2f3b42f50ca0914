// Package store persists diagnostic requests in a key-prefixed SQLite
// key-value table. Each entry is a JSON envelope {value, timestamp, expires,
// version}; reads of expired entries return ErrNotFound and evict the row.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure Go SQLite driver, no CGO required.
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a key is absent or its entry has expired.
var ErrNotFound = errors.New("entry not found")

// envelopeVersion is written with every entry for forward migrations.
const envelopeVersion = 1

// KeyPrefix namespaces every key this application writes.
const KeyPrefix = "densiview:"

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key       TEXT PRIMARY KEY,
	value     TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	expires   INTEGER,
	version   INTEGER NOT NULL
);
`

// Stats reports storage occupancy for quota awareness.
type Stats struct {
	Items      int   `json:"items"`
	ValueBytes int64 `json:"valueBytes"`
}

// Store is a TTL-aware persistent key-value map.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the database at path, applying WAL pragmas and the
// schema. Parent directories are created as needed.
func Open(path string) (*Store, error) {
	return open(path, time.Now)
}

// OpenForTests opens a store with an injectable clock.
func OpenForTests(path string, now func() time.Time) (*Store, error) {
	return open(path, now)
}

func open(path string, now func() time.Time) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply store schema: %w", err)
	}

	return &Store{db: db, now: now}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Set writes value under key with no expiry.
func (s *Store) Set(key string, value any) error {
	return s.set(key, value, 0)
}

// SetTTL writes value under key, expiring after ttl.
func (s *Store) SetTTL(key string, value any, ttl time.Duration) error {
	return s.set(key, value, ttl)
}

func (s *Store) set(key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	nowTS := s.now().UnixMilli()
	var expires sql.NullInt64
	if ttl > 0 {
		expires = sql.NullInt64{Int64: nowTS + ttl.Milliseconds(), Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO kv_entries (key, value, timestamp, expires, version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			timestamp = excluded.timestamp,
			expires = excluded.expires,
			version = excluded.version
	`, KeyPrefix+key, string(raw), nowTS, expires, envelopeVersion)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Get reads the entry under key into dest. An expired entry is evicted and
// reported as ErrNotFound.
func (s *Store) Get(key string, dest any) error {
	var raw string
	var expires sql.NullInt64
	err := s.db.QueryRow(`
		SELECT value, expires FROM kv_entries WHERE key = ?
	`, KeyPrefix+key).Scan(&raw, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	if expires.Valid && expires.Int64 <= s.now().UnixMilli() {
		if err := s.Delete(key); err != nil {
			return fmt.Errorf("evict expired %s: %w", key, err)
		}
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry under key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv_entries WHERE key = ?`, KeyPrefix+key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys under the given sub-prefix, with the application
// namespace stripped. Expired entries are excluded.
func (s *Store) Keys(subPrefix string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT key, expires FROM kv_entries WHERE key LIKE ? ORDER BY key
	`, KeyPrefix+subPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	nowTS := s.now().UnixMilli()
	var keys []string
	for rows.Next() {
		var key string
		var expires sql.NullInt64
		if err := rows.Scan(&key, &expires); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		if expires.Valid && expires.Int64 <= nowTS {
			continue
		}
		keys = append(keys, key[len(KeyPrefix):])
	}
	return keys, rows.Err()
}

// Stats returns item count and total value bytes across live entries.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(value)), 0)
		FROM kv_entries
		WHERE expires IS NULL OR expires > ?
	`, s.now().UnixMilli()).Scan(&st.Items, &st.ValueBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("read stats: %w", err)
	}
	return st, nil
}
