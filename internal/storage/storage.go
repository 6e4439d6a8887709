package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/oracle/internal/shared"
)

// Well known keys.
const (
	KeyAuthToken   = "auth_token"
	KeyCurrentUser = "current_user"
	KeyRememberMe  = "remember_me"
	KeyDemoSession = "demo_session" // session scope
	KeyTasks       = "boxing_tasks"
)

// Scope is a key/value namespace holding JSON encoded values.
type Scope interface {
	// Get decodes the value stored under key into dest. found is false when the key is absent.
	Get(key string, dest any) (found bool, err error)
	Set(key string, value any) error
	Remove(key string) error
}

// ChangeEvent describes a key written by another process. A nil value means absent.
type ChangeEvent struct {
	Key      string
	OldValue *string
	NewValue *string
}

// Removed reports whether the key no longer exists.
func (e ChangeEvent) Removed() bool {
	return e.NewValue == nil
}

// Store is the durable scope backed by SQLite.
type Store struct {
	db         *sql.DB
	signalPath string
	writer     string
	logger     *log.Logger
	session    *SessionScope
	ownsDB     bool

	mu    sync.Mutex
	known map[string]string
}

// Open opens (creating if needed) the storage database described by cfg and applies migrations.
func Open(cfg shared.StorageConfig, logger *log.Logger) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && cfg.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create storage dir: %v", shared.ErrStorage, err)
		}
	}

	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	s, err := New(db, cfg.SignalPath, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// New creates a [Store] over a migrated database. signalPath may be empty to disable signalling.
func New(db *sql.DB, signalPath string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}

	s := &Store{
		db:         db,
		signalPath: signalPath,
		writer:     shared.GenerateID(),
		logger:     shared.WithLogger(logger, "component", "storage"),
		session:    NewSessionScope(),
	}

	known, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	s.known = known
	return s, nil
}

// Close closes the database when the store opened it.
func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Session returns the process-local scope.
func (s *Store) Session() *SessionScope {
	return s.session
}

// SignalPath returns the file touched after every write.
func (s *Store) SignalPath() string {
	return s.signalPath
}

// Get decodes the durable value for key into dest.
func (s *Store) Get(key string, dest any) (bool, error) {
	raw, found, err := s.GetRaw(key)
	if err != nil || !found {
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", shared.ErrStorage, key, err)
	}
	return true, nil
}

// GetRaw returns the JSON text stored under key.
func (s *Store) GetRaw(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: read %s: %v", shared.ErrStorage, key, err)
	}
	return value, true, nil
}

// Set stores value as JSON under key.
func (s *Store) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", shared.ErrStorage, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rev, err := s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO kv (key, value, writer, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, writer = excluded.writer, updated_at = excluded.updated_at
		`, key, string(data), s.writer)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", shared.ErrStorage, key, err)
	}

	s.known[key] = string(data)
	s.signal(rev)
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rev, err := s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM kv WHERE key = ?", key)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: remove %s: %v", shared.ErrStorage, key, err)
	}

	delete(s.known, key)
	s.signal(rev)
	return nil
}

// Keys returns every durable key, sorted.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("%w: list keys: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: scan key: %v", shared.ErrStorage, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Revision returns the number of durable writes recorded so far.
func (s *Store) Revision() (int64, error) {
	var rev int64
	if err := s.db.QueryRow("SELECT value FROM kv_revision WHERE id = 1").Scan(&rev); err != nil {
		return 0, fmt.Errorf("%w: read revision: %v", shared.ErrStorage, err)
	}
	return rev, nil
}

// Changes diffs the database against the last state this store observed and returns one event per key that differs.
func (s *Store) Changes() ([]ChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	var events []ChangeEvent
	for key, old := range s.known {
		next, ok := current[key]
		switch {
		case !ok:
			events = append(events, ChangeEvent{Key: key, OldValue: ptr(old)})
		case next != old:
			events = append(events, ChangeEvent{Key: key, OldValue: ptr(old), NewValue: ptr(next)})
		}
	}
	for key, next := range current {
		if _, ok := s.known[key]; !ok {
			events = append(events, ChangeEvent{Key: key, NewValue: ptr(next)})
		}
	}

	s.known = current
	return events, nil
}

// write runs fn and the revision bump in one transaction and returns the new revision.
func (s *Store) write(fn func(tx *sql.Tx) error) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return 0, err
	}

	if _, err := tx.Exec("UPDATE kv_revision SET value = value + 1 WHERE id = 1"); err != nil {
		return 0, fmt.Errorf("failed to increment revision: %w", err)
	}

	var rev int64
	if err := tx.QueryRow("SELECT value FROM kv_revision WHERE id = 1").Scan(&rev); err != nil {
		return 0, fmt.Errorf("failed to get revision value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit write: %w", err)
	}
	return rev, nil
}

func (s *Store) snapshot() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM kv")
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: snapshot scan: %v", shared.ErrStorage, err)
		}
		values[k] = v
	}
	return values, rows.Err()
}

// signal touches the signal file. Failures only cost other processes a poll interval of latency.
func (s *Store) signal(rev int64) {
	if err := TouchSignal(s.signalPath, rev); err != nil {
		s.logger.Warn("failed to touch signal file", "path", s.signalPath, "error", err)
	}
}

// TouchSignal writes rev to the signal file at path, creating its directory. An empty path is a no-op.
func TouchSignal(path string, rev int64) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create signal file dir: %w", err)
	}
	return os.WriteFile(path, []byte(strconv.FormatInt(rev, 10)), 0644)
}

func ptr(s string) *string { return &s }
