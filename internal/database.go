package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// CredentialKey is the fixed key the credential is persisted under
const CredentialKey = "cornerAppIdToken_LS"

// TokenStore persists the single active credential
type TokenStore interface {
	LoadToken() (string, error)
	SaveToken(token string) error
	RemoveToken() error
}

// SQLiteTokenStore keeps the credential in a small SQLite key-value table
type SQLiteTokenStore struct {
	db   *sql.DB
	path string
}

// OpenDatabase opens (creating if needed) the SQLite database at path
func OpenDatabase(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// OpenTokenStore opens the credential database at path and ensures its schema
func OpenTokenStore(path string) (*SQLiteTokenStore, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}

	return &SQLiteTokenStore{db: db, path: path}, nil
}

// NewSQLiteTokenStore wraps an already open database that has a kv table
func NewSQLiteTokenStore(db *sql.DB) *SQLiteTokenStore {
	return &SQLiteTokenStore{db: db, path: ":memory:"}
}

// LoadToken returns the stored credential, or "" when none is stored
func (s *SQLiteTokenStore) LoadToken() (string, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", CredentialKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", &StorageError{Path: s.path, Op: "load", Err: err}
	}
	return value.String, nil
}

// SaveToken replaces the stored credential
func (s *SQLiteTokenStore) SaveToken(token string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		CredentialKey, token,
	)
	if err != nil {
		return &StorageError{Path: s.path, Op: "save", Err: err}
	}
	return nil
}

// RemoveToken deletes the stored credential; removing nothing is not an error
func (s *SQLiteTokenStore) RemoveToken() error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", CredentialKey); err != nil {
		return &StorageError{Path: s.path, Op: "remove", Err: err}
	}
	return nil
}

// Path returns the database file backing the store
func (s *SQLiteTokenStore) Path() string {
	return s.path
}

// Close closes the underlying database
func (s *SQLiteTokenStore) Close() error {
	return s.db.Close()
}

// MemoryTokenStore is a process-local TokenStore
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore creates a store pre-populated with token (may be empty)
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (m *MemoryTokenStore) LoadToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) SaveToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) RemoveToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
