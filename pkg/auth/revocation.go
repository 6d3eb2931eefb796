package auth

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RevocationStore tracks tokens invalidated before their natural expiry.
// Deployments running more than one API instance must use a shared
// implementation; process-local memory does not revoke across instances.
type RevocationStore interface {
	IsRevoked(token string) (bool, error)
	Revoke(token string) error
}

// InMemoryRevocationStore keeps revoked tokens in a process-local set.
// Suitable for tests and single-instance deployments only.
type InMemoryRevocationStore struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

func NewInMemoryRevocationStore() *InMemoryRevocationStore {
	return &InMemoryRevocationStore{tokens: make(map[string]struct{})}
}

func (s *InMemoryRevocationStore) IsRevoked(token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok, nil
}

func (s *InMemoryRevocationStore) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = struct{}{}
	return nil
}

// SQLiteRevocationStore persists revocations so they survive restarts and
// are visible to every instance sharing the database file.
type SQLiteRevocationStore struct {
	db *sql.DB
}

func NewSQLiteRevocationStore(dataSourceName string) (*SQLiteRevocationStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open revocation database: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS revoked_tokens (
		token TEXT PRIMARY KEY,
		revoked_at DATETIME NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("could not initialize revocation schema: %w", err)
	}
	return &SQLiteRevocationStore{db: db}, nil
}

func (s *SQLiteRevocationStore) IsRevoked(token string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM revoked_tokens WHERE token = ?`, token).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteRevocationStore) Revoke(token string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO revoked_tokens (token, revoked_at) VALUES (?, ?)`,
		token, time.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *SQLiteRevocationStore) Close() error {
	return s.db.Close()
}
