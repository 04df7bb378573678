// Package storage provides the injected key-value persistence
// contract the rest of the app depends on. The store is synchronous
// from the caller's point of view, and total loss of its contents is a
// degraded but acceptable outcome: missing or corrupt data always
// reads as empty, never as a fatal error.
package storage

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/db"
)

// KV is the narrow store contract. Implementations log their own
// failures; callers see only presence or absence.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// MemoryKV is an in-memory KV, the substitutable fake for tests and
// the fallback when no database path is configured.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryKV) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MemoryKV) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// SQLiteKV persists keys in the kv_entries table.
type SQLiteKV struct {
	db *db.DB
}

// NewSQLiteKV creates a KV backed by the given database.
func NewSQLiteKV(database *db.DB) *SQLiteKV {
	return &SQLiteKV{db: database}
}

func (s *SQLiteKV) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		log.Printf("storage: reading %q: %v", key, err)
		return "", false
	}
	return value, true
}

func (s *SQLiteKV) Set(key, value string) {
	_, err := s.db.Exec(
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		log.Printf("storage: writing %q: %v", key, err)
	}
}

func (s *SQLiteKV) Remove(key string) {
	if _, err := s.db.Exec(`DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		log.Printf("storage: removing %q: %v", key, err)
	}
}

// GetJSON reads and decodes a stored JSON value. Missing keys and
// corrupt payloads both report false; corruption is logged and the
// caller proceeds with empty state.
func GetJSON(kv KV, key string, v any) bool {
	raw, ok := kv.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Printf("storage: corrupt JSON under %q, treating as empty: %v", key, err)
		return false
	}
	return true
}

// SetJSON encodes and stores a JSON value.
func SetJSON(kv KV, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("storage: encoding %q: %v", key, err)
		return
	}
	kv.Set(key, string(data))
}
