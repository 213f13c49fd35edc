package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CacheStore is the local durable cache: a key-value mapping from a cache key
// to a JSON document. Documents are read and rewritten wholesale.
type CacheStore interface {
	// Load returns the stored document, or nil when the key is absent
	Load(ctx context.Context, key string) ([]byte, error)
	// Update atomically replaces the document with fn(current)
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
	// Keys lists stored keys starting with prefix
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Namespace builds the cache key of a collection owned by an identity,
// e.g. Namespace("bookings", "ana@example.com") == "bookings_ana@example.com"
func Namespace(collection, owner string) string {
	return collection + "_" + owner
}

// OwnerFromKey is the inverse of Namespace
func OwnerFromKey(collection, key string) (string, bool) {
	prefix := collection + "_"
	if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
		return "", false
	}
	return key[len(prefix):], true
}

// PostgresCacheStore keeps cache documents in the local_cache table
type PostgresCacheStore struct {
	db DB
}

// NewPostgresCacheStore creates a new PostgresCacheStore
func NewPostgresCacheStore(db DB) *PostgresCacheStore {
	return &PostgresCacheStore{db: db}
}

// Load retrieves a cache document by key
func (s *PostgresCacheStore) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM local_cache WHERE cache_key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cache key %s: %w", key, err)
	}
	return payload, nil
}

// Update rewrites a cache document inside a transaction holding the row lock
func (s *PostgresCacheStore) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	// Make sure the row exists so concurrent first writers serialise on its lock
	if _, err := tx.ExecContext(ctx, `INSERT INTO local_cache (cache_key) VALUES ($1) ON CONFLICT (cache_key) DO NOTHING`, key); err != nil {
		return fmt.Errorf("failed to seed cache key %s: %w", key, err)
	}

	var current []byte
	if err := tx.GetContext(ctx, &current, `SELECT payload FROM local_cache WHERE cache_key = $1 FOR UPDATE`, key); err != nil {
		return fmt.Errorf("failed to lock cache key %s: %w", key, err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE local_cache SET payload = $2::jsonb, updated_at = NOW() WHERE cache_key = $1`, key, string(next)); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache key %s: %w", key, err)
	}
	return nil
}

// Keys lists cache keys with the given prefix
func (s *PostgresCacheStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.SelectContext(ctx, &keys, `SELECT cache_key FROM local_cache WHERE starts_with(cache_key, $1) ORDER BY cache_key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	return keys, nil
}

// MemoryCacheStore is a process-local CacheStore, used when no database is configured
type MemoryCacheStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemoryCacheStore creates an empty MemoryCacheStore
func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{docs: make(map[string][]byte)}
}

// Load returns a copy of the stored document
func (s *MemoryCacheStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), doc...), nil
}

// Update replaces the document while holding the store lock
func (s *MemoryCacheStore) Update(_ context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current []byte
	if doc, ok := s.docs[key]; ok {
		current = append([]byte(nil), doc...)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	s.docs[key] = append([]byte(nil), next...)
	return nil
}

// Keys lists stored keys with the given prefix
func (s *MemoryCacheStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.docs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
