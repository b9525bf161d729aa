// Package store defines the narrow document-store boundary used for
// persisting sessions, knowledge entries, and user profiles. Documents
// are opaque JSON blobs addressed by (collection, key).
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound reports a missing document.
var ErrNotFound = errors.New("store: document not found")

// ErrUnavailable reports that the backing store cannot be reached.
// Callers treat persistence as best-effort and must not fail a request
// because of it.
var ErrUnavailable = errors.New("store: unavailable")

// Store is the minimal persistence contract. Implementations must be
// safe for concurrent use.
type Store interface {
	Get(ctx context.Context, collection, key string) ([]byte, error)
	Put(ctx context.Context, collection, key string, value []byte) error
	Delete(ctx context.Context, collection, key string) error
	List(ctx context.Context, collection string) ([]string, error)
}

// MemoryStore keeps documents in process memory. It backs tests and
// single-node deployments without a configured store root.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string][]byte)}
}

// Get returns the document stored under (collection, key).
func (s *MemoryStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	value, ok := docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put stores value under (collection, key), overwriting any previous document.
func (s *MemoryStore) Put(ctx context.Context, collection, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string][]byte)
		s.collections[collection] = docs
	}
	docs[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes the document under (collection, key). Deleting a
// missing document is not an error.
func (s *MemoryStore) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if docs, ok := s.collections[collection]; ok {
		delete(docs, key)
	}
	return nil
}

// List returns the keys present in collection, sorted.
func (s *MemoryStore) List(ctx context.Context, collection string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.collections[collection]
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

var _ Store = (*MemoryStore)(nil)
