package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pbulbule13/vinegar/pkg/store"
)

// ErrDimensionMismatch rejects entries whose embedding length does not
// match the deployment's configured dimensionality.
var ErrDimensionMismatch = errors.New("knowledge: embedding dimension mismatch")

// ErrEmptyContent rejects entries with no text.
var ErrEmptyContent = errors.New("knowledge: content is required")

// Store is the append-only knowledge index. Adds are safe under
// concurrency; no cross-entry locking is needed because entries are
// never mutated in place.
type Store struct {
	dims       int
	docs       store.Store
	collection string
	log        *slog.Logger

	mu      sync.RWMutex
	entries []Entry
}

// Option customizes a Store.
type Option func(*Store)

// WithPersistence enables best-effort write-through of entries to docs
// under collection, and hydration via Load.
func WithPersistence(docs store.Store, collection string) Option {
	return func(s *Store) {
		s.docs = docs
		s.collection = collection
	}
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore creates a knowledge store expecting embeddings of dims length.
func NewStore(dims int, opts ...Option) *Store {
	s := &Store{dims: dims, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Add validates and indexes an entry, returning its id. Duplicate text
// produces duplicate entries; deduplication is not done here.
// Persistence is write-through and best-effort.
func (s *Store) Add(ctx context.Context, e Entry) (string, error) {
	if strings.TrimSpace(e.Content) == "" {
		return "", ErrEmptyContent
	}
	if s.dims > 0 && len(e.Embedding) != s.dims {
		return "", fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(e.Embedding), s.dims)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Embedding = append([]float64(nil), e.Embedding...)

	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	if s.docs != nil {
		if err := s.persist(ctx, e); err != nil {
			s.log.Warn("knowledge persistence failed", "id", e.ID, "error", err)
		}
	}
	return e.ID, nil
}

// Search scores every entry matching filter against query and returns
// at most k results ordered by non-increasing similarity, ties broken
// most-recent-first. An empty store yields an empty result.
func (s *Store) Search(query []float64, k int, filter Filter) []Result {
	if k <= 0 {
		return nil
	}
	s.mu.RLock()
	results := make([]Result, 0, len(s.entries))
	for _, e := range s.entries {
		if !filter.matches(e) {
			continue
		}
		results = append(results, Result{Entry: e, Score: cosineSimilarity(query, e.Embedding)})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.CreatedAt.After(results[j].Entry.CreatedAt)
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Len reports the number of indexed entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dimensions reports the configured embedding dimensionality.
func (s *Store) Dimensions() int { return s.dims }

// Load hydrates the index from the persistence collection. Entries
// whose dimensionality no longer matches are skipped with a warning.
func (s *Store) Load(ctx context.Context) error {
	if s.docs == nil {
		return nil
	}
	keys, err := s.docs.List(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("knowledge: list entries: %w", err)
	}
	loaded := make([]Entry, 0, len(keys))
	for _, key := range keys {
		data, err := s.docs.Get(ctx, s.collection, key)
		if err != nil {
			return fmt.Errorf("knowledge: load entry %s: %w", key, err)
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			s.log.Warn("skipping malformed knowledge entry", "key", key, "error", err)
			continue
		}
		if s.dims > 0 && len(e.Embedding) != s.dims {
			s.log.Warn("skipping knowledge entry with stale dimensions", "key", key, "dims", len(e.Embedding))
			continue
		}
		loaded = append(loaded, e)
	}
	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].CreatedAt.Before(loaded[j].CreatedAt)
	})

	s.mu.Lock()
	s.entries = loaded
	s.mu.Unlock()
	return nil
}

func (s *Store) persist(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.docs.Put(ctx, s.collection, e.ID, data)
}
