// Package ingest decouples knowledge persistence from the request
// path. Facts surfaced during a turn are submitted to a queue and
// indexed by a background worker, so response latency never waits on
// embedding or storage.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultCapacity    = 256
	defaultFactTimeout = 15 * time.Second
)

// Fact is one knowledge candidate awaiting indexing.
type Fact struct {
	UserID   string
	Content  string
	Category string
	Source   string
	Metadata map[string]string
}

// Indexer is the retrieval-side sink facts drain into.
type Indexer interface {
	Add(ctx context.Context, userID, content, category, source string, metadata map[string]string) (string, error)
}

// Queue is a buffered fact queue with a single background worker.
// Submission never blocks: when the buffer is full the fact is dropped
// with a log line, keeping persistence strictly best-effort.
type Queue struct {
	indexer Indexer
	log     *slog.Logger
	timeout time.Duration

	facts   chan Fact
	drained chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Option customizes a Queue.
type Option func(*Queue)

// WithCapacity sets the buffer size.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.facts = make(chan Fact, n)
		}
	}
}

// WithFactTimeout bounds the indexing of a single fact.
func WithFactTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithLogger sets the queue logger.
func WithLogger(log *slog.Logger) Option {
	return func(q *Queue) {
		q.log = log
	}
}

// NewQueue creates the queue and starts its worker.
func NewQueue(indexer Indexer, opts ...Option) *Queue {
	q := &Queue{
		indexer: indexer,
		log:     slog.Default(),
		timeout: defaultFactTimeout,
		facts:   make(chan Fact, defaultCapacity),
		drained: make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	go q.run()
	return q
}

// Submit enqueues a fact without blocking. Returns false when the
// queue is saturated or closed and the fact was dropped.
func (q *Queue) Submit(f Fact) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.facts <- f:
		return true
	default:
		q.log.Warn("ingest queue saturated, dropping fact", "user_id", f.UserID, "category", f.Category)
		return false
	}
}

// Close stops accepting facts, drains whatever is already queued, and
// returns once the worker has finished.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.drained
		return
	}
	q.closed = true
	close(q.facts)
	q.mu.Unlock()
	<-q.drained
}

func (q *Queue) run() {
	defer close(q.drained)
	for f := range q.facts {
		// Worker context is independent of any request: transport
		// disconnects must not cancel background persistence.
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if _, err := q.indexer.Add(ctx, f.UserID, f.Content, f.Category, f.Source, f.Metadata); err != nil {
			q.log.Warn("knowledge ingestion failed", "user_id", f.UserID, "category", f.Category, "error", err)
		}
		cancel()
	}
}
