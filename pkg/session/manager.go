package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pbulbule13/vinegar/pkg/store"
)

// ErrUnknownSession reports an append against a session id that was
// never created or has been evicted.
var ErrUnknownSession = errors.New("session: unknown session")

const defaultWindow = 50

// Manager tracks live sessions. Appends to one session are serialized
// by a per-session mutex so concurrent requests cannot interleave
// history; distinct sessions proceed independently.
type Manager struct {
	window     int
	docs       store.Store
	collection string
	log        *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*tracked
}

type tracked struct {
	mu  sync.Mutex
	s   Session
	seq uint64

	// pmu serializes writes to the store for this session. persistedSeq
	// records the newest snapshot stored so a slow write cannot clobber
	// a fresher one.
	pmu          sync.Mutex
	persistedSeq uint64
}

// Option customizes a Manager.
type Option func(*Manager)

// WithWindow bounds how many messages a session retains. Oldest
// messages are dropped first, never the most recent.
func WithWindow(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithPersistence enables best-effort session persistence through docs.
func WithPersistence(docs store.Store, collection string) Option {
	return func(m *Manager) {
		m.docs = docs
		m.collection = collection
	}
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates a session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		window:   defaultWindow,
		log:      slog.Default(),
		sessions: make(map[string]*tracked),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// GetOrCreate returns a snapshot of the session with the given id,
// minting a fresh id when blank. Unknown ids are first looked up in
// the persistence store (a prior process may own them); failing that a
// new session is created under the requested id.
func (m *Manager) GetOrCreate(ctx context.Context, id, userID string) Session {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.RLock()
	tr, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return snapshot(tr)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if tr, ok := m.sessions[id]; ok {
		return snapshot(tr)
	}
	s := m.hydrate(ctx, id)
	if s == nil {
		s = &Session{
			ID:        id,
			UserID:    userID,
			CreatedAt: time.Now().UTC(),
		}
	}
	tr = &tracked{s: *s}
	m.sessions[id] = tr
	return snapshot(tr)
}

// Append adds a message to the session, enforcing the retention window
// and persisting the updated session best-effort.
func (m *Manager) Append(ctx context.Context, id string, msg Message) error {
	if strings.TrimSpace(msg.Role) == "" {
		return fmt.Errorf("%w: role is required", ErrInvalidMessage)
	}
	m.mu.RLock()
	tr, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	tr.mu.Lock()
	tr.s.Messages = append(tr.s.Messages, msg)
	if over := len(tr.s.Messages) - m.window; over > 0 {
		tr.s.Messages = append([]Message(nil), tr.s.Messages[over:]...)
	}
	tr.seq++
	seq := tr.seq
	copied := tr.s
	copied.Messages = cloneMessages(tr.s.Messages)
	tr.mu.Unlock()

	if m.docs != nil {
		if err := m.persist(ctx, tr, seq, copied); err != nil {
			m.log.Warn("session persistence failed", "session_id", id, "error", err)
		}
	}
	return nil
}

// History returns at most maxTurns of the most recent messages,
// oldest-first within that window. Unknown sessions yield nil.
func (m *Manager) History(id string, maxTurns int) []Message {
	m.mu.RLock()
	tr, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	msgs := tr.s.Messages
	if maxTurns > 0 && len(msgs) > maxTurns {
		msgs = msgs[len(msgs)-maxTurns:]
	}
	return cloneMessages(msgs)
}

// Evict drops a session from memory. Persisted state, if any, remains.
func (m *Manager) Evict(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Active reports the number of live sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) hydrate(ctx context.Context, id string) *Session {
	if m.docs == nil {
		return nil
	}
	data, err := m.docs.Get(ctx, m.collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		m.log.Warn("session hydration failed", "session_id", id, "error", err)
		return nil
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		m.log.Warn("discarding malformed persisted session", "session_id", id, "error", err)
		return nil
	}
	return &s
}

// persist stores a session snapshot, keeping writes for one session in
// order even when appends race: a snapshot older than the last one
// stored is dropped rather than written.
func (m *Manager) persist(ctx context.Context, tr *tracked, seq uint64, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	tr.pmu.Lock()
	defer tr.pmu.Unlock()
	if seq <= tr.persistedSeq {
		return nil
	}
	if err := m.docs.Put(ctx, m.collection, s.ID, data); err != nil {
		return err
	}
	tr.persistedSeq = seq
	return nil
}

func snapshot(tr *tracked) Session {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	s := tr.s
	s.Messages = cloneMessages(tr.s.Messages)
	return s
}
