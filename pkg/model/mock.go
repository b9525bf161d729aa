package model

import (
	"context"
	"sync"
)

// Mock is a scripted Completer for tests. Responses are returned in
// order; when exhausted the last one repeats. A nil Fn and empty
// Responses yield an empty completion.
type Mock struct {
	Responses []string
	Err       error
	// Fn, when set, overrides Responses entirely.
	Fn func(ctx context.Context, req Request) (string, error)

	mu    sync.Mutex
	calls []Request
}

// Complete implements Completer.
func (m *Mock) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	n := len(m.calls)
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := n - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Calls returns a copy of every request seen so far.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

var _ Completer = (*Mock)(nil)
