// Package model defines the reasoning-engine boundary. Agents and the
// orchestrator depend on Completer only; concrete backends live in
// subpackages.
package model

import (
	"context"
	"errors"
)

// ErrCompletion wraps failures of the external reasoning engine,
// including per-call timeouts. Callers at component boundaries convert
// it into degraded results rather than propagating it.
var ErrCompletion = errors.New("model: completion failed")

// Turn is a single prompt message.
type Turn struct {
	Role    string
	Content string
}

// Request carries one completion call.
type Request struct {
	System      string
	Turns       []Turn
	MaxTokens   int
	Temperature float64
}

// Completer is the text-completion capability invoked by agents.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
