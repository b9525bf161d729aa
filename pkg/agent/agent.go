// Package agent defines the specialized reasoning agents. The variant
// set is closed: Executive, Emotional, and Prioritization, each a
// concrete type implementing Agent and selected by its tag, so routing
// can be matched exhaustively instead of through string lookup.
package agent

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/pbulbule13/vinegar/pkg/model"
	"github.com/pbulbule13/vinegar/pkg/session"
)

// Type tags an agent variant.
type Type string

const (
	TypeExecutive      Type = "executive"
	TypeEmotional      Type = "emotional"
	TypePrioritization Type = "prioritization"
	// TypeGeneral tags responses produced by the orchestrator's direct
	// path when no specialized agent matched.
	TypeGeneral Type = "general"
)

// Action kinds surfaced to external collaborators. Payloads are opaque
// to this package.
const (
	ActionEmail    = "email"
	ActionCalendar = "calendar"
	ActionReminder = "reminder"
	ActionResearch = "research"
	ActionContact  = "contact"
	ActionTask     = "task"
)

// Action is a proposed follow-up consumed outside the core.
type Action struct {
	Kind    string         `json:"kind"`
	Status  string         `json:"status"`
	Payload map[string]any `json:"payload,omitempty"`
}

// StatusPending is the only status the core assigns; downstream
// executors advance it.
const StatusPending = "pending"

// Request carries everything an agent needs for one turn.
type Request struct {
	Input     string
	UserID    string
	History   []session.Message
	Knowledge string
	TimeOfDay string
}

// Result is an agent's answer. Confidence 0 marks a degraded result
// produced after a reasoning-engine failure; the orchestrator skips
// degraded results during multi-agent merge.
type Result struct {
	ID         string   `json:"id"`
	Agent      Type     `json:"agent_type"`
	Content    string   `json:"content"`
	Actions    []Action `json:"actions,omitempty"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// Agent handles a query with history and retrieved knowledge. Handle
// never returns an error: reasoning-engine failures become a degraded
// Result so one unavailable backend cannot take down the orchestrator.
type Agent interface {
	Type() Type
	Handle(ctx context.Context, req Request) Result
}

// historyLimit bounds how many prior turns are replayed into a prompt.
const historyLimit = 10

func historyTurns(msgs []session.Message) []model.Turn {
	if len(msgs) > historyLimit {
		msgs = msgs[len(msgs)-historyLimit:]
	}
	turns := make([]model.Turn, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role != session.RoleUser && msg.Role != session.RoleAssistant {
			continue
		}
		turns = append(turns, model.Turn{Role: msg.Role, Content: msg.Content})
	}
	return turns
}

func degraded(t Type, message string) Result {
	return Result{
		ID:         uuid.NewString(),
		Agent:      t,
		Content:    message,
		Confidence: 0,
	}
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
