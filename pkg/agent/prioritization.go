package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/pbulbule13/vinegar/pkg/model"
)

const prioritizationSystemPrompt = `You are the Prioritization & Foresight component of VINEGAR, a Jarvis-like AI assistant.

Your responsibilities:
- Analyze and prioritize tasks based on importance, urgency, and user goals
- Predict potential conflicts and bottlenecks before they occur
- Warn about upcoming deadlines and time-sensitive matters
- Balance short-term tasks with long-term goals

Decision framework: Eisenhower Matrix (urgent/important), dependencies and blockers, long-term success over immediate wins.

When you recommend a task ordering, present it as a numbered list, highest priority first.`

const prioritizationDegradedMessage = "Let me help you think through the priorities here."

// rankedTaskPattern matches numbered list lines in the model output,
// e.g. "1. Finish the report".
var rankedTaskPattern = regexp.MustCompile(`(?m)^\s*(\d+)[.)]\s+(.+)$`)

// Prioritization handles task ordering, strategy, and foresight
// queries, and surfaces the model's numbered recommendations as ranked
// task actions.
type Prioritization struct {
	completer model.Completer
	log       *slog.Logger
}

// NewPrioritization creates the Prioritization agent.
func NewPrioritization(completer model.Completer, log *slog.Logger) *Prioritization {
	if log == nil {
		log = slog.Default()
	}
	return &Prioritization{completer: completer, log: log}
}

// Type implements Agent.
func (a *Prioritization) Type() Type { return TypePrioritization }

// Handle implements Agent.
func (a *Prioritization) Handle(ctx context.Context, req Request) Result {
	turns := historyTurns(req.History)

	var prompt strings.Builder
	if req.TimeOfDay != "" {
		fmt.Fprintf(&prompt, "Time of day: %s\n\n", req.TimeOfDay)
	}
	if req.Knowledge != "" {
		prompt.WriteString(req.Knowledge)
		prompt.WriteString("\n\n")
	}
	fmt.Fprintf(&prompt, "User request: %s\n\nProvide a strategic analysis of priorities, a recommended task ordering, and warnings about potential conflicts or deadlines.", req.Input)
	turns = append(turns, model.Turn{Role: "user", Content: prompt.String()})

	text, err := a.completer.Complete(ctx, model.Request{
		System:      prioritizationSystemPrompt,
		Turns:       turns,
		Temperature: 0.7,
	})
	if err != nil {
		a.log.Warn("prioritization completion failed", "error", err)
		return degraded(TypePrioritization, prioritizationDegradedMessage)
	}
	return Result{
		ID:         uuid.NewString(),
		Agent:      TypePrioritization,
		Content:    text,
		Actions:    extractPriorityActions(text),
		Confidence: 0.88,
		Reasoning:  "strategic priority analysis with foresight",
	}
}

// extractPriorityActions emits one ranked task action per numbered
// recommendation, plus keyword-triggered research/reminder/calendar
// follow-ups.
func extractPriorityActions(response string) []Action {
	var actions []Action

	for _, match := range rankedTaskPattern.FindAllStringSubmatch(response, -1) {
		task := strings.TrimSpace(match[2])
		if task == "" {
			continue
		}
		actions = append(actions, Action{
			Kind:    ActionTask,
			Status:  StatusPending,
			Payload: map[string]any{"rank": match[1], "task": task},
		})
	}

	lower := strings.ToLower(response)
	if strings.Contains(lower, "research") || strings.Contains(lower, "look into") {
		actions = append(actions, Action{Kind: ActionResearch, Status: StatusPending, Payload: map[string]any{"type": "strategic_research"}})
	}
	if strings.Contains(lower, "deadline") || strings.Contains(lower, "due") {
		actions = append(actions, Action{Kind: ActionReminder, Status: StatusPending, Payload: map[string]any{"type": "deadline_warning"}})
	}
	if strings.Contains(lower, "block time") || strings.Contains(lower, "schedule") {
		actions = append(actions, Action{Kind: ActionCalendar, Status: StatusPending, Payload: map[string]any{"type": "time_blocking"}})
	}
	return actions
}

var _ Agent = (*Prioritization)(nil)
