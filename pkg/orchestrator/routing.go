package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbulbule13/vinegar/pkg/agent"
	"github.com/pbulbule13/vinegar/pkg/model"
)

// Keyword rules, evaluated in fixed priority order: Executive first,
// then Emotional, then Prioritization. Every matching rule selects its
// agent, so compound queries fan out to several agents at once.
var routingRules = []struct {
	agent    agent.Type
	keywords []string
}{
	{agent.TypeExecutive, []string{
		"email", "calendar", "schedule", "meeting", "appointment",
		"remind", "inbox", "send", "draft", "reschedule",
	}},
	{agent.TypeEmotional, []string{
		"feel", "stressed", "frustrated", "sad", "happy", "excited",
		"tired", "overwhelmed", "motivation", "support", "help me cope",
	}},
	{agent.TypePrioritization, []string{
		"priority", "prioritize", "what should", "which", "focus",
		"important", "urgent", "deadline", "goal", "strategy", "plan",
	}},
}

// route returns the agents selected by keyword rules, in priority order.
func route(input string) []agent.Type {
	lower := strings.ToLower(input)
	var selected []agent.Type
	for _, rule := range routingRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				selected = append(selected, rule.agent)
				break
			}
		}
	}
	return selected
}

const classifierSystemPrompt = "You are an AI routing system. Classify user requests into agent types."

const classifierPromptTemplate = `User request: %q

Which agent(s) should handle this? Choose from:
- EXECUTIVE: emails, calendar, logistics, scheduling
- EMOTIONAL: feelings, motivation, support, well-being
- PRIORITIZATION: task priorities, strategy, planning, optimization

Respond with just the agent name(s), comma-separated.`

// classify asks the reasoning engine to pick agents when no keyword
// rule matched. A failed or empty classification returns nil, sending
// the request down the general path.
func classify(ctx context.Context, completer model.Completer, input string) []agent.Type {
	text, err := completer.Complete(ctx, model.Request{
		System:      classifierSystemPrompt,
		Turns:       []model.Turn{{Role: "user", Content: fmt.Sprintf(classifierPromptTemplate, input)}},
		MaxTokens:   100,
		Temperature: 0.3,
	})
	if err != nil {
		return nil
	}
	upper := strings.ToUpper(text)
	var selected []agent.Type
	if strings.Contains(upper, "EXECUTIVE") {
		selected = append(selected, agent.TypeExecutive)
	}
	if strings.Contains(upper, "EMOTIONAL") {
		selected = append(selected, agent.TypeEmotional)
	}
	if strings.Contains(upper, "PRIORITIZATION") {
		selected = append(selected, agent.TypePrioritization)
	}
	return selected
}
