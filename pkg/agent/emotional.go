package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pbulbule13/vinegar/pkg/model"
)

const emotionalSystemPrompt = `You are the Emotional & Motivational component of VINEGAR, a Jarvis-like AI assistant.

Your responsibilities:
- Detect and respond to emotional states (frustration, sadness, stress, excitement)
- Provide motivation and encouragement when needed
- Suggest self-care and work-life balance
- Celebrate wins and progress

Communication style: empathetic yet practical, supportive like a trusted friend, witty and uplifting, never patronizing. You are not a therapist; you are a friend who knows the user well and genuinely cares.`

const emotionalDegradedMessage = "I'm here for you. How can I support you right now?"

// Emotional handles feelings, motivation, and well-being queries. It
// runs a keyword sentiment pre-classification whose result feeds both
// the prompt and the reported confidence.
type Emotional struct {
	completer model.Completer
	log       *slog.Logger
}

// NewEmotional creates the Emotional agent.
func NewEmotional(completer model.Completer, log *slog.Logger) *Emotional {
	if log == nil {
		log = slog.Default()
	}
	return &Emotional{completer: completer, log: log}
}

// Type implements Agent.
func (a *Emotional) Type() Type { return TypeEmotional }

// Handle implements Agent.
func (a *Emotional) Handle(ctx context.Context, req Request) Result {
	mood := DetectMood(req.Input)

	turns := historyTurns(req.History)
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Detected mood in message: %s\n", mood)
	if req.TimeOfDay != "" {
		fmt.Fprintf(&prompt, "Time of day: %s\n", req.TimeOfDay)
	}
	if req.Knowledge != "" {
		prompt.WriteString("\n")
		prompt.WriteString(req.Knowledge)
		prompt.WriteString("\n")
	}
	fmt.Fprintf(&prompt, "\nUser message: %s\n\nProvide an empathetic, supportive response with practical suggestions for well-being, referencing past context if relevant.", req.Input)
	turns = append(turns, model.Turn{Role: "user", Content: prompt.String()})

	text, err := a.completer.Complete(ctx, model.Request{
		System: emotionalSystemPrompt,
		Turns:  turns,
		// Higher temperature reads warmer.
		Temperature: 0.8,
	})
	if err != nil {
		a.log.Warn("emotional completion failed", "mood", mood, "error", err)
		return degraded(TypeEmotional, emotionalDegradedMessage)
	}

	confidence := 0.75
	if mood != MoodNeutral {
		confidence = 0.85
	}
	return Result{
		ID:         uuid.NewString(),
		Agent:      TypeEmotional,
		Content:    text,
		Actions:    suggestEmotionalActions(mood, text),
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("sentiment analysis: detected %s", mood),
	}
}

// suggestEmotionalActions proposes follow-ups keyed on the detected
// mood and on what the response itself recommends.
func suggestEmotionalActions(mood Mood, response string) []Action {
	var actions []Action
	lower := strings.ToLower(response)

	negative := mood == MoodStressed || mood == MoodSad || mood == MoodFrustrated
	if negative && (strings.Contains(lower, "reach out") || strings.Contains(lower, "connect")) {
		actions = append(actions, Action{
			Kind:    ActionContact,
			Status:  StatusPending,
			Payload: map[string]any{"type": "suggest_contact", "reason": "emotional_support"},
		})
	}
	if strings.Contains(lower, "break") || strings.Contains(lower, "rest") {
		actions = append(actions, Action{
			Kind:    ActionReminder,
			Status:  StatusPending,
			Payload: map[string]any{"type": "self_care_reminder", "activity": "take a break"},
		})
	}
	return actions
}

var _ Agent = (*Emotional)(nil)
