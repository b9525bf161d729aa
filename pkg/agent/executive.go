package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pbulbule13/vinegar/pkg/model"
)

const executiveSystemPrompt = `You are the Executive/Logistics component of VINEGAR, a Jarvis-like AI assistant.

Your responsibilities:
- Manage emails: summarize, prioritize, draft responses in the user's style
- Handle calendar: create, modify, reschedule appointments
- Coordinate tasks: ensure deadlines are met, follow up on action items

Communication style: friendly, witty, and direct. Proactive and anticipatory. You are a trusted executive co-pilot, not a ticket system.`

const executiveDegradedMessage = "I encountered an issue processing your executive request. Let me get that sorted."

// EmailSummary is the mail collaborator's view of a message.
type EmailSummary struct {
	From           string
	Subject        string
	Snippet        string
	Importance     int
	ActionRequired bool
}

// CalendarEvent is the calendar collaborator's view of an event.
type CalendarEvent struct {
	Title    string
	Start    time.Time
	Location string
}

// MailProvider supplies recent inbox context. Implemented outside the
// core; a nil provider simply omits the email briefing.
type MailProvider interface {
	RecentEmails(ctx context.Context, max int) ([]EmailSummary, error)
}

// CalendarProvider supplies upcoming schedule context.
type CalendarProvider interface {
	UpcomingEvents(ctx context.Context, max int) ([]CalendarEvent, error)
}

// Executive handles email, calendar, and logistics queries.
type Executive struct {
	completer model.Completer
	mail      MailProvider
	calendar  CalendarProvider
	log       *slog.Logger
}

// NewExecutive creates the Executive agent. mail and calendar may be nil.
func NewExecutive(completer model.Completer, mail MailProvider, calendar CalendarProvider, log *slog.Logger) *Executive {
	if log == nil {
		log = slog.Default()
	}
	return &Executive{completer: completer, mail: mail, calendar: calendar, log: log}
}

// Type implements Agent.
func (a *Executive) Type() Type { return TypeExecutive }

// Handle implements Agent.
func (a *Executive) Handle(ctx context.Context, req Request) Result {
	turns := historyTurns(req.History)

	var prompt strings.Builder
	if req.Knowledge != "" {
		prompt.WriteString(req.Knowledge)
		prompt.WriteString("\n\n")
	}
	if briefing := a.emailBriefing(ctx); briefing != "" {
		prompt.WriteString("Recent emails:\n")
		prompt.WriteString(briefing)
		prompt.WriteString("\n\n")
	}
	if briefing := a.calendarBriefing(ctx); briefing != "" {
		prompt.WriteString("Upcoming calendar:\n")
		prompt.WriteString(briefing)
		prompt.WriteString("\n\n")
	}
	fmt.Fprintf(&prompt, "User request: %s\n\nAnalyze the request, respond directly, and state any email, calendar, or reminder actions you recommend.", req.Input)
	turns = append(turns, model.Turn{Role: "user", Content: prompt.String()})

	text, err := a.completer.Complete(ctx, model.Request{
		System:      executiveSystemPrompt,
		Turns:       turns,
		Temperature: 0.7,
	})
	if err != nil {
		a.log.Warn("executive completion failed", "error", err)
		return degraded(TypeExecutive, executiveDegradedMessage)
	}
	return Result{
		ID:         uuid.NewString(),
		Agent:      TypeExecutive,
		Content:    text,
		Actions:    extractExecutiveActions(text),
		Confidence: 0.9,
		Reasoning:  "executive analysis of schedule and correspondence",
	}
}

func (a *Executive) emailBriefing(ctx context.Context) string {
	if a.mail == nil {
		return ""
	}
	emails, err := a.mail.RecentEmails(ctx, 5)
	if err != nil {
		a.log.Warn("mail briefing unavailable", "error", err)
		return ""
	}
	var lines []string
	for _, e := range emails {
		flag := ""
		if e.ActionRequired {
			flag = " [action required]"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s%s — %s", e.From, e.Subject, flag, e.Snippet))
	}
	return strings.Join(lines, "\n")
}

func (a *Executive) calendarBriefing(ctx context.Context) string {
	if a.calendar == nil {
		return ""
	}
	events, err := a.calendar.UpcomingEvents(ctx, 5)
	if err != nil {
		a.log.Warn("calendar briefing unavailable", "error", err)
		return ""
	}
	var lines []string
	for _, e := range events {
		location := e.Location
		if location == "" {
			location = "no location"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", e.Start.Format("Jan 2 3:04 PM"), e.Title, location))
	}
	return strings.Join(lines, "\n")
}

// extractExecutiveActions mines the response text for actionable
// follow-ups using fixed keyword rules.
func extractExecutiveActions(response string) []Action {
	var actions []Action
	lower := strings.ToLower(response)
	if strings.Contains(lower, "send email") || strings.Contains(lower, "draft") {
		actions = append(actions, Action{Kind: ActionEmail, Status: StatusPending, Payload: map[string]any{"type": "draft_email"}})
	}
	if strings.Contains(lower, "schedule") || strings.Contains(lower, "calendar") {
		actions = append(actions, Action{Kind: ActionCalendar, Status: StatusPending, Payload: map[string]any{"type": "schedule_event"}})
	}
	if strings.Contains(lower, "remind") {
		actions = append(actions, Action{Kind: ActionReminder, Status: StatusPending, Payload: map[string]any{"type": "set_reminder"}})
	}
	return actions
}

var _ Agent = (*Executive)(nil)
