package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/pbulbule13/vinegar/pkg/model"
	"github.com/pbulbule13/vinegar/pkg/session"
)

func TestDetectMood(t *testing.T) {
	cases := []struct {
		input string
		want  Mood
	}{
		{"I'm so stressed about this deadline", MoodStressed},
		{"ugh, this is not working", MoodFrustrated},
		{"feeling pretty down today", MoodSad},
		{"this is awesome news", MoodHappy},
		{"I'm really excited about the launch", MoodExcited},
		{"what's on my calendar", MoodNeutral},
	}
	for _, tc := range cases {
		if got := DetectMood(tc.input); got != tc.want {
			t.Errorf("DetectMood(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestEmotionalHandleTagsConfidenceByMood(t *testing.T) {
	a := NewEmotional(&model.Mock{Responses: []string{"Take a break, you have earned it."}}, nil)
	res := a.Handle(context.Background(), Request{Input: "I'm stressed and overwhelmed", UserID: "u1"})
	if res.Agent != TypeEmotional {
		t.Fatalf("unexpected agent tag %s", res.Agent)
	}
	if res.Confidence != 0.85 {
		t.Fatalf("detected mood must raise confidence, got %v", res.Confidence)
	}
	if !strings.Contains(res.Reasoning, "stressed") {
		t.Fatalf("reasoning should mention detected mood, got %q", res.Reasoning)
	}
	// The response mentions a break, so a self-care reminder is proposed.
	found := false
	for _, action := range res.Actions {
		if action.Kind == ActionReminder {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected self-care reminder action, got %#v", res.Actions)
	}
}

func TestEmotionalDegradesOnCompletionFailure(t *testing.T) {
	a := NewEmotional(&model.Mock{Err: model.ErrCompletion}, nil)
	res := a.Handle(context.Background(), Request{Input: "help me cope", UserID: "u1"})
	if res.Confidence != 0 {
		t.Fatalf("degraded result must have confidence 0, got %v", res.Confidence)
	}
	if res.Content != emotionalDegradedMessage {
		t.Fatalf("expected fixed degraded message, got %q", res.Content)
	}
}

func TestExecutiveExtractsActions(t *testing.T) {
	mock := &model.Mock{Responses: []string{"I'll draft that email and schedule the meeting, then remind you an hour before."}}
	a := NewExecutive(mock, nil, nil, nil)
	res := a.Handle(context.Background(), Request{Input: "set up the meeting with Dana", UserID: "u1"})
	kinds := map[string]bool{}
	for _, action := range res.Actions {
		kinds[action.Kind] = true
	}
	for _, want := range []string{ActionEmail, ActionCalendar, ActionReminder} {
		if !kinds[want] {
			t.Fatalf("missing %s action, got %#v", want, res.Actions)
		}
	}
	if res.Confidence == 0 {
		t.Fatal("successful handle must not be degraded")
	}
}

func TestExecutiveIncludesBriefings(t *testing.T) {
	mock := &model.Mock{Responses: []string{"done"}}
	a := NewExecutive(mock, stubMail{}, stubCalendar{}, nil)
	a.Handle(context.Background(), Request{Input: "what's next", UserID: "u1"})
	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one completion call, got %d", len(calls))
	}
	prompt := calls[0].Turns[len(calls[0].Turns)-1].Content
	if !strings.Contains(prompt, "Recent emails:") || !strings.Contains(prompt, "board update") {
		t.Fatalf("email briefing missing from prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "Upcoming calendar:") || !strings.Contains(prompt, "standup") {
		t.Fatalf("calendar briefing missing from prompt: %q", prompt)
	}
}

func TestPrioritizationEmitsRankedTasks(t *testing.T) {
	mock := &model.Mock{Responses: []string{"Here's the order:\n1. Finish the report\n2. Review the deadline for launch\n"}}
	a := NewPrioritization(mock, nil)
	res := a.Handle(context.Background(), Request{Input: "what should I focus on", UserID: "u1"})

	var tasks []string
	for _, action := range res.Actions {
		if action.Kind == ActionTask {
			tasks = append(tasks, action.Payload["task"].(string))
		}
	}
	if len(tasks) != 2 || tasks[0] != "Finish the report" {
		t.Fatalf("expected ranked task actions, got %#v", res.Actions)
	}
	// "deadline" in the response also triggers a reminder.
	hasReminder := false
	for _, action := range res.Actions {
		if action.Kind == ActionReminder {
			hasReminder = true
		}
	}
	if !hasReminder {
		t.Fatalf("expected deadline reminder, got %#v", res.Actions)
	}
}

func TestHistoryTurnsBoundedAndFiltered(t *testing.T) {
	var msgs []session.Message
	for i := 0; i < historyLimit+5; i++ {
		msgs = append(msgs, session.Message{Role: session.RoleUser, Content: "m"})
	}
	msgs = append(msgs, session.Message{Role: session.RoleSystem, Content: "internal"})
	turns := historyTurns(msgs)
	if len(turns) > historyLimit {
		t.Fatalf("history must be bounded to %d turns, got %d", historyLimit, len(turns))
	}
	for _, turn := range turns {
		if turn.Role == session.RoleSystem {
			t.Fatal("system messages must not be replayed into prompts")
		}
	}
}

type stubMail struct{}

func (stubMail) RecentEmails(ctx context.Context, max int) ([]EmailSummary, error) {
	return []EmailSummary{{From: "ceo@example.com", Subject: "board update", Snippet: "numbers attached", ActionRequired: true}}, nil
}

type stubCalendar struct{}

func (stubCalendar) UpcomingEvents(ctx context.Context, max int) ([]CalendarEvent, error) {
	return []CalendarEvent{{Title: "standup", Location: "zoom"}}, nil
}
