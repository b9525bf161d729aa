package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pbulbule13/vinegar/pkg/agent"
	"github.com/pbulbule13/vinegar/pkg/embedding"
	"github.com/pbulbule13/vinegar/pkg/knowledge"
	"github.com/pbulbule13/vinegar/pkg/model"
	"github.com/pbulbule13/vinegar/pkg/retrieval"
	"github.com/pbulbule13/vinegar/pkg/session"
)

type fixture struct {
	orch      *Orchestrator
	sessions  *session.Manager
	executive *model.Mock
	emotional *model.Mock
	priority  *model.Mock
	general   *model.Mock
}

func newFixture(t *testing.T, embedder embedding.Embedder, timeout time.Duration) *fixture {
	t.Helper()
	if embedder == nil {
		embedder = &embedding.StaticEmbedder{Vector: []float64{1, 0, 0}}
	}
	f := &fixture{
		sessions:  session.NewManager(),
		executive: &model.Mock{Responses: []string{"executive reply"}},
		emotional: &model.Mock{Responses: []string{"emotional reply"}},
		priority:  &model.Mock{Responses: []string{"1. First task\n2. Second task"}},
		general:   &model.Mock{Responses: []string{"general reply"}},
	}
	rag := retrieval.NewService(embedder, knowledge.NewStore(3))
	orch, err := New(Config{
		Sessions:  f.sessions,
		Retrieval: rag,
		Agents: []agent.Agent{
			agent.NewExecutive(f.executive, nil, nil, nil),
			agent.NewEmotional(f.emotional, nil),
			agent.NewPrioritization(f.priority, nil),
		},
		Completer:    f.general,
		AgentTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.orch = orch
	return f
}

func TestProcessEmptyMessage(t *testing.T) {
	f := newFixture(t, nil, 0)
	if _, err := f.orch.Process(context.Background(), Request{UserID: "u1"}); err != ErrEmptyMessage {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestRouteSingleAgent(t *testing.T) {
	f := newFixture(t, nil, 0)
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "Check my email and summarize the inbox",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.AgentType != "executive" {
		t.Fatalf("AgentType = %q, want executive", resp.AgentType)
	}
	if resp.Text != "executive reply" {
		t.Fatalf("Text = %q, want verbatim executive reply", resp.Text)
	}
	if strings.Contains(resp.Text, "[EXECUTIVE]") {
		t.Fatal("single-agent response should not carry a section label")
	}
	if len(f.emotional.Calls()) != 0 || len(f.priority.Calls()) != 0 {
		t.Fatal("non-matching agents should not be invoked")
	}
}

func TestRouteMultiAgentMerge(t *testing.T) {
	f := newFixture(t, nil, 0)
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "Schedule a meeting; I'm feeling a bit overwhelmed",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.AgentType != "executive+emotional" {
		t.Fatalf("AgentType = %q, want executive+emotional", resp.AgentType)
	}
	execIdx := strings.Index(resp.Text, "[EXECUTIVE]")
	emoIdx := strings.Index(resp.Text, "[EMOTIONAL]")
	if execIdx < 0 || emoIdx < 0 {
		t.Fatalf("missing section labels in %q", resp.Text)
	}
	if execIdx > emoIdx {
		t.Fatal("executive section should precede emotional section")
	}
	if !strings.Contains(resp.Text, "executive reply") || !strings.Contains(resp.Text, "emotional reply") {
		t.Fatalf("merged text missing agent content: %q", resp.Text)
	}
}

func TestStressedDeadlineRoutesEmotionalAndPriority(t *testing.T) {
	f := newFixture(t, nil, 0)
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "I'm feeling stressed about my deadline",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.AgentType != "emotional+prioritization" {
		t.Fatalf("AgentType = %q, want emotional+prioritization", resp.AgentType)
	}
	if !strings.Contains(resp.Text, "[EMOTIONAL]") || !strings.Contains(resp.Text, "[PRIORITIZATION]") {
		t.Fatalf("missing section labels in %q", resp.Text)
	}
	if len(f.executive.Calls()) != 0 {
		t.Fatal("executive agent should not be invoked")
	}
}

func TestEmbeddingFailureStillResponds(t *testing.T) {
	f := newFixture(t, embedding.FailingEmbedder{}, 0)
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "Draft an email to the team",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Text == "" {
		t.Fatal("response should be non-empty when retrieval degrades")
	}
	if resp.AgentType != "executive" {
		t.Fatalf("AgentType = %q, want executive", resp.AgentType)
	}
}

func TestDegradedAgentSkippedInMerge(t *testing.T) {
	f := newFixture(t, nil, 0)
	f.emotional.Err = context.DeadlineExceeded
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "Schedule a meeting; I'm feeling a bit overwhelmed",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.AgentType != "executive" {
		t.Fatalf("AgentType = %q, want executive only", resp.AgentType)
	}
	if resp.Text != "executive reply" {
		t.Fatalf("Text = %q, want executive reply verbatim", resp.Text)
	}
}

func TestAllAgentsDegraded(t *testing.T) {
	f := newFixture(t, nil, 0)
	f.executive.Err = context.DeadlineExceeded
	f.emotional.Err = context.DeadlineExceeded
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "Schedule a meeting; I'm feeling a bit overwhelmed",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Text == "" {
		t.Fatal("degraded turn must still produce a message")
	}
	if resp.AgentType != "executive" {
		t.Fatalf("AgentType = %q, want first degraded agent", resp.AgentType)
	}
}

func TestAgentTimeoutDegrades(t *testing.T) {
	f := newFixture(t, nil, 20*time.Millisecond)
	f.executive.Fn = func(ctx context.Context, req model.Request) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "too late", nil
		}
	}
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "Reschedule my appointment",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if strings.Contains(resp.Text, "too late") {
		t.Fatal("timed-out completion must not reach the response")
	}
	if resp.Text == "" {
		t.Fatal("timeout should yield the degraded message, not an empty response")
	}
}

func TestTimeoutIsolatedAcrossSessions(t *testing.T) {
	f := newFixture(t, nil, 20*time.Millisecond)
	f.executive.Fn = func(ctx context.Context, req model.Request) (string, error) {
		for _, turn := range req.Turns {
			if strings.Contains(turn.Content, "stall") {
				<-ctx.Done()
				return "", ctx.Err()
			}
		}
		return "prompt reply", nil
	}

	var wg sync.WaitGroup
	responses := make([]Response, 2)
	for i, msg := range []string{"stall on my inbox", "check my inbox"} {
		wg.Add(1)
		go func(i int, msg string) {
			defer wg.Done()
			resp, err := f.orch.Process(context.Background(), Request{Message: msg, UserID: fmt.Sprintf("u%d", i)})
			if err != nil {
				t.Errorf("Process(%q): %v", msg, err)
				return
			}
			responses[i] = resp
		}(i, msg)
	}
	wg.Wait()

	if responses[1].Text != "prompt reply" {
		t.Fatalf("healthy session got %q, want prompt reply", responses[1].Text)
	}
	if responses[0].Text == "" || responses[0].Text == "prompt reply" {
		t.Fatalf("stalled session should degrade, got %q", responses[0].Text)
	}
}

func TestMergeSkipsDuplicateResponses(t *testing.T) {
	merged := merge([]agent.Result{
		{Agent: agent.TypeExecutive, Content: "same answer", Confidence: 0.9},
		{Agent: agent.TypeEmotional, Content: "same answer", Confidence: 0.8},
	})
	if merged.Text != "same answer" {
		t.Fatalf("Text = %q, want single deduplicated answer", merged.Text)
	}
	if merged.AgentType != "executive" {
		t.Fatalf("AgentType = %q", merged.AgentType)
	}
}

func TestClassifierFallback(t *testing.T) {
	f := newFixture(t, nil, 0)
	f.general.Responses = []string{"EMOTIONAL"}
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "Talk to me about my week",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.AgentType != "emotional" {
		t.Fatalf("AgentType = %q, want emotional via classifier", resp.AgentType)
	}
}

func TestClassifierFailureFallsBackToGeneral(t *testing.T) {
	f := newFixture(t, nil, 0)
	calls := 0
	f.general.Fn = func(ctx context.Context, req model.Request) (string, error) {
		calls++
		if calls == 1 {
			return "", context.DeadlineExceeded
		}
		return "direct answer", nil
	}
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "Tell me something interesting",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.AgentType != "general" {
		t.Fatalf("AgentType = %q, want general", resp.AgentType)
	}
	if resp.Text != "direct answer" {
		t.Fatalf("Text = %q, want direct answer", resp.Text)
	}
}

func TestGeneralPathDegrades(t *testing.T) {
	f := newFixture(t, nil, 0)
	f.general.Err = context.DeadlineExceeded
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "Tell me something interesting",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Text != generalDegradedMessage {
		t.Fatalf("Text = %q, want fixed degraded message", resp.Text)
	}
}

func TestConversationPersisted(t *testing.T) {
	f := newFixture(t, nil, 0)
	resp, err := f.orch.Process(context.Background(), Request{
		Message: "Check my inbox",
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("session id should be minted")
	}
	history := f.sessions.History(resp.SessionID, 0)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != session.RoleUser || history[0].Content != "Check my inbox" {
		t.Fatalf("unexpected user message %+v", history[0])
	}
	if history[1].Role != session.RoleAssistant || history[1].AgentType != "executive" {
		t.Fatalf("unexpected assistant message %+v", history[1])
	}
}

func TestSessionContinuity(t *testing.T) {
	f := newFixture(t, nil, 0)
	first, err := f.orch.Process(context.Background(), Request{Message: "Check my inbox", UserID: "u1"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	second, err := f.orch.Process(context.Background(), Request{
		Message:   "Draft a reply to the first one",
		UserID:    "u1",
		SessionID: first.SessionID,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Fatalf("session id changed: %q vs %q", second.SessionID, first.SessionID)
	}
	if got := len(f.sessions.History(first.SessionID, 0)); got != 4 {
		t.Fatalf("history length = %d, want 4", got)
	}
}

func TestRouteKeywords(t *testing.T) {
	cases := []struct {
		input string
		want  []agent.Type
	}{
		{"check my email", []agent.Type{agent.TypeExecutive}},
		{"I feel tired today", []agent.Type{agent.TypeEmotional}},
		{"what should I focus on", []agent.Type{agent.TypePrioritization}},
		{"hello there", nil},
		{"schedule time to plan, I'm stressed", []agent.Type{agent.TypeExecutive, agent.TypeEmotional, agent.TypePrioritization}},
	}
	for _, tc := range cases {
		got := route(tc.input)
		if len(got) != len(tc.want) {
			t.Fatalf("route(%q) = %v, want %v", tc.input, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("route(%q) = %v, want %v", tc.input, got, tc.want)
			}
		}
	}
}
