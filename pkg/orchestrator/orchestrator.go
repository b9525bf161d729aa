// Package orchestrator coordinates a chat turn end to end: gather
// context, select agents, fan out, merge, persist. It is the only
// package that sees every other core component.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pbulbule13/vinegar/pkg/agent"
	"github.com/pbulbule13/vinegar/pkg/ingest"
	"github.com/pbulbule13/vinegar/pkg/model"
	"github.com/pbulbule13/vinegar/pkg/retrieval"
	"github.com/pbulbule13/vinegar/pkg/session"
	"github.com/pbulbule13/vinegar/pkg/telemetry"
)

// ErrEmptyMessage is returned when a request carries no message text.
// It is the only input error Process reports; everything downstream
// degrades instead of failing.
var ErrEmptyMessage = errors.New("orchestrator: empty message")

// Processing stages, recorded as span events so a trace shows how far
// a request got before any degradation kicked in.
const (
	stageReceived        = "received"
	stageContextGathered = "context_gathered"
	stageRouted          = "routed"
	stageDispatched      = "dispatched"
	stageMerged          = "merged"
	stagePersisted       = "persisted"
	stageResponded       = "responded"
)

const (
	defaultAgentTimeout = 30 * time.Second
	defaultHistoryTurns = 10

	generalSystemPrompt = `You are VINEGAR, a thoughtful personal assistant in the spirit of Jarvis.
Be warm, concise, and concrete. Use any provided context about the user.`

	generalDegradedMessage = "I'm experiencing some technical difficulties. Give me a moment."
)

// Request is one inbound chat turn.
type Request struct {
	Message   string
	UserID    string
	SessionID string
}

// Response is the merged outcome of a turn. AgentType is a composite
// tag when several agents contributed, their names joined with "+".
type Response struct {
	Text      string
	SessionID string
	AgentType string
	Actions   []agent.Action
}

// Config wires the orchestrator's collaborators. Sessions, Retrieval,
// Agents, and Completer are required; Queue is optional and disables
// knowledge capture when nil.
type Config struct {
	Sessions  *session.Manager
	Retrieval *retrieval.Service
	Agents    []agent.Agent
	Completer model.Completer
	Queue     *ingest.Queue

	AgentTimeout time.Duration
	HistoryTurns int
	Logger       *slog.Logger
}

// Orchestrator owns the per-turn pipeline.
type Orchestrator struct {
	sessions  *session.Manager
	rag       *retrieval.Service
	agents    map[agent.Type]agent.Agent
	completer model.Completer
	queue     *ingest.Queue

	agentTimeout time.Duration
	historyTurns int
	log          *slog.Logger
}

// New validates cfg and builds an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Sessions == nil:
		return nil, errors.New("orchestrator: session manager required")
	case cfg.Retrieval == nil:
		return nil, errors.New("orchestrator: retrieval service required")
	case len(cfg.Agents) == 0:
		return nil, errors.New("orchestrator: at least one agent required")
	case cfg.Completer == nil:
		return nil, errors.New("orchestrator: completer required")
	}
	o := &Orchestrator{
		sessions:     cfg.Sessions,
		rag:          cfg.Retrieval,
		agents:       make(map[agent.Type]agent.Agent, len(cfg.Agents)),
		completer:    cfg.Completer,
		queue:        cfg.Queue,
		agentTimeout: cfg.AgentTimeout,
		historyTurns: cfg.HistoryTurns,
		log:          cfg.Logger,
	}
	for _, ag := range cfg.Agents {
		if _, dup := o.agents[ag.Type()]; dup {
			return nil, fmt.Errorf("orchestrator: duplicate agent %q", ag.Type())
		}
		o.agents[ag.Type()] = ag
	}
	if o.agentTimeout <= 0 {
		o.agentTimeout = defaultAgentTimeout
	}
	if o.historyTurns <= 0 {
		o.historyTurns = defaultHistoryTurns
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o, nil
}

// Process runs one chat turn. It returns an error only when the
// message is empty; every downstream failure is absorbed into a
// degraded but well-formed Response.
func (o *Orchestrator) Process(ctx context.Context, req Request) (Response, error) {
	if req.Message == "" {
		return Response{}, ErrEmptyMessage
	}
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.Process",
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("user.id", req.UserID))...))
	var err error
	defer func() { telemetry.EndSpan(span, err) }()
	span.AddEvent(stageReceived)

	sess := o.sessions.GetOrCreate(ctx, req.SessionID, req.UserID)
	history := o.sessions.History(sess.ID, o.historyTurns)

	// Retrieval runs while routing decides; both must finish before
	// any agent is invoked.
	knowledgeCh := make(chan string, 1)
	go func() {
		knowledgeCh <- o.rag.Context(ctx, req.Message, req.UserID, 0)
	}()

	selected := route(req.Message)
	if len(selected) == 0 {
		selected = classify(ctx, o.completer, req.Message)
	}
	knowledge := <-knowledgeCh
	span.AddEvent(stageContextGathered)
	span.AddEvent(stageRouted)
	span.SetAttributes(attribute.Int("agents.selected", len(selected)))

	areq := agent.Request{
		Input:     req.Message,
		UserID:    req.UserID,
		History:   history,
		Knowledge: knowledge,
		TimeOfDay: timeOfDay(time.Now()),
	}

	var resp Response
	if len(selected) == 0 {
		resp = o.general(ctx, areq)
	} else {
		results := o.dispatch(ctx, selected, areq)
		span.AddEvent(stageDispatched)
		resp = merge(results)
	}
	resp.SessionID = sess.ID
	span.AddEvent(stageMerged)

	o.persist(ctx, sess.ID, req, resp)
	span.AddEvent(stagePersisted)
	o.capture(req, resp)

	span.SetAttributes(attribute.String("agent.type", resp.AgentType))
	span.AddEvent(stageResponded)
	return resp, nil
}

// dispatch fans out to the selected agents in parallel. Each agent
// gets its own deadline detached from the request context, so a client
// hanging up mid-turn does not abandon work already in flight.
func (o *Orchestrator) dispatch(ctx context.Context, selected []agent.Type, areq agent.Request) []agent.Result {
	base := context.WithoutCancel(ctx)
	results := make([]agent.Result, len(selected))
	var wg sync.WaitGroup
	for i, t := range selected {
		ag, ok := o.agents[t]
		if !ok {
			o.log.Warn("no agent registered for route", "agent", t)
			results[i] = agent.Result{Agent: t, Content: generalDegradedMessage}
			continue
		}
		wg.Add(1)
		go func(i int, ag agent.Agent) {
			defer wg.Done()
			actx, cancel := context.WithTimeout(base, o.agentTimeout)
			defer cancel()
			results[i] = ag.Handle(actx, areq)
		}(i, ag)
	}
	wg.Wait()
	return results
}

// general answers directly when no agent matched and classification
// came up empty.
func (o *Orchestrator) general(ctx context.Context, areq agent.Request) Response {
	system := generalSystemPrompt
	if areq.Knowledge != "" {
		system += "\n\n" + areq.Knowledge
	}
	turns := append(historyTurns(areq.History), model.Turn{Role: session.RoleUser, Content: areq.Input})
	text, err := o.completer.Complete(ctx, model.Request{
		System:      system,
		Turns:       turns,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		o.log.Warn("general completion failed", "error", err)
		text = generalDegradedMessage
	}
	return Response{Text: text, AgentType: string(agent.TypeGeneral)}
}

// persist appends both sides of the turn to the session. Failures are
// logged, never surfaced; the caller already has the response.
func (o *Orchestrator) persist(ctx context.Context, sessionID string, req Request, resp Response) {
	if err := o.sessions.Append(ctx, sessionID, session.Message{
		Role:    session.RoleUser,
		Content: req.Message,
	}); err != nil {
		o.log.Warn("append user message failed", "session", sessionID, "error", err)
	}
	if err := o.sessions.Append(ctx, sessionID, session.Message{
		Role:      session.RoleAssistant,
		Content:   resp.Text,
		AgentType: resp.AgentType,
	}); err != nil {
		o.log.Warn("append assistant message failed", "session", sessionID, "error", err)
	}
}

// capture hands the exchange to the ingest queue so future turns can
// retrieve it. Fire and forget; a full queue drops the fact.
func (o *Orchestrator) capture(req Request, resp Response) {
	if o.queue == nil {
		return
	}
	o.queue.Submit(ingest.Fact{
		UserID:   req.UserID,
		Content:  fmt.Sprintf("User asked: %s. VINEGAR responded: %s", req.Message, resp.Text),
		Category: "conversation",
		Source:   resp.AgentType,
		Metadata: map[string]string{"session_id": resp.SessionID},
	})
}

func historyTurns(msgs []session.Message) []model.Turn {
	turns := make([]model.Turn, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role != session.RoleUser && msg.Role != session.RoleAssistant {
			continue
		}
		turns = append(turns, model.Turn{Role: msg.Role, Content: msg.Content})
	}
	return turns
}

func timeOfDay(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "morning"
	case h < 17:
		return "afternoon"
	default:
		return "evening"
	}
}
