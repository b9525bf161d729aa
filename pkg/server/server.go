// Package server exposes the HTTP and WebSocket API around the
// orchestrator.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"github.com/pbulbule13/vinegar/pkg/agent"
	"github.com/pbulbule13/vinegar/pkg/orchestrator"
	"github.com/pbulbule13/vinegar/pkg/profile"
	"github.com/pbulbule13/vinegar/pkg/retrieval"
	"github.com/pbulbule13/vinegar/pkg/session"
	"github.com/pbulbule13/vinegar/pkg/voice"
)

// ChatRequest is the inbound chat payload, shared by the REST and
// WebSocket surfaces.
type ChatRequest struct {
	Message      string `json:"message"`
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id,omitempty"`
	VoiceEnabled bool   `json:"voice_enabled,omitempty"`
}

// ChatResponse is the merged answer for one turn.
type ChatResponse struct {
	Response  string         `json:"response"`
	SessionID string         `json:"session_id"`
	AgentType string         `json:"agent_type"`
	Actions   []agent.Action `json:"actions,omitempty"`
	AudioURL  string         `json:"audio_url,omitempty"`
}

// Server wires the orchestrator, profiles, and voice behind HTTP.
type Server struct {
	orch     *orchestrator.Orchestrator
	profiles *profile.Service
	rag      *retrieval.Service
	sessions *session.Manager
	synth    voice.Synthesizer
	log      *slog.Logger
	mux      *http.ServeMux

	started  time.Time
	requests atomic.Int64
}

// Option customizes the server.
type Option func(*Server)

// WithVoice enables speech synthesis for voice-enabled requests.
func WithVoice(s voice.Synthesizer) Option {
	return func(srv *Server) { srv.synth = s }
}

// WithLogger sets the server's logger.
func WithLogger(log *slog.Logger) Option {
	return func(srv *Server) { srv.log = log }
}

// New creates a Server with pre-wired routes.
func New(orch *orchestrator.Orchestrator, profiles *profile.Service, rag *retrieval.Service, sessions *session.Manager, opts ...Option) *Server {
	srv := &Server{
		orch:     orch,
		profiles: profiles,
		rag:      rag,
		sessions: sessions,
		log:      slog.Default(),
		mux:      http.NewServeMux(),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /profile/{id}", s.handleGetProfile)
	s.mux.HandleFunc("POST /profile/{id}", s.handleSaveProfile)
	s.mux.HandleFunc("POST /profile/{id}/initialize", s.handleInitializeProfile)
	s.mux.Handle("GET /ws/{user_id}", websocket.Handler(s.handleWS))
}

// ServeHTTP implements http.Handler and delegates to the internal mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	resp, status := s.chat(r, req)
	switch status {
	case http.StatusOK:
		writeJSON(w, s.log, resp)
	case http.StatusBadRequest:
		http.Error(w, "message is required", status)
	default:
		http.Error(w, "processing failed", status)
	}
}

// chat runs one turn and shapes the API response. An empty message is
// the only client error; everything else degrades inside the
// orchestrator and still yields 200.
func (s *Server) chat(r *http.Request, req ChatRequest) (ChatResponse, int) {
	result, err := s.orch.Process(r.Context(), orchestrator.Request{
		Message:   strings.TrimSpace(req.Message),
		UserID:    req.UserID,
		SessionID: req.SessionID,
	})
	if errors.Is(err, orchestrator.ErrEmptyMessage) {
		return ChatResponse{}, http.StatusBadRequest
	}
	if err != nil {
		s.log.Error("process failed", "error", err)
		return ChatResponse{}, http.StatusInternalServerError
	}
	resp := ChatResponse{
		Response:  result.Text,
		SessionID: result.SessionID,
		AgentType: result.AgentType,
		Actions:   result.Actions,
	}
	if req.VoiceEnabled && s.synth != nil {
		audio, err := s.synth.Synthesize(r.Context(), result.Text)
		if err != nil {
			s.log.Warn("voice synthesis failed", "error", err)
		} else {
			resp.AudioURL = voice.DataURL(audio)
		}
	}
	return resp, http.StatusOK
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.log, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.log, map[string]any{
		"requests_total":  s.requests.Load(),
		"uptime_seconds":  int64(time.Since(s.started).Seconds()),
		"active_sessions": s.sessions.Active(),
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.log, s.profiles.Get(r.Context(), r.PathValue("id")))
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var p profile.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	p.ID = r.PathValue("id")
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := s.profiles.Save(r.Context(), p); err != nil {
		s.log.Error("profile save failed", "user_id", p.ID, "error", err)
		http.Error(w, "profile save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.log, p)
}

// handleInitializeProfile seeds the knowledge graph from the stored
// profile so retrieval has something to work with on day one.
func (s *Server) handleInitializeProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p := s.profiles.Get(r.Context(), id)
	seeded := s.rag.Seed(r.Context(), p)
	writeJSON(w, s.log, map[string]any{"user_id": id, "seeded": seeded})
}

// handleWS serves a persistent chat connection. Each JSON frame is a
// standalone chat request; the user is fixed by the URL path.
func (s *Server) handleWS(ws *websocket.Conn) {
	defer ws.Close()
	r := ws.Request()
	userID := r.PathValue("user_id")
	for {
		var req ChatRequest
		if err := websocket.JSON.Receive(ws, &req); err != nil {
			return
		}
		req.UserID = userID
		resp, status := s.chat(r, req)
		if status != http.StatusOK {
			resp = ChatResponse{Response: "message is required", AgentType: "error"}
		}
		if err := websocket.JSON.Send(ws, resp); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("write response failed", "error", err)
	}
}
