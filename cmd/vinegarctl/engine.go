package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pbulbule13/vinegar/pkg/agent"
	"github.com/pbulbule13/vinegar/pkg/config"
	"github.com/pbulbule13/vinegar/pkg/embedding"
	"github.com/pbulbule13/vinegar/pkg/ingest"
	"github.com/pbulbule13/vinegar/pkg/knowledge"
	"github.com/pbulbule13/vinegar/pkg/model/anthropic"
	"github.com/pbulbule13/vinegar/pkg/orchestrator"
	"github.com/pbulbule13/vinegar/pkg/profile"
	"github.com/pbulbule13/vinegar/pkg/retrieval"
	"github.com/pbulbule13/vinegar/pkg/session"
	"github.com/pbulbule13/vinegar/pkg/store"
	"github.com/pbulbule13/vinegar/pkg/telemetry"
	"github.com/pbulbule13/vinegar/pkg/voice"
)

// engine is the fully assembled service: every component wired from one
// Config, plus the hooks needed to shut it down cleanly.
type engine struct {
	cfg      config.Config
	log      *slog.Logger
	sessions *session.Manager
	rag      *retrieval.Service
	orch     *orchestrator.Orchestrator
	profiles *profile.Service
	queue    *ingest.Queue
	synth    voice.Synthesizer

	stopTelemetry func(context.Context) error
}

func buildEngine(ctx context.Context, cfg config.Config, log *slog.Logger) (*engine, error) {
	if cfg.Anthropic.APIKey == "" {
		return nil, errors.New("anthropic api key is required (set ANTHROPIC_API_KEY)")
	}
	stopTelemetry, err := telemetry.Setup(ctx, "vinegar", cfg.Telemetry.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	docs, err := store.NewFileStore(cfg.Store.Root)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var embedder embedding.Embedder
	if cfg.OpenAI.APIKey != "" {
		embedder, err = embedding.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel,
			embedding.WithDimensions(cfg.OpenAI.Dimensions))
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
	} else {
		log.Warn("openai api key not set, knowledge retrieval disabled")
		embedder = embedding.FailingEmbedder{}
	}

	graph := knowledge.NewStore(cfg.OpenAI.Dimensions,
		knowledge.WithPersistence(docs, cfg.Store.KnowledgeCollection),
		knowledge.WithLogger(log))
	if err := graph.Load(ctx); err != nil {
		log.Warn("knowledge hydration failed, starting empty", "error", err)
	}

	rag := retrieval.NewService(embedder, graph,
		retrieval.WithTopK(cfg.Retrieval.TopK),
		retrieval.WithTimeout(cfg.Retrieval.Timeout.Std()),
		retrieval.WithMaxContextChars(cfg.Retrieval.MaxContextChars),
		retrieval.WithLogger(log))

	sessions := session.NewManager(
		session.WithWindow(cfg.Session.Window),
		session.WithPersistence(docs, cfg.Store.SessionCollection),
		session.WithLogger(log))

	completer := anthropic.New(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)

	queue := ingest.NewQueue(rag, ingest.WithLogger(log))

	orch, err := orchestrator.New(orchestrator.Config{
		Sessions:  sessions,
		Retrieval: rag,
		Agents: []agent.Agent{
			agent.NewExecutive(completer, nil, nil, log),
			agent.NewEmotional(completer, log),
			agent.NewPrioritization(completer, log),
		},
		Completer:    completer,
		Queue:        queue,
		AgentTimeout: cfg.Agents.Timeout.Std(),
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	profiles := profile.NewService(docs, cfg.Store.ProfileCollection, profile.Profile{
		Name:     cfg.Profile.Name,
		Email:    cfg.Profile.Email,
		Timezone: cfg.Profile.Timezone,
	}, log)

	var synth voice.Synthesizer
	if cfg.Voice.APIKey != "" && cfg.Voice.VoiceID != "" {
		synth = voice.NewElevenLabs(cfg.Voice.APIKey, cfg.Voice.VoiceID)
	}

	return &engine{
		cfg:           cfg,
		log:           log,
		sessions:      sessions,
		rag:           rag,
		orch:          orch,
		profiles:      profiles,
		queue:         queue,
		synth:         synth,
		stopTelemetry: stopTelemetry,
	}, nil
}

// close drains the ingest queue and flushes telemetry.
func (e *engine) close(ctx context.Context) {
	e.queue.Close()
	if e.stopTelemetry != nil {
		if err := e.stopTelemetry(ctx); err != nil {
			e.log.Warn("telemetry shutdown failed", "error", err)
		}
	}
}

func loadConfig(path string) (config.Config, error) {
	loader, err := config.NewLoader(path)
	if err != nil {
		return config.Config{}, err
	}
	return loader.Load()
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
