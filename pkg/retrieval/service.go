// Package retrieval turns a user query into a formatted knowledge
// context block: embed the query, search the knowledge store, and
// concatenate the hits. Retrieval degradation never aborts a request;
// every failure path collapses to an empty context.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pbulbule13/vinegar/pkg/embedding"
	"github.com/pbulbule13/vinegar/pkg/knowledge"
	"github.com/pbulbule13/vinegar/pkg/profile"
)

const (
	defaultTopK         = 5
	defaultTimeout      = 5 * time.Second
	defaultContextChars = 2000
	contextHeader       = "Relevant context from your knowledge graph:"
)

// Service is the RAG subsystem facade.
type Service struct {
	embedder     embedding.Embedder
	store        *knowledge.Store
	topK         int
	timeout      time.Duration
	contextChars int
	log          *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithTopK sets the default number of retrieved entries.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithTimeout bounds the embedding call for a single retrieval.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxContextChars caps the formatted context block length.
func WithMaxContextChars(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.contextChars = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// NewService wires the embedder and knowledge store.
func NewService(embedder embedding.Embedder, store *knowledge.Store, opts ...Option) *Service {
	s := &Service{
		embedder:     embedder,
		store:        store,
		topK:         defaultTopK,
		timeout:      defaultTimeout,
		contextChars: defaultContextChars,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Context returns a formatted context block for query scoped to
// userID, or "" when nothing relevant exists or embedding fails.
// k <= 0 uses the configured default.
func (s *Service) Context(ctx context.Context, query, userID string, k int) string {
	if k <= 0 {
		k = s.topK
	}
	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		s.log.Warn("query embedding failed, retrieving without context", "user_id", userID, "error", err)
		return ""
	}
	results := s.store.Search(vec, k, knowledge.Filter{UserID: userID})
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	total := 0
	for _, r := range results {
		line := "\n- " + entryLabel(r.Entry) + " " + r.Entry.Content
		if total+len(line) > s.contextChars {
			break
		}
		b.WriteString(line)
		total += len(line)
	}
	if total == 0 {
		return ""
	}
	return b.String()
}

// Add embeds content and indexes it as a knowledge entry for userID.
func (s *Service) Add(ctx context.Context, userID, content, category, source string, metadata map[string]string) (string, error) {
	vec, err := s.embedQuery(ctx, content)
	if err != nil {
		return "", fmt.Errorf("retrieval: embed content: %w", err)
	}
	return s.store.Add(ctx, knowledge.Entry{
		UserID:    userID,
		Content:   content,
		Embedding: vec,
		Category:  category,
		Source:    source,
		Metadata:  metadata,
	})
}

// Seed bootstraps a new user's knowledge graph from their profile and
// returns how many entries were indexed.
func (s *Service) Seed(ctx context.Context, p profile.Profile) int {
	entries := []struct {
		content  string
		category string
	}{
		{fmt.Sprintf("%s prefers direct, concise answers with a light touch of wit.", p.Name), "preferences"},
		{fmt.Sprintf("Working hours: %s to %s (%s).", p.WorkingHours.Start, p.WorkingHours.End, p.Timezone), "preferences"},
		{fmt.Sprintf("Primary contact email: %s.", p.Email), "profile"},
	}
	seeded := 0
	for _, e := range entries {
		if _, err := s.Add(ctx, p.ID, e.content, e.category, "system", nil); err != nil {
			s.log.Warn("seeding knowledge entry failed", "user_id", p.ID, "category", e.category, "error", err)
			continue
		}
		seeded++
	}
	return seeded
}

func (s *Service) embedQuery(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: empty vector", embedding.ErrEmbedding)
	}
	return vectors[0], nil
}

func entryLabel(e knowledge.Entry) string {
	switch {
	case e.Category != "" && e.Source != "":
		return "[" + e.Category + "/" + e.Source + "]"
	case e.Category != "":
		return "[" + e.Category + "]"
	case e.Source != "":
		return "[" + e.Source + "]"
	default:
		return "[note]"
	}
}
