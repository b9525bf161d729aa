// Package knowledge holds the personal-knowledge entries and performs
// similarity search over their embeddings. The index is an append-only
// in-memory arena with a bounded linear scan; that is the documented
// scalability ceiling for the corpus sizes this system targets.
package knowledge

import "time"

// Entry is a single knowledge record. Immutable after creation except
// for metadata refresh.
type Entry struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Content   string            `json:"content"`
	Embedding []float64         `json:"embedding"`
	Category  string            `json:"category,omitempty"`
	Source    string            `json:"source,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Result pairs an entry with its similarity score for a query.
type Result struct {
	Entry Entry
	Score float64
}

// Filter restricts a search to matching entries. Zero fields match all.
type Filter struct {
	UserID   string
	Category string
}

func (f Filter) matches(e Entry) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	return true
}
