// Package profile stores the lightweight user profiles that seed the
// knowledge graph and scope sessions.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pbulbule13/vinegar/pkg/store"
)

// WorkingHours uses "HH:MM" wall-clock strings.
type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Profile is the persisted user record.
type Profile struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Timezone     string       `json:"timezone"`
	WorkingHours WorkingHours `json:"working_hours"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Service reads and writes profiles through the document store. A
// configured default profile is returned for unknown users so the
// assistant stays usable before onboarding completes.
type Service struct {
	docs       store.Store
	collection string
	defaults   Profile
	log        *slog.Logger
}

// NewService creates a profile service.
func NewService(docs store.Store, collection string, defaults Profile, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{docs: docs, collection: collection, defaults: defaults, log: log}
}

// Get returns the stored profile for id, or the default profile when
// the user is unknown or the store is unreachable.
func (s *Service) Get(ctx context.Context, id string) Profile {
	if s.docs == nil {
		return s.defaultFor(id)
	}
	data, err := s.docs.Get(ctx, s.collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return s.defaultFor(id)
	}
	if err != nil {
		s.log.Warn("profile lookup failed, using defaults", "user_id", id, "error", err)
		return s.defaultFor(id)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Warn("discarding malformed profile", "user_id", id, "error", err)
		return s.defaultFor(id)
	}
	return p
}

// Save persists a profile.
func (s *Service) Save(ctx context.Context, p Profile) error {
	if s.docs == nil {
		return store.ErrUnavailable
	}
	if p.ID == "" {
		return errors.New("profile: id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.docs.Put(ctx, s.collection, p.ID, data); err != nil {
		return fmt.Errorf("profile: save %s: %w", p.ID, err)
	}
	return nil
}

func (s *Service) defaultFor(id string) Profile {
	p := s.defaults
	if id != "" {
		p.ID = id
	}
	return p
}
