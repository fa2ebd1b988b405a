package event

import (
	"context"
	"sync"

	"origo/internal/audit/models"
	id "origo/pkg/domain"
)

// InMemory keeps audit events in insertion order. Intended for unit tests
// and single-process deployments.
type InMemory struct {
	mu     sync.RWMutex
	events []models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// ListByEntity returns the entity's events oldest first. An empty field
// matches every field.
func (s *InMemory) ListByEntity(_ context.Context, entityID id.EntityID, field id.FieldName) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Event
	for _, e := range s.events {
		if e.EntityID != entityID {
			continue
		}
		if field != "" && e.FieldName != field {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
