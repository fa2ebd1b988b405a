package intake

import (
	"context"
	"sync"
	"time"

	"origo/internal/sync/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
)

type key struct {
	entity id.EntityID
	field  id.FieldName
}

// InMemory mirrors the intake table in memory for tests and single-process
// runs.
type InMemory struct {
	mu     sync.RWMutex
	values map[key]*models.IntakeValue
}

func NewInMemory() *InMemory {
	return &InMemory{values: make(map[key]*models.IntakeValue)}
}

func (s *InMemory) Find(_ context.Context, entityID id.EntityID, field id.FieldName) (*models.IntakeValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key{entityID, field}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// ApplyIfNewer upserts the row unless the stored timestamp is at or past
// ts, in which case it returns sentinel.ErrStale and changes nothing.
func (s *InMemory) ApplyIfNewer(_ context.Context, entityID id.EntityID, field id.FieldName, value string, ts time.Time, origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{entityID, field}
	if existing, ok := s.values[k]; ok && !existing.UpdatedAt.Before(ts) {
		return sentinel.ErrStale
	}
	s.values[k] = &models.IntakeValue{
		EntityID:  entityID,
		FieldName: field,
		Value:     value,
		Origin:    origin,
		UpdatedAt: ts,
	}
	return nil
}
