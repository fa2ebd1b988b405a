package fieldvalue

import (
	"context"
	"sync"
	"time"

	"origo/internal/reconcile/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
)

type key struct {
	entity id.EntityID
	field  id.FieldName
}

// InMemory keeps full field value history per (entity, field). The last
// history element is the current value. Appends are optimistic: the caller
// passes the revision it read and loses with ErrConcurrentModification when
// someone else appended in between.
type InMemory struct {
	mu     sync.RWMutex
	values map[key][]*models.FieldValue
}

func NewInMemory() *InMemory {
	return &InMemory{values: make(map[key][]*models.FieldValue)}
}

func (s *InMemory) FindCurrent(_ context.Context, entityID id.EntityID, field id.FieldName) (*models.FieldValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.values[key{entityID, field}]
	if len(history) == 0 {
		return nil, sentinel.ErrNotFound
	}
	cp := *history[len(history)-1]
	return &cp, nil
}

// Append writes fv as the new current revision. expectedRevision is the
// revision the caller read (0 when the field had no value yet).
func (s *InMemory) Append(_ context.Context, fv *models.FieldValue, expectedRevision int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{fv.EntityID, fv.FieldName}
	history := s.values[k]

	var currentRev int64
	if len(history) > 0 {
		currentRev = history[len(history)-1].Revision
	}
	if currentRev != expectedRevision {
		return sentinel.ErrConcurrentModification
	}

	fv.Revision = expectedRevision + 1
	cp := *fv
	s.values[k] = append(history, &cp)
	return nil
}

// Touch refreshes UpdatedAt on the current record to mark corroboration.
// History rows stay untouched.
func (s *InMemory) Touch(_ context.Context, entityID id.EntityID, field id.FieldName, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.values[key{entityID, field}]
	if len(history) == 0 {
		return sentinel.ErrNotFound
	}
	history[len(history)-1].UpdatedAt = now
	return nil
}

// ListHistory returns every revision for the field, oldest first.
func (s *InMemory) ListHistory(_ context.Context, entityID id.EntityID, field id.FieldName) ([]*models.FieldValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.values[key{entityID, field}]
	out := make([]*models.FieldValue, 0, len(history))
	for _, fv := range history {
		cp := *fv
		out = append(out, &cp)
	}
	return out, nil
}
