package entity

import (
	"context"
	"sync"

	"origo/internal/entity/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
)

// InMemory keeps entities in a map. Used by unit tests and single-process
// development runs; PostgresStore is the production implementation.
type InMemory struct {
	mu       sync.RWMutex
	entities map[id.EntityID]*models.Entity
}

func NewInMemory() *InMemory {
	return &InMemory{entities: make(map[id.EntityID]*models.Entity)}
}

func (s *InMemory) Create(_ context.Context, e *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[e.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *e
	s.entities[e.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, entityID id.EntityID) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[entityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *InMemory) ListByCase(_ context.Context, caseID id.CaseID) ([]*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Entity
	for _, e := range s.entities {
		if e.CaseID == caseID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Execute runs validate then mutate atomically while holding the store lock,
// so concurrent soft-deletes of the same entity serialize.
func (s *InMemory) Execute(_ context.Context, entityID id.EntityID, validate func(*models.Entity) error, mutate func(*models.Entity)) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[entityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	mutate(e)
	cp := *e
	return &cp, nil
}
