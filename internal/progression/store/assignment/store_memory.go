package assignment

import (
	"context"
	"sync"

	"origo/internal/progression/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
)

type key struct {
	entity   id.EntityID
	workflow string
}

// InMemory keeps assignment history in memory. The last element of each
// history slice is the current assignment.
type InMemory struct {
	mu      sync.RWMutex
	history map[key][]*models.StageAssignment
}

func NewInMemory() *InMemory {
	return &InMemory{history: make(map[key][]*models.StageAssignment)}
}

func (s *InMemory) FindCurrent(_ context.Context, entityID id.EntityID, workflow string) (*models.StageAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[key{entityID, workflow}]
	if len(h) == 0 {
		return nil, sentinel.ErrNotFound
	}
	cp := *h[len(h)-1]
	return &cp, nil
}

// Transition hands the current assignment (nil when the entity has not
// entered the workflow) to decide while holding the lock, and appends the
// returned assignment. This serializes transitions per (entity, workflow).
func (s *InMemory) Transition(_ context.Context, entityID id.EntityID, workflow string, decide func(current *models.StageAssignment) (*models.StageAssignment, error)) (*models.StageAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{entityID, workflow}
	var current *models.StageAssignment
	if h := s.history[k]; len(h) > 0 {
		cp := *h[len(h)-1]
		current = &cp
	}

	next, err := decide(current)
	if err != nil {
		return nil, err
	}
	cp := *next
	s.history[k] = append(s.history[k], &cp)
	out := *next
	return &out, nil
}

func (s *InMemory) ListHistory(_ context.Context, entityID id.EntityID, workflow string) ([]*models.StageAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[key{entityID, workflow}]
	out := make([]*models.StageAssignment, len(h))
	for i, a := range h {
		cp := *a
		out[i] = &cp
	}
	return out, nil
}

// CountByStage counts entities currently at each stage of the workflow,
// optionally restricted to the given entities.
func (s *InMemory) CountByStage(_ context.Context, workflow string, entityIDs []id.EntityID) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := map[id.EntityID]bool{}
	for _, e := range entityIDs {
		allowed[e] = true
	}

	counts := make(map[string]int)
	for k, h := range s.history {
		if k.workflow != workflow || len(h) == 0 {
			continue
		}
		if len(allowed) > 0 && !allowed[k.entity] {
			continue
		}
		counts[h[len(h)-1].Stage]++
	}
	return counts, nil
}
