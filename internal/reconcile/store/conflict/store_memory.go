package conflict

import (
	"context"
	"sort"
	"sync"

	"origo/internal/reconcile/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
)

type fieldKey struct {
	entity id.EntityID
	field  id.FieldName
}

// InMemory keeps conflicts in maps, indexed by id and by open field so the
// detector's "one open conflict per field" check is O(1).
type InMemory struct {
	mu        sync.RWMutex
	conflicts map[id.ConflictID]*models.Conflict
	openByKey map[fieldKey]id.ConflictID
}

func NewInMemory() *InMemory {
	return &InMemory{
		conflicts: make(map[id.ConflictID]*models.Conflict),
		openByKey: make(map[fieldKey]id.ConflictID),
	}
}

func (s *InMemory) Create(_ context.Context, c *models.Conflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := fieldKey{c.EntityID, c.FieldName}
	if _, exists := s.openByKey[k]; exists {
		return sentinel.ErrConflict
	}
	cp := *c
	s.conflicts[c.ID] = &cp
	s.openByKey[k] = c.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, conflictID id.ConflictID) (*models.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conflicts[conflictID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) FindOpenByField(_ context.Context, entityID id.EntityID, field id.FieldName) (*models.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conflictID, ok := s.openByKey[fieldKey{entityID, field}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.conflicts[conflictID]
	return &cp, nil
}

// ListOpen returns open conflicts, optionally restricted to the given
// entities, ordered oldest first for the review queue.
func (s *InMemory) ListOpen(_ context.Context, entityIDs []id.EntityID) ([]*models.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := map[id.EntityID]bool{}
	for _, e := range entityIDs {
		allowed[e] = true
	}

	var out []*models.Conflict
	for _, conflictID := range s.openByKey {
		c := s.conflicts[conflictID]
		if len(allowed) > 0 && !allowed[c.EntityID] {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) HasOpenConflicts(_ context.Context, entityID id.EntityID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k := range s.openByKey {
		if k.entity == entityID {
			return true, nil
		}
	}
	return false, nil
}

// Execute runs validate then mutate atomically while holding the store lock,
// so a conflict can take exactly one resolution transition.
func (s *InMemory) Execute(_ context.Context, conflictID id.ConflictID, validate func(*models.Conflict) error, mutate func(*models.Conflict)) (*models.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conflicts[conflictID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)
	if !c.Open() {
		delete(s.openByKey, fieldKey{c.EntityID, c.FieldName})
	}
	cp := *c
	return &cp, nil
}
