package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"origo/internal/entity/models"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/sentinel"
	"origo/pkg/requestcontext"
)

// Store abstracts entity persistence.
type Store interface {
	Create(ctx context.Context, e *models.Entity) error
	FindByID(ctx context.Context, entityID id.EntityID) (*models.Entity, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*models.Entity, error)
	Execute(ctx context.Context, entityID id.EntityID, validate func(*models.Entity) error, mutate func(*models.Entity)) (*models.Entity, error)
}

// ConflictGuard answers whether an entity still has open conflicts.
// Implemented by the reconcile conflict store; soft delete is refused while
// any open conflict references the entity.
type ConflictGuard interface {
	HasOpenConflicts(ctx context.Context, entityID id.EntityID) (bool, error)
}

// Service orchestrates the entity lifecycle.
type Service struct {
	entities  Store
	conflicts ConflictGuard
}

func New(entities Store, conflicts ConflictGuard) *Service {
	return &Service{entities: entities, conflicts: conflicts}
}

func (s *Service) Create(ctx context.Context, caseID id.CaseID, kind models.Kind, displayName string) (*models.Entity, error) {
	displayName = strings.TrimSpace(displayName)
	e, err := models.NewEntity(id.EntityID(uuid.New()), caseID, kind, displayName, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.entities.Create(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create entity")
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	e, err := s.entities.FindByID(ctx, entityID)
	if err != nil {
		return nil, wrapEntityErr(err)
	}
	return e, nil
}

func (s *Service) ListByCase(ctx context.Context, caseID id.CaseID) ([]*models.Entity, error) {
	return s.entities.ListByCase(ctx, caseID)
}

// SoftDelete marks an entity deleted. Refused while an open conflict still
// references the entity, so review queues never point at vanished records.
func (s *Service) SoftDelete(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	open, err := s.conflicts.HasOpenConflicts(ctx, entityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check open conflicts")
	}
	if open {
		return nil, dErrors.New(dErrors.CodeConflict, "entity has open conflicts; resolve them first")
	}

	now := requestcontext.Now(ctx)
	e, err := s.entities.Execute(ctx, entityID,
		func(e *models.Entity) error {
			if err := e.CanDelete(); err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					return dErrors.New(dErrors.CodeConflict, "entity is already deleted")
				}
				return err
			}
			return nil
		},
		func(e *models.Entity) {
			e.ApplyDelete(now)
		},
	)
	if err != nil {
		return nil, wrapEntityErr(err)
	}
	return e, nil
}

func wrapEntityErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "entity not found")
	case dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "entity store failure")
	}
}
