package service

import (
	"context"

	"origo/internal/audit/models"
	entitymodels "origo/internal/entity/models"
	reconcilemodels "origo/internal/reconcile/models"
	id "origo/pkg/domain"
)

// EventStore persists and reads the append-only audit trail.
type EventStore interface {
	Append(ctx context.Context, e models.Event) error
	ListByEntity(ctx context.Context, entityID id.EntityID, field id.FieldName) ([]models.Event, error)
}

// FieldHistory reads the field value revision history kept by the
// reconciliation store.
type FieldHistory interface {
	ListHistory(ctx context.Context, entityID id.EntityID, field id.FieldName) ([]*reconcilemodels.FieldValue, error)
}

// EntityReader resolves entities so exports can reject unknown targets.
type EntityReader interface {
	FindByID(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, error)
}

// Service serves the audit trail and field provenance exports.
type Service struct {
	events   EventStore
	history  FieldHistory
	entities EntityReader
}

func New(events EventStore, history FieldHistory, entities EntityReader) *Service {
	return &Service{events: events, history: history, entities: entities}
}

// Trail returns the entity's audit events oldest first. An empty field
// returns the full trail.
func (s *Service) Trail(ctx context.Context, entityID id.EntityID, field id.FieldName) ([]models.Event, error) {
	if _, err := s.entities.FindByID(ctx, entityID); err != nil {
		return nil, err
	}
	return s.events.ListByEntity(ctx, entityID, field)
}

// ExportFieldHistory reconstructs the full provenance of one field from
// its revision history: every value the field ever held, who wrote it,
// from which source, and when.
func (s *Service) ExportFieldHistory(ctx context.Context, entityID id.EntityID, field id.FieldName) (*models.FieldExport, error) {
	if _, err := s.entities.FindByID(ctx, entityID); err != nil {
		return nil, err
	}
	history, err := s.history.ListHistory(ctx, entityID, field)
	if err != nil {
		return nil, err
	}

	export := &models.FieldExport{
		EntityID:  entityID,
		FieldName: field,
		Revisions: make([]models.Revision, 0, len(history)),
	}
	for _, fv := range history {
		export.Revisions = append(export.Revisions, models.Revision{
			Revision:   fv.Revision,
			Value:      fv.Value,
			Source:     fv.Source.String(),
			Confidence: fv.Confidence,
			Actor:      fv.UpdatedBy,
			WrittenAt:  fv.UpdatedAt,
		})
	}
	return export, nil
}
