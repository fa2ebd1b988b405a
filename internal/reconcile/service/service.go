package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	entitymodels "origo/internal/entity/models"
	"origo/internal/reconcile/metrics"
	"origo/internal/reconcile/models"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/sentinel"
)

// FieldValueStore abstracts the append-only field history.
type FieldValueStore interface {
	FindCurrent(ctx context.Context, entityID id.EntityID, field id.FieldName) (*models.FieldValue, error)
	Append(ctx context.Context, fv *models.FieldValue, expectedRevision int64) error
	Touch(ctx context.Context, entityID id.EntityID, field id.FieldName, now time.Time) error
	ListHistory(ctx context.Context, entityID id.EntityID, field id.FieldName) ([]*models.FieldValue, error)
}

// ConflictStore abstracts conflict persistence.
type ConflictStore interface {
	Create(ctx context.Context, c *models.Conflict) error
	FindByID(ctx context.Context, conflictID id.ConflictID) (*models.Conflict, error)
	FindOpenByField(ctx context.Context, entityID id.EntityID, field id.FieldName) (*models.Conflict, error)
	ListOpen(ctx context.Context, entityIDs []id.EntityID) ([]*models.Conflict, error)
	Execute(ctx context.Context, conflictID id.ConflictID, validate func(*models.Conflict) error, mutate func(*models.Conflict)) (*models.Conflict, error)
}

// EntityReader resolves entities for schema checks and case filters.
type EntityReader interface {
	FindByID(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*entitymodels.Entity, error)
}

// ChangeNotifier receives every accepted field write so linked systems can
// be brought up to date. Implementations must not block the caller.
type ChangeNotifier interface {
	FieldChanged(ctx context.Context, fv *models.FieldValue)
}

// Auditor records reconciliation actions on the compliance trail.
type Auditor interface {
	FieldWritten(ctx context.Context, fv *models.FieldValue)
	ConflictOpened(ctx context.Context, c *models.Conflict)
	ConflictResolved(ctx context.Context, c *models.Conflict)
}

// Service implements conflict detection and resolution over the field
// value store.
type Service struct {
	entities  EntityReader
	values    FieldValueStore
	conflicts ConflictStore
	notifier  ChangeNotifier
	audit     Auditor
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func New(entities EntityReader, values FieldValueStore, conflicts ConflictStore, notifier ChangeNotifier, audit Auditor, m *metrics.Metrics) *Service {
	return &Service{
		entities:  entities,
		values:    values,
		conflicts: conflicts,
		notifier:  notifier,
		audit:     audit,
		metrics:   m,
		tracer:    otel.Tracer("origo/reconcile"),
	}
}

// ConflictFilter narrows ListOpenConflicts to one entity or one case.
// At most one of the two fields is set; empty means everything.
type ConflictFilter struct {
	EntityID *id.EntityID
	CaseID   *id.CaseID
}

// ListOpenConflicts returns the review queue, oldest first.
func (s *Service) ListOpenConflicts(ctx context.Context, filter ConflictFilter) ([]*models.Conflict, error) {
	var entityIDs []id.EntityID
	switch {
	case filter.EntityID != nil:
		entityIDs = []id.EntityID{*filter.EntityID}
	case filter.CaseID != nil:
		members, err := s.entities.ListByCase(ctx, *filter.CaseID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve case members")
		}
		if len(members) == 0 {
			return nil, nil
		}
		for _, m := range members {
			entityIDs = append(entityIDs, m.ID)
		}
	}

	conflicts, err := s.conflicts.ListOpen(ctx, entityIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list open conflicts")
	}
	return conflicts, nil
}

// GetConflict returns one conflict, open or terminal.
func (s *Service) GetConflict(ctx context.Context, conflictID id.ConflictID) (*models.Conflict, error) {
	c, err := s.conflicts.FindByID(ctx, conflictID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "conflict not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load conflict")
	}
	return c, nil
}

// CurrentValue returns the live value of a field, if any.
func (s *Service) CurrentValue(ctx context.Context, entityID id.EntityID, field id.FieldName) (*models.FieldValue, error) {
	fv, err := s.values.FindCurrent(ctx, entityID, field)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "field has no value")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load field value")
	}
	return fv, nil
}

func (s *Service) emitChange(ctx context.Context, fv *models.FieldValue) {
	if s.audit != nil {
		s.audit.FieldWritten(ctx, fv)
	}
	if s.notifier != nil {
		s.notifier.FieldChanged(ctx, fv)
	}
}
