package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	entitymodels "origo/internal/entity/models"
	"origo/internal/reconcile/models"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/sentinel"
	"origo/pkg/requestcontext"
)

// Outcome classifies what Detect did with a candidate.
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeCorroborated Outcome = "corroborated"
	OutcomeConflicted   Outcome = "conflicted"
)

// DetectResult is the verdict on one candidate value.
type DetectResult struct {
	Outcome  Outcome
	Value    *models.FieldValue // set when Outcome is accepted
	Conflict *models.Conflict   // set when Outcome is conflicted
}

// Detect runs the reconciliation rules for one incoming candidate:
//
//   - no current value: accept and record provenance
//   - materially equal: corroborate, refreshing the timestamp only
//   - same source, different value: last write wins
//   - different source, different value: open (or refresh) a conflict and
//     leave the stored value untouched
func (s *Service) Detect(ctx context.Context, entityID id.EntityID, field id.FieldName, candidate models.Candidate) (*DetectResult, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile.Detect")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity_id", entityID.String()),
		attribute.String("field_name", string(field)),
		attribute.String("source", string(candidate.Source)),
	)
	start := time.Now()
	defer func() { s.metrics.ObserveDetectLatency(time.Since(start)) }()

	if err := candidate.Validate(); err != nil {
		if errors.Is(err, models.ErrInvalidSource) {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "unknown value source")
		}
		return nil, err
	}

	spec, err := s.fieldSpec(ctx, entityID, field)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.Actor(ctx)

	current, err := s.values.FindCurrent(ctx, entityID, field)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load current value")
		}
		return s.accept(ctx, entityID, field, candidate, 0, now, actor)
	}

	if equivalent(spec.Type, current.Value, candidate.Value) {
		// Independent agreement between sources. Refresh the timestamp so
		// staleness checks see the field as recently confirmed.
		if err := s.values.Touch(ctx, entityID, field, now); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to corroborate value")
		}
		s.metrics.IncrementDetect(string(OutcomeCorroborated), string(candidate.Source))
		return &DetectResult{Outcome: OutcomeCorroborated}, nil
	}

	if current.Source == candidate.Source {
		return s.accept(ctx, entityID, field, candidate, current.Revision, now, actor)
	}

	conflict, err := s.openConflict(ctx, current, candidate, now)
	if err != nil {
		return nil, err
	}
	return &DetectResult{Outcome: OutcomeConflicted, Conflict: conflict}, nil
}

func (s *Service) fieldSpec(ctx context.Context, entityID id.EntityID, field id.FieldName) (entitymodels.FieldSpec, error) {
	e, err := s.entities.FindByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return entitymodels.FieldSpec{}, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return entitymodels.FieldSpec{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}
	spec, ok := entitymodels.FieldSpecFor(e.Kind, field)
	if !ok {
		return entitymodels.FieldSpec{}, dErrors.Wrap(models.ErrUnknownField, dErrors.CodeValidation,
			"field "+string(field)+" is not defined for kind "+string(e.Kind))
	}
	return spec, nil
}

func (s *Service) accept(ctx context.Context, entityID id.EntityID, field id.FieldName, candidate models.Candidate, expectedRevision int64, now time.Time, actor string) (*DetectResult, error) {
	fv := &models.FieldValue{
		EntityID:   entityID,
		FieldName:  field,
		Value:      candidate.Value,
		Source:     candidate.Source,
		Confidence: candidate.Confidence,
		UpdatedAt:  now,
		UpdatedBy:  actor,
	}
	if err := s.values.Append(ctx, fv, expectedRevision); err != nil {
		if errors.Is(err, sentinel.ErrConcurrentModification) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "field changed concurrently")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write field value")
	}
	s.emitChange(ctx, fv)
	s.metrics.IncrementDetect(string(OutcomeAccepted), string(candidate.Source))
	return &DetectResult{Outcome: OutcomeAccepted, Value: fv}, nil
}

// openConflict creates a conflict for the field, or refreshes the candidate
// on the one already open so the queue never stacks rows per field.
func (s *Service) openConflict(ctx context.Context, current *models.FieldValue, candidate models.Candidate, now time.Time) (*models.Conflict, error) {
	existing, err := s.conflicts.FindOpenByField(ctx, current.EntityID, current.FieldName)
	switch {
	case err == nil:
		refreshed, refreshErr := s.refreshCandidate(ctx, existing.ID, candidate, now)
		if refreshErr == nil {
			return refreshed, nil
		}
		if !resolvedUnderneath(refreshErr) {
			return nil, refreshErr
		}
		// The conflict resolved between lookup and refresh. The candidate
		// still differs from what we read, so fall through and open a
		// fresh one.
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up open conflict")
	}

	conflict := models.NewConflict(id.ConflictID(uuid.New()), current, candidate, now)
	if err := s.conflicts.Create(ctx, conflict); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with another detect on the same field.
			raced, findErr := s.conflicts.FindOpenByField(ctx, current.EntityID, current.FieldName)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load racing conflict")
			}
			refreshed, refreshErr := s.refreshCandidate(ctx, raced.ID, candidate, now)
			if refreshErr != nil {
				if resolvedUnderneath(refreshErr) {
					return nil, dErrors.Wrap(refreshErr, dErrors.CodeConflict, "conflict changed concurrently")
				}
				return nil, refreshErr
			}
			return refreshed, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create conflict")
	}

	if s.audit != nil {
		s.audit.ConflictOpened(ctx, conflict)
	}
	s.metrics.ConflictOpened()
	s.metrics.IncrementDetect(string(OutcomeConflicted), string(candidate.Source))
	return conflict, nil
}

func (s *Service) refreshCandidate(ctx context.Context, conflictID id.ConflictID, candidate models.Candidate, now time.Time) (*models.Conflict, error) {
	refreshed, err := s.conflicts.Execute(ctx, conflictID,
		func(c *models.Conflict) error { return c.CanResolve() },
		func(c *models.Conflict) { c.RefreshCandidate(candidate, now) })
	switch {
	case resolvedUnderneath(err):
		// Raw for the caller to branch on.
		return nil, err
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh conflict candidate")
	}
	s.metrics.IncrementDetect(string(OutcomeConflicted), string(candidate.Source))
	return refreshed, nil
}

// resolvedUnderneath reports that the open conflict we were about to
// refresh reached a terminal state (or vanished) between lookup and update.
func resolvedUnderneath(err error) bool {
	return errors.Is(err, models.ErrAlreadyResolved) || errors.Is(err, sentinel.ErrNotFound)
}
