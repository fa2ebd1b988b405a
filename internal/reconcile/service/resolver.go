package service

import (
	"context"
	"errors"

	"origo/internal/reconcile/models"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/sentinel"
	"origo/pkg/requestcontext"
)

// Resolve applies a reviewer decision to an open conflict. The transition
// is taken exactly once; a second submission fails with a conflict code so
// double clicks surface instead of silently succeeding.
//
// accept_ocr writes the candidate as the new current value. keep_manual
// re-asserts the stored value under the system source so downstream
// consumers see the field as freshly confirmed. ignore closes the conflict
// without touching the value.
//
// The value write lands before the conflict transitions. If the write loses
// its revision race the conflict stays open, so retrying the same decision
// still goes through instead of hitting the already-resolved gate.
func (s *Service) Resolve(ctx context.Context, conflictID id.ConflictID, decision models.Decision, notes, actor string) (*models.Conflict, error) {
	now := requestcontext.Now(ctx)

	c, err := s.conflicts.FindByID(ctx, conflictID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "conflict not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load conflict")
	}
	if err := c.CanResolve(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConflict, "conflict is already resolved")
	}

	if err := s.applyDecision(ctx, c, decision, actor); err != nil {
		return nil, err
	}

	resolved, err := s.conflicts.Execute(ctx, conflictID,
		func(c *models.Conflict) error { return c.CanResolve() },
		func(c *models.Conflict) { c.ApplyResolution(decision, notes, actor, now) })
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "conflict not found")
		case errors.Is(err, models.ErrAlreadyResolved):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "conflict is already resolved")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve conflict")
		}
	}

	if s.audit != nil {
		s.audit.ConflictResolved(ctx, resolved)
	}
	s.metrics.IncrementResolution(string(decision))
	s.metrics.ConflictClosed()
	return resolved, nil
}

func (s *Service) applyDecision(ctx context.Context, c *models.Conflict, decision models.Decision, actor string) error {
	var fv *models.FieldValue
	switch decision {
	case models.DecisionAcceptOCR:
		fv = &models.FieldValue{
			EntityID:   c.EntityID,
			FieldName:  c.FieldName,
			Value:      c.Candidate.Value,
			Source:     c.Candidate.Source,
			Confidence: c.Candidate.Confidence,
			UpdatedBy:  actor,
		}
	case models.DecisionKeepManual:
		fv = &models.FieldValue{
			EntityID:  c.EntityID,
			FieldName: c.FieldName,
			Value:     c.CurrentValue,
			Source:    id.SourceSystem,
			UpdatedBy: actor,
		}
	case models.DecisionIgnore:
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown decision: "+string(decision))
	}
	fv.UpdatedAt = requestcontext.Now(ctx)

	expected := int64(0)
	current, err := s.values.FindCurrent(ctx, c.EntityID, c.FieldName)
	if err == nil {
		expected = current.Revision
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load current value")
	}

	if err := s.values.Append(ctx, fv, expected); err != nil {
		if errors.Is(err, sentinel.ErrConcurrentModification) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "field changed while resolving")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write resolved value")
	}
	s.emitChange(ctx, fv)
	return nil
}
