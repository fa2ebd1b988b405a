package service

import (
	"context"
	"errors"

	entitymodels "origo/internal/entity/models"
	"origo/internal/progression/metrics"
	"origo/internal/progression/models"
	"origo/internal/progression/registry"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/sentinel"
	"origo/pkg/requestcontext"
)

// Store abstracts stage assignment persistence.
type Store interface {
	FindCurrent(ctx context.Context, entityID id.EntityID, workflow string) (*models.StageAssignment, error)
	Transition(ctx context.Context, entityID id.EntityID, workflow string, decide func(current *models.StageAssignment) (*models.StageAssignment, error)) (*models.StageAssignment, error)
	ListHistory(ctx context.Context, entityID id.EntityID, workflow string) ([]*models.StageAssignment, error)
	CountByStage(ctx context.Context, workflow string, entityIDs []id.EntityID) (map[string]int, error)
}

// EntityReader resolves case membership for aggregate filters.
type EntityReader interface {
	FindByID(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*entitymodels.Entity, error)
}

// Auditor records stage transitions, reverts in particular.
type Auditor interface {
	StageChanged(ctx context.Context, a *models.StageAssignment)
}

// Service enforces the stage ordering rules and serves the dashboard
// aggregates.
type Service struct {
	registry *registry.Registry
	store    Store
	entities EntityReader
	audit    Auditor
	metrics  *metrics.Metrics
}

func New(reg *registry.Registry, store Store, entities EntityReader, audit Auditor, m *metrics.Metrics) *Service {
	return &Service{registry: reg, store: store, entities: entities, audit: audit, metrics: m}
}

// AdvanceOptions modifies a single Advance call.
type AdvanceOptions struct {
	// AllowRevert permits a backward transition. The assignment is flagged
	// and the reason lands on the audit trail.
	AllowRevert  bool
	RevertReason string
}

// Advance moves an entity to targetStage within workflow. Ordinals only
// move forward; a backward move needs AllowRevert and is recorded as a
// revert. Re-assigning the current stage is a no-op returning the existing
// assignment.
func (s *Service) Advance(ctx context.Context, entityID id.EntityID, workflow, targetStage string, opts AdvanceOptions) (*models.StageAssignment, error) {
	wf, target, err := s.registry.Stage(workflow, targetStage)
	if err != nil {
		return nil, wrapRegistryErr(err, workflow, targetStage)
	}
	if _, err := s.entities.FindByID(ctx, entityID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.Actor(ctx)
	var noop *models.StageAssignment

	next, err := s.store.Transition(ctx, entityID, workflow,
		func(current *models.StageAssignment) (*models.StageAssignment, error) {
			revert := false
			if current != nil {
				if current.Ordinal == target.Ordinal {
					noop = current
					return nil, errNoop
				}
				if target.Ordinal < current.Ordinal {
					if !opts.AllowRevert {
						return nil, models.ErrStageOrderViolation
					}
					revert = true
				}
			}
			return &models.StageAssignment{
				EntityID:     entityID,
				Workflow:     wf.Name,
				Stage:        target.Name,
				Ordinal:      target.Ordinal,
				AssignedAt:   now,
				AssignedBy:   actor,
				Reverted:     revert,
				RevertReason: opts.RevertReason,
			}, nil
		})
	if err != nil {
		switch {
		case errors.Is(err, errNoop):
			return noop, nil
		case errors.Is(err, models.ErrStageOrderViolation):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict,
				"cannot move backward to "+targetStage+" without an explicit revert")
		case errors.Is(err, sentinel.ErrConcurrentModification):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "stage changed concurrently")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to advance stage")
		}
	}

	if s.audit != nil {
		s.audit.StageChanged(ctx, next)
	}
	s.metrics.IncrementTransition(wf.Name, next.Reverted)
	return next, nil
}

// errNoop aborts a transition when the target equals the current stage.
var errNoop = errors.New("assignment unchanged")

// Current returns the entity's current assignment in a workflow.
func (s *Service) Current(ctx context.Context, entityID id.EntityID, workflow string) (*models.StageAssignment, error) {
	if _, err := s.registry.Workflow(workflow); err != nil {
		return nil, wrapRegistryErr(err, workflow, "")
	}
	a, err := s.store.FindCurrent(ctx, entityID, workflow)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "entity has not entered this workflow")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assignment")
	}
	return a, nil
}

// History returns the full assignment history, oldest first.
func (s *Service) History(ctx context.Context, entityID id.EntityID, workflow string) ([]*models.StageAssignment, error) {
	if _, err := s.registry.Workflow(workflow); err != nil {
		return nil, wrapRegistryErr(err, workflow, "")
	}
	history, err := s.store.ListHistory(ctx, entityID, workflow)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assignment history")
	}
	return history, nil
}

// Aggregate counts entities at each stage of a workflow, optionally
// restricted to one case. Stages with no entities appear with a zero count
// so dashboards render the full chain.
func (s *Service) Aggregate(ctx context.Context, workflow string, caseFilter *id.CaseID) (map[string]int, error) {
	wf, err := s.registry.Workflow(workflow)
	if err != nil {
		return nil, wrapRegistryErr(err, workflow, "")
	}

	var entityIDs []id.EntityID
	if caseFilter != nil {
		members, err := s.entities.ListByCase(ctx, *caseFilter)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve case members")
		}
		if len(members) == 0 {
			return emptyCounts(wf), nil
		}
		for _, m := range members {
			entityIDs = append(entityIDs, m.ID)
		}
	}

	counts, err := s.store.CountByStage(ctx, workflow, entityIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate stages")
	}

	out := emptyCounts(wf)
	for stage, n := range counts {
		out[stage] = n
	}
	if caseFilter == nil {
		for stage, n := range out {
			s.metrics.SetOccupancy(wf.Name, stage, n)
		}
	}
	return out, nil
}

// WorkflowAggregate pairs a workflow definition with its current counts.
type WorkflowAggregate struct {
	Workflow models.Workflow
	Counts   map[string]int
}

// Overview aggregates every registered workflow for the dashboard landing
// view.
func (s *Service) Overview(ctx context.Context) ([]WorkflowAggregate, error) {
	out := make([]WorkflowAggregate, 0, len(s.registry.Workflows()))
	for _, wf := range s.registry.Workflows() {
		counts, err := s.Aggregate(ctx, wf.Name, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, WorkflowAggregate{Workflow: wf, Counts: counts})
	}
	return out, nil
}

func emptyCounts(wf models.Workflow) map[string]int {
	counts := make(map[string]int, len(wf.Stages))
	for _, st := range wf.Stages {
		counts[st.Name] = 0
	}
	return counts
}

func wrapRegistryErr(err error, workflow, stage string) error {
	switch {
	case errors.Is(err, models.ErrUnknownWorkflow):
		return dErrors.Wrap(err, dErrors.CodeValidation, "unknown workflow: "+workflow)
	case errors.Is(err, models.ErrUnknownStage):
		return dErrors.Wrap(err, dErrors.CodeValidation, "unknown stage "+stage+" in workflow "+workflow)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
	}
}
