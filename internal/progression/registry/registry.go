// Package registry holds the static stage definitions. Adding a workflow is
// a data change here, not a code change anywhere else.
package registry

import (
	"origo/internal/progression/models"
)

// Registry resolves workflow and stage names to their definitions. Loaded
// once at startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	workflows map[string]models.Workflow
	order     []string
}

// New builds a registry from the given workflows, assigning ordinals by
// position.
func New(workflows ...models.Workflow) *Registry {
	r := &Registry{workflows: make(map[string]models.Workflow, len(workflows))}
	for _, w := range workflows {
		for i := range w.Stages {
			w.Stages[i].Ordinal = i + 1
		}
		r.workflows[w.Name] = w
		r.order = append(r.order, w.Name)
	}
	return r
}

// Workflow returns the named workflow.
func (r *Registry) Workflow(name string) (models.Workflow, error) {
	w, ok := r.workflows[name]
	if !ok {
		return models.Workflow{}, models.ErrUnknownWorkflow
	}
	return w, nil
}

// Stage resolves a stage within a workflow.
func (r *Registry) Stage(workflow, stage string) (models.Workflow, models.Stage, error) {
	w, err := r.Workflow(workflow)
	if err != nil {
		return models.Workflow{}, models.Stage{}, err
	}
	s, ok := w.StageByName(stage)
	if !ok {
		return models.Workflow{}, models.Stage{}, models.ErrUnknownStage
	}
	return w, s, nil
}

// Workflows returns every workflow in registration order.
func (r *Registry) Workflows() []models.Workflow {
	out := make([]models.Workflow, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.workflows[name])
	}
	return out
}

func stages(names ...string) []models.Stage {
	out := make([]models.Stage, len(names))
	for i, n := range names {
		out[i] = models.Stage{Name: n}
	}
	return out
}

// Default returns the six back-office workflows a case progresses through.
func Default() *Registry {
	return New(
		models.Workflow{Name: "document_collection", Stages: stages(
			"requested", "received", "verified", "certified_copies_made", "complete",
		)},
		models.Workflow{Name: "archive_search", Stages: stages(
			"scope_defined", "queries_sent", "responses_pending", "records_found", "records_evaluated", "complete",
		)},
		models.Workflow{Name: "translation", Stages: stages(
			"requirements_set", "documents_selected", "quotes_requested", "translator_assigned",
			"in_translation", "review", "sworn_certification", "submitted",
		)},
		models.Workflow{Name: "civil_registry", Stages: stages(
			"application_drafted", "documents_attached", "filed", "office_processing", "corrections_requested", "registered",
		)},
		models.Workflow{Name: "citizenship", Stages: stages(
			"eligibility_confirmed", "application_drafted", "evidence_bundled", "filed",
			"office_processing", "decision_issued", "confirmed",
		)},
		models.Workflow{Name: "passport", Stages: stages(
			"appointment_booked", "application_submitted", "biometrics_taken", "issued", "delivered",
		)},
	)
}
