package handler

import (
	"time"

	"origo/internal/progression/models"
	"origo/internal/progression/service"
)

// AssignmentResponse is the HTTP shape of one stage assignment.
type AssignmentResponse struct {
	EntityID     string    `json:"entity_id"`
	Workflow     string    `json:"workflow"`
	Stage        string    `json:"stage"`
	Ordinal      int       `json:"ordinal"`
	AssignedAt   time.Time `json:"assigned_at"`
	AssignedBy   string    `json:"assigned_by"`
	Reverted     bool      `json:"reverted"`
	RevertReason string    `json:"revert_reason,omitempty"`
}

// FromAssignment converts a domain assignment to its HTTP shape.
func FromAssignment(a *models.StageAssignment) *AssignmentResponse {
	return &AssignmentResponse{
		EntityID:     a.EntityID.String(),
		Workflow:     a.Workflow,
		Stage:        a.Stage,
		Ordinal:      a.Ordinal,
		AssignedAt:   a.AssignedAt,
		AssignedBy:   a.AssignedBy,
		Reverted:     a.Reverted,
		RevertReason: a.RevertReason,
	}
}

// FromAssignments converts a slice, keeping order.
func FromAssignments(assignments []*models.StageAssignment) []*AssignmentResponse {
	out := make([]*AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, FromAssignment(a))
	}
	return out
}

// OverviewResponse is the dashboard landing aggregate.
type OverviewResponse struct {
	Workflows []WorkflowCounts `json:"workflows"`
}

// WorkflowCounts pairs a workflow's ordered stages with their counts.
type WorkflowCounts struct {
	Workflow string         `json:"workflow"`
	Stages   []string       `json:"stages"`
	Counts   map[string]int `json:"counts"`
}

// FromOverview converts per-workflow aggregates to the HTTP shape.
func FromOverview(overview []service.WorkflowAggregate) *OverviewResponse {
	resp := &OverviewResponse{Workflows: make([]WorkflowCounts, 0, len(overview))}
	for _, agg := range overview {
		stages := make([]string, 0, len(agg.Workflow.Stages))
		for _, st := range agg.Workflow.Stages {
			stages = append(stages, st.Name)
		}
		resp.Workflows = append(resp.Workflows, WorkflowCounts{
			Workflow: agg.Workflow.Name,
			Stages:   stages,
			Counts:   agg.Counts,
		})
	}
	return resp
}
