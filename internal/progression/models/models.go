package models

import (
	"time"

	id "origo/pkg/domain"
)

// Stage is one position in a workflow's strict linear chain.
type Stage struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

// Workflow is a named ordered sequence of stages. Stages never branch; the
// terminal stage has no outgoing transition except revert.
type Workflow struct {
	Name   string  `json:"name"`
	Stages []Stage `json:"stages"`
}

// StageByName returns the stage with the given name, or false.
func (w Workflow) StageByName(name string) (Stage, bool) {
	for _, s := range w.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Terminal reports whether the stage is the workflow's last.
func (w Workflow) Terminal(s Stage) bool {
	return len(w.Stages) > 0 && s.Ordinal == w.Stages[len(w.Stages)-1].Ordinal
}

// StageAssignment is an entity's position within one workflow at one point
// in time. Exactly one assignment per (entity, workflow) is current; the
// rest form the progression history.
type StageAssignment struct {
	EntityID     id.EntityID `json:"entity_id"`
	Workflow     string      `json:"workflow"`
	Stage        string      `json:"stage"`
	Ordinal      int         `json:"ordinal"`
	AssignedAt   time.Time   `json:"assigned_at"`
	AssignedBy   string      `json:"assigned_by"`
	Reverted     bool        `json:"reverted"`
	RevertReason string      `json:"revert_reason,omitempty"`
}
