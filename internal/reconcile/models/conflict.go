package models

import (
	"time"

	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
)

// ConflictState is the lifecycle position of a conflict.
type ConflictState string

const (
	ConflictOpen     ConflictState = "open"
	ConflictResolved ConflictState = "resolved"
	ConflictIgnored  ConflictState = "ignored"
)

// Decision is the reviewer's verdict on an open conflict.
type Decision string

const (
	DecisionAcceptOCR  Decision = "accept_ocr"
	DecisionKeepManual Decision = "keep_manual"
	DecisionIgnore     Decision = "ignore"
)

// ParseDecision validates and returns a Decision.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionAcceptOCR, DecisionKeepManual, DecisionIgnore:
		return d, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown decision: "+s)
	}
}

// Conflict is an unresolved disagreement between two sources of truth for
// the same field.
//
// Invariants:
//   - created only when candidate differs materially from current AND the
//     sources differ
//   - exactly one resolution transition; resolved/ignored are terminal and
//     immutable thereafter
//   - at most one open conflict per (EntityID, FieldName)
type Conflict struct {
	ID        id.ConflictID `json:"id"`
	EntityID  id.EntityID   `json:"entity_id"`
	FieldName id.FieldName  `json:"field_name"`

	// Snapshot of the stored value at detection time; the live value stays
	// untouched until resolution.
	CurrentValue  string         `json:"current_value"`
	CurrentSource id.ValueSource `json:"current_source"`

	Candidate Candidate `json:"candidate"`

	State      ConflictState `json:"state"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy string        `json:"resolved_by,omitempty"`
	Decision   Decision      `json:"decision,omitempty"`
	Notes      string        `json:"notes,omitempty"`
}

// Open reports whether the conflict still awaits a decision.
func (c *Conflict) Open() bool {
	return c.State == ConflictOpen
}

// CanResolve checks the open-state gate. Terminal conflicts fail so callers
// can detect double submission instead of silently succeeding.
func (c *Conflict) CanResolve() error {
	if !c.Open() {
		return ErrAlreadyResolved
	}
	return nil
}

// ApplyResolution transitions the conflict to its terminal state.
// Call CanResolve first to validate the transition.
func (c *Conflict) ApplyResolution(decision Decision, notes, actor string, now time.Time) {
	c.Decision = decision
	c.Notes = notes
	c.ResolvedBy = actor
	c.ResolvedAt = &now
	c.UpdatedAt = now
	if decision == DecisionIgnore {
		c.State = ConflictIgnored
	} else {
		c.State = ConflictResolved
	}
}

// RefreshCandidate replaces the candidate on a still-open conflict when a
// later differing value arrives for the same field, so the review queue
// always shows the newest contender instead of stacking rows.
func (c *Conflict) RefreshCandidate(candidate Candidate, now time.Time) {
	c.Candidate = candidate
	c.UpdatedAt = now
}

// NewConflict snapshots the disagreement between current and candidate.
func NewConflict(conflictID id.ConflictID, current *FieldValue, candidate Candidate, now time.Time) *Conflict {
	return &Conflict{
		ID:            conflictID,
		EntityID:      current.EntityID,
		FieldName:     current.FieldName,
		CurrentValue:  current.Value,
		CurrentSource: current.Source,
		Candidate:     candidate,
		State:         ConflictOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
