package models

import (
	"time"

	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
)

// Kind distinguishes the two entity shapes the engine tracks.
type Kind string

const (
	KindCase         Kind = "case"
	KindFamilyMember Kind = "family_member"
)

var knownKinds = map[Kind]bool{
	KindCase:         true,
	KindFamilyMember: true,
}

// ParseKind validates and returns an entity Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !knownKinds[k] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown entity kind: "+s)
	}
	return k, nil
}

// Entity is a case or a case-linked family member carrying fields.
//
// Invariants:
//   - ID and CaseID are immutable after construction
//   - an entity is soft-deleted, never removed, and only when no open
//     conflict references it (enforced at the service layer)
type Entity struct {
	ID          id.EntityID `json:"id"`
	CaseID      id.CaseID   `json:"case_id"`
	Kind        Kind        `json:"kind"`
	DisplayName string      `json:"display_name"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
}

// Deleted reports whether the entity has been soft-deleted.
func (e *Entity) Deleted() bool {
	return e.DeletedAt != nil
}

// CanDelete checks if the entity can be soft-deleted.
// Use with ApplyDelete in Execute callbacks.
func (e *Entity) CanDelete() error {
	if e.Deleted() {
		return dErrors.New(dErrors.CodeInvariantViolation, "entity is already deleted")
	}
	return nil
}

// ApplyDelete marks the entity soft-deleted.
// Call CanDelete first to validate the transition.
func (e *Entity) ApplyDelete(now time.Time) {
	e.DeletedAt = &now
	e.UpdatedAt = now
}

// NewEntity constructs a valid entity or fails with an invariant violation.
func NewEntity(entityID id.EntityID, caseID id.CaseID, kind Kind, displayName string, now time.Time) (*Entity, error) {
	if entityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "entity id is required")
	}
	if caseID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "case id is required")
	}
	if !knownKinds[kind] {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown entity kind")
	}
	if displayName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name cannot be empty")
	}
	return &Entity{
		ID:          entityID,
		CaseID:      caseID,
		Kind:        kind,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
