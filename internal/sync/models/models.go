package models

import (
	"errors"
	"time"

	id "origo/pkg/domain"
)

// Table names the two synchronized stores. The master side is the field
// value store behind the reconciliation contracts; the intake side mirrors
// the legacy intake system's flat table.
const (
	TableMaster = "master_data"
	TableIntake = "intake_data"
)

// Change is one field-level modification travelling between systems. It is
// the wire shape published to the field-changes topic.
type Change struct {
	ChangeID  string       `json:"change_id"`
	EntityID  id.EntityID  `json:"entity_id"`
	Table     string       `json:"table"`
	Field     id.FieldName `json:"field"`
	Value     string       `json:"value"`
	Timestamp time.Time    `json:"timestamp"`
	// Origin tags the process that produced the change. Propagation skips
	// changes carrying the local tag, which breaks the A->B->A echo cycle.
	Origin string `json:"origin"`
}

// SyncLink maps a field in one table to its counterpart in another.
type SyncLink struct {
	SourceTable string
	SourceField id.FieldName
	TargetTable string
	TargetField id.FieldName
	// Transform converts the source representation to the target's.
	// nil means identity.
	Transform func(string) string
}

// Apply runs the link's transform on a value.
func (l SyncLink) Apply(value string) string {
	if l.Transform == nil {
		return value
	}
	return l.Transform(value)
}

// ErrSyncLinkMissing: the changed field has no counterpart registered.
// Signals a configuration gap, not a transient condition.
var ErrSyncLinkMissing = errors.New("sync link missing")

// IntakeValue is one row of the mirrored intake table.
type IntakeValue struct {
	EntityID  id.EntityID  `json:"entity_id"`
	FieldName id.FieldName `json:"field_name"`
	Value     string       `json:"value"`
	Origin    string       `json:"origin"`
	UpdatedAt time.Time    `json:"updated_at"`
}
