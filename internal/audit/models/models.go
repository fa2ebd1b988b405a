package models

import (
	"time"

	"github.com/google/uuid"

	id "origo/pkg/domain"
)

// Action names the mutation an audit event records.
type Action string

const (
	ActionFieldWritten     Action = "field_written"
	ActionConflictOpened   Action = "conflict_opened"
	ActionConflictResolved Action = "conflict_resolved"
	ActionStageChanged     Action = "stage_changed"
	ActionEntityCreated    Action = "entity_created"
	ActionEntityDeleted    Action = "entity_deleted"
)

// Event is one append-only audit row. Emitted from domain logic and kept
// transport-agnostic so stores and sinks can fan out.
//
// Stage transitions reuse the field columns: FieldName carries the workflow
// and Value the stage reached.
type Event struct {
	ID         uuid.UUID    `json:"id"`
	EntityID   id.EntityID  `json:"entity_id"`
	FieldName  id.FieldName `json:"field_name,omitempty"`
	Action     Action       `json:"action"`
	Value      string       `json:"value,omitempty"`
	Source     string       `json:"source,omitempty"`
	Actor      string       `json:"actor,omitempty"`
	ClientIP   string       `json:"client_ip,omitempty"`
	UserAgent  string       `json:"user_agent,omitempty"`
	RequestID  string       `json:"request_id,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// FieldExport is the reviewer-facing provenance export for one field:
// every revision the field ever held, oldest first.
type FieldExport struct {
	EntityID  id.EntityID  `json:"entity_id"`
	FieldName id.FieldName `json:"field_name"`
	Revisions []Revision   `json:"revisions"`
}

// Revision is one historical value inside a field export.
type Revision struct {
	Revision   int64     `json:"revision"`
	Value      string    `json:"value"`
	Source     string    `json:"source"`
	Confidence *float64  `json:"confidence,omitempty"`
	Actor      string    `json:"actor"`
	WrittenAt  time.Time `json:"written_at"`
}
