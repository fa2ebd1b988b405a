package models

import (
	"time"

	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
)

// FieldValue is the current or historical value of one field on one entity,
// with provenance.
//
// Invariants:
//   - at most one current FieldValue per (EntityID, FieldName)
//   - history rows are never mutated; Revision increases by one per write
//   - Confidence is present only for OCR-sourced values, in [0,1]
type FieldValue struct {
	EntityID   id.EntityID    `json:"entity_id"`
	FieldName  id.FieldName   `json:"field_name"`
	Value      string         `json:"value"`
	Source     id.ValueSource `json:"source"`
	Confidence *float64       `json:"confidence,omitempty"`
	Revision   int64          `json:"revision"`
	UpdatedAt  time.Time      `json:"updated_at"`
	UpdatedBy  string         `json:"updated_by"`
}

// Candidate is an incoming value competing for a field, before detection.
type Candidate struct {
	Value      string         `json:"value"`
	Source     id.ValueSource `json:"source"`
	Confidence *float64       `json:"confidence,omitempty"`
	DocumentID id.DocumentID  `json:"document_id,omitempty"`
}

// Validate enforces the candidate invariants shared by detect and resolve.
func (c Candidate) Validate() error {
	if !c.Source.Valid() {
		return ErrInvalidSource
	}
	if c.Source == id.SourceOCR {
		if c.Confidence != nil && (*c.Confidence < 0 || *c.Confidence > 1) {
			return dErrors.New(dErrors.CodeValidation, "confidence must be within [0,1]")
		}
	} else if c.Confidence != nil {
		return dErrors.New(dErrors.CodeValidation, "confidence is only valid for ocr candidates")
	}
	return nil
}
