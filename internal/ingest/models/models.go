package models

import (
	id "origo/pkg/domain"
)

// Tuple is one extracted field value from one scanned document.
type Tuple struct {
	DocumentID id.DocumentID `json:"document_id"`
	EntityID   id.EntityID   `json:"entity_id"`
	FieldName  id.FieldName  `json:"field_name"`
	Value      string        `json:"value"`
	Confidence *float64      `json:"confidence,omitempty"`
}

// Batch is the OCR pipeline's output for one processing run.
type Batch struct {
	JobID  string  `json:"job_id"`
	Tuples []Tuple `json:"tuples"`
}

// TupleError records why one tuple was not ingested; the rest of the batch
// proceeds regardless.
type TupleError struct {
	DocumentID id.DocumentID `json:"document_id"`
	EntityID   id.EntityID   `json:"entity_id"`
	FieldName  id.FieldName  `json:"field_name"`
	Reason     string        `json:"reason"`
}

// BatchResult summarizes what detection did with each tuple.
type BatchResult struct {
	Accepted     int          `json:"accepted"`
	Corroborated int          `json:"corroborated"`
	Conflicted   int          `json:"conflicted"`
	Failed       int          `json:"failed"`
	Failures     []TupleError `json:"failures,omitempty"`
}
