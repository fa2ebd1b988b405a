package handler

import (
	"fmt"
	"strings"

	"origo/internal/ingest/models"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
)

const maxBatchTuples = 1000

// BatchRequest is the HTTP request body for POST /ingest/batches.
type BatchRequest struct {
	JobID  string         `json:"job_id"`
	Tuples []TupleRequest `json:"tuples"`

	// Parsed values (populated by Validate)
	parsedBatch models.Batch
}

// TupleRequest is one extracted value inside a batch submission.
type TupleRequest struct {
	DocumentID string   `json:"document_id"`
	EntityID   string   `json:"entity_id"`
	FieldName  string   `json:"field_name"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *BatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.JobID = strings.TrimSpace(r.JobID)
	if r.JobID == "" {
		return dErrors.New(dErrors.CodeValidation, "job_id is required")
	}
	if len(r.Tuples) == 0 {
		return dErrors.New(dErrors.CodeValidation, "tuples must not be empty")
	}
	if len(r.Tuples) > maxBatchTuples {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("batch exceeds %d tuples", maxBatchTuples))
	}

	tuples := make([]models.Tuple, 0, len(r.Tuples))
	for i, t := range r.Tuples {
		docID, err := id.ParseDocumentID(t.DocumentID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("tuple %d: invalid document_id", i))
		}
		entityID, err := id.ParseEntityID(t.EntityID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("tuple %d: invalid entity_id", i))
		}
		field, err := id.ParseFieldName(t.FieldName)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("tuple %d: field_name is required", i))
		}
		tuples = append(tuples, models.Tuple{
			DocumentID: docID,
			EntityID:   entityID,
			FieldName:  field,
			Value:      t.Value,
			Confidence: t.Confidence,
		})
	}

	r.parsedBatch = models.Batch{JobID: r.JobID, Tuples: tuples}
	return nil
}

// Batch returns the domain batch parsed during validation.
func (r *BatchRequest) Batch() models.Batch { return r.parsedBatch }
