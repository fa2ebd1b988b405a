package handler

import (
	"strings"

	"origo/internal/reconcile/models"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
)

const maxNotesLength = 2000

// ResolveRequest is the HTTP request body for POST /conflicts/{id}/resolve.
type ResolveRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`

	// Parsed values (populated by Validate)
	parsedDecision models.Decision
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ResolveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 2000 characters")
	}
	r.Notes = strings.TrimSpace(r.Notes)

	r.Decision = strings.TrimSpace(r.Decision)
	if r.Decision == "" {
		return dErrors.New(dErrors.CodeValidation, "decision is required")
	}
	decision, err := models.ParseDecision(r.Decision)
	if err != nil {
		return err
	}
	r.parsedDecision = decision
	return nil
}

// ParsedDecision returns the decision parsed during validation.
func (r *ResolveRequest) ParsedDecision() models.Decision { return r.parsedDecision }

// SubmitValueRequest is the HTTP request body for PUT /entities/{id}/fields/{field}.
type SubmitValueRequest struct {
	Value      string   `json:"value"`
	Source     string   `json:"source"`
	Confidence *float64 `json:"confidence,omitempty"`
	DocumentID string   `json:"document_id,omitempty"`

	parsedSource     id.ValueSource
	parsedDocumentID id.DocumentID
}

// Validate validates and parses the request.
func (r *SubmitValueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Value = strings.TrimSpace(r.Value)
	if r.Value == "" {
		return dErrors.New(dErrors.CodeValidation, "value is required")
	}

	source, err := id.ParseValueSource(strings.TrimSpace(r.Source))
	if err != nil {
		return err
	}
	r.parsedSource = source

	if r.DocumentID != "" {
		docID, err := id.ParseDocumentID(r.DocumentID)
		if err != nil {
			return err
		}
		r.parsedDocumentID = docID
	}
	return nil
}

// Candidate builds the domain candidate parsed during validation.
func (r *SubmitValueRequest) Candidate() models.Candidate {
	return models.Candidate{
		Value:      r.Value,
		Source:     r.parsedSource,
		Confidence: r.Confidence,
		DocumentID: r.parsedDocumentID,
	}
}
