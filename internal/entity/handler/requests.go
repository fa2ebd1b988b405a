package handler

import (
	"strings"

	"origo/internal/entity/models"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
)

const maxDisplayNameLength = 200

// CreateEntityRequest is the HTTP request body for POST /entities.
type CreateEntityRequest struct {
	CaseID      string `json:"case_id"`
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`

	// Parsed values (populated by Validate)
	parsedCaseID id.CaseID
	parsedKind   models.Kind
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateEntityRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	caseID, err := id.ParseCaseID(strings.TrimSpace(r.CaseID))
	if err != nil {
		return err
	}
	r.parsedCaseID = caseID

	kind, err := models.ParseKind(strings.TrimSpace(r.Kind))
	if err != nil {
		return err
	}
	r.parsedKind = kind

	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.DisplayName == "" {
		return dErrors.New(dErrors.CodeValidation, "display_name is required")
	}
	if len(r.DisplayName) > maxDisplayNameLength {
		return dErrors.New(dErrors.CodeValidation, "display_name must be at most 200 characters")
	}
	return nil
}

// ParsedCaseID returns the case ID parsed during validation.
func (r *CreateEntityRequest) ParsedCaseID() id.CaseID { return r.parsedCaseID }

// ParsedKind returns the entity kind parsed during validation.
func (r *CreateEntityRequest) ParsedKind() models.Kind { return r.parsedKind }
