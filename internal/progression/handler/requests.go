package handler

import (
	"strings"

	dErrors "origo/pkg/domain-errors"
)

const maxReasonLength = 1000

// AdvanceRequest is the HTTP request body for POST /entities/{id}/workflows/{workflow}/advance.
type AdvanceRequest struct {
	TargetStage  string `json:"target_stage"`
	AllowRevert  bool   `json:"allow_revert"`
	RevertReason string `json:"revert_reason"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *AdvanceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.TargetStage = strings.TrimSpace(r.TargetStage)
	if r.TargetStage == "" {
		return dErrors.New(dErrors.CodeValidation, "target_stage is required")
	}

	if len(r.RevertReason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, "revert_reason must be at most 1000 characters")
	}
	r.RevertReason = strings.TrimSpace(r.RevertReason)
	if r.AllowRevert && r.RevertReason == "" {
		return dErrors.New(dErrors.CodeValidation, "revert_reason is required when allow_revert is set")
	}
	if !r.AllowRevert && r.RevertReason != "" {
		return dErrors.New(dErrors.CodeValidation, "revert_reason is only valid with allow_revert")
	}
	return nil
}
