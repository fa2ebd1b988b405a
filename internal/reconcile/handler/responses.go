package handler

import (
	"time"

	"origo/internal/reconcile/models"
	"origo/internal/reconcile/service"
)

// ConflictResponse is the HTTP shape of one conflict.
type ConflictResponse struct {
	ID            string             `json:"id"`
	EntityID      string             `json:"entity_id"`
	FieldName     string             `json:"field_name"`
	CurrentValue  string             `json:"current_value"`
	CurrentSource string             `json:"current_source"`
	Candidate     CandidateResponse  `json:"candidate"`
	State         string             `json:"state"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
	ResolvedBy    string             `json:"resolved_by,omitempty"`
	Decision      string             `json:"decision,omitempty"`
	Notes         string             `json:"notes,omitempty"`
}

// CandidateResponse is the candidate portion of a conflict response.
type CandidateResponse struct {
	Value      string   `json:"value"`
	Source     string   `json:"source"`
	Confidence *float64 `json:"confidence,omitempty"`
	DocumentID string   `json:"document_id,omitempty"`
}

// FromConflict converts a domain conflict to its HTTP shape.
func FromConflict(c *models.Conflict) *ConflictResponse {
	resp := &ConflictResponse{
		ID:            c.ID.String(),
		EntityID:      c.EntityID.String(),
		FieldName:     string(c.FieldName),
		CurrentValue:  c.CurrentValue,
		CurrentSource: string(c.CurrentSource),
		Candidate: CandidateResponse{
			Value:      c.Candidate.Value,
			Source:     string(c.Candidate.Source),
			Confidence: c.Candidate.Confidence,
		},
		State:      string(c.State),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
		ResolvedAt: c.ResolvedAt,
		ResolvedBy: c.ResolvedBy,
		Decision:   string(c.Decision),
		Notes:      c.Notes,
	}
	if !c.Candidate.DocumentID.IsNil() {
		resp.Candidate.DocumentID = c.Candidate.DocumentID.String()
	}
	return resp
}

// FromConflicts converts a slice, keeping order.
func FromConflicts(conflicts []*models.Conflict) []*ConflictResponse {
	out := make([]*ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, FromConflict(c))
	}
	return out
}

// FieldValueResponse is the HTTP shape of a stored field value.
type FieldValueResponse struct {
	EntityID   string    `json:"entity_id"`
	FieldName  string    `json:"field_name"`
	Value      string    `json:"value"`
	Source     string    `json:"source"`
	Confidence *float64  `json:"confidence,omitempty"`
	Revision   int64     `json:"revision"`
	UpdatedAt  time.Time `json:"updated_at"`
	UpdatedBy  string    `json:"updated_by"`
}

func FromFieldValue(fv *models.FieldValue) *FieldValueResponse {
	return &FieldValueResponse{
		EntityID:   fv.EntityID.String(),
		FieldName:  string(fv.FieldName),
		Value:      fv.Value,
		Source:     string(fv.Source),
		Confidence: fv.Confidence,
		Revision:   fv.Revision,
		UpdatedAt:  fv.UpdatedAt,
		UpdatedBy:  fv.UpdatedBy,
	}
}

// SubmitResponse reports what detection did with a submitted value.
type SubmitResponse struct {
	Outcome  string              `json:"outcome"`
	Value    *FieldValueResponse `json:"value,omitempty"`
	Conflict *ConflictResponse   `json:"conflict,omitempty"`
}

func FromDetectResult(res *service.DetectResult) *SubmitResponse {
	resp := &SubmitResponse{Outcome: string(res.Outcome)}
	if res.Value != nil {
		resp.Value = FromFieldValue(res.Value)
	}
	if res.Conflict != nil {
		resp.Conflict = FromConflict(res.Conflict)
	}
	return resp
}
