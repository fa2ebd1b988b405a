package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"origo/internal/audit/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/httputil"
)

// Service defines the audit read operations the handler exposes.
type Service interface {
	Trail(ctx context.Context, entityID id.EntityID, field id.FieldName) ([]models.Event, error)
	ExportFieldHistory(ctx context.Context, entityID id.EntityID, field id.FieldName) (*models.FieldExport, error)
}

// Handler wires the audit trail and export endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/entities/{entityID}/audit", h.HandleTrail)
	r.Get("/entities/{entityID}/fields/{field}/history", h.HandleExport)
}

// HandleTrail handles GET /entities/{entityID}/audit requests. An optional
// field query parameter narrows the trail to one field.
func (h *Handler) HandleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var field id.FieldName
	if raw := r.URL.Query().Get("field"); raw != "" {
		field, err = id.ParseFieldName(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	events, err := h.service.Trail(ctx, entityID, field)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// HandleExport handles GET /entities/{entityID}/fields/{field}/history requests.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	field, err := id.ParseFieldName(chi.URLParam(r, "field"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	export, err := h.service.ExportFieldHistory(ctx, entityID, field)
	if err != nil {
		h.logger.ErrorContext(ctx, "field history export failed",
			"entity_id", entityID,
			"field_name", field,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, export)
}
