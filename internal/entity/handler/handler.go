package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"origo/internal/entity/models"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/httputil"
	"origo/pkg/requestcontext"
)

// Service defines the entity lifecycle operations the handler exposes.
type Service interface {
	Create(ctx context.Context, caseID id.CaseID, kind models.Kind, displayName string) (*models.Entity, error)
	Get(ctx context.Context, entityID id.EntityID) (*models.Entity, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*models.Entity, error)
	SoftDelete(ctx context.Context, entityID id.EntityID) (*models.Entity, error)
}

// Handler wires entity lifecycle endpoints to the entity service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts entity endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/entities", h.HandleCreate)
	r.Get("/entities/{entityID}", h.HandleGet)
	r.Get("/cases/{caseID}/entities", h.HandleListByCase)
	r.Delete("/entities/{entityID}", h.HandleDelete)
}

// HandleCreate handles POST /entities requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateEntityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	e, err := h.service.Create(ctx, req.ParsedCaseID(), req.ParsedKind(), req.DisplayName)
	if err != nil {
		h.logger.ErrorContext(ctx, "entity creation failed",
			"request_id", requestID,
			"case_id", req.CaseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

// HandleGet handles GET /entities/{entityID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	e, err := h.service.Get(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

// HandleListByCase handles GET /cases/{caseID}/entities requests.
func (h *Handler) HandleListByCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entities, err := h.service.ListByCase(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entities == nil {
		entities = []*models.Entity{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

// HandleDelete handles DELETE /entities/{entityID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor := requestcontext.Actor(ctx)
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	e, err := h.service.SoftDelete(ctx, entityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "entity deletion failed",
			"request_id", requestID,
			"entity_id", entityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "entity deleted",
		"request_id", requestID,
		"entity_id", entityID,
		"actor", actor,
	)
	httputil.WriteJSON(w, http.StatusOK, e)
}
