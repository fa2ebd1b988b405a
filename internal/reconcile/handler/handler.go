package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"origo/internal/reconcile/models"
	"origo/internal/reconcile/service"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/httputil"
	"origo/pkg/requestcontext"
)

// Service defines the reconciliation operations the handler exposes.
type Service interface {
	Detect(ctx context.Context, entityID id.EntityID, field id.FieldName, candidate models.Candidate) (*service.DetectResult, error)
	Resolve(ctx context.Context, conflictID id.ConflictID, decision models.Decision, notes, actor string) (*models.Conflict, error)
	ListOpenConflicts(ctx context.Context, filter service.ConflictFilter) ([]*models.Conflict, error)
	GetConflict(ctx context.Context, conflictID id.ConflictID) (*models.Conflict, error)
	CurrentValue(ctx context.Context, entityID id.EntityID, field id.FieldName) (*models.FieldValue, error)
}

// Handler wires reconciliation endpoints to the reconcile service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a reconcile handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts reconciliation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Put("/entities/{entityID}/fields/{field}", h.HandleSubmitValue)
	r.Get("/entities/{entityID}/fields/{field}", h.HandleGetValue)
	r.Get("/conflicts", h.HandleListConflicts)
	r.Get("/conflicts/{conflictID}", h.HandleGetConflict)
	r.Post("/conflicts/{conflictID}/resolve", h.HandleResolve)
}

// HandleSubmitValue handles PUT /entities/{entityID}/fields/{field} requests.
func (h *Handler) HandleSubmitValue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

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

	req, ok := httputil.DecodeAndPrepare[SubmitValueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Detect(ctx, entityID, field, req.Candidate())
	if err != nil {
		h.logger.ErrorContext(ctx, "value submission failed",
			"request_id", requestID,
			"entity_id", entityID,
			"field_name", field,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if res.Outcome == service.OutcomeConflicted {
		status = http.StatusConflict
	}
	httputil.WriteJSON(w, status, FromDetectResult(res))
}

// HandleGetValue handles GET /entities/{entityID}/fields/{field} requests.
func (h *Handler) HandleGetValue(w http.ResponseWriter, r *http.Request) {
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

	fv, err := h.service.CurrentValue(ctx, entityID, field)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromFieldValue(fv))
}

// HandleListConflicts handles GET /conflicts requests. Accepts at most one
// of the entity_id and case_id query filters.
func (h *Handler) HandleListConflicts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter service.ConflictFilter
	entityParam := r.URL.Query().Get("entity_id")
	caseParam := r.URL.Query().Get("case_id")
	if entityParam != "" && caseParam != "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "entity_id and case_id are mutually exclusive"))
		return
	}
	if entityParam != "" {
		entityID, err := id.ParseEntityID(entityParam)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.EntityID = &entityID
	}
	if caseParam != "" {
		caseID, err := id.ParseCaseID(caseParam)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.CaseID = &caseID
	}

	conflicts, err := h.service.ListOpenConflicts(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "conflict listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"conflicts": FromConflicts(conflicts)})
}

// HandleGetConflict handles GET /conflicts/{conflictID} requests.
func (h *Handler) HandleGetConflict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conflictID, err := id.ParseConflictID(chi.URLParam(r, "conflictID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.GetConflict(ctx, conflictID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConflict(c))
}

// HandleResolve handles POST /conflicts/{conflictID}/resolve requests.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor := requestcontext.Actor(ctx)
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	conflictID, err := id.ParseConflictID(chi.URLParam(r, "conflictID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resolved, err := h.service.Resolve(ctx, conflictID, req.ParsedDecision(), req.Notes, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "conflict resolution failed",
			"request_id", requestID,
			"conflict_id", conflictID,
			"decision", req.Decision,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "conflict resolved",
		"request_id", requestID,
		"conflict_id", conflictID,
		"decision", req.Decision,
		"actor", actor,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromConflict(resolved))
}
