package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"origo/internal/progression/models"
	"origo/internal/progression/service"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/httputil"
	"origo/pkg/requestcontext"
)

// Service defines the progression operations the handler exposes.
type Service interface {
	Advance(ctx context.Context, entityID id.EntityID, workflow, targetStage string, opts service.AdvanceOptions) (*models.StageAssignment, error)
	Current(ctx context.Context, entityID id.EntityID, workflow string) (*models.StageAssignment, error)
	History(ctx context.Context, entityID id.EntityID, workflow string) ([]*models.StageAssignment, error)
	Aggregate(ctx context.Context, workflow string, caseFilter *id.CaseID) (map[string]int, error)
	Overview(ctx context.Context) ([]service.WorkflowAggregate, error)
}

// Handler wires progression endpoints to the progression service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a progression handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts progression endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/entities/{entityID}/workflows/{workflow}/advance", h.HandleAdvance)
	r.Get("/entities/{entityID}/workflows/{workflow}", h.HandleCurrent)
	r.Get("/entities/{entityID}/workflows/{workflow}/history", h.HandleHistory)
	r.Get("/workflows/{workflow}/aggregate", h.HandleAggregate)
	r.Get("/workflows/overview", h.HandleOverview)
}

func entityAndWorkflow(r *http.Request) (id.EntityID, string, error) {
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		return id.EntityID{}, "", err
	}
	workflow := chi.URLParam(r, "workflow")
	if workflow == "" {
		return id.EntityID{}, "", dErrors.New(dErrors.CodeValidation, "workflow is required")
	}
	return entityID, workflow, nil
}

// HandleAdvance handles POST /entities/{entityID}/workflows/{workflow}/advance requests.
func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor := requestcontext.Actor(ctx)
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	entityID, workflow, err := entityAndWorkflow(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[AdvanceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.Advance(ctx, entityID, workflow, req.TargetStage, service.AdvanceOptions{
		AllowRevert:  req.AllowRevert,
		RevertReason: req.RevertReason,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "stage advance failed",
			"request_id", requestID,
			"entity_id", entityID,
			"workflow", workflow,
			"target_stage", req.TargetStage,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "stage advanced",
		"request_id", requestID,
		"entity_id", entityID,
		"workflow", workflow,
		"stage", a.Stage,
		"reverted", a.Reverted,
		"actor", actor,
	)
	httputil.WriteJSON(w, http.StatusOK, FromAssignment(a))
}

// HandleCurrent handles GET /entities/{entityID}/workflows/{workflow} requests.
func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	entityID, workflow, err := entityAndWorkflow(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.service.Current(r.Context(), entityID, workflow)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignment(a))
}

// HandleHistory handles GET /entities/{entityID}/workflows/{workflow}/history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	entityID, workflow, err := entityAndWorkflow(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	history, err := h.service.History(r.Context(), entityID, workflow)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": FromAssignments(history)})
}

// HandleAggregate handles GET /workflows/{workflow}/aggregate requests.
func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workflow := chi.URLParam(r, "workflow")
	var caseFilter *id.CaseID
	if raw := r.URL.Query().Get("case_id"); raw != "" {
		caseID, err := id.ParseCaseID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		caseFilter = &caseID
	}

	counts, err := h.service.Aggregate(ctx, workflow, caseFilter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"workflow": workflow,
		"counts":   counts,
	})
}

// HandleOverview handles GET /workflows/overview requests.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOverview(overview))
}
