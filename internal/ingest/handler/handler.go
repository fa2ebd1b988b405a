package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"origo/internal/ingest/models"
	"origo/internal/ingest/secrets"
	"origo/pkg/platform/httputil"
	"origo/pkg/requestcontext"
)

const apiKeyHeader = "X-API-Key"

// Service defines the ingestion operations the handler exposes.
type Service interface {
	IngestBatch(ctx context.Context, batch models.Batch) (models.BatchResult, error)
}

// Handler wires the OCR batch endpoint to the ingest service. Callers
// authenticate with a pipeline API key rather than a console session.
type Handler struct {
	service Service
	keyring *secrets.Keyring
	logger  *slog.Logger
}

// New constructs an ingest handler with its dependencies.
func New(service Service, keyring *secrets.Keyring, logger *slog.Logger) *Handler {
	return &Handler{service: service, keyring: keyring, logger: logger}
}

// Register mounts ingestion endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ingest/batches", h.HandleSubmitBatch)
}

// HandleSubmitBatch handles POST /ingest/batches requests.
func (h *Handler) HandleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	account, err := h.keyring.Authenticate(r.Header.Get(apiKeyHeader))
	if err != nil {
		h.logger.WarnContext(ctx, "batch submission rejected",
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
		)
		httputil.WriteError(w, err)
		return
	}
	ctx = requestcontext.WithActor(ctx, "pipeline:"+account)

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	batch := req.Batch()

	result, err := h.service.IngestBatch(ctx, batch)
	if err != nil {
		h.logger.ErrorContext(ctx, "batch ingestion failed",
			"request_id", requestID,
			"job_id", batch.JobID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch accepted",
		"request_id", requestID,
		"job_id", batch.JobID,
		"account", account,
		"tuples", len(batch.Tuples),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}
