package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"origo/internal/reconcile/models"
	"origo/internal/reconcile/service"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/requestcontext"
)

type stubService struct {
	detectResult   *service.DetectResult
	detectErr      error
	resolveResult  *models.Conflict
	resolveErr     error
	listResult     []*models.Conflict
	gotDecision    models.Decision
	gotNotes       string
	gotCandidate   models.Candidate
	gotConflictID  id.ConflictID
}

func (s *stubService) Detect(_ context.Context, _ id.EntityID, _ id.FieldName, c models.Candidate) (*service.DetectResult, error) {
	s.gotCandidate = c
	return s.detectResult, s.detectErr
}

func (s *stubService) Resolve(_ context.Context, conflictID id.ConflictID, decision models.Decision, notes, _ string) (*models.Conflict, error) {
	s.gotConflictID = conflictID
	s.gotDecision = decision
	s.gotNotes = notes
	return s.resolveResult, s.resolveErr
}

func (s *stubService) ListOpenConflicts(_ context.Context, _ service.ConflictFilter) ([]*models.Conflict, error) {
	return s.listResult, nil
}

func (s *stubService) GetConflict(_ context.Context, _ id.ConflictID) (*models.Conflict, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "conflict not found")
}

func (s *stubService) CurrentValue(_ context.Context, _ id.EntityID, _ id.FieldName) (*models.FieldValue, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "field has no value")
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	// Inject the actor the way RequireAuth would.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := requestcontext.WithActor(req.Context(), "reviewer@example.com")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func sampleConflict() *models.Conflict {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &models.Conflict{
		ID:            id.ConflictID(uuid.New()),
		EntityID:      id.EntityID(uuid.New()),
		FieldName:     "birth_place",
		CurrentValue:  "WARSAW",
		CurrentSource: id.SourceManual,
		Candidate:     models.Candidate{Value: "Warszawa", Source: id.SourceOCR},
		State:         models.ConflictOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestHandleSubmitValue(t *testing.T) {
	t.Run("accepted value returns 200", func(t *testing.T) {
		svc := &stubService{detectResult: &service.DetectResult{
			Outcome: service.OutcomeAccepted,
			Value:   &models.FieldValue{EntityID: id.EntityID(uuid.New()), FieldName: "birth_place", Value: "WARSAW", Source: id.SourceManual, Revision: 1},
		}}
		router := newRouter(svc)

		body := bytes.NewBufferString(`{"value":"WARSAW","source":"manual"}`)
		req := httptest.NewRequest(http.MethodPut, "/entities/"+uuid.NewString()+"/fields/birth_place", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, id.SourceManual, svc.gotCandidate.Source)

		var resp SubmitResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "accepted", resp.Outcome)
		require.NotNil(t, resp.Value)
		assert.Equal(t, int64(1), resp.Value.Revision)
	})

	t.Run("conflicted value returns 409 with the conflict", func(t *testing.T) {
		svc := &stubService{detectResult: &service.DetectResult{
			Outcome:  service.OutcomeConflicted,
			Conflict: sampleConflict(),
		}}
		router := newRouter(svc)

		body := bytes.NewBufferString(`{"value":"Warszawa","source":"ocr","confidence":0.93}`)
		req := httptest.NewRequest(http.MethodPut, "/entities/"+uuid.NewString()+"/fields/birth_place", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusConflict, w.Code)

		var resp SubmitResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "conflicted", resp.Outcome)
		require.NotNil(t, resp.Conflict)
		assert.Equal(t, "WARSAW", resp.Conflict.CurrentValue)
	})

	t.Run("bad entity id returns 400", func(t *testing.T) {
		router := newRouter(&stubService{})
		req := httptest.NewRequest(http.MethodPut, "/entities/not-a-uuid/fields/birth_place",
			bytes.NewBufferString(`{"value":"x","source":"manual"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown source rejected before the service is called", func(t *testing.T) {
		svc := &stubService{}
		router := newRouter(svc)
		req := httptest.NewRequest(http.MethodPut, "/entities/"+uuid.NewString()+"/fields/birth_place",
			bytes.NewBufferString(`{"value":"x","source":"scanner"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, svc.gotCandidate.Value)
	})
}

func TestHandleResolve(t *testing.T) {
	t.Run("resolves with parsed decision", func(t *testing.T) {
		resolved := sampleConflict()
		resolved.State = models.ConflictResolved
		resolved.Decision = models.DecisionAcceptOCR
		svc := &stubService{resolveResult: resolved}
		router := newRouter(svc)

		body := bytes.NewBufferString(`{"decision":"accept_ocr","notes":"certificate is legible"}`)
		req := httptest.NewRequest(http.MethodPost, "/conflicts/"+resolved.ID.String()+"/resolve", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.DecisionAcceptOCR, svc.gotDecision)
		assert.Equal(t, "certificate is legible", svc.gotNotes)
		assert.Equal(t, resolved.ID, svc.gotConflictID)
	})

	t.Run("already resolved maps to 409", func(t *testing.T) {
		svc := &stubService{resolveErr: dErrors.Wrap(models.ErrAlreadyResolved, dErrors.CodeConflict, "conflict is already resolved")}
		router := newRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/conflicts/"+uuid.NewString()+"/resolve",
			bytes.NewBufferString(`{"decision":"ignore"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown decision returns 400", func(t *testing.T) {
		router := newRouter(&stubService{})
		req := httptest.NewRequest(http.MethodPost, "/conflicts/"+uuid.NewString()+"/resolve",
			bytes.NewBufferString(`{"decision":"maybe"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleListConflicts(t *testing.T) {
	t.Run("returns envelope", func(t *testing.T) {
		svc := &stubService{listResult: []*models.Conflict{sampleConflict()}}
		router := newRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/conflicts", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Conflicts []*ConflictResponse `json:"conflicts"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Conflicts, 1)
		assert.Equal(t, "birth_place", resp.Conflicts[0].FieldName)
	})

	t.Run("both filters rejected", func(t *testing.T) {
		router := newRouter(&stubService{})
		req := httptest.NewRequest(http.MethodGet, "/conflicts?entity_id="+uuid.NewString()+"&case_id="+uuid.NewString(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
