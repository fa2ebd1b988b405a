package handler

import (
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

	"origo/internal/audit/models"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
)

type stubService struct {
	events   []models.Event
	export   *models.FieldExport
	err      error
	gotField id.FieldName
}

func (s *stubService) Trail(_ context.Context, _ id.EntityID, field id.FieldName) ([]models.Event, error) {
	s.gotField = field
	return s.events, s.err
}

func (s *stubService) ExportFieldHistory(_ context.Context, _ id.EntityID, field id.FieldName) (*models.FieldExport, error) {
	s.gotField = field
	return s.export, s.err
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func TestTrail(t *testing.T) {
	entityID := uuid.NewString()
	svc := &stubService{events: []models.Event{{
		ID:         uuid.New(),
		EntityID:   id.EntityID(uuid.MustParse(entityID)),
		Action:     models.ActionFieldWritten,
		FieldName:  "birth_place",
		Value:      "WARSAW",
		OccurredAt: time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC),
	}}}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/entities/"+entityID+"/audit?field=birth_place", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.FieldName("birth_place"), svc.gotField)

	var body struct {
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "WARSAW", body.Events[0].Value)
}

func TestTrailEmpty(t *testing.T) {
	router := newRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/entities/"+uuid.NewString()+"/audit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

func TestTrailRejectsBadEntityID(t *testing.T) {
	router := newRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/entities/not-a-uuid/audit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	entityID := id.EntityID(uuid.New())
	svc := &stubService{export: &models.FieldExport{
		EntityID:  entityID,
		FieldName: "birth_place",
		Revisions: []models.Revision{
			{Revision: 1, Value: "WARSAW", Source: "manual", Actor: "clerk@example.com"},
			{Revision: 2, Value: "Warszawa", Source: "ocr", Actor: "reviewer@example.com"},
		},
	}}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/entities/"+entityID.String()+"/fields/birth_place/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got models.FieldExport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Revisions, 2)
	assert.Equal(t, "Warszawa", got.Revisions[1].Value)
}

func TestExportUnknownEntity(t *testing.T) {
	svc := &stubService{err: dErrors.New(dErrors.CodeNotFound, "entity not found")}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/entities/"+uuid.NewString()+"/fields/birth_place/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
