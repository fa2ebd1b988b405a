package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"origo/internal/ingest/models"
	"origo/internal/ingest/secrets"
	"origo/pkg/requestcontext"
)

const testKey = "pipeline-test-key"

type stubService struct {
	result   models.BatchResult
	err      error
	gotBatch models.Batch
	gotActor string
}

func (s *stubService) IngestBatch(ctx context.Context, batch models.Batch) (models.BatchResult, error) {
	s.gotBatch = batch
	s.gotActor = requestcontext.Actor(ctx)
	return s.result, s.err
}

func newRouter(t *testing.T, svc Service) chi.Router {
	t.Helper()
	hash, err := secrets.Hash(testKey)
	require.NoError(t, err)
	keyring := secrets.NewKeyring(map[string]string{"scanner-eu": hash})

	r := chi.NewRouter()
	New(svc, keyring, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func batchBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"job_id": "scan-run-42",
		"tuples": []map[string]any{
			{
				"document_id": uuid.NewString(),
				"entity_id":   uuid.NewString(),
				"field_name":  "birth_place",
				"value":       "Warszawa",
				"confidence":  0.91,
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestSubmitBatch(t *testing.T) {
	svc := &stubService{result: models.BatchResult{Accepted: 1}}
	router := newRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/ingest/batches", bytes.NewReader(batchBody(t)))
	req.Header.Set(apiKeyHeader, testKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got models.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Accepted)

	assert.Equal(t, "scan-run-42", svc.gotBatch.JobID)
	require.Len(t, svc.gotBatch.Tuples, 1)
	assert.Equal(t, "Warszawa", svc.gotBatch.Tuples[0].Value)
	assert.Equal(t, "pipeline:scanner-eu", svc.gotActor)
}

func TestSubmitBatchRejectsMissingKey(t *testing.T) {
	svc := &stubService{}
	router := newRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/ingest/batches", bytes.NewReader(batchBody(t)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.gotBatch.JobID)
}

func TestSubmitBatchRejectsWrongKey(t *testing.T) {
	router := newRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/ingest/batches", bytes.NewReader(batchBody(t)))
	req.Header.Set(apiKeyHeader, "not-the-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitBatchValidation(t *testing.T) {
	router := newRouter(t, &stubService{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "missing job id",
			body: map[string]any{
				"tuples": []map[string]any{{
					"document_id": uuid.NewString(),
					"entity_id":   uuid.NewString(),
					"field_name":  "birth_place",
					"value":       "Warszawa",
				}},
			},
		},
		{
			name: "no tuples",
			body: map[string]any{"job_id": "scan-run-42", "tuples": []map[string]any{}},
		},
		{
			name: "bad entity id",
			body: map[string]any{
				"job_id": "scan-run-42",
				"tuples": []map[string]any{{
					"document_id": uuid.NewString(),
					"entity_id":   "not-a-uuid",
					"field_name":  "birth_place",
					"value":       "Warszawa",
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.body)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/ingest/batches", bytes.NewReader(body))
			req.Header.Set(apiKeyHeader, testKey)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
