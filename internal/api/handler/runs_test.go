package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/gitverified/internal/store"
	"github.com/kiranshivaraju/gitverified/pkg/models"
)

type mockRuns struct {
	runs      map[uuid.UUID]*models.PipelineRun
	lastLimit int
}

func (m *mockRuns) ListPipelineRuns(_ context.Context, limit int) ([]*models.PipelineRun, error) {
	m.lastLimit = limit
	out := []*models.PipelineRun{}
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRuns) GetPipelineRun(_ context.Context, id uuid.UUID) (*models.PipelineRun, error) {
	r, ok := m.runs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

// serveGetRun routes through chi so URL params resolve.
func serveGetRun(h http.HandlerFunc, id string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/api/pipeline/runs/{runID}", h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pipeline/runs/"+id, nil))
	return rec
}

func TestListRuns(t *testing.T) {
	id := uuid.New()
	mr := &mockRuns{runs: map[uuid.UUID]*models.PipelineRun{
		id: {ID: id, Filename: "cv.pdf", ExecutionID: "e1", Success: true, Strategy: "http", CreatedAt: time.Now()},
	}}
	rec := httptest.NewRecorder()
	NewListRunsHandler(mr).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pipeline/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"execution_id":"e1"`)
	assert.Equal(t, runHistoryLimit, mr.lastLimit)
}

func TestListRuns_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	NewListRunsHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pipeline/runs", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRun(t *testing.T) {
	id := uuid.New()
	mr := &mockRuns{runs: map[uuid.UUID]*models.PipelineRun{
		id: {ID: id, ExecutionID: models.ExecutionFailedTrigger, Error: "[ERROR] boom"},
	}}

	rec := serveGetRun(NewGetRunHandler(mr), id.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "failed_trigger", decodeBody(t, rec)["execution_id"])

	rec = serveGetRun(NewGetRunHandler(mr), uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveGetRun(NewGetRunHandler(mr), "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun_Disabled(t *testing.T) {
	rec := serveGetRun(NewGetRunHandler(nil), uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
