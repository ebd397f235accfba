package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/gitverified/internal/api/response"
	"github.com/kiranshivaraju/gitverified/internal/store"
	"github.com/kiranshivaraju/gitverified/pkg/models"
)

// RunReader is satisfied by store.Store.
type RunReader interface {
	ListPipelineRuns(ctx context.Context, limit int) ([]*models.PipelineRun, error)
	GetPipelineRun(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error)
}

const runHistoryLimit = 50

// NewListRunsHandler returns an http.HandlerFunc for GET /api/pipeline/runs.
func NewListRunsHandler(runs RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			historyDisabled(w)
			return
		}
		list, err := runs.ListPipelineRuns(r.Context(), runHistoryLimit)
		if err != nil {
			slog.Error("listing pipeline runs failed", "error", err)
			response.Error(w, http.StatusInternalServerError, CodeInternal, "Failed to load pipeline runs", "", nil)
			return
		}
		response.JSON(w, list)
	}
}

// NewGetRunHandler returns an http.HandlerFunc for GET /api/pipeline/runs/{runID}.
func NewGetRunHandler(runs RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			historyDisabled(w)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "runID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, CodeValidation, "runID must be a valid UUID", "", nil)
			return
		}
		run, err := runs.GetPipelineRun(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, CodeNotFound, "Pipeline run not found", "", nil)
			return
		}
		if err != nil {
			slog.Error("loading pipeline run failed", "run_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, CodeInternal, "Failed to load pipeline run", "", nil)
			return
		}
		response.JSON(w, run)
	}
}

func historyDisabled(w http.ResponseWriter) {
	response.Error(w, http.StatusNotFound, CodeNotFound, "Pipeline run history is not enabled",
		"Set DATABASE_URL to record pipeline runs", nil)
}
