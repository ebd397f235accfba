package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/gitverified/internal/api/response"
	"github.com/kiranshivaraju/gitverified/internal/storage"
	"github.com/kiranshivaraju/gitverified/pkg/models"
)

// PipelineTrigger is satisfied by *pipeline.Trigger.
type PipelineTrigger interface {
	Run(ctx context.Context, originalName string, file io.Reader, jobDescription string) (models.TriggerOutcome, error)
}

// NewTriggerHandler returns an http.HandlerFunc for POST /api/trigger. Every
// expected outcome, failures included, is a 200 TriggerOutcome.
func NewTriggerHandler(trigger PipelineTrigger, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := formFile(w, r, "file", maxBytes)
		if err != nil {
			writeFormError(w, err, "No file uploaded")
			return
		}
		defer file.Close()

		outcome, err := trigger.Run(r.Context(), header.Filename, file, r.FormValue("jd"))
		if errors.Is(err, storage.ErrInvalidName) {
			response.Error(w, http.StatusBadRequest, CodeValidation, "Invalid file name", "", nil)
			return
		}
		if err != nil {
			slog.Error("pipeline trigger failed unexpectedly", "filename", header.Filename, "error", err)
			response.Error(w, http.StatusInternalServerError, CodeInternal, "Failed to trigger pipeline", "", nil)
			return
		}

		response.JSON(w, outcome)
	}
}
