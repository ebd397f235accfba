package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/kiranshivaraju/gitverified/internal/api/response"
	"github.com/kiranshivaraju/gitverified/internal/backend"
	"github.com/kiranshivaraju/gitverified/pkg/models"
)

const backendHint = "Make sure Python backend is running: python api_server.py"

// NewEvaluateHandler returns an http.HandlerFunc for POST /api/evaluate.
// Rejections and outages are both reported as 503; only details differ.
func NewEvaluateHandler(client backend.Client, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := formFile(w, r, "resume", maxBytes)
		if err != nil {
			writeFormError(w, err, "Resume file required")
			return
		}
		defer file.Close()

		body, err := requireJSON(client.Evaluate(r.Context(), backend.EvaluationRequest{
			Resume:           file,
			ResumeFilename:   header.Filename,
			JobDescription:   r.FormValue("job_description"),
			GitHubURL:        r.FormValue("github_url"),
			LeetCodeUsername: r.FormValue("leetcode_username"),
		}))
		if err != nil {
			slog.Warn("evaluation relay failed", "filename", header.Filename, "error", err)
			response.Error(w, http.StatusServiceUnavailable, CodeBackendUnavailable,
				"Backend not available", backendHint, err.Error())
			return
		}

		slog.Info("evaluation relayed",
			"filename", header.Filename,
			"recommendation", gjson.GetBytes(body, "final.recommendation").String(),
			"overall_score", gjson.GetBytes(body, "final.overall_score").Float())
		response.Raw(w, http.StatusOK, body)
	}
}

// NewBatchHandler returns an http.HandlerFunc for POST /api/evaluate/batch.
// The request body is streamed to the backend untouched.
func NewBatchHandler(client backend.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := requireJSON(client.EvaluateBatch(r.Context(), r.Header.Get("Content-Type"), r.Body))
		if err != nil {
			var se *backend.StatusError
			if errors.As(err, &se) {
				slog.Warn("batch relay rejected", "status", se.StatusCode)
				writeBackendStatus(w, se)
				return
			}
			slog.Warn("batch relay failed", "error", err)
			response.Error(w, http.StatusServiceUnavailable, CodeBackendUnavailable,
				"Failed to connect to backend. Is the Python server running?", "", nil)
			return
		}

		response.Raw(w, http.StatusOK, body)
	}
}

// NewProgressHandler returns an http.HandlerFunc for the batch progress
// relay. An unreachable backend reads as an idle batch.
func NewProgressHandler(client backend.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := requireJSON(client.Progress(r.Context()))
		if err != nil {
			var se *backend.StatusError
			if errors.As(err, &se) {
				response.Error(w, se.StatusCode, CodeBackendError, "Backend error", "", nil)
				return
			}
			slog.Debug("progress relay failed, reporting idle", "error", err)
			response.JSON(w, models.IdleBatchProgress())
			return
		}

		response.Raw(w, http.StatusOK, body)
	}
}

// NewStopHandler returns an http.HandlerFunc for POST /api/evaluate/stop.
func NewStopHandler(client backend.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := requireJSON(client.Stop(r.Context()))
		if err != nil {
			var se *backend.StatusError
			if errors.As(err, &se) {
				response.Error(w, se.StatusCode, CodeBackendError, "Backend error", "", nil)
				return
			}
			slog.Warn("stop relay failed", "error", err)
			response.Error(w, http.StatusServiceUnavailable, CodeBackendUnavailable,
				"Failed to connect to backend", "", nil)
			return
		}

		slog.Info("batch evaluation stop requested")
		response.Raw(w, http.StatusOK, body)
	}
}

// requireJSON turns a successful call with a body that is not JSON into
// backend.ErrInvalidResponse, so it takes the same path as an outage.
func requireJSON(body []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %d bytes", backend.ErrInvalidResponse, len(body))
	}
	return body, nil
}

// writeBackendStatus forwards the backend's JSON error body and status. A
// body that is not JSON is replaced by a generic error.
func writeBackendStatus(w http.ResponseWriter, se *backend.StatusError) {
	if json.Valid(se.Body) {
		response.Raw(w, se.StatusCode, se.Body)
		return
	}
	response.Error(w, se.StatusCode, CodeBackendError, "Backend error", "", nil)
}
