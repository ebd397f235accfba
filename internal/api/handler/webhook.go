package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/gitverified/internal/api/response"
	"github.com/kiranshivaraju/gitverified/pkg/models"
)

const maxWebhookBytes = 1 << 20

// NewWebhookHandler returns an http.HandlerFunc for POST /api/webhook. The
// ATS payload is validated and acknowledged; no workflow is started yet.
func NewWebhookHandler(validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req *models.WebhookRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBytes)).Decode(&req); err != nil || req == nil {
			invalidPayload(w)
			return
		}
		req.CandidateName = strings.TrimSpace(req.CandidateName)
		if err := validate.Struct(req); err != nil {
			slog.Warn("webhook payload rejected", "error", err)
			invalidPayload(w)
			return
		}

		execID := "exec_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
		slog.Info("webhook received",
			"candidate_name", req.CandidateName, "github_url", req.GitHubURL, "execution_id", execID)

		response.JSON(w, models.WebhookResponse{
			Status:      "success",
			Message:     "Forensic Audit Triggered",
			ExecutionID: execID,
		})
	}
}

func invalidPayload(w http.ResponseWriter) {
	response.Status(w, http.StatusBadRequest, models.WebhookResponse{
		Status:  "error",
		Message: "Invalid payload",
	})
}
