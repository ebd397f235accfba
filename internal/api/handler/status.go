package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/gitverified/internal/api/response"
	"github.com/kiranshivaraju/gitverified/pkg/models"
)

// StatusProber is satisfied by *status.Prober.
type StatusProber interface {
	Probe(ctx context.Context) models.SystemStatus
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/status. It always
// answers 200; unavailable services show up as false flags.
func NewStatusHandler(prober StatusProber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, prober.Probe(r.Context()))
	}
}
