package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/kiranshivaraju/gitverified/internal/api/response"
	"github.com/kiranshivaraju/gitverified/internal/store"
	"github.com/kiranshivaraju/gitverified/pkg/models"
)

// CandidateLister is satisfied by store.Store.
type CandidateLister interface {
	ListCandidates(ctx context.Context) ([]*models.Candidate, error)
}

// NewLeaderboardHandler returns an http.HandlerFunc for GET /api/leaderboard.
// With a nil lister the built-in demo roster is served.
func NewLeaderboardHandler(lister CandidateLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			response.JSON(w, rankCandidates(store.DemoCandidates()))
			return
		}

		candidates, err := lister.ListCandidates(r.Context())
		if err != nil {
			slog.Error("listing candidates failed", "error", err)
			response.Error(w, http.StatusInternalServerError, CodeInternal, "Failed to load leaderboard", "", nil)
			return
		}
		response.JSON(w, rankCandidates(candidates))
	}
}

// rankCandidates orders by p_score, highest first, keeping input order for ties.
func rankCandidates(candidates []*models.Candidate) []*models.Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PScore > candidates[j].PScore
	})
	return candidates
}
