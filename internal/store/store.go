package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/gitverified/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
// Candidate rows are written by the external pipeline; this service only
// reads them.
type Store interface {
	Ping(ctx context.Context) error

	CreatePipelineRun(ctx context.Context, run *models.PipelineRun) error
	GetPipelineRun(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error)
	ListPipelineRuns(ctx context.Context, limit int) ([]*models.PipelineRun, error)

	ListCandidates(ctx context.Context) ([]*models.Candidate, error)
}

// DemoCandidates is the roster shown when no database is configured. The
// initial migration seeds the same rows.
func DemoCandidates() []*models.Candidate {
	return []*models.Candidate{
		{ID: "c1", Name: "Alex Builder", PScore: 98, Truth: 100, Passion: 95, Code: 99, Status: models.CandidateStatusInterview, Flag: "Verified Open Source"},
		{ID: "c2", Name: "Sarah Systems", PScore: 94, Truth: 100, Passion: 98, Code: 85, Status: models.CandidateStatusInterview, Flag: "Game Engine Dev"},
		{ID: "c3", Name: "Jordan Script", PScore: 72, Truth: 80, Passion: 60, Code: 75, Status: models.CandidateStatusInterview, Flag: "Standard"},
		{ID: "c4", Name: "Fake Frank", PScore: 12, Truth: 0, Passion: 10, Code: 25, Status: models.CandidateStatusReject, Flag: "White Text Detected"},
		{ID: "c5", Name: "Keyword Karl", PScore: 35, Truth: 40, Passion: 20, Code: 45, Status: models.CandidateStatusReject, Flag: "Low Proof-of-Work"},
		{ID: "c6", Name: "Prompt Patty", PScore: 15, Truth: 20, Passion: 10, Code: 0, Status: models.CandidateStatusReject, Flag: "No Coding Ability"},
		{ID: "c7", Name: "Llama Learner", PScore: 88, Truth: 100, Passion: 90, Code: 70, Status: models.CandidateStatusInterview, Flag: "Self Taught"},
	}
}
