package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CandidateStatusInterview = "INTERVIEW"
	CandidateStatusWaitlist  = "WAITLIST"
	CandidateStatusReject    = "REJECT"
)

// Candidate is one leaderboard row. Scores are produced by the external
// pipeline; this service only stores and lists them.
type Candidate struct {
	ID        string    `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	PScore    int       `db:"p_score"    json:"p_score"`
	Truth     int       `db:"truth"      json:"truth"`
	Passion   int       `db:"passion"    json:"passion"`
	Code      int       `db:"code"       json:"code"`
	Status    string    `db:"status"     json:"status"`
	Flag      string    `db:"flag"       json:"flag"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// PipelineRun records one pipeline trigger attempt and how it ended.
type PipelineRun struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	Filename    string    `db:"filename"     json:"filename"`
	ExecutionID string    `db:"execution_id" json:"execution_id"`
	Success     bool      `db:"success"      json:"success"`
	Strategy    string    `db:"strategy"     json:"strategy"`
	Link        string    `db:"link"         json:"link,omitempty"`
	Error       string    `db:"error"        json:"error,omitempty"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

// ResumeLinks are the profile links found in a resume PDF.
type ResumeLinks struct {
	File          string   `json:"file"`
	GitHubLinks   []string `json:"github_links"`
	LeetCodeLinks []string `json:"leetcode_links"`
	Snippet       string   `json:"raw_text_snippet"`
}

// WebhookRequest is the inbound ATS webhook payload. Both fields are
// optional; only their length is bounded.
type WebhookRequest struct {
	CandidateName string `json:"candidate_name" validate:"max=256"`
	GitHubURL     string `json:"github_url"     validate:"max=2048"`
}

// WebhookResponse acknowledges a webhook.
type WebhookResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ExecutionID string `json:"execution_id,omitempty"`
}
