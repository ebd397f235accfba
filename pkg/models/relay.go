// Package models contains the wire types shared across the gitverified relay.
package models

// Sentinel execution ids used by the pipeline trigger when the fallback path
// ends without a real workflow execution.
const (
	ExecutionFailedNoPython = "failed_no_python"
	ExecutionFailedTrigger  = "failed_trigger"
	ExecutionFailedParse    = "failed_parse"
	ExecutionFailedTimeout  = "failed_timeout"
)

// SystemStatus is the aggregated readiness of the external collaborators.
// Ready is always Backend && Ollama; Kestra is advisory.
type SystemStatus struct {
	Backend bool     `json:"backend"`
	Ollama  bool     `json:"ollama"`
	Kestra  bool     `json:"kestra"`
	Models  []string `json:"models"`
	Ready   bool     `json:"ready"`
}

// BatchProgress mirrors the analysis backend's batch progress payload.
type BatchProgress struct {
	IsRunning  bool `json:"is_running"`
	Current    int  `json:"current"`
	Total      int  `json:"total"`
	Percentage int  `json:"percentage"`
}

// IdleBatchProgress is returned when the backend cannot be reached.
func IdleBatchProgress() BatchProgress {
	return BatchProgress{}
}

// TriggerOutcome is the uniform response of the pipeline trigger endpoint.
type TriggerOutcome struct {
	Success     bool   `json:"success"`
	ExecutionID string `json:"execution_id"`
	Filename    string `json:"filename"`
	Link        string `json:"link,omitempty"`
	Error       string `json:"error,omitempty"`
}

// UploadResult is returned by the upload relay.
type UploadResult struct {
	Success  bool   `json:"success"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
}
