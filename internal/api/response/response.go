package response

import (
	"encoding/json"
	"net/http"
)

// Payloads are written unwrapped: the browser UI reads SystemStatus,
// BatchProgress and relayed backend payloads at the top level.

type errorBody struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data with status 200.
func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

// Status writes data with the given status.
func Status(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

// Raw writes an already-encoded JSON body unchanged.
func Raw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// Error writes the flat error body. summary is the short "error" field,
// message the human-facing hint.
func Error(w http.ResponseWriter, status int, code, summary, message string, details any) {
	if message == "" {
		message = summary
	}
	writeJSON(w, status, errorBody{
		Error:   summary,
		Code:    code,
		Message: message,
		Details: details,
	})
}

// Failure is Error with an explicit success:false, for endpoints whose
// clients branch on the success flag.
func Failure(w http.ResponseWriter, status int, code, summary, message string) {
	if message == "" {
		message = summary
	}
	success := false
	writeJSON(w, status, errorBody{
		Success: &success,
		Error:   summary,
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
