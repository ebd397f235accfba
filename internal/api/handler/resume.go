package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/gitverified/internal/api/response"
	"github.com/kiranshivaraju/gitverified/internal/resume"
)

// NewResumeLinksHandler returns an http.HandlerFunc for POST /api/resume/links.
func NewResumeLinksHandler(maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := formFile(w, r, "file", maxBytes)
		if err != nil {
			writeFormError(w, err, "No file uploaded")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, CodeInternal, "Failed to read file", "", nil)
			return
		}

		links, err := resume.Extract(header.Filename, data)
		if err != nil {
			slog.Warn("resume link extraction failed", "filename", header.Filename, "error", err)
			response.Error(w, http.StatusUnprocessableEntity, CodeUnprocessable,
				"Could not read resume", "Upload a text-based PDF", err.Error())
			return
		}

		response.JSON(w, links)
	}
}
