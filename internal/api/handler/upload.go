package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/kiranshivaraju/gitverified/internal/api/response"
	"github.com/kiranshivaraju/gitverified/internal/storage"
	"github.com/kiranshivaraju/gitverified/pkg/models"
)

// FileSaver persists an uploaded file. Satisfied by *storage.Local.
type FileSaver interface {
	Save(name string, r io.Reader) (string, string, error)
}

// NewUploadHandler returns an http.HandlerFunc for POST /api/upload. Every
// body, errors included, carries the success flag.
func NewUploadHandler(files FileSaver, urlPrefix string, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := formFile(w, r, "file", maxBytes)
		if err != nil {
			status, code, summary, message := formError(err, "No file uploaded")
			response.Failure(w, status, code, summary, message)
			return
		}
		defer file.Close()

		name, fullPath, err := files.Save(header.Filename, file)
		if errors.Is(err, storage.ErrInvalidName) {
			response.Failure(w, http.StatusBadRequest, CodeValidation, "Invalid file name", "")
			return
		}
		if err != nil {
			slog.Error("upload failed", "filename", header.Filename, "error", err)
			response.Failure(w, http.StatusInternalServerError, CodeInternal, "Upload failed", "")
			return
		}
		slog.Info("file uploaded", "filename", name, "path", fullPath, "size", header.Size)

		response.JSON(w, models.UploadResult{
			Success:  true,
			Path:     path.Join(urlPrefix, name),
			Filename: name,
		})
	}
}
