package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/kiranshivaraju/gitverified/internal/api/response"
)

// Error codes used in the flat error body.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeBackendError       = "BACKEND_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUnprocessable      = "UNPROCESSABLE_RESUME"
)

var (
	errMissingFile  = errors.New("missing file")
	errInvalidForm  = errors.New("invalid multipart form")
	errFormTooLarge = errors.New("multipart form too large")
)

// formFile parses a multipart body of at most maxBytes and returns the named
// file part. The returned error is one of the errors above.
func formFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, errFormTooLarge
		}
		return nil, nil, errInvalidForm
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, errMissingFile
	}
	return file, header, nil
}

// writeFormError maps a formFile error to a 400/413 body. missing is the
// message used when the form is fine but the file part is absent.
func writeFormError(w http.ResponseWriter, err error, missing string) {
	status, code, summary, message := formError(err, missing)
	response.Error(w, status, code, summary, message, nil)
}

func formError(err error, missing string) (status int, code, summary, message string) {
	switch {
	case errors.Is(err, errFormTooLarge):
		return http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "File too large", ""
	case errors.Is(err, errInvalidForm):
		return http.StatusBadRequest, CodeValidation, missing, "Request must be multipart/form-data"
	default:
		return http.StatusBadRequest, CodeValidation, missing, ""
	}
}
