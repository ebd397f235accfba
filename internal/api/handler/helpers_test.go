package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/gitverified/internal/backend"
)

const testMaxBytes = 1 << 20

// --- mock backend ---

type mockBackend struct {
	evalReq    backend.EvaluationRequest
	evalResume string
	batchType  string
	batchBody  string
	body       []byte
	err        error
}

func (m *mockBackend) Ping(_ context.Context) error { return m.err }

func (m *mockBackend) Evaluate(_ context.Context, req backend.EvaluationRequest) ([]byte, error) {
	m.evalReq = req
	if req.Resume != nil {
		b, _ := io.ReadAll(req.Resume)
		m.evalResume = string(b)
	}
	return m.body, m.err
}

func (m *mockBackend) EvaluateBatch(_ context.Context, contentType string, body io.Reader) ([]byte, error) {
	m.batchType = contentType
	b, _ := io.ReadAll(body)
	m.batchBody = string(b)
	return m.body, m.err
}

func (m *mockBackend) Progress(_ context.Context) ([]byte, error) { return m.body, m.err }
func (m *mockBackend) Stop(_ context.Context) ([]byte, error)     { return m.body, m.err }

// --- helpers ---

type formFilePart struct {
	field, name, content string
}

// multipartReq builds a multipart request with the given text fields and an
// optional file part.
func multipartReq(t *testing.T, target string, fields map[string]string, file *formFilePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile(file.field, file.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(file.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, target, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
