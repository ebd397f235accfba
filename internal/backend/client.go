package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"time"
)

// Sentinel errors for analysis backend failures.
var (
	ErrUnreachable = errors.New("analysis backend unreachable")
	ErrRejected    = errors.New("analysis backend rejected request")
	ErrTimeout     = errors.New("analysis backend timeout")

	// ErrInvalidResponse marks a 2xx answer whose body is not JSON, such as
	// a proxy error page.
	ErrInvalidResponse = errors.New("analysis backend returned a non-JSON body")
)

const (
	evaluatePath = "/api/evaluate"
	batchPath    = "/api/evaluate/batch"
	progressPath = "/api/evaluate/progress"
	stopPath     = "/api/evaluate/stop"

	maxResponseBytes = 32 << 20
)

// StatusError is returned when the backend answers with a non-2xx status.
// It matches ErrRejected under errors.Is.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRejected
}

// Client is the interface for the external analysis backend.
// Successful calls return the backend's JSON body unchanged.
type Client interface {
	Ping(ctx context.Context) error
	Evaluate(ctx context.Context, req EvaluationRequest) ([]byte, error)
	EvaluateBatch(ctx context.Context, contentType string, body io.Reader) ([]byte, error)
	Progress(ctx context.Context) ([]byte, error)
	Stop(ctx context.Context) ([]byte, error)
}

// EvaluationRequest is one candidate submission. Optional text fields are
// always sent, as empty strings when unset.
type EvaluationRequest struct {
	Resume           io.Reader
	ResumeFilename   string
	JobDescription   string
	GitHubURL        string
	LeetCodeUsername string
}

// HTTPClient implements Client over the backend's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a backend client. A zero timeout leaves calls bounded
// only by their context.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/", "", nil)
	return err
}

func (c *HTTPClient) Evaluate(ctx context.Context, req EvaluationRequest) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := req.ResumeFilename
	if filename == "" {
		filename = "resume.pdf"
	}
	part, err := mw.CreateFormFile("resume", filename)
	if err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if _, err := io.Copy(part, req.Resume); err != nil {
		return nil, fmt.Errorf("copying resume: %w", err)
	}

	fields := []struct{ name, value string }{
		{"job_description", req.JobDescription},
		{"github_url", req.GitHubURL},
		{"leetcode_username", req.LeetCodeUsername},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", f.name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	return c.do(ctx, http.MethodPost, evaluatePath, mw.FormDataContentType(), &buf)
}

func (c *HTTPClient) EvaluateBatch(ctx context.Context, contentType string, body io.Reader) ([]byte, error) {
	return c.do(ctx, http.MethodPost, batchPath, contentType, body)
}

func (c *HTTPClient) Progress(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, progressPath, "", nil)
}

func (c *HTTPClient) Stop(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodPost, stopPath, "", nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: data}
	}

	return data, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// IsUnavailable reports whether err means the backend could not be reached
// at all, as opposed to answering with an error status.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrTimeout)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
