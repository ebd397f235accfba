package kestra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// Sentinel errors for workflow engine failures.
var (
	ErrUnreachable = errors.New("workflow engine unreachable")
	ErrRejected    = errors.New("workflow engine rejected request")
	ErrNoExecution = errors.New("workflow engine response has no execution id")
)

// Input is one flow input, sent as a multipart form field.
type Input struct {
	Name  string
	Value string
}

// Client is the interface for the workflow engine.
type Client interface {
	Ready(ctx context.Context) error
	Execute(ctx context.Context, inputs []Input) (string, error)
	ExecutionLink(executionID string) string
}

// HTTPClient implements Client using the engine's REST API with Basic auth.
type HTTPClient struct {
	baseURL   string
	namespace string
	flow      string
	username  string
	password  string
	client    *http.Client
}

func NewHTTPClient(baseURL, namespace, flow, username, password string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		namespace: namespace,
		flow:      flow,
		username:  username,
		password:  password,
		client:    &http.Client{Timeout: timeout},
	}
}

// Ready probes GET /api/v1/flows.
func (c *HTTPClient) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/flows", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}

// Execute starts one execution of the configured flow and returns its id.
func (c *HTTPClient) Execute(ctx context.Context, inputs []Input) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, in := range inputs {
		if err := mw.WriteField(in.Name, in.Value); err != nil {
			return "", fmt.Errorf("writing input %s: %w", in.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing form: %w", err)
	}

	u := fmt.Sprintf("%s/api/v1/executions/%s/%s", c.baseURL, url.PathEscape(c.namespace), url.PathEscape(c.flow))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, truncate(string(body), 300))
	}

	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", ErrNoExecution
	}
	return id, nil
}

// ExecutionLink is the engine UI address for an execution.
func (c *HTTPClient) ExecutionLink(executionID string) string {
	return fmt.Sprintf("%s/ui/executions/%s/%s/%s", c.baseURL, c.namespace, c.flow, executionID)
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ Client = (*HTTPClient)(nil)
