// Package ollama talks to the model-serving endpoint. The relay only needs
// its health and the list of installed models.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

var (
	ErrUnreachable = errors.New("model server unreachable")
	ErrNotReady    = errors.New("model server not ready")
)

// Client lists installed models.
type Client interface {
	Tags(ctx context.Context) ([]string, error)
}

// HTTPClient implements Client over the Ollama HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Tags returns installed model names from GET /api/tags. A body without a
// models array yields an empty, non-nil slice.
func (c *HTTPClient) Tags(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrNotReady, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading tags: %v", ErrUnreachable, err)
	}

	return modelNames(body), nil
}

func modelNames(body []byte) []string {
	names := lo.FilterMap(gjson.GetBytes(body, "models.#.name").Array(), func(r gjson.Result, _ int) (string, bool) {
		return r.String(), r.String() != ""
	})
	if names == nil {
		return []string{}
	}
	return names
}

var _ Client = (*HTTPClient)(nil)
