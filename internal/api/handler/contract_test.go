package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/gitverified/internal/api"
	"github.com/kiranshivaraju/gitverified/internal/api/handler"
	"github.com/kiranshivaraju/gitverified/internal/backend"
	"github.com/kiranshivaraju/gitverified/internal/kestra"
	"github.com/kiranshivaraju/gitverified/internal/ollama"
	"github.com/kiranshivaraju/gitverified/internal/pipeline"
	"github.com/kiranshivaraju/gitverified/internal/status"
	"github.com/kiranshivaraju/gitverified/internal/storage"
)

// ─── upstream fakes ──────────────────────────────────────────────────────────

type upstreams struct {
	backend *httptest.Server
	ollama  *httptest.Server
	kestra  *httptest.Server
}

func newUpstreams(t *testing.T, backendH, ollamaH, kestraH http.HandlerFunc) upstreams {
	t.Helper()
	u := upstreams{
		backend: httptest.NewServer(backendH),
		ollama:  httptest.NewServer(ollamaH),
		kestra:  httptest.NewServer(kestraH),
	}
	t.Cleanup(func() {
		u.backend.Close()
		u.ollama.Close()
		u.kestra.Close()
	})
	return u
}

func ok(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func failing(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

// down returns the address of a server that has already been closed.
func down(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

type routerOpts struct {
	backendURL   string
	ollamaURL    string
	kestraURL    string
	interpreters []string
	script       string
}

func newTestRouter(t *testing.T, o routerOpts) http.Handler {
	t.Helper()
	backendClient := backend.NewHTTPClient(o.backendURL, 0)
	ollamaClient := ollama.NewHTTPClient(o.ollamaURL, time.Second)
	kestraClient := kestra.NewHTTPClient(o.kestraURL, "ai.gitverified", "gitverified-main-pipeline", "u", "p", time.Second)

	interpreters := o.interpreters
	if interpreters == nil {
		interpreters = []string{"python-not-installed"}
	}
	trigger := pipeline.New(storage.NewLocal(t.TempDir()), kestraClient, pipeline.ExecRunner{}, nil, pipeline.Options{
		MountDir:      "/app/agents/data",
		ScriptPath:    o.script,
		Interpreters:  interpreters,
		ScriptTimeout: 5 * time.Second,
	})

	return api.NewRouter(api.Dependencies{
		AllowedOrigins:     []string{"*"},
		StatusHandler:      handler.NewStatusHandler(status.NewProber(backendClient, ollamaClient, kestraClient, time.Second)),
		UploadHandler:      handler.NewUploadHandler(storage.NewLocal(t.TempDir()), "/uploads", 1<<20),
		EvaluateHandler:    handler.NewEvaluateHandler(backendClient, 1<<20),
		BatchHandler:       handler.NewBatchHandler(backendClient),
		ProgressHandler:    handler.NewProgressHandler(backendClient),
		StopHandler:        handler.NewStopHandler(backendClient),
		TriggerHandler:     handler.NewTriggerHandler(trigger, 1<<20),
		WebhookHandler:     handler.NewWebhookHandler(validator.New()),
		ResumeLinksHandler: handler.NewResumeLinksHandler(1 << 20),
		LeaderboardHandler: handler.NewLeaderboardHandler(nil),
		ListRunsHandler:    handler.NewListRunsHandler(nil),
		GetRunHandler:      handler.NewGetRunHandler(nil),
	})
}

func serve(t *testing.T, h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func fileForm(t *testing.T, target, field, name string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, target, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func jsonBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

// ─── status ──────────────────────────────────────────────────────────────────

func TestContract_StatusReadiness(t *testing.T) {
	tags := ok(`{"models":[{"name":"llama3:latest"},{"name":"mistral"}]}`)

	cases := []struct {
		name    string
		backend http.HandlerFunc
		ollama  http.HandlerFunc
		kestra  http.HandlerFunc
		want    string
	}{
		{
			name:    "all up",
			backend: ok(`{}`),
			ollama:  tags,
			kestra:  ok(`[]`),
			want:    `{"backend":true,"ollama":true,"kestra":true,"models":["llama3:latest","mistral"],"ready":true}`,
		},
		{
			name:    "engine down does not affect ready",
			backend: ok(`{}`),
			ollama:  tags,
			kestra:  failing(http.StatusUnauthorized),
			want:    `{"backend":true,"ollama":true,"kestra":false,"models":["llama3:latest","mistral"],"ready":true}`,
		},
		{
			name:    "backend error status",
			backend: failing(http.StatusInternalServerError),
			ollama:  tags,
			kestra:  ok(`[]`),
			want:    `{"backend":false,"ollama":true,"kestra":true,"models":["llama3:latest","mistral"],"ready":false}`,
		},
		{
			name:    "model server not ready",
			backend: ok(`{}`),
			ollama:  failing(http.StatusServiceUnavailable),
			kestra:  ok(`[]`),
			want:    `{"backend":true,"ollama":false,"kestra":true,"models":[],"ready":false}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := newUpstreams(t, tc.backend, tc.ollama, tc.kestra)
			router := newTestRouter(t, routerOpts{backendURL: u.backend.URL, ollamaURL: u.ollama.URL, kestraURL: u.kestra.URL})

			w := serve(t, router, httptest.NewRequest(http.MethodGet, "/api/status", nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tc.want, w.Body.String())
		})
	}
}

// ─── evaluation relays ──────────────────────────────────────────────────────

func TestContract_EvaluatePassthrough(t *testing.T) {
	var gotJD string
	u := newUpstreams(t,
		func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseMultipartForm(1 << 20)
			gotJD = r.FormValue("job_description")
			_, _ = w.Write([]byte(`{"score":87,"verdict":"INTERVIEW"}`))
		},
		ok(`{"models":[]}`), ok(`[]`))
	router := newTestRouter(t, routerOpts{backendURL: u.backend.URL, ollamaURL: u.ollama.URL, kestraURL: u.kestra.URL})

	w := serve(t, router, fileForm(t, "/api/evaluate", "resume", "cv.pdf", map[string]string{"job_description": "Go engineer"}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"score":87,"verdict":"INTERVIEW"}`, w.Body.String())
	assert.Equal(t, "Go engineer", gotJD)
}

func TestContract_EvaluateOutageIs503(t *testing.T) {
	router := newTestRouter(t, routerOpts{backendURL: down(t), ollamaURL: down(t), kestraURL: down(t)})

	w := serve(t, router, fileForm(t, "/api/evaluate", "resume", "cv.pdf", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := jsonBody(t, w)
	assert.Equal(t, "Backend not available", body["error"])
	assert.Equal(t, "Make sure Python backend is running: python api_server.py", body["message"])
	assert.NotEmpty(t, body["details"])
}

func TestContract_EvaluateBackendRejectionIs503(t *testing.T) {
	u := newUpstreams(t, failing(http.StatusBadRequest), ok(`{}`), ok(`[]`))
	router := newTestRouter(t, routerOpts{backendURL: u.backend.URL, ollamaURL: u.ollama.URL, kestraURL: u.kestra.URL})

	w := serve(t, router, fileForm(t, "/api/evaluate", "resume", "cv.pdf", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestContract_ProgressIdleOnOutage(t *testing.T) {
	router := newTestRouter(t, routerOpts{backendURL: down(t), ollamaURL: down(t), kestraURL: down(t)})

	for _, path := range []string{"/api/evaluate/batch/progress", "/api/batch/progress"} {
		w := serve(t, router, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"is_running":false,"current":0,"total":0,"percentage":0}`, w.Body.String(), path)
	}
}

func TestContract_ProgressPassthrough(t *testing.T) {
	u := newUpstreams(t, ok(`{"is_running":true,"current":3,"total":10,"percentage":30}`), ok(`{}`), ok(`[]`))
	router := newTestRouter(t, routerOpts{backendURL: u.backend.URL, ollamaURL: u.ollama.URL, kestraURL: u.kestra.URL})

	w := serve(t, router, httptest.NewRequest(http.MethodGet, "/api/batch/progress", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"is_running":true,"current":3,"total":10,"percentage":30}`, w.Body.String())
}

func TestContract_BatchForwardsBackendError(t *testing.T) {
	u := newUpstreams(t,
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"batch already running"}`))
		},
		ok(`{}`), ok(`[]`))
	router := newTestRouter(t, routerOpts{backendURL: u.backend.URL, ollamaURL: u.ollama.URL, kestraURL: u.kestra.URL})

	w := serve(t, router, fileForm(t, "/api/evaluate/batch", "resumes", "a.pdf", nil))

	require.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"batch already running"}`, w.Body.String())
}

// ─── pipeline trigger ───────────────────────────────────────────────────────

func TestContract_TriggerViaEngine(t *testing.T) {
	var gotPath string
	u := newUpstreams(t, ok(`{}`), ok(`{}`), func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		gotPath = r.FormValue("pdf_path")
		_, _ = w.Write([]byte(`{"id":"exec-engine-1"}`))
	})
	router := newTestRouter(t, routerOpts{backendURL: u.backend.URL, ollamaURL: u.ollama.URL, kestraURL: u.kestra.URL})

	w := serve(t, router, fileForm(t, "/api/trigger", "file", "My Resume.pdf", map[string]string{"jd": "Backend"}))

	require.Equal(t, http.StatusOK, w.Code)
	body := jsonBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "exec-engine-1", body["execution_id"])
	assert.Equal(t, "My_Resume.pdf", body["filename"])
	assert.Contains(t, body["link"], "/ui/executions/ai.gitverified/gitverified-main-pipeline/exec-engine-1")
	assert.Equal(t, "/app/agents/data/My_Resume.pdf", gotPath)
}

func TestContract_TriggerFallsBackToScript(t *testing.T) {
	script := filepath.Join(t.TempDir(), "trigger.sh")
	require.NoError(t, os.WriteFile(script, []byte("echo \"[SUCCESS] Workflow ID: script-42\"\n"), 0o755))

	u := newUpstreams(t, ok(`{}`), ok(`{}`), failing(http.StatusInternalServerError))
	router := newTestRouter(t, routerOpts{
		backendURL:   u.backend.URL,
		ollamaURL:    u.ollama.URL,
		kestraURL:    u.kestra.URL,
		interpreters: []string{"python-not-installed", "sh"},
		script:       script,
	})

	w := serve(t, router, fileForm(t, "/api/trigger", "file", "cv.pdf", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := jsonBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "script-42", body["execution_id"])
	assert.Equal(t, "cv.pdf", body["filename"])
}

func TestContract_TriggerWithoutInterpreter(t *testing.T) {
	router := newTestRouter(t, routerOpts{backendURL: down(t), ollamaURL: down(t), kestraURL: down(t)})

	w := serve(t, router, fileForm(t, "/api/trigger", "file", "cv.pdf", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := jsonBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "failed_no_python", body["execution_id"])
	assert.Equal(t, "Python not found. Tried: python-not-installed", body["error"])
}

// ─── misc routes ─────────────────────────────────────────────────────────────

func TestContract_WebhookWithoutTokenConfigured(t *testing.T) {
	router := newTestRouter(t, routerOpts{backendURL: down(t), ollamaURL: down(t), kestraURL: down(t)})

	r := httptest.NewRequest(http.MethodPost, "/api/webhook",
		bytes.NewBufferString(`{"candidate_name":"Ada","github_url":"https://github.com/ada"}`))
	r.Header.Set("Content-Type", "application/json")
	w := serve(t, router, r)

	require.Equal(t, http.StatusOK, w.Code)
	body := jsonBody(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Regexp(t, `^exec_[0-9a-f]{9}$`, body["execution_id"])
}

func TestContract_DemoLeaderboardSorted(t *testing.T) {
	router := newTestRouter(t, routerOpts{backendURL: down(t), ollamaURL: down(t), kestraURL: down(t)})

	w := serve(t, router, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 7)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1]["p_score"], rows[i]["p_score"])
	}
}

func TestContract_BackendHTMLPageIsTreatedAsOutage(t *testing.T) {
	htmlPage := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>Bad Gateway page</html>"))
	}
	u := newUpstreams(t, htmlPage, ok(`{}`), ok(`[]`))
	router := newTestRouter(t, routerOpts{backendURL: u.backend.URL, ollamaURL: u.ollama.URL, kestraURL: u.kestra.URL})

	w := serve(t, router, httptest.NewRequest(http.MethodGet, "/api/evaluate/batch/progress", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"is_running":false,"current":0,"total":0,"percentage":0}`, w.Body.String())

	w = serve(t, router, fileForm(t, "/api/evaluate", "resume", "cv.pdf", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Backend not available", jsonBody(t, w)["error"])

	// the root page still counts as a live backend for the status probe
	w = serve(t, router, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, jsonBody(t, w)["backend"])
}
