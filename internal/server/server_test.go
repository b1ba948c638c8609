package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"phobos.org.uk/fhgate/internal/config"
	"phobos.org.uk/fhgate/internal/gateway"
	"phobos.org.uk/fhgate/internal/logging"
	"phobos.org.uk/fhgate/internal/platform"
	"phobos.org.uk/fhgate/internal/testutil"
)

// newTestServer wires a server to a mock platform with fast polling.
func newTestServer(t *testing.T, mock *testutil.MockPlatform) (*Server, *logging.Logger) {
	t.Helper()

	cfg := config.Default()
	cfg.Platform.APIKey = "fh-test-key-12345"
	cfg.Platform.BaseURL = mock.URL()
	cfg.Platform.PollInterval = 100 * time.Millisecond
	cfg.Platform.Timeout = 2 * time.Second

	log := logging.New(logging.Config{Output: &bytes.Buffer{}, Level: logging.LevelDebug})

	client, err := platform.NewHTTPClient(platform.ClientConfig{
		BaseURL:      cfg.Platform.BaseURL,
		APIKey:       cfg.Platform.APIKey,
		PollInterval: cfg.Platform.PollInterval,
		Timeout:      cfg.Platform.Timeout,
		Logger:       log,
	})
	require.NoError(t, err)

	svc := gateway.NewService(client, log)
	return New(cfg, svc, "test-version", log), log
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockPlatform(t)
	srv, _ := newTestServer(t, mock)

	req := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"state":"running"`)
	require.Contains(t, w.Body.String(), `"version":"test-version"`)
	require.Contains(t, w.Body.String(), `"type":"gateway"`)
	require.Contains(t, w.Body.String(), `"fh-test-..."`)
	require.NotContains(t, w.Body.String(), "fh-test-key-12345", "full API key must never be echoed")
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing job_name",
			path:       "/v1/tasks",
			body:       `{"query": "q"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "job_name is required",
		},
		{
			name:       "invalid json",
			path:       "/v1/tasks",
			body:       `{invalid`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON",
		},
		{
			name:       "config missing job_name",
			path:       "/v1/tasks/config",
			body:       `{"query": "q"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "job_name is required",
		},
		{
			name:       "config negative max_steps",
			path:       "/v1/tasks/config",
			body:       `{"job_name": "crow", "max_steps": -1}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "max_steps must not be negative",
		},
		{
			name:       "continue missing previous task id",
			path:       "/v1/tasks/continue",
			body:       `{"job_name": "crow", "query": "q"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "previous_task_id is required",
		},
		{
			name:       "continue missing job_name",
			path:       "/v1/tasks/continue",
			body:       `{"previous_task_id": "t1", "query": "q"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "job_name is required",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := testutil.NewMockPlatform(t)
			srv, _ := newTestServer(t, mock)

			req := httptest.NewRequest("POST", tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			require.Contains(t, w.Body.String(), tt.wantError)
			require.Zero(t, mock.Polls(), "validation failures must not reach the platform")
		})
	}
}

func TestUnknownJobInBodyReturnsFailureEnvelope(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockPlatform(t)
	srv, _ := newTestServer(t, mock)

	req := httptest.NewRequest("POST", "/v1/tasks", strings.NewReader(`{"job_name": "raven", "query": "q"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	// In-band failure: HTTP 200 with success=false.
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"success":false`)
	require.Contains(t, w.Body.String(), "unknown job")
}

func TestUnknownJobInPathIs404(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockPlatform(t)
	srv, _ := newTestServer(t, mock)

	req := httptest.NewRequest("POST", "/v1/jobs/raven", strings.NewReader(`{"query": "q"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "unknown job")
}

func TestListJobsEndpoint(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockPlatform(t)
	srv, _ := newTestServer(t, mock)

	req := httptest.NewRequest("GET", "/v1/jobs", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"available_jobs":["crow","owl","falcon","phoenix"]`)
	require.Contains(t, w.Body.String(), `"count":4`)
}

func TestAgentConfigEndpoint(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockPlatform(t)
	srv, _ := newTestServer(t, mock)

	body := `{"agent_type": "ReActAgent", "temperature": 0.1, "agent_params": {"top_p": 0.9}}`
	req := httptest.NewRequest("POST", "/v1/agent-config", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"success":true`)
	require.Contains(t, w.Body.String(), `"agent_type":"ReActAgent"`)
	require.Contains(t, w.Body.String(), `"top_p":0.9`)
	require.Contains(t, w.Body.String(), "usage_example")
	require.Zero(t, mock.Polls(), "config creation must not reach the platform")

	// All fields optional: an empty body yields the default config.
	req = httptest.NewRequest("POST", "/v1/agent-config", strings.NewReader(`{}`))
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"agent_type":"SimpleAgent"`)
	require.Contains(t, w.Body.String(), `"model":"gpt-4o"`)
}

func TestSetLogLevelEndpoint(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockPlatform(t)
	srv, log := newTestServer(t, mock)

	req := httptest.NewRequest("PUT", "/logs/level", strings.NewReader(`{"level": "error"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"level":"error"`)

	// The new threshold takes effect immediately.
	before := log.Stats().Total
	log.Info("suppressed after level change")
	log.Error("still recorded")
	require.Equal(t, before+1, log.Stats().Total)

	req = httptest.NewRequest("PUT", "/logs/level", strings.NewReader(`{"level": "loud"}`))
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "level must be one of")
}

func TestLogsEndpoints(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockPlatform(t)
	srv, log := newTestServer(t, mock)

	log.Info("hello from test")
	log.WithTask("task-x").Warn("task scoped")

	req := httptest.NewRequest("GET", "/logs?task_id=task-x", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "task scoped")
	require.NotContains(t, w.Body.String(), "hello from test")

	req = httptest.NewRequest("GET", "/logs/stats", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"warn":1`)

	req = httptest.NewRequest("GET", "/logs?limit=bogus", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerStartAndShutdown(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockPlatform(t)

	cfg := config.Default()
	cfg.Bind = "127.0.0.1"
	cfg.Port = testutil.AllocateTestPort(t)
	cfg.Platform.APIKey = "fh-test-key"
	cfg.Platform.BaseURL = mock.URL()

	log := logging.New(logging.Config{Output: &bytes.Buffer{}})
	client, err := platform.NewHTTPClient(platform.ClientConfig{
		BaseURL: cfg.Platform.BaseURL,
		APIKey:  cfg.Platform.APIKey,
		Logger:  log,
	})
	require.NoError(t, err)

	srv := New(cfg, gateway.NewService(client, log), "test", log)
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)

	go srv.Start()
	testutil.WaitForHealthy(t, baseURL+"/status", 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	httpClient := &http.Client{Timeout: 200 * time.Millisecond}
	testutil.Eventually(t, 5*time.Second, func() bool {
		resp, err := httpClient.Get(baseURL + "/status")
		if resp != nil {
			resp.Body.Close()
		}
		return err != nil
	})
}

func TestKeyPreview(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", keyPreview(""))
	require.Equal(t, "...", keyPreview("short"))
	require.Equal(t, "fh-abcde...", keyPreview("fh-abcdefgh"))
}
