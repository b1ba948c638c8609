// Package server exposes the gateway's dispatch operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"phobos.org.uk/fhgate/internal/api"
	"phobos.org.uk/fhgate/internal/config"
	"phobos.org.uk/fhgate/internal/gateway"
	"phobos.org.uk/fhgate/internal/jobs"
	"phobos.org.uk/fhgate/internal/logging"
)

// Server is the gateway HTTP server.
type Server struct {
	config    *config.Config
	service   *gateway.Service
	version   string
	startTime time.Time
	log       *logging.Logger

	server *http.Server
}

// New creates a gateway server around a dispatch service.
func New(cfg *config.Config, svc *gateway.Service, version string, log *logging.Logger) *Server {
	if log == nil {
		log = logging.New(logging.Config{
			Component: "server",
			Level:     logging.ParseLevel(cfg.LogLevel),
		})
	}
	return &Server{
		config:    cfg,
		service:   svc,
		version:   version,
		startTime: time.Now(),
		log:       log,
	}
}

// Router returns the HTTP router
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/status", s.handleStatus)

	r.Get("/v1/jobs", s.handleListJobs)
	r.Post("/v1/jobs/{job}", s.handleJobDispatch)
	r.Post("/v1/tasks", s.handleSubmit)
	r.Post("/v1/tasks/config", s.handleSubmitWithConfig)
	r.Post("/v1/tasks/continue", s.handleContinue)
	r.Post("/v1/agent-config", s.handleCreateAgentConfig)

	// Logging endpoints
	r.Get("/logs", s.handleLogs)
	r.Get("/logs/stats", s.handleLogStats)
	r.Put("/logs/level", s.handleSetLogLevel)

	return r
}

// Start starts the gateway server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	s.log.Info("gateway starting", map[string]any{
		"addr":     addr,
		"version":  s.version,
		"base_url": s.config.Platform.BaseURL,
	})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleStatus returns the gateway's version, uptime, and config snapshot.
// The API key is never echoed beyond a short prefix.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"type":           api.TypeGateway,
		"interfaces":     []string{api.InterfaceStatusable, api.InterfaceTaskable, api.InterfaceObservable},
		"version":        s.version,
		"state":          "running",
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"config": map[string]any{
			"port":     s.config.Port,
			"base_url": s.config.Platform.BaseURL,
			"api_key":  keyPreview(s.config.ResolveAPIKey()),
		},
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, s.service.ListJobs())
}

// submitRequest is the body for POST /v1/tasks.
type submitRequest struct {
	JobName string `json:"job_name"`
	Query   string `json:"query"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "Invalid JSON: "+err.Error())
		return
	}
	if req.JobName == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "job_name is required")
		return
	}

	api.WriteJSON(w, http.StatusOK, s.service.Submit(r.Context(), req.JobName, req.Query))
}

// submitConfigRequest is the body for POST /v1/tasks/config.
type submitConfigRequest struct {
	JobName     string         `json:"job_name"`
	Query       string         `json:"query"`
	AgentType   string         `json:"agent_type,omitempty"`
	Model       string         `json:"model,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxSteps    int            `json:"max_steps,omitempty"`
	AgentParams map[string]any `json:"agent_params,omitempty"`
}

func (s *Server) handleSubmitWithConfig(w http.ResponseWriter, r *http.Request) {
	var req submitConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "Invalid JSON: "+err.Error())
		return
	}
	if req.JobName == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "job_name is required")
		return
	}
	if req.MaxSteps < 0 {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "max_steps must not be negative")
		return
	}

	result := s.service.SubmitWithConfig(r.Context(), req.JobName, req.Query, gateway.SubmitConfig{
		AgentType:   req.AgentType,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxSteps:    req.MaxSteps,
		ExtraParams: req.AgentParams,
	})
	api.WriteJSON(w, http.StatusOK, result)
}

// continueRequest is the body for POST /v1/tasks/continue.
type continueRequest struct {
	PreviousTaskID string `json:"previous_task_id"`
	Query          string `json:"query"`
	JobName        string `json:"job_name"`
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	var req continueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "Invalid JSON: "+err.Error())
		return
	}
	if req.PreviousTaskID == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "previous_task_id is required")
		return
	}
	if req.JobName == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "job_name is required")
		return
	}

	api.WriteJSON(w, http.StatusOK, s.service.ContinueTask(r.Context(), req.PreviousTaskID, req.Query, req.JobName))
}

// agentConfigRequest is the body for POST /v1/agent-config. Every field is
// optional; defaults match the config submission defaults.
type agentConfigRequest struct {
	AgentType   string         `json:"agent_type,omitempty"`
	Model       string         `json:"model,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	AgentParams map[string]any `json:"agent_params,omitempty"`
}

// handleCreateAgentConfig builds and returns the merged agent configuration
// without submitting a task.
func (s *Server) handleCreateAgentConfig(w http.ResponseWriter, r *http.Request) {
	var req agentConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "Invalid JSON: "+err.Error())
		return
	}

	result := s.service.CreateAgentConfig(gateway.SubmitConfig{
		AgentType:   req.AgentType,
		Model:       req.Model,
		Temperature: req.Temperature,
		ExtraParams: req.AgentParams,
	})
	api.WriteJSON(w, http.StatusOK, result)
}

// handleJobDispatch routes POST /v1/jobs/{job} to the per-job convenience
// dispatch. Unknown jobs in the path are a routing error (404), unlike the
// body-supplied job names which fail in-band.
func (s *Server) handleJobDispatch(w http.ResponseWriter, r *http.Request) {
	job, err := jobs.FromString(chi.URLParam(r, "job"))
	if err != nil {
		api.WriteError(w, http.StatusNotFound, api.ErrorNotFound, err.Error())
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "Invalid JSON: "+err.Error())
		return
	}

	var result gateway.Result
	switch job {
	case jobs.Phoenix:
		result = s.service.SubmitPhoenix(r.Context(), req.Query)
	default:
		result = s.service.Submit(r.Context(), string(job), req.Query)
	}
	api.WriteJSON(w, http.StatusOK, result)
}

// handleLogs returns filtered log entries from the in-memory store.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := api.ParseIntParam(r.URL.Query().Get("limit"), 1, 1000, 100)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "limit "+err.Error())
		return
	}

	q := logging.Query{
		Level:  logging.Level(r.URL.Query().Get("level")),
		TaskID: r.URL.Query().Get("task_id"),
		Limit:  limit,
	}
	api.WriteJSON(w, http.StatusOK, s.log.Query(q))
}

func (s *Server) handleLogStats(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, s.log.Stats())
}

// handleSetLogLevel changes the minimum log level at runtime.
func (s *Server) handleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level string `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "Invalid JSON: "+err.Error())
		return
	}

	switch logging.Level(req.Level) {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		api.WriteError(w, http.StatusBadRequest, api.ErrorValidation, "level must be one of debug, info, warn, error")
		return
	}

	s.log.SetLevel(logging.Level(req.Level))
	api.WriteJSON(w, http.StatusOK, map[string]string{"level": req.Level})
}

func keyPreview(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "..."
	}
	return key[:8] + "..."
}
