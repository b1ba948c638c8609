package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"phobos.org.uk/fhgate/internal/logging"
)

// Client is the one operation the gateway requires from the platform:
// submit a task request and block until it reaches a terminal state.
//
// On success the returned slice is non-empty and ordered; the last element
// is the authoritative terminal record, earlier elements are superseded
// intermediate observations. Implementations must be safe for concurrent
// use: the gateway shares one client across overlapping dispatches.
type Client interface {
	RunUntilDone(ctx context.Context, req TaskRequest) ([]TaskRecord, error)
}

// ClientConfig configures the HTTP platform client.
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration // default 2s
	Timeout      time.Duration // overall wait deadline, default 10m
	HTTPClient   *http.Client  // default: 30s per-request timeout
	Logger       *logging.Logger
}

// Defaults for the HTTP client.
const (
	DefaultBaseURL      = "https://api.platform.futurehouse.org"
	DefaultPollInterval = 2 * time.Second
	DefaultWaitTimeout  = 10 * time.Minute
)

// HTTPClient talks to the FutureHouse platform REST API: one POST to
// create the task, then polling until the task reports a terminal status.
type HTTPClient struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
	timeout      time.Duration
	log          *logging.Logger
}

// NewHTTPClient creates a platform client. Returns ErrMissingAPIKey when no
// credential is configured; there is no unauthenticated mode.
func NewHTTPClient(cfg ClientConfig) (*HTTPClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWaitTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New(logging.Config{Component: "platform"})
	}
	return &HTTPClient{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		client:       cfg.HTTPClient,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		log:          cfg.Logger,
	}, nil
}

// RunUntilDone submits the request and polls until the task is terminal.
// Every distinct observation is recorded so the final record is last.
func (c *HTTPClient) RunUntilDone(ctx context.Context, req TaskRequest) ([]TaskRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	taskID, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	log := c.log.WithTask(taskID)
	log.Info("task submitted", map[string]any{"job_name": string(req.Job)})

	var records []TaskRecord
	lastStatus := ""

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Warn("gave up waiting for terminal state", map[string]any{
				"last_status": lastStatus,
			})
			return nil, &ExecutionError{Op: "wait", Err: ctx.Err()}
		case <-ticker.C:
			record, err := c.fetch(ctx, taskID)
			if err != nil {
				// Transient poll failures are retried until the deadline.
				log.Debug("poll failed, retrying", map[string]any{"error": err.Error()})
				continue
			}
			if record.Status != lastStatus {
				records = append(records, record)
				lastStatus = record.Status
			}
			if IsTerminal(record.Status) {
				if IsSuccess(record.Status) {
					log.Info("task reached terminal state", map[string]any{
						"status": record.Status,
					})
				} else {
					log.Warn("task finished unsuccessfully", map[string]any{
						"status": record.Status,
					})
				}
				return records, nil
			}
		}
	}
}

func (c *HTTPClient) submit(ctx context.Context, req TaskRequest) (string, error) {
	body, err := json.Marshal(wirePayload(req))
	if err != nil {
		return "", &ExecutionError{Op: "submit", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks", bytes.NewReader(body))
	if err != nil {
		return "", &ExecutionError{Op: "submit", Err: err}
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &ExecutionError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", &ExecutionError{
			Op:  "submit",
			Err: fmt.Errorf("platform returned status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var created struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", &ExecutionError{Op: "submit", Err: fmt.Errorf("parsing submit response: %w", err)}
	}
	if created.TaskID == "" {
		return "", &ExecutionError{Op: "submit", Err: fmt.Errorf("platform accepted the task but returned no task_id")}
	}
	return created.TaskID, nil
}

func (c *HTTPClient) fetch(ctx context.Context, taskID string) (TaskRecord, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/tasks/"+taskID, nil)
	if err != nil {
		return TaskRecord{}, err
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return TaskRecord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TaskRecord{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var record TaskRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return TaskRecord{}, fmt.Errorf("parsing task record: %w", err)
	}
	if record.TaskID == "" {
		record.TaskID = taskID
	}
	return record, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
}
