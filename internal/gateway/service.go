package gateway

import (
	"context"
	"fmt"

	"phobos.org.uk/fhgate/internal/jobs"
	"phobos.org.uk/fhgate/internal/logging"
	"phobos.org.uk/fhgate/internal/platform"
)

// Service implements the dispatch operations. It holds no mutable state;
// concurrent dispatches share the one platform client, which is the only
// component touching an external resource.
type Service struct {
	client platform.Client
	log    *logging.Logger
}

// NewService creates a dispatch service around a platform client.
func NewService(client platform.Client, log *logging.Logger) *Service {
	if log == nil {
		log = logging.New(logging.Config{Component: "gateway"})
	}
	return &Service{client: client, log: log}
}

// SubmitConfig carries the runtime configuration arguments for
// SubmitWithConfig. ExtraParams are merged over {model, temperature} when
// building the agent parameter set; extras win on collision.
type SubmitConfig struct {
	AgentType   string
	Model       string
	Temperature float64
	MaxSteps    int
	ExtraParams map[string]any
}

// Defaults applied by SubmitWithConfig when fields are zero.
const (
	DefaultAgentType = "SimpleAgent"
	DefaultModel     = "gpt-4o"
	DefaultMaxSteps  = 10
)

// Submit runs a query against a job and waits for the terminal result.
func (s *Service) Submit(ctx context.Context, jobName, query string) Result {
	job, err := jobs.FromString(jobName)
	if err != nil {
		return failureResult(err, jobName, query,
			fmt.Sprintf("Failed to submit task: %v", err), nil)
	}

	s.log.Info("submitting task", map[string]any{
		"job_name": string(job),
		"query":    preview(query),
	})

	record, err := s.run(ctx, buildSimple(job, query))
	if err != nil {
		return failureResult(err, jobName, query,
			fmt.Sprintf("Failed to submit task: %v", err), nil)
	}
	return successResult(record, jobName, query,
		fmt.Sprintf("Task completed successfully with status: %s", record.Status), nil)
}

// SubmitWithConfig runs a query with caller-supplied runtime configuration.
// The echoed config in the result reflects the raw arguments; the merged
// agent parameter set is reported separately under agent_params and is the
// one actually sent to the platform.
func (s *Service) SubmitWithConfig(ctx context.Context, jobName, query string, cfg SubmitConfig) Result {
	if cfg.AgentType == "" {
		cfg.AgentType = DefaultAgentType
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}

	job, err := jobs.FromString(jobName)
	if err != nil {
		return failureResult(err, jobName, query,
			fmt.Sprintf("Failed to submit task with config: %v", err), nil)
	}

	req, merged := buildWithConfig(job, query, cfg.AgentType, cfg.Model, cfg.Temperature, cfg.MaxSteps, cfg.ExtraParams)

	s.log.Info("submitting task with config", map[string]any{
		"job_name":   string(job),
		"agent_type": cfg.AgentType,
		"model":      cfg.Model,
	})

	echo := map[string]any{
		"config": map[string]any{
			"agent_type":   cfg.AgentType,
			"model":        cfg.Model,
			"temperature":  cfg.Temperature,
			"max_steps":    cfg.MaxSteps,
			"agent_params": merged,
		},
	}

	record, err := s.run(ctx, req)
	if err != nil {
		return failureResult(err, jobName, query,
			fmt.Sprintf("Failed to submit task with config: %v", err), nil)
	}
	return successResult(record, jobName, query,
		fmt.Sprintf("Task completed successfully with custom config. Status: %s", record.Status), echo)
}

// ContinueTask submits a follow-up query against the context of a prior
// task. The previous task id is echoed verbatim in the result data on both
// paths. A terminal record reusing the previous task id is a soft anomaly:
// the platform is expected to mint a new id per continuation, so it is
// surfaced as a warning, not a failure.
func (s *Service) ContinueTask(ctx context.Context, previousTaskID, query, jobName string) Result {
	echo := map[string]any{"previous_task_id": previousTaskID}

	job, err := jobs.FromString(jobName)
	if err != nil {
		return failureResult(err, jobName, query,
			fmt.Sprintf("Failed to continue task: %v", err), echo)
	}

	s.log.WithTask(previousTaskID).Info("continuing task", map[string]any{
		"job_name": string(job),
		"query":    preview(query),
	})

	record, err := s.run(ctx, buildContinuation(job, query, previousTaskID))
	if err != nil {
		return failureResult(err, jobName, query,
			fmt.Sprintf("Failed to continue task: %v", err), echo)
	}

	if record.TaskID == previousTaskID {
		s.log.WithTask(previousTaskID).Warn("continuation returned the same task id", map[string]any{
			"job_name": string(job),
		})
		echo["warning"] = "platform returned the continued task's id instead of minting a new one"
	}

	return successResult(record, jobName, query,
		fmt.Sprintf("Continued task completed successfully. Status: %s", record.Status), echo)
}

// CreateAgentConfig builds the merged agent configuration without
// submitting a task, so callers can inspect the exact parameter set a
// config submission would send. Like ListJobs it has no failure path.
func (s *Service) CreateAgentConfig(cfg SubmitConfig) Result {
	if cfg.AgentType == "" {
		cfg.AgentType = DefaultAgentType
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	merged := mergeAgentParams(cfg.Model, cfg.Temperature, cfg.ExtraParams)

	return Result{
		Success: true,
		Message: fmt.Sprintf("Agent configuration created successfully for %s with model %s", cfg.AgentType, cfg.Model),
		Data: map[string]any{
			"agent_config": map[string]any{
				"agent_type":   cfg.AgentType,
				"agent_kwargs": merged,
			},
			"usage_example": map[string]any{
				"description": "Pass these settings in the body of POST /v1/tasks/config",
				"example": map[string]any{
					"job_name":     "crow",
					"query":        "your question",
					"agent_type":   cfg.AgentType,
					"model":        cfg.Model,
					"temperature":  cfg.Temperature,
					"max_steps":    DefaultMaxSteps,
					"agent_params": cfg.ExtraParams,
				},
			},
		},
	}
}

// ListJobs reports the closed set of available jobs. There is no failure
// path: the registry is fixed at build time.
func (s *Service) ListJobs() Result {
	available := jobs.Names()
	descriptions := make(map[string]string, len(available))
	for _, j := range jobs.List() {
		descriptions[string(j)] = jobs.Description(j)
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("Found %d available jobs", len(available)),
		Data: map[string]any{
			"available_jobs": available,
			"count":          len(available),
			"descriptions":   descriptions,
		},
	}
}

// SubmitCrow submits a concise scientific search query.
func (s *Service) SubmitCrow(ctx context.Context, query string) Result {
	return s.Submit(ctx, string(jobs.Crow), query)
}

// SubmitOwl submits a precedent search query.
func (s *Service) SubmitOwl(ctx context.Context, query string) Result {
	return s.Submit(ctx, string(jobs.Owl), query)
}

// SubmitFalcon submits a deep literature review query.
func (s *Service) SubmitFalcon(ctx context.Context, query string) Result {
	return s.Submit(ctx, string(jobs.Falcon), query)
}

// SubmitPhoenix submits a chemistry query. The success data additionally
// exposes the answer under "compounds", since PHOENIX responses carry
// compound suggestions in SMILES notation.
func (s *Service) SubmitPhoenix(ctx context.Context, query string) Result {
	s.log.Info("submitting phoenix task", map[string]any{"query": preview(query)})

	record, err := s.run(ctx, buildSimple(jobs.Phoenix, query))
	if err != nil {
		return failureResult(err, string(jobs.Phoenix), query,
			fmt.Sprintf("Failed to submit PHOENIX request: %v", err), nil)
	}
	return successResult(record, string(jobs.Phoenix), query,
		fmt.Sprintf("PHOENIX task completed successfully with status: %s", record.Status),
		map[string]any{"compounds": answerOf(record)})
}

// run performs the single remote attempt and selects the authoritative
// terminal record. At most one platform call happens per dispatch; retry
// policy, if wanted, belongs to the caller.
func (s *Service) run(ctx context.Context, req platform.TaskRequest) (platform.TaskRecord, error) {
	records, err := s.client.RunUntilDone(ctx, req)
	if err != nil {
		s.log.Error("platform execution failed", map[string]any{
			"job_name": string(req.Job),
			"error":    err.Error(),
		})
		return platform.TaskRecord{}, err
	}
	if len(records) == 0 {
		// The client contract promises a non-empty slice; an empty one is an
		// error condition, not a valid "no result" state.
		err := &platform.ExecutionError{Op: "wait", Err: fmt.Errorf("no task records returned")}
		s.log.Error("platform returned no records", map[string]any{"job_name": string(req.Job)})
		return platform.TaskRecord{}, err
	}
	// Earlier records are superseded observations; only the last one counts.
	return records[len(records)-1], nil
}

func preview(query string) string {
	if len(query) > 100 {
		return query[:100] + "..."
	}
	return query
}
