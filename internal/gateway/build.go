package gateway

import (
	"phobos.org.uk/fhgate/internal/jobs"
	"phobos.org.uk/fhgate/internal/platform"
)

// buildSimple constructs a plain task request with no runtime settings.
// The query is forwarded as given: empty queries are the platform's problem
// to reject, not ours (it has been observed to answer them).
func buildSimple(job jobs.Job, query string) platform.TaskRequest {
	return platform.TaskRequest{Job: job, Query: query}
}

// mergeAgentParams builds the agent parameter set: {model, temperature}
// with extras merged on top, extras winning on key collision.
func mergeAgentParams(model string, temperature float64, extra map[string]any) map[string]any {
	params := map[string]any{
		"model":       model,
		"temperature": temperature,
	}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

// buildWithConfig constructs a task request carrying runtime configuration.
// The merged map is returned so callers can echo it independently of the
// raw arguments.
func buildWithConfig(job jobs.Job, query, agentType, model string, temperature float64, maxSteps int, extra map[string]any) (platform.TaskRequest, map[string]any) {
	params := mergeAgentParams(model, temperature, extra)

	req := platform.TaskRequest{
		Job:   job,
		Query: query,
		Runtime: &platform.RuntimeConfig{
			AgentType:   agentType,
			AgentParams: params,
			MaxSteps:    maxSteps,
		},
	}
	return req, params
}

// buildContinuation constructs a follow-up request against a prior task.
// Runtime settings are deliberately absent: the platform carries the
// continued task's configuration forward, and this layer documents that
// mutual exclusion rather than guessing at a merge.
func buildContinuation(job jobs.Job, query, previousTaskID string) platform.TaskRequest {
	return platform.TaskRequest{
		Job:   job,
		Query: query,
		Runtime: &platform.RuntimeConfig{
			ContinuedTaskID: previousTaskID,
		},
	}
}
