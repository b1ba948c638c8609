// Package platform provides the client boundary to the FutureHouse
// task-execution platform: request/record types, the Client contract, and
// an HTTP implementation that submits a task and waits for its terminal
// state.
package platform

import (
	"phobos.org.uk/fhgate/internal/jobs"
)

// RuntimeConfig carries optional per-task execution settings.
//
// ContinuedTaskID and the agent settings are mutually exclusive: a
// continuation carries the prior task's configuration forward on the
// platform side, so when ContinuedTaskID is set the agent fields are not
// sent. Builders in internal/gateway never populate both.
type RuntimeConfig struct {
	AgentType       string
	AgentParams     map[string]any
	MaxSteps        int
	ContinuedTaskID string
}

// TaskRequest describes one task submission.
type TaskRequest struct {
	Job     jobs.Job
	Query   string
	Runtime *RuntimeConfig
}

// TaskRecord is one observation of a task as reported by the platform.
// Answer and FormattedAnswer are the two possible answer-bearing fields;
// either, both, or neither may be populated.
type TaskRecord struct {
	TaskID          string `json:"task_id"`
	Status          string `json:"status"`
	Answer          string `json:"answer,omitempty"`
	FormattedAnswer string `json:"formatted_answer,omitempty"`
}

// submitPayload is the wire shape for task submission.
type submitPayload struct {
	Name          string         `json:"name"`
	Query         string         `json:"query"`
	RuntimeConfig map[string]any `json:"runtime_config,omitempty"`
}

// wirePayload converts a TaskRequest to the platform's submission format.
func wirePayload(req TaskRequest) submitPayload {
	p := submitPayload{
		Name:  string(req.Job),
		Query: req.Query,
	}

	rt := req.Runtime
	if rt == nil {
		return p
	}

	rc := map[string]any{}
	if rt.ContinuedTaskID != "" {
		// Continuations reference the prior task only; the platform reuses
		// that task's agent configuration.
		rc["continued_job_id"] = rt.ContinuedTaskID
	} else {
		if rt.AgentType != "" || len(rt.AgentParams) > 0 {
			rc["agent"] = map[string]any{
				"agent_type":   rt.AgentType,
				"agent_kwargs": rt.AgentParams,
			}
		}
		if rt.MaxSteps > 0 {
			rc["max_steps"] = rt.MaxSteps
		}
	}
	if len(rc) > 0 {
		p.RuntimeConfig = rc
	}
	return p
}
