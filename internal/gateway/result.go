// Package gateway implements the dispatch operations exposed by the
// FutureHouse gateway: build a task request, run it on the platform, and
// normalize the outcome into one uniform result envelope.
package gateway

// Result is the uniform envelope returned by every dispatch operation, on
// both success and failure. Callers never receive a raised error from an
// operation; failures are reported in-band with Success=false.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	TaskID  *string        `json:"task_id"`
	Status  *string        `json:"status"`
	Data    map[string]any `json:"data"`
}

func strptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
