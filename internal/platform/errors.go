package platform

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned at construction time when no API key is
// available. There is no degraded mode without credentials.
var ErrMissingAPIKey = errors.New("FutureHouse API key is required (set FUTUREHOUSE_API_KEY or platform.api_key)")

// ExecutionError wraps any failure to obtain a terminal task result:
// submission rejection, polling failure, timeout, or an empty result set.
type ExecutionError struct {
	Op  string // "submit", "poll", "wait"
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
