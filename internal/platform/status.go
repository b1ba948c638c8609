package platform

import "strings"

// Terminal status values reported by the platform, in their canonical
// spellings.
const (
	StatusSuccess   = "success"
	StatusFail      = "fail"
	StatusCancelled = "cancelled"
)

// IsTerminal reports whether a status marks the end of a task's lifecycle.
// The platform has reported several spellings for terminal states across
// job types, so matching is case-insensitive and covers the known variants.
func IsTerminal(status string) bool {
	switch strings.ToLower(status) {
	case StatusSuccess, "completed", StatusFail, "failed", "error", StatusCancelled:
		return true
	}
	return false
}

// IsSuccess reports whether a terminal status indicates a completed task.
func IsSuccess(status string) bool {
	switch strings.ToLower(status) {
	case StatusSuccess, "completed":
		return true
	}
	return false
}
