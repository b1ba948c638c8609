package gateway

import (
	"phobos.org.uk/fhgate/internal/platform"
)

// answerOf extracts the answer from a task record. Answer wins over
// FormattedAnswer when both are set; a record with neither yields "".
// This is a strict priority order, not a merge.
func answerOf(record platform.TaskRecord) string {
	if record.Answer != "" {
		return record.Answer
	}
	if record.FormattedAnswer != "" {
		return record.FormattedAnswer
	}
	return ""
}

// successResult builds the success envelope from the authoritative terminal
// record. Data always carries task_id, status, answer, job_name and query;
// extra entries are merged on top.
func successResult(record platform.TaskRecord, jobName, query, message string, extra map[string]any) Result {
	data := map[string]any{
		"task_id":  nilIfEmpty(record.TaskID),
		"status":   record.Status,
		"answer":   answerOf(record),
		"job_name": jobName,
		"query":    query,
	}
	for k, v := range extra {
		data[k] = v
	}
	return Result{
		Success: true,
		Message: message,
		TaskID:  strptr(record.TaskID),
		Status:  strptr(record.Status),
		Data:    data,
	}
}

// failureResult builds the failure envelope. No partial data from a failed
// remote call is surfaced: data carries only the error text, the job name
// and the query (plus extras), and the top-level task id and status stay
// null.
func failureResult(err error, jobName, query, message string, extra map[string]any) Result {
	data := map[string]any{
		"error":    err.Error(),
		"job_name": jobName,
		"query":    query,
	}
	for k, v := range extra {
		data[k] = v
	}
	return Result{
		Success: false,
		Message: message,
		Data:    data,
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
