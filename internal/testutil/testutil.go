// Package testutil provides shared helpers for gateway tests, including a
// mock FutureHouse platform server.
package testutil

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// AllocateTestPort returns a deterministic port based on test name
func AllocateTestPort(t *testing.T) int {
	t.Helper()
	h := fnv.New32a()
	h.Write([]byte(t.Name()))
	return 10000 + int(h.Sum32()%10000)
}

// WaitForHealthy waits for a URL to return 200 OK
func WaitForHealthy(t *testing.T, url string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 500 * time.Millisecond}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("Service at %s did not become healthy within %v", url, timeout)
}

// Eventually retries a condition until it returns true or timeout expires
func Eventually(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("Condition did not become true within timeout")
}

// MockRecord is one polled task observation served by the mock platform.
type MockRecord struct {
	Status          string `json:"status"`
	Answer          string `json:"answer,omitempty"`
	FormattedAnswer string `json:"formatted_answer,omitempty"`
	TaskID          string `json:"task_id,omitempty"` // defaults to the minted id
}

// MockPlatform simulates the FutureHouse task API: POST /v1/tasks mints a
// task id, GET /v1/tasks/{id} serves the configured records in order,
// repeating the last one once exhausted.
type MockPlatform struct {
	Server *httptest.Server

	mu         sync.Mutex
	records    []MockRecord
	polls      int
	submits    []map[string]any
	nextTaskID string
	rejectCode int
}

// NewMockPlatform starts a mock platform that walks through records on
// successive polls. The server is closed automatically at test cleanup.
func NewMockPlatform(t *testing.T, records ...MockRecord) *MockPlatform {
	t.Helper()

	m := &MockPlatform{records: records, nextTaskID: "task-mock-1"}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tasks", m.handleSubmit)
	mux.HandleFunc("/v1/tasks/", m.handlePoll)
	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Server.Close)
	return m
}

// URL returns the mock platform's base URL.
func (m *MockPlatform) URL() string { return m.Server.URL }

// SetTaskID overrides the task id minted for the next submission.
func (m *MockPlatform) SetTaskID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTaskID = id
}

// RejectSubmits makes the mock return the given HTTP status for submissions.
func (m *MockPlatform) RejectSubmits(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectCode = code
}

// Submissions returns the decoded bodies of all task submissions received.
func (m *MockPlatform) Submissions() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, len(m.submits))
	copy(out, m.submits)
	return out
}

// Polls returns how many status polls the mock has served.
func (m *MockPlatform) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

func (m *MockPlatform) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rejectCode != 0 {
		http.Error(w, "rejected by mock", m.rejectCode)
		return
	}

	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	m.submits = append(m.submits, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, `{"task_id":%q}`, m.nextTaskID)
}

func (m *MockPlatform) handlePoll(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	taskID := strings.TrimPrefix(r.URL.Path, "/v1/tasks/")

	if len(m.records) == 0 {
		http.Error(w, "no such task", http.StatusNotFound)
		return
	}

	idx := m.polls
	if idx >= len(m.records) {
		idx = len(m.records) - 1
	}
	m.polls++

	record := m.records[idx]
	if record.TaskID == "" {
		record.TaskID = taskID
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}
