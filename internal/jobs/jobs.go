// Package jobs defines the closed set of FutureHouse job identifiers.
package jobs

import (
	"fmt"
	"strings"
)

// Job identifies a FutureHouse agent profile.
type Job string

// Known jobs, in canonical lowercase form.
const (
	Crow    Job = "crow"    // concise scientific search
	Owl     Job = "owl"     // precedent search ("has anyone done X?")
	Falcon  Job = "falcon"  // deep literature review
	Phoenix Job = "phoenix" // chemistry tasks and compound design
)

// all lists every job in declaration order. List and FromString are driven
// from this slice so the ordering is stable across calls.
var all = []Job{Crow, Owl, Falcon, Phoenix}

// descriptions maps each job to a short human-readable summary.
var descriptions = map[Job]string{
	Crow:    "Concise search: ask a question of scientific data sources and get a cited, succinct answer",
	Owl:     "Precedent search: find out whether anyone has done something in science before",
	Falcon:  "Deep search: long-form literature reviews with many sources",
	Phoenix: "Chemistry: molecule design with synthesis-aware suggestions",
}

// UnknownJobError indicates a job name that is not in the registry.
type UnknownJobError struct {
	Name string
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("unknown job %q (available: %s)", e.Name, strings.Join(names(), ", "))
}

// FromString resolves a free-form name to a Job. Matching is
// case-insensitive but otherwise exact.
func FromString(name string) (Job, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	for _, j := range all {
		if string(j) == lowered {
			return j, nil
		}
	}
	return "", &UnknownJobError{Name: name}
}

// List returns all known jobs in a fixed order.
func List() []Job {
	out := make([]Job, len(all))
	copy(out, all)
	return out
}

// Description returns the human-readable summary for a job, or "" if the
// job is not known.
func Description(j Job) string {
	return descriptions[j]
}

func names() []string {
	out := make([]string, len(all))
	for i, j := range all {
		out[i] = string(j)
	}
	return out
}

// Names returns all known job names in the same order as List.
func Names() []string { return names() }
