// Package jobregistry records submitted NEOS jobs on local disk so they can
// be inspected, resumed, and cleaned up after the submitting process exits.
package jobregistry

import (
	"time"

	"github.com/3leaps/goneos/pkg/neos"
)

// JobState is the local lifecycle state of a recorded job.
//
// NOTE: These values are persisted in job.json and are part of the stable
// on-disk contract.
type JobState string

const (
	JobStateSubmitted   JobState = "submitted"
	JobStateWaiting     JobState = "waiting"
	JobStateRunning     JobState = "running"
	JobStateDone        JobState = "done"
	JobStateFailed      JobState = "failed"
	JobStateInterrupted JobState = "interrupted"
)

// Terminal reports whether the remote job has finished, successfully or not.
func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStateFailed
}

// StateFromStatus maps a NEOS status to a local state.
func StateFromStatus(status neos.Status) JobState {
	switch status {
	case neos.StatusWaiting:
		return JobStateWaiting
	case neos.StatusRunning:
		return JobStateRunning
	case neos.StatusDone:
		return JobStateDone
	default:
		return JobStateFailed
	}
}

// JobRecord is the persistent record written to job.json.
//
// The password is the only credential for the remote job, so job.json is
// written with owner-only permissions.
type JobRecord struct {
	JobNumber int      `json:"job_number"`
	Password  string   `json:"password,omitempty"`
	Endpoint  string   `json:"endpoint"`
	State     JobState `json:"state"`

	// Status is the last status reported by NEOS.
	Status string `json:"neos_status,omitempty"`

	Category string `json:"category"`
	Solver   string `json:"solver"`
	Email    string `json:"email,omitempty"`
	Mode     string `json:"mode,omitempty"`

	RunPath      string   `json:"run_path,omitempty"`
	ModelPaths   []string `json:"model_paths,omitempty"`
	DataPaths    []string `json:"data_paths,omitempty"`
	ManifestPath string   `json:"manifest_path,omitempty"`
	ArchiveURI   string   `json:"archive_uri,omitempty"`

	RunID  string `json:"run_id,omitempty"`
	Polls  int    `json:"polls,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Error  string `json:"error,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Handle returns the remote credential pair.
func (r *JobRecord) Handle() neos.Handle {
	return neos.Handle{JobNumber: r.JobNumber, Password: r.Password}
}

// Touch sets UpdatedAt, and EndedAt once the state is terminal.
func (r *JobRecord) Touch(now time.Time) {
	now = now.UTC()
	r.UpdatedAt = &now
	if r.State.Terminal() && r.EndedAt == nil {
		r.EndedAt = &now
	}
}
