// Package neos implements the NEOS Server XML-RPC channel.
//
// The channel exposes the four calls a submission needs (submitJob,
// getIntermediateResults, getJobStatus, getFinalResults) plus the read-only
// catalog queries used by `goneos solvers` and `goneos doctor`.
package neos

import "strconv"

// DefaultEndpoint is the public NEOS XML-RPC endpoint.
const DefaultEndpoint = "https://neos-server.org:3333"

// Handle identifies a submitted job. NEOS issues it once, at submission, and
// every later call about the job must present both values.
type Handle struct {
	JobNumber int    `json:"job_number"`
	Password  string `json:"-"`
}

// ID returns the job number as a string, for registry keys and logs.
func (h Handle) ID() string {
	return strconv.Itoa(h.JobNumber)
}

// Status is a job status string as reported by NEOS.
type Status string

// Status values with special meaning to the polling loop. NEOS may report
// others ("Unknown Job", "Bad Password", ...); all of them are terminal.
const (
	StatusWaiting Status = "Waiting"
	StatusRunning Status = "Running"
	StatusDone    Status = "Done"
)

// Active reports whether the job is still queued or executing.
func (s Status) Active() bool {
	return s == StatusWaiting || s == StatusRunning
}

// Done reports whether the job finished normally.
func (s Status) Done() bool {
	return s == StatusDone
}

// String returns the raw status text.
func (s Status) String() string {
	return string(s)
}
