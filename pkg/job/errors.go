package job

import (
	"errors"
	"fmt"
)

// ErrPollLimit indicates the configured poll ceiling was reached before
// the job finished.
var ErrPollLimit = errors.New("poll limit reached")

// Operation names carried by JobError.
const (
	OpSubmit       = "submit"
	OpPoll         = "poll"
	OpIntermediate = "intermediate_results"
	OpStatus       = "job_status"
	OpFinal        = "final_results"
)

// JobError wraps a failure during the job lifecycle.
type JobError struct {
	// JobNumber is zero when the failure happened before submission
	// was accepted.
	JobNumber int
	Op        string
	Err       error
}

func (e *JobError) Error() string {
	if e.JobNumber == 0 {
		return fmt.Sprintf("job %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("job %d %s: %v", e.JobNumber, e.Op, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// IsPollLimit reports whether err is caused by the poll ceiling.
func IsPollLimit(err error) bool {
	return errors.Is(err, ErrPollLimit)
}
