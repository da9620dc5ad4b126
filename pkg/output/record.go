// Package output emits job lifecycle records.
//
// Two encodings are provided. JSONLWriter writes typed record envelopes,
// one JSON object per line, for machine consumers. TextWriter mirrors the
// classic NEOS client: progress on stderr, streamed solver output on
// stderr, final results on stdout.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: goneos.<type>.v<version>
const (
	// TypeSubmitted identifies job submission records.
	TypeSubmitted = "goneos.submitted.v1"

	// TypeStatus identifies job status records, one per status query.
	TypeStatus = "goneos.status.v1"

	// TypeChunk identifies intermediate output records.
	TypeChunk = "goneos.chunk.v1"

	// TypeResult identifies final result records.
	TypeResult = "goneos.result.v1"

	// TypeError identifies error records.
	TypeError = "goneos.error.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "goneos.status.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// RunID is the correlation ID for this invocation.
	RunID string `json:"run_id"`

	// Endpoint is the NEOS endpoint the job was sent to.
	Endpoint string `json:"endpoint"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// SubmittedRecord is emitted once NEOS has accepted a document.
type SubmittedRecord struct {
	JobNumber     int    `json:"job_number"`
	Category      string `json:"category,omitempty"`
	Solver        string `json:"solver,omitempty"`
	DocumentBytes int    `json:"document_bytes"`
}

// StatusRecord is emitted after each status query.
type StatusRecord struct {
	JobNumber int    `json:"job_number"`
	Status    string `json:"status"`

	// Poll is the 1-based polling iteration that produced this status.
	Poll int `json:"poll"`

	// Offset is the intermediate output cursor after this iteration.
	Offset int `json:"offset"`
}

// ChunkRecord carries intermediate solver output.
type ChunkRecord struct {
	JobNumber int    `json:"job_number"`
	Offset    int    `json:"offset"`
	Data      string `json:"data"`
}

// ResultRecord carries the final job output.
type ResultRecord struct {
	JobNumber int           `json:"job_number"`
	Status    string        `json:"status"`
	Polls     int           `json:"polls"`
	Duration  time.Duration `json:"duration_ns"`
	Output    string        `json:"output"`
}

// ErrorRecord is the data payload for errors.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// JobNumber is the job the error relates to, if one was issued.
	JobNumber int `json:"job_number,omitempty"`

	// Path is the source file related to this error, if applicable.
	Path string `json:"path,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeCyclicInclude indicates an include cycle.
	ErrCodeCyclicInclude = "CYCLIC_INCLUDE"

	// ErrCodeFileAccess indicates a source file could not be read.
	ErrCodeFileAccess = "FILE_ACCESS"

	// ErrCodeMalformedDirective indicates a directive without a path.
	ErrCodeMalformedDirective = "MALFORMED_DIRECTIVE"

	// ErrCodeRemoteRejection indicates NEOS refused a call.
	ErrCodeRemoteRejection = "REMOTE_REJECTION"

	// ErrCodeTransport indicates the NEOS channel failed.
	ErrCodeTransport = "TRANSPORT"

	// ErrCodePollLimit indicates the configured poll ceiling was reached.
	ErrCodePollLimit = "POLL_LIMIT"

	// ErrCodeCancelled indicates the wait was interrupted.
	ErrCodeCancelled = "CANCELLED"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
