package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer receives job lifecycle records.
//
// Implementations must be safe for concurrent use from multiple
// goroutines.
type Writer interface {
	// WriteSubmitted emits a submission record.
	WriteSubmitted(ctx context.Context, sub *SubmittedRecord) error

	// WriteStatus emits a status record.
	WriteStatus(ctx context.Context, st *StatusRecord) error

	// WriteChunk emits intermediate solver output.
	WriteChunk(ctx context.Context, chunk *ChunkRecord) error

	// WriteResult emits the final job output.
	WriteResult(ctx context.Context, res *ResultRecord) error

	// WriteError emits an error record.
	WriteError(ctx context.Context, err *ErrorRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// JSONLWriter is safe for concurrent use. Writes are serialized using
// a mutex to ensure atomic line writes (no interleaved output).
type JSONLWriter struct {
	w        io.Writer
	runID    string
	endpoint string
	mu       sync.Mutex

	// closed indicates the writer has been closed.
	closed bool
}

// NewJSONLWriter creates a new JSONL writer.
//
// Parameters:
//   - w: The underlying writer (stdout, file, etc.)
//   - runID: Correlation ID for this invocation
//   - endpoint: NEOS endpoint the job talks to
func NewJSONLWriter(w io.Writer, runID, endpoint string) *JSONLWriter {
	return &JSONLWriter{
		w:        w,
		runID:    runID,
		endpoint: endpoint,
	}
}

// WriteSubmitted emits a submission record.
func (jw *JSONLWriter) WriteSubmitted(ctx context.Context, sub *SubmittedRecord) error {
	return jw.writeRecord(ctx, TypeSubmitted, sub)
}

// WriteStatus emits a status record.
func (jw *JSONLWriter) WriteStatus(ctx context.Context, st *StatusRecord) error {
	return jw.writeRecord(ctx, TypeStatus, st)
}

// WriteChunk emits an intermediate output record.
func (jw *JSONLWriter) WriteChunk(ctx context.Context, chunk *ChunkRecord) error {
	return jw.writeRecord(ctx, TypeChunk, chunk)
}

// WriteResult emits a final result record.
func (jw *JSONLWriter) WriteResult(ctx context.Context, res *ResultRecord) error {
	return jw.writeRecord(ctx, TypeResult, res)
}

// WriteError emits an error record.
func (jw *JSONLWriter) WriteError(ctx context.Context, err *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, err)
}

// Close marks the writer as closed.
//
// If the underlying writer implements io.Closer, it is NOT closed.
// The caller is responsible for closing the underlying writer.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line.
//
// This method holds the mutex for the entire operation to ensure
// atomic line writes.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}

	record := Record{
		Type:     recordType,
		TS:       time.Now().UTC(),
		RunID:    jw.runID,
		Endpoint: jw.endpoint,
		Data:     dataBytes,
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	// io.Writer may return n < len(p) with a nil error; a short write
	// would corrupt the JSONL stream.
	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}

	return nil
}

// writeAll writes all bytes to w, handling short writes.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			// No progress made - avoid infinite loop
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// Compile-time check that JSONLWriter implements Writer.
var _ Writer = (*JSONLWriter)(nil)
