package output

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// TextWriter renders records for a terminal.
//
// Progress and streamed solver output go to the progress stream (stderr);
// the final result goes to the result stream (stdout) so it can be piped.
type TextWriter struct {
	progress io.Writer
	result   io.Writer
	mu       sync.Mutex

	lastStatus string
	statusFmt  *color.Color
	doneFmt    *color.Color
}

// NewTextWriter creates a text writer.
func NewTextWriter(progress, result io.Writer) *TextWriter {
	return &TextWriter{
		progress:  progress,
		result:    result,
		statusFmt: color.New(color.FgCyan),
		doneFmt:   color.New(color.FgGreen, color.Bold),
	}
}

// WriteSubmitted prints the issued job number.
func (tw *TextWriter) WriteSubmitted(_ context.Context, sub *SubmittedRecord) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	_, err := fmt.Fprintf(tw.progress, "Sent job to NEOS (%d bytes), job number %d\n", sub.DocumentBytes, sub.JobNumber)
	return err
}

// WriteStatus prints the status when it changes.
func (tw *TextWriter) WriteStatus(_ context.Context, st *StatusRecord) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if st.Status == tw.lastStatus {
		return nil
	}
	tw.lastStatus = st.Status
	_, err := tw.statusFmt.Fprintf(tw.progress, "%s\n", st.Status)
	return err
}

// WriteChunk copies solver output verbatim.
func (tw *TextWriter) WriteChunk(_ context.Context, chunk *ChunkRecord) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	_, err := io.WriteString(tw.progress, chunk.Data)
	return err
}

// WriteResult prints the final status to the progress stream and the
// output to the result stream, followed by a newline even when the
// output already ends in one.
func (tw *TextWriter) WriteResult(_ context.Context, res *ResultRecord) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if res.Status != tw.lastStatus {
		if _, err := tw.doneFmt.Fprintf(tw.progress, "%s\n", res.Status); err != nil {
			return err
		}
		tw.lastStatus = res.Status
	}
	_, err := io.WriteString(tw.result, res.Output+"\n")
	return err
}

// WriteError is a no-op: the CLI logs errors itself.
func (tw *TextWriter) WriteError(_ context.Context, _ *ErrorRecord) error {
	return nil
}

// Close is a no-op; the underlying streams belong to the caller.
func (tw *TextWriter) Close() error {
	return nil
}

var _ Writer = (*TextWriter)(nil)
