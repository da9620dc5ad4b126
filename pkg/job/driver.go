// Package job drives a NEOS job from submission to final results.
//
// A Driver submits a document, then polls the job: each iteration fetches
// intermediate output from the current offset and queries the status,
// until the status leaves Waiting/Running. Final results are fetched
// exactly once. Lifecycle events are emitted through an output.Writer.
package job

import (
	"context"
	"time"

	"github.com/3leaps/goneos/pkg/neos"
	"github.com/3leaps/goneos/pkg/output"
	"github.com/3leaps/goneos/pkg/submission"
	"golang.org/x/time/rate"
)

// Channel is the remote job service.
//
// *neos.Client satisfies Channel; tests use scripted fakes.
type Channel interface {
	SubmitJob(ctx context.Context, document string) (neos.Handle, error)
	GetIntermediateResults(ctx context.Context, h neos.Handle, offset int) ([]byte, int, error)
	GetJobStatus(ctx context.Context, h neos.Handle) (neos.Status, error)
	GetFinalResults(ctx context.Context, h neos.Handle) ([]byte, error)
}

// Config configures driver behavior.
type Config struct {
	// PollInterval is the minimum spacing between polling iterations.
	// Zero polls back-to-back.
	// Default: 1s
	PollInterval time.Duration

	// MaxPolls bounds the number of polling iterations.
	// Zero means unbounded.
	// Default: 0
	MaxPolls int

	// Verbose emits intermediate output as chunk records.
	Verbose bool
}

// DefaultConfig returns the default driver configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		MaxPolls:     0,
	}
}

// Result is the outcome of a completed wait.
type Result struct {
	Handle neos.Handle

	// Status is the terminal status. Anything other than Done is a
	// remote-side failure (Unknown Job, Bad Password, ...).
	Status neos.Status

	// Output is the final results payload.
	Output []byte

	// Polls is the number of polling iterations performed.
	Polls int

	// Offset is the last intermediate output cursor.
	Offset int

	Duration time.Duration
}

// Driver runs the job lifecycle against a Channel.
type Driver struct {
	ch     Channel
	writer output.Writer
	config Config

	// Rate limiter (nil if polling back-to-back)
	limiter *rate.Limiter
}

// New creates a driver.
//
// Parameters:
//   - ch: Remote job service
//   - w: Writer for lifecycle records
//   - cfg: Driver configuration (use DefaultConfig() as base)
func New(ch Channel, w output.Writer, cfg Config) *Driver {
	if cfg.MaxPolls < 0 {
		cfg.MaxPolls = 0
	}

	d := &Driver{
		ch:     ch,
		writer: w,
		config: cfg,
	}

	if cfg.PollInterval > 0 {
		d.limiter = rate.NewLimiter(rate.Every(cfg.PollInterval), 1)
	}

	return d
}

// Submit sends doc to the remote service and returns the issued handle.
func (d *Driver) Submit(ctx context.Context, doc *submission.Document) (neos.Handle, error) {
	body := doc.XML()

	h, err := d.ch.SubmitJob(ctx, body)
	if err != nil {
		return neos.Handle{}, &JobError{Op: OpSubmit, Err: err}
	}

	if err := d.writer.WriteSubmitted(ctx, &output.SubmittedRecord{
		JobNumber:     h.JobNumber,
		Category:      doc.Category,
		Solver:        doc.Solver,
		DocumentBytes: len(body),
	}); err != nil {
		return h, err
	}

	return h, nil
}

// Wait polls the job until it leaves Waiting/Running, then fetches the
// final results once.
//
// When the poll ceiling is reached or ctx ends, Wait returns the partial
// result together with a *JobError. The remote job keeps running and
// can be waited on again with the same handle.
func (d *Driver) Wait(ctx context.Context, h neos.Handle) (*Result, error) {
	return d.WaitFrom(ctx, h, 0)
}

// WaitFrom is Wait with intermediate output requested from offset instead
// of the beginning, so a resumed wait does not replay output already seen.
func (d *Driver) WaitFrom(ctx context.Context, h neos.Handle, offset int) (*Result, error) {
	start := time.Now()

	if offset < 0 {
		offset = 0
	}
	res := &Result{
		Handle: h,
		Status: neos.StatusWaiting,
		Offset: offset,
	}

	for res.Status.Active() {
		if d.config.MaxPolls > 0 && res.Polls >= d.config.MaxPolls {
			res.Duration = time.Since(start)
			return res, &JobError{JobNumber: h.JobNumber, Op: OpPoll, Err: ErrPollLimit}
		}

		if err := d.pace(ctx); err != nil {
			res.Duration = time.Since(start)
			return res, &JobError{JobNumber: h.JobNumber, Op: OpPoll, Err: err}
		}

		res.Polls++

		chunk, next, err := d.ch.GetIntermediateResults(ctx, h, res.Offset)
		if err != nil {
			res.Duration = time.Since(start)
			return res, &JobError{JobNumber: h.JobNumber, Op: OpIntermediate, Err: err}
		}
		if d.config.Verbose && len(chunk) > 0 {
			if err := d.writer.WriteChunk(ctx, &output.ChunkRecord{
				JobNumber: h.JobNumber,
				Offset:    res.Offset,
				Data:      string(chunk),
			}); err != nil {
				return res, err
			}
		}
		res.Offset = next

		status, err := d.ch.GetJobStatus(ctx, h)
		if err != nil {
			res.Duration = time.Since(start)
			return res, &JobError{JobNumber: h.JobNumber, Op: OpStatus, Err: err}
		}
		res.Status = status

		if err := d.writer.WriteStatus(ctx, &output.StatusRecord{
			JobNumber: h.JobNumber,
			Status:    status.String(),
			Poll:      res.Polls,
			Offset:    res.Offset,
		}); err != nil {
			return res, err
		}
	}

	out, err := d.Results(ctx, h)
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	res.Output = out

	if err := d.writer.WriteResult(ctx, &output.ResultRecord{
		JobNumber: h.JobNumber,
		Status:    res.Status.String(),
		Polls:     res.Polls,
		Duration:  res.Duration,
		Output:    string(out),
	}); err != nil {
		return res, err
	}

	return res, nil
}

// Run submits doc and waits for it.
//
// The handle is returned even when the wait fails so callers can record
// or resume the job.
func (d *Driver) Run(ctx context.Context, doc *submission.Document) (neos.Handle, *Result, error) {
	h, err := d.Submit(ctx, doc)
	if err != nil {
		return h, nil, err
	}

	res, err := d.Wait(ctx, h)
	return h, res, err
}

// Results fetches the final results for h without polling.
func (d *Driver) Results(ctx context.Context, h neos.Handle) ([]byte, error) {
	out, err := d.ch.GetFinalResults(ctx, h)
	if err != nil {
		return nil, &JobError{JobNumber: h.JobNumber, Op: OpFinal, Err: err}
	}
	return out, nil
}

func (d *Driver) pace(ctx context.Context) error {
	if d.limiter == nil {
		return ctx.Err()
	}
	return d.limiter.Wait(ctx)
}
