package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/goneos/internal/config"
	"github.com/3leaps/goneos/internal/observability"
	"github.com/3leaps/goneos/pkg/archive"
	"github.com/3leaps/goneos/pkg/job"
	"github.com/3leaps/goneos/pkg/jobregistry"
	"github.com/3leaps/goneos/pkg/neos"
	"github.com/3leaps/goneos/pkg/output"
)

// Output formats accepted by --output.
const (
	formatText  = "text"
	formatJSONL = "jsonl"
)

// newClient opens a NEOS client. A non-empty endpoint overrides the config.
func newClient(cfg *config.Config, endpoint string) (*neos.Client, error) {
	if endpoint == "" {
		endpoint = cfg.NEOS.Endpoint
	}
	return neos.New(neos.Config{Endpoint: endpoint, Timeout: cfg.NEOS.Timeout})
}

// newWriter creates the lifecycle writer for --output.
func newWriter(cmd *cobra.Command, format, runID, endpoint string) (output.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", formatText:
		return output.NewTextWriter(cmd.ErrOrStderr(), cmd.OutOrStdout()), nil
	case formatJSONL:
		return output.NewJSONLWriter(cmd.OutOrStdout(), runID, endpoint), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want text or jsonl)", format)
	}
}

// openArchive parses uri and opens an archiver. It returns nil when uri is
// empty.
func openArchive(ctx context.Context, cfg *config.Config, uri string, force bool) (*archive.Archiver, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, nil
	}
	dest, err := archive.ParseDestination(uri)
	if err != nil {
		return nil, err
	}
	a, err := archive.Open(ctx, dest, archive.S3Options{
		Region:   cfg.Archive.Region,
		Endpoint: cfg.Archive.Endpoint,
		Profile:  cfg.Archive.Profile,
	})
	if err != nil {
		return nil, err
	}
	return a.WithForce(force), nil
}

// newRunID returns a correlation id for JSONL records.
func newRunID() string {
	return uuid.NewString()
}

// session follows one job: it drives polling, keeps the registry record
// current, and archives the result.
type session struct {
	driver   *job.Driver
	writer   output.Writer
	store    *jobregistry.Store
	record   *jobregistry.JobRecord
	archiver *archive.Archiver
}

// save writes the record, logging rather than failing on registry errors.
func (s *session) save() {
	if s.store == nil || s.record == nil {
		return
	}
	s.record.Touch(time.Now())
	if err := s.store.Write(s.record); err != nil {
		observability.CLILogger.Warn("Failed to update job record",
			zap.Int("job_number", s.record.JobNumber),
			zap.Error(err))
	}
}

// wait polls h to completion and reports the outcome as a command error.
// Intermediate output resumes at the recorded offset.
func (s *session) wait(ctx context.Context, h neos.Handle) error {
	offset := 0
	if s.record != nil {
		offset = s.record.Offset
	}
	res, err := s.driver.WaitFrom(ctx, h, offset)
	if s.record != nil && res != nil {
		s.record.Status = res.Status.String()
		s.record.Polls += res.Polls
		s.record.Offset = res.Offset
	}

	if err != nil {
		code, errCode := classifyError(err)
		resumable := code == foundry.ExitSignalInt || job.IsPollLimit(err) || neos.IsTransport(err)
		if s.record != nil {
			s.record.Error = err.Error()
			if resumable {
				s.record.State = jobregistry.JobStateInterrupted
			} else {
				s.record.State = jobregistry.JobStateFailed
			}
		}
		s.save()
		s.emitError(ctx, errCode, err, h.JobNumber)

		if resumable {
			observability.CLILogger.Warn("Stopped waiting; the job keeps running on NEOS",
				zap.Int("job_number", h.JobNumber),
				zap.String("resume", fmt.Sprintf("%s jobs wait %d", appIdentity.BinaryName, h.JobNumber)))
			return exitError(code, "Stopped waiting for job", err)
		}
		observability.CLILogger.Error("Job failed",
			zap.Int("job_number", h.JobNumber),
			zap.Error(err))
		return exitError(code, "Job failed", err)
	}

	if s.record != nil {
		s.record.State = jobregistry.StateFromStatus(res.Status)
		s.record.Error = ""
	}

	archiveErr := s.archiveResult(ctx, h.JobNumber, res.Output)
	s.save()

	observability.CLILogger.Debug("Job finished",
		zap.Int("job_number", h.JobNumber),
		zap.String("status", res.Status.String()),
		zap.Int("polls", res.Polls),
		zap.Duration("duration", res.Duration))

	if !res.Status.Done() {
		err := fmt.Errorf("job %d ended with status %q", h.JobNumber, res.Status)
		observability.CLILogger.Error("Job did not complete", zap.Int("job_number", h.JobNumber), zap.String("status", res.Status.String()))
		return exitError(foundry.ExitExternalServiceUnavailable, "Job did not complete", err)
	}
	if archiveErr != nil {
		return exitError(archiveExitCode(archiveErr, foundry.ExitFileWriteError), "Failed to archive result", archiveErr)
	}
	return nil
}

func (s *session) archiveResult(ctx context.Context, jobNumber int, result []byte) error {
	if s.archiver == nil {
		return nil
	}
	uri, err := s.archiver.PutResult(ctx, jobNumber, result)
	if err != nil {
		observability.CLILogger.Error("Failed to archive result",
			zap.Int("job_number", jobNumber),
			zap.String("destination", s.archiver.Destination().String()),
			zap.Error(err))
		return err
	}
	if s.record != nil {
		s.record.ArchiveURI = s.archiver.JobURI(jobNumber)
	}
	observability.CLILogger.Info("Archived result", zap.Int("job_number", jobNumber), zap.String("uri", uri))
	return nil
}

// emitError writes an error record; text output ignores it.
func (s *session) emitError(ctx context.Context, code string, err error, jobNumber int) {
	emitErrorRecord(ctx, s.writer, code, err, jobNumber)
}

func emitErrorRecord(ctx context.Context, w output.Writer, code string, err error, jobNumber int) {
	if w == nil {
		return
	}
	// ctx may already be cancelled; the record still needs to go out.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	rec := &output.ErrorRecord{
		Code:      code,
		Message:   err.Error(),
		JobNumber: jobNumber,
		Path:      errorPath(err),
	}
	if werr := w.WriteError(ctx, rec); werr != nil && !errors.Is(werr, output.ErrWriterClosed) {
		observability.CLILogger.Debug("Failed to write error record", zap.Error(werr))
	}
}
