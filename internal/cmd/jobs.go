package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/goneos/internal/observability"
	"github.com/3leaps/goneos/pkg/job"
	"github.com/3leaps/goneos/pkg/jobregistry"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage submitted NEOS jobs",
	Long: `Manage the local registry of submitted NEOS jobs.

Every submission is recorded with its job number and password, so a job can
be resumed or its results fetched after the submitting process exits.

Examples:
  goneos jobs list
  goneos jobs status 1234567
  goneos jobs wait 1234567 -v
  goneos jobs results 1234567 > result.txt
  goneos jobs gc --max-age 720h`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job_number>",
	Short: "Show the recorded state of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStatus,
}

var jobsWaitCmd = &cobra.Command{
	Use:   "wait <job_number>",
	Short: "Resume polling a job until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsWait,
}

var jobsResultsCmd = &cobra.Command{
	Use:   "results <job_number>",
	Short: "Fetch the final results of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsResults,
}

var jobsGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete old finished job records",
	Args:  cobra.NoArgs,
	RunE:  runJobsGC,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsWaitCmd)
	jobsCmd.AddCommand(jobsResultsCmd)
	jobsCmd.AddCommand(jobsGCCmd)

	jobsListCmd.Flags().Bool("json", false, "Output as JSON")
	jobsStatusCmd.Flags().Bool("json", false, "Output as JSON")
	jobsWaitCmd.Flags().BoolP("verbose", "v", false, "Stream intermediate solver output")
	jobsWaitCmd.Flags().StringP("output", "o", formatText, "Output format: text or jsonl")
	jobsWaitCmd.Flags().String("archive", "", "Archive the result to s3://bucket/prefix/ or a directory")
	jobsWaitCmd.Flags().Bool("force", false, "Overwrite an existing archived result")
	jobsResultsCmd.Flags().Bool("from-archive", false, "Read the archived result instead of asking NEOS")
	jobsGCCmd.Flags().String("max-age", "168h", "Delete finished jobs older than this duration")
	jobsGCCmd.Flags().Bool("dry-run", false, "Show how many jobs would be deleted")
	jobsGCCmd.Flags().Bool("json", false, "Output as JSON")
}

func jobsStore(cmd *cobra.Command) (*jobregistry.Store, error) {
	cfg, err := currentConfig(cmd.Context())
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	return jobregistry.NewStore(cfg.Jobs.Dir), nil
}

// loadJob parses a job number argument and loads its record.
func loadJob(store *jobregistry.Store, arg string) (*jobregistry.JobRecord, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n <= 0 {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid job number", fmt.Errorf("%q is not a job number", arg))
	}
	rec, err := store.Get(n)
	if err != nil {
		if errors.Is(err, jobregistry.ErrNotFound) {
			return nil, exitError(foundry.ExitFileNotFound, "Job not recorded", err)
		}
		return nil, exitError(foundry.ExitFileReadError, "Failed to read job record", err)
	}
	return rec, nil
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := jobsStore(cmd)
	if err != nil {
		return err
	}
	jobs, err := store.List()
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to list jobs", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if jobs == nil {
			jobs = []jobregistry.JobRecord{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(redact(jobs))
	}

	if len(jobs) == 0 {
		_, _ = fmt.Fprintln(out, "No jobs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "JOB\tSTATE\tSTATUS\tCATEGORY\tSOLVER\tCREATED\tENDED")
	for _, j := range jobs {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			j.JobNumber,
			j.State,
			orDash(j.Status),
			orDash(j.Category),
			orDash(j.Solver),
			j.CreatedAt.UTC().Format(time.RFC3339),
			formatOptionalTime(j.EndedAt),
		)
	}
	return nil
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := jobsStore(cmd)
	if err != nil {
		return err
	}
	rec, err := loadJob(store, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(redact([]jobregistry.JobRecord{*rec})[0])
	}

	_, _ = fmt.Fprintf(out, "job_number=%d\n", rec.JobNumber)
	_, _ = fmt.Fprintf(out, "state=%s\n", rec.State)
	if rec.Status != "" {
		_, _ = fmt.Fprintf(out, "neos_status=%s\n", rec.Status)
	}
	_, _ = fmt.Fprintf(out, "endpoint=%s\n", rec.Endpoint)
	_, _ = fmt.Fprintf(out, "category=%s\n", rec.Category)
	_, _ = fmt.Fprintf(out, "solver=%s\n", rec.Solver)
	if rec.Mode != "" {
		_, _ = fmt.Fprintf(out, "mode=%s\n", rec.Mode)
	}
	if rec.RunPath != "" {
		_, _ = fmt.Fprintf(out, "run_path=%s\n", rec.RunPath)
	}
	if rec.ManifestPath != "" {
		_, _ = fmt.Fprintf(out, "manifest_path=%s\n", rec.ManifestPath)
	}
	if rec.ArchiveURI != "" {
		_, _ = fmt.Fprintf(out, "archive_uri=%s\n", rec.ArchiveURI)
	}
	if rec.Polls > 0 {
		_, _ = fmt.Fprintf(out, "polls=%d\n", rec.Polls)
	}
	if rec.Error != "" {
		_, _ = fmt.Fprintf(out, "error=%s\n", rec.Error)
	}
	_, _ = fmt.Fprintf(out, "created_at=%s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	if rec.EndedAt != nil {
		_, _ = fmt.Fprintf(out, "ended_at=%s\n", formatOptionalTime(rec.EndedAt))
	}
	return nil
}

func runJobsWait(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := currentConfig(ctx)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	store := jobregistry.NewStore(cfg.Jobs.Dir)
	rec, err := loadJob(store, args[0])
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	format, _ := cmd.Flags().GetString("output")
	archiveURI, _ := cmd.Flags().GetString("archive")
	force, _ := cmd.Flags().GetBool("force")
	if archiveURI == "" {
		archiveURI = cfg.Archive.Destination
	}

	archiver, err := openArchive(ctx, cfg, archiveURI, force)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid archive destination", err)
	}
	if archiver != nil {
		defer func() { _ = archiver.Close() }()
	}

	client, err := newClient(cfg, rec.Endpoint)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid NEOS endpoint", err)
	}
	defer func() { _ = client.Close() }()

	runID := rec.RunID
	if runID == "" {
		runID = newRunID()
	}
	writer, err := newWriter(cmd, format, runID, client.Endpoint())
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid --output value", err)
	}
	defer func() { _ = writer.Close() }()

	driver := job.New(client, writer, job.Config{
		PollInterval: cfg.Poll.Interval,
		MaxPolls:     cfg.Poll.MaxPolls,
		Verbose:      verbose,
	})

	observability.CLILogger.Debug("Resuming job",
		zap.Int("job_number", rec.JobNumber),
		zap.String("state", string(rec.State)))

	s := &session{driver: driver, writer: writer, store: store, record: rec, archiver: archiver}
	return s.wait(ctx, rec.Handle())
}

func runJobsResults(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fromArchive, _ := cmd.Flags().GetBool("from-archive")

	cfg, err := currentConfig(ctx)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	store := jobregistry.NewStore(cfg.Jobs.Dir)
	rec, err := loadJob(store, args[0])
	if err != nil {
		return err
	}

	var result []byte
	if fromArchive {
		uri := rec.ArchiveURI
		if uri == "" {
			return exitError(foundry.ExitFileNotFound, "Job has no archived result", fmt.Errorf("job %d was not archived", rec.JobNumber))
		}
		// ArchiveURI names the job directory; open its parent.
		parent := strings.TrimSuffix(strings.TrimSuffix(uri, "/"), "/"+strconv.Itoa(rec.JobNumber)) + "/"
		archiver, err := openArchive(ctx, cfg, parent, false)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid archive destination", err)
		}
		defer func() { _ = archiver.Close() }()
		result, err = archiver.Result(ctx, rec.JobNumber)
		if err != nil {
			observability.CLILogger.Error("Failed to read archived result",
				zap.Int("job_number", rec.JobNumber),
				zap.String("uri", uri),
				zap.Error(err))
			return exitError(archiveExitCode(err, foundry.ExitFileReadError), "Failed to read archived result", err)
		}
	} else {
		client, err := newClient(cfg, rec.Endpoint)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid NEOS endpoint", err)
		}
		defer func() { _ = client.Close() }()

		result, err = job.New(client, nil, job.Config{}).Results(ctx, rec.Handle())
		if err != nil {
			code, _ := classifyError(err)
			observability.CLILogger.Error("Failed to fetch results",
				zap.Int("job_number", rec.JobNumber),
				zap.Error(err))
			return exitError(code, "Failed to fetch results", err)
		}
	}

	out := cmd.OutOrStdout()
	if _, err := out.Write(result); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out)
	return nil
}

type jobsGCResult struct {
	Deleted      int    `json:"deleted"`
	WouldDelete  int    `json:"would_delete"`
	DryRun       bool   `json:"dry_run"`
	MaxAgeString string `json:"max_age"`
}

func runJobsGC(cmd *cobra.Command, _ []string) error {
	maxAgeStr, _ := cmd.Flags().GetString("max-age")
	maxAgeStr = strings.TrimSpace(maxAgeStr)
	if maxAgeStr == "" {
		maxAgeStr = "168h"
	}
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid --max-age", err)
	}
	if maxAge <= 0 {
		return exitError(foundry.ExitInvalidArgument, "Invalid --max-age", fmt.Errorf("--max-age must be > 0"))
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := jobsStore(cmd)
	if err != nil {
		return err
	}
	expired, err := store.Expired(time.Now().UTC().Add(-maxAge))
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to list jobs", err)
	}

	deleted := 0
	for _, j := range expired {
		if !dryRun {
			if err := store.Remove(j.JobNumber); err != nil {
				return exitError(foundry.ExitFileWriteError, "Failed to remove job record", err)
			}
			observability.CLILogger.Debug("Removed job record", zap.Int("job_number", j.JobNumber))
		}
		deleted++
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		res := jobsGCResult{DryRun: dryRun, MaxAgeString: maxAgeStr}
		if dryRun {
			res.WouldDelete = deleted
		} else {
			res.Deleted = deleted
		}
		return json.NewEncoder(out).Encode(res)
	}
	if dryRun {
		_, _ = fmt.Fprintf(out, "Would delete %d job(s)\n", deleted)
	} else {
		_, _ = fmt.Fprintf(out, "Deleted %d job(s)\n", deleted)
	}
	return nil
}

// redact strips passwords from records shown to the user.
func redact(jobs []jobregistry.JobRecord) []jobregistry.JobRecord {
	out := make([]jobregistry.JobRecord, len(jobs))
	for i, j := range jobs {
		j.Password = ""
		out[i] = j
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
