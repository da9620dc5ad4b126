package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/goneos/internal/config"
	"github.com/3leaps/goneos/internal/observability"
	"github.com/3leaps/goneos/pkg/job"
	"github.com/3leaps/goneos/pkg/jobregistry"
	"github.com/3leaps/goneos/pkg/manifest"
	"github.com/3leaps/goneos/pkg/submission"
)

var submitCmd = &cobra.Command{
	Use:   "submit [file.run | file.mod]",
	Short: "Submit an AMPL job to NEOS and wait for the result",
	Long: `Submit an AMPL job to NEOS and follow it to completion.

A job is either a command script (.run) whose model and data directives name
the files to send, or a model file (.mod) with an optional data file (.dat).
Include directives are expanded locally before submission.

Progress goes to stderr and the final result to stdout. With --output jsonl,
every lifecycle event is written to stdout as a typed JSON record.

Examples:
  goneos submit diet.run -g lp -s MINOS -e you@example.com
  goneos submit -m diet.mod -d diet.dat -g lp -s MINOS -e you@example.com -v
  goneos submit diet.run -g lp -s MINOS -D > diet.xml
  goneos submit --job diet.yaml --archive s3://neos-results/diet/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSubmit,
}

var (
	submitModel    string
	submitData     string
	submitRun      string
	submitCategory string
	submitSolver   string
	submitEmail    string
	submitComments string
	submitDryRun   bool
	submitVerbose  bool
	submitJobPath  string
	submitOutput   string
	submitArchive  string
	submitForce    bool
	submitNoRecord bool
)

func init() {
	rootCmd.AddCommand(submitCmd)

	f := submitCmd.Flags()
	f.StringVarP(&submitModel, "model", "m", "", "AMPL model file")
	f.StringVarP(&submitData, "data", "d", "", "AMPL data file (with --model)")
	f.StringVarP(&submitRun, "run", "r", "", "AMPL command script")
	f.StringVarP(&submitCategory, "category", "g", "", "NEOS solver category (e.g. lp, milp, nco)")
	f.StringVarP(&submitSolver, "solver", "s", "", "NEOS solver name")
	f.StringVarP(&submitEmail, "email", "e", "", "Email address NEOS requires for submissions")
	f.StringVarP(&submitComments, "comments", "c", "", "Free-text comments attached to the job")
	f.BoolVarP(&submitDryRun, "dry-run", "D", false, "Print the submission document and exit")
	f.BoolVarP(&submitVerbose, "verbose", "v", false, "Stream intermediate solver output")
	f.StringVarP(&submitJobPath, "job", "j", "", "Submission manifest (YAML or JSON)")
	f.StringVarP(&submitOutput, "output", "o", formatText, "Output format: text or jsonl")
	f.StringVar(&submitArchive, "archive", "", "Archive submission and result to s3://bucket/prefix/ or a directory")
	f.BoolVar(&submitForce, "force", false, "Overwrite existing archived objects")
	f.BoolVar(&submitNoRecord, "no-record", false, "Do not record the job in the local registry")
}

// submitPlan is everything resolved from flags, manifest and config before
// any file is read.
type submitPlan struct {
	request      submission.Request
	manifestPath string
	endpoint     string
	driver       job.Config
	archiveURI   string
	force        bool
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := currentConfig(ctx)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	plan, err := buildSubmitPlan(cmd, cfg, args)
	if err != nil {
		observability.CLILogger.Error("Invalid submission", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid submission", err)
	}

	sub, err := submission.NewAssembler(nil).Assemble(plan.request)
	if err != nil {
		code, _ := classifyError(err)
		observability.CLILogger.Error("Failed to assemble submission",
			zap.String("path", errorPath(err)),
			zap.Error(err))
		return exitError(code, "Failed to assemble submission", err)
	}

	observability.CLILogger.Debug("Assembled submission",
		zap.String("mode", plan.request.Mode()),
		zap.Strings("models", sub.ModelPaths),
		zap.Strings("data", sub.DataPaths),
		zap.Int("bytes", sub.Document.Size()))

	if submitDryRun {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), sub.Document.XML())
		return err
	}

	archiver, err := openArchive(ctx, cfg, plan.archiveURI, plan.force)
	if err != nil {
		observability.CLILogger.Error("Invalid archive destination",
			zap.String("destination", plan.archiveURI),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid archive destination", err)
	}
	if archiver != nil {
		defer func() { _ = archiver.Close() }()
	}

	client, err := newClient(cfg, plan.endpoint)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid NEOS endpoint", err)
	}
	defer func() { _ = client.Close() }()

	runID := newRunID()
	writer, err := newWriter(cmd, submitOutput, runID, client.Endpoint())
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid --output value", err)
	}
	defer func() { _ = writer.Close() }()

	driver := job.New(client, writer, plan.driver)

	h, err := driver.Submit(ctx, &sub.Document)
	if err != nil {
		code, errCode := classifyError(err)
		emitErrorRecord(ctx, writer, errCode, err, 0)
		observability.CLILogger.Error("Submission failed",
			zap.String("endpoint", client.Endpoint()),
			zap.Error(err))
		return exitError(code, "Submission failed", err)
	}

	observability.CLILogger.Debug("Job submitted",
		zap.Int("job_number", h.JobNumber),
		zap.String("category", sub.Document.Category),
		zap.String("solver", sub.Document.Solver))

	s := &session{driver: driver, writer: writer, archiver: archiver}
	if !submitNoRecord {
		s.store = jobregistry.NewStore(cfg.Jobs.Dir)
		s.record = &jobregistry.JobRecord{
			JobNumber:    h.JobNumber,
			Password:     h.Password,
			Endpoint:     client.Endpoint(),
			State:        jobregistry.JobStateSubmitted,
			Category:     sub.Document.Category,
			Solver:       sub.Document.Solver,
			Email:        sub.Document.Email,
			Mode:         plan.request.Mode(),
			RunPath:      sub.RunPath,
			ModelPaths:   sub.ModelPaths,
			DataPaths:    sub.DataPaths,
			ManifestPath: plan.manifestPath,
			RunID:        runID,
			CreatedAt:    time.Now().UTC(),
		}
		s.save()
	}

	if archiver != nil {
		uri, err := archiver.PutSubmission(ctx, h.JobNumber, []byte(sub.Document.XML()))
		if err != nil {
			observability.CLILogger.Warn("Failed to archive submission",
				zap.Int("job_number", h.JobNumber),
				zap.Error(err))
		} else {
			observability.CLILogger.Debug("Archived submission", zap.String("uri", uri))
		}
	}

	return s.wait(ctx, h)
}

// buildSubmitPlan merges manifest, flags and config. Flags win over the
// manifest, and the manifest wins over config defaults.
func buildSubmitPlan(cmd *cobra.Command, cfg *config.Config, args []string) (*submitPlan, error) {
	plan := &submitPlan{
		driver: job.Config{
			PollInterval: cfg.Poll.Interval,
			MaxPolls:     cfg.Poll.MaxPolls,
		},
		archiveURI: cfg.Archive.Destination,
	}
	req := &plan.request

	if submitJobPath != "" {
		m, err := manifest.Load(submitJobPath)
		if err != nil {
			return nil, err
		}
		*req = m.Request()
		plan.manifestPath = m.Path()
		plan.endpoint = m.NEOS.Endpoint
		if m.Poll != nil {
			if interval, ok, err := m.PollInterval(); err != nil {
				return nil, err
			} else if ok {
				plan.driver.PollInterval = interval
			}
			if m.Poll.MaxPolls != nil {
				plan.driver.MaxPolls = *m.Poll.MaxPolls
			}
			if m.Poll.Verbose != nil {
				plan.driver.Verbose = *m.Poll.Verbose
			}
		}
		if m.Archive != nil {
			plan.archiveURI = m.Archive.Destination
			plan.force = m.Archive.Force
		}
	}

	if len(args) == 1 {
		switch strings.ToLower(filepath.Ext(args[0])) {
		case ".run":
			req.RunPath = args[0]
			req.ModelPath = ""
		case ".mod":
			req.ModelPath = args[0]
			req.RunPath = ""
		default:
			return nil, fmt.Errorf("cannot infer job type from %q: expected a .run or .mod file", args[0])
		}
	}

	flags := cmd.Flags()
	if flags.Changed("run") {
		req.RunPath = submitRun
	}
	if flags.Changed("model") {
		req.ModelPath = submitModel
	}
	if flags.Changed("data") {
		req.DataPath = submitData
	}
	if flags.Changed("category") {
		req.Category = submitCategory
	}
	if flags.Changed("solver") {
		req.Solver = submitSolver
	}
	if flags.Changed("email") {
		req.Email = submitEmail
	}
	if flags.Changed("comments") {
		req.Comments = submitComments
	}
	if flags.Changed("verbose") {
		plan.driver.Verbose = submitVerbose
	}
	if flags.Changed("archive") {
		plan.archiveURI = submitArchive
	}
	if flags.Changed("force") {
		plan.force = submitForce
	}
	if flags.Changed("endpoint") {
		plan.endpoint = ""
	}

	if req.Category == "" {
		req.Category = cfg.Submission.Category
	}
	if req.Solver == "" {
		req.Solver = cfg.Submission.Solver
	}
	if req.Email == "" {
		req.Email = cfg.Submission.Email
	}

	switch {
	case req.RunPath != "" && req.ModelPath != "":
		return nil, fmt.Errorf("a command script and a model file cannot be submitted together")
	case req.RunPath == "" && req.ModelPath == "":
		return nil, fmt.Errorf("a command script (-r or file.run) or a model file (-m or file.mod) is required")
	case req.RunPath != "" && req.DataPath != "":
		return nil, fmt.Errorf("--data is only accepted with a model file")
	case req.Category == "":
		return nil, fmt.Errorf("a solver category is required (-g)")
	case req.Solver == "":
		return nil, fmt.Errorf("a solver is required (-s)")
	}

	if plan.driver.PollInterval < 0 || plan.driver.MaxPolls < 0 {
		return nil, fmt.Errorf("poll settings must not be negative")
	}
	return plan, nil
}
