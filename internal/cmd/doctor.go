package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/goneos/internal/config"
	"github.com/3leaps/goneos/internal/observability"
)

var (
	doctorProvider string
	doctorTimeout  time.Duration
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the local environment and the NEOS endpoint,
and suggest fixes for common issues.

Examples:
  goneos doctor                  # Environment and NEOS reachability
  goneos doctor --provider s3    # Also check AWS credentials for archiving`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().StringVar(&doctorProvider, "provider", "", "Run archive provider checks (s3)")
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", 15*time.Second, "Timeout for the NEOS ping")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := observability.CLILogger

	bannerName := appIdentity.BinaryName + " doctor"
	log.Info("=== " + bannerName + " ===")
	log.Info("")
	log.Info("Running diagnostic checks...")
	log.Info("")

	cfg, err := currentConfig(ctx)
	if err != nil {
		log.Error("Cannot load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	allChecks := true
	checkNum := 1
	totalChecks := 7
	if doctorProvider == "s3" {
		totalChecks = 9
	}

	// Check 1: Go version
	goVersion := runtime.Version()
	if goVersion >= "go1.23" {
		log.Info(fmt.Sprintf("[%d/%d] Checking Go version... ✅ %s", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
	} else {
		log.Warn(fmt.Sprintf("[%d/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
		allChecks = false
	}
	checkNum++

	// Check 2: Crucible access
	version := crucible.GetVersion()
	if version.Crucible != "" {
		log.Info(fmt.Sprintf("[%d/%d] Checking Crucible access... ✅ v%s", checkNum, totalChecks, version.Crucible),
			zap.String("crucible_version", version.Crucible))
	} else {
		log.Error(fmt.Sprintf("[%d/%d] Checking Crucible access... ❌ Cannot access Crucible", checkNum, totalChecks))
		allChecks = false
	}
	checkNum++

	// Check 3: Gofulmen access
	if version.Gofulmen != "" {
		log.Info(fmt.Sprintf("[%d/%d] Checking Gofulmen access... ✅ v%s", checkNum, totalChecks, version.Gofulmen),
			zap.String("gofulmen_version", version.Gofulmen))
	} else {
		log.Error(fmt.Sprintf("[%d/%d] Checking Gofulmen access... ❌ Cannot access Gofulmen", checkNum, totalChecks))
		allChecks = false
	}
	checkNum++

	// Check 4: Config
	configDir := config.UserConfigDir()
	switch {
	case cfg.File != "":
		log.Info(fmt.Sprintf("[%d/%d] Checking configuration... ✅ %s", checkNum, totalChecks, cfg.File),
			zap.String("config_file", cfg.File))
	case configDir != "":
		log.Info(fmt.Sprintf("[%d/%d] Checking configuration... ✅ defaults (no file in %s)", checkNum, totalChecks, configDir),
			zap.String("config_dir", configDir))
	default:
		log.Warn(fmt.Sprintf("[%d/%d] Checking configuration... ⚠️  Cannot find config directory", checkNum, totalChecks))
	}
	checkNum++

	// Check 5: Job registry
	if err := checkWritableDir(cfg.Jobs.Dir); err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking job registry... ❌ %s is not writable", checkNum, totalChecks, cfg.Jobs.Dir),
			zap.Error(err))
		allChecks = false
	} else {
		log.Info(fmt.Sprintf("[%d/%d] Checking job registry... ✅ %s", checkNum, totalChecks, cfg.Jobs.Dir),
			zap.String("jobs_dir", cfg.Jobs.Dir))
	}
	checkNum++

	// Check 6: Environment
	log.Info(fmt.Sprintf("[%d/%d] Checking environment... ✅ %s/%s", checkNum, totalChecks, runtime.GOOS, runtime.GOARCH),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH))
	checkNum++

	// Check 7: NEOS reachability
	if !checkNEOS(ctx, cfg, checkNum, totalChecks) {
		allChecks = false
	}
	checkNum++

	if doctorProvider == "s3" {
		if !runS3Checks(ctx, cfg, checkNum, totalChecks) {
			allChecks = false
		}
	}

	log.Info("")
	if allChecks {
		log.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", bannerName))
	} else {
		log.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	log.Info("")
	log.Info("=== End Diagnostics ===")

	if !allChecks {
		return exitError(foundry.ExitExternalServiceUnavailable, "Diagnostics failed", fmt.Errorf("one or more checks failed"))
	}
	return nil
}

func checkNEOS(ctx context.Context, cfg *config.Config, checkNum, totalChecks int) bool {
	log := observability.CLILogger

	client, err := newClient(cfg, "")
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking NEOS endpoint... ❌ Invalid endpoint", checkNum, totalChecks), zap.Error(err))
		return false
	}
	defer func() { _ = client.Close() }()

	pctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	reply, err := client.Ping(pctx)
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking NEOS endpoint... ❌ %s unreachable", checkNum, totalChecks, client.Endpoint()),
			zap.String("endpoint", client.Endpoint()),
			zap.Error(err))
		return false
	}
	log.Info(fmt.Sprintf("[%d/%d] Checking NEOS endpoint... ✅ %s", checkNum, totalChecks, client.Endpoint()),
		zap.String("endpoint", client.Endpoint()),
		zap.String("reply", reply))
	return true
}

// checkWritableDir creates dir if needed and probes it with a temp file.
func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// runS3Checks runs archive credential checks.
func runS3Checks(ctx context.Context, cfg *config.Config, checkNum, totalChecks int) bool {
	log := observability.CLILogger
	log.Info("")
	log.Info("S3 Archive Checks:")

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Archive.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Archive.Profile))
	}
	if cfg.Archive.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Archive.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking AWS credentials... ❌ Cannot load AWS config", checkNum, totalChecks),
			zap.Error(err))
		printAWSCredentialsHelp()
		return false
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking AWS credentials... ❌ Cannot retrieve credentials", checkNum, totalChecks),
			zap.Error(err))
		printAWSCredentialsHelp()
		return false
	}

	log.Info(fmt.Sprintf("[%d/%d] Checking AWS credentials... ✅ Found credentials", checkNum, totalChecks),
		zap.String("access_key", maskAccessKey(creds.AccessKeyID)),
		zap.String("source", creds.Source))
	checkNum++

	source := creds.Source
	if source == "" {
		source = "unknown"
	}
	log.Info(fmt.Sprintf("[%d/%d] Checking credential source... ✅ %s", checkNum, totalChecks, source),
		zap.String("credential_source", source))
	return true
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// printAWSCredentialsHelp prints help for configuring AWS credentials.
func printAWSCredentialsHelp() {
	log := observability.CLILogger
	log.Info("")
	log.Info("To configure AWS credentials:")
	log.Info("  1. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables, or")
	log.Info("  2. Run 'aws configure' to set up a profile (archive.profile selects it), or")
	log.Info("  3. Use an IAM role when running on AWS infrastructure")
	log.Info("")
	log.Info("For S3-compatible storage (MinIO, Wasabi, etc.), also set:")
	log.Info("  - archive.endpoint in config or GONEOS_ARCHIVE_ENDPOINT")
	log.Info("")
}
