// Package cmd implements the goneos command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/goneos/internal/config"
	"github.com/3leaps/goneos/internal/observability"
)

// AppIdentity names the binary and its config directory.
type AppIdentity struct {
	BinaryName string
	ConfigName string
}

var appIdentity = &AppIdentity{BinaryName: "goneos", ConfigName: config.AppName}

// GetAppIdentity returns the application identity.
func GetAppIdentity() *AppIdentity {
	return appIdentity
}

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected by main.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	cfgFile      string
	logLevelFlag string
	endpointFlag string
)

// appConfig is loaded by the root pre-run hook.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "goneos",
	Short: "Submit AMPL jobs to the NEOS Server",
	Long: `goneos submits optimization jobs written in AMPL to the NEOS Server
and follows them to completion, streaming solver output as it arrives.

Examples:
  goneos submit diet.run -g lp -s MINOS -e you@example.com
  goneos submit -m diet.mod -d diet.dat -g lp -s MINOS -e you@example.com
  goneos submit --job diet.yaml --output jsonl
  goneos solvers
  goneos jobs list`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/goneos/config.yaml)")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&endpointFlag, "endpoint", "", "NEOS XML-RPC endpoint")
}

// initConfig loads configuration and configures the CLI logger.
func initConfig(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	overrides := map[string]any{}
	if cmd.Flags().Changed("log-level") {
		overrides["logging.level"] = logLevelFlag
	}
	if cmd.Flags().Changed("endpoint") {
		overrides["neos.endpoint"] = endpointFlag
	}

	cfg, err := config.LoadFile(ctx, cfgFile, overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	appConfig = cfg

	observability.InitCLILogger(appIdentity.BinaryName, cfg.Logging.Level == "debug")
	if err := observability.SetLevel(cfg.Logging.Level); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid log level", err)
	}
	if cfg.File != "" {
		observability.CLILogger.Debug("Loaded config", zap.String("path", cfg.File))
	}
	return nil
}

// currentConfig returns the loaded configuration, loading defaults when a
// command runs without the root pre-run hook.
func currentConfig(ctx context.Context) (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.LoadFile(ctx, cfgFile)
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}

// Execute runs the root command with SIGINT/SIGTERM cancellation and
// returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	code := ExitCode(err)
	observability.CLILogger.Debug("Exiting", zap.Int("exit_code", code))
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return code
}
