package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/goneos/internal/observability"
	"github.com/3leaps/goneos/pkg/neos"
)

var solversCmd = &cobra.Command{
	Use:   "solvers",
	Short: "List the solvers NEOS offers",
	Long: `List NEOS solvers grouped by category.

By default only solvers accepting AMPL input are shown. Use --language ""
to list every input format.

Examples:
  goneos solvers
  goneos solvers --language GAMS
  goneos solvers --json`,
	Args: cobra.NoArgs,
	RunE: runSolvers,
}

var (
	solversLanguage string
	solversJSON     bool
)

func init() {
	rootCmd.AddCommand(solversCmd)
	solversCmd.Flags().StringVar(&solversLanguage, "language", "AMPL", "Input language to filter on (empty lists all)")
	solversCmd.Flags().BoolVar(&solversJSON, "json", false, "Output as JSON")
}

func runSolvers(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := currentConfig(ctx)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	client, err := newClient(cfg, "")
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid NEOS endpoint", err)
	}
	defer func() { _ = client.Close() }()

	ids, err := client.ListAllSolvers(ctx)
	if err != nil {
		observability.CLILogger.Error("Failed to list solvers",
			zap.String("endpoint", client.Endpoint()),
			zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to list solvers", err)
	}

	// Display names are cosmetic; fall back to category keys.
	names, err := client.ListCategories(ctx)
	if err != nil {
		observability.CLILogger.Debug("Failed to list categories", zap.Error(err))
		names = nil
	}

	groups := neos.GroupSolvers(ids, solversLanguage, names)

	out := cmd.OutOrStdout()
	if solversJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	if len(groups) == 0 {
		_, _ = fmt.Fprintln(out, "No solvers found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "CATEGORY\tNAME\tSOLVERS")
	for _, g := range groups {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", g.Category, g.DisplayName, strings.Join(g.Solvers, ", "))
	}
	return nil
}
