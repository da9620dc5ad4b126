package cmd

import (
	"encoding/json"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/goneos/pkg/neos"
)

func TestSolvers_Table(t *testing.T) {
	newTestEnv(t, newFakeNEOS("Done"))

	stdout, _, err := execute(t, "solvers")
	require.NoError(t, err)
	assert.Contains(t, stdout, "CATEGORY")
	assert.Contains(t, stdout, "Linear Programming")
	assert.Contains(t, stdout, "CPLEX, MINOS")
	assert.Contains(t, stdout, "CBC")
}

func TestSolvers_JSON(t *testing.T) {
	newTestEnv(t, newFakeNEOS("Done"))

	stdout, _, err := execute(t, "solvers", "--json")
	require.NoError(t, err)

	var groups []neos.CategoryGroup
	require.NoError(t, json.Unmarshal([]byte(stdout), &groups))
	require.Len(t, groups, 2)
	assert.Equal(t, "lp", groups[0].Category)
	assert.Equal(t, "Linear Programming", groups[0].DisplayName)
	assert.Equal(t, []string{"CPLEX", "MINOS"}, groups[0].Solvers)
	assert.Equal(t, "milp", groups[1].Category)
	assert.Equal(t, "milp", groups[1].DisplayName)
}

func TestSolvers_Unreachable(t *testing.T) {
	newTestEnv(t, nil)
	t.Setenv("GONEOS_ENDPOINT", "http://127.0.0.1:1")

	_, _, err := execute(t, "solvers")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCode(err))
}
