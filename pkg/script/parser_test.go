package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_OrderPreserving(t *testing.T) {
	lines := []string{
		"model \"m1.mod\";\n",
		"data \"d1.dat\";\n",
		"model \"m2.mod\";\n",
		"data \"d2.dat\";\n",
		"solve;\n",
	}

	cs, err := Parse("/jobs/run/job.run", lines)
	require.NoError(t, err)
	assert.Equal(t, []string{"/jobs/run/m1.mod", "/jobs/run/m2.mod"}, cs.ModelPaths)
	assert.Equal(t, []string{"/jobs/run/d1.dat", "/jobs/run/d2.dat"}, cs.DataPaths)
	assert.Equal(t, []string{"solve;\n"}, cs.Body)
}

func TestParse_BodyPassthrough(t *testing.T) {
	lines := []string{
		"# model this is not a directive\n",
		"option solver cplex;\n",
		"\n",
		"solve;\n",
		"display x;\n",
		"models m.mod;\n",
		"Model m.mod;\n",
		"model\n",
	}

	cs, err := Parse("job.run", lines)
	require.NoError(t, err)
	assert.Empty(t, cs.ModelPaths)
	assert.Empty(t, cs.DataPaths)
	assert.Equal(t, lines, cs.Body)
	assert.Equal(t,
		"# model this is not a directive\noption solver cplex;\n\nsolve;\ndisplay x;\nmodels m.mod;\nModel m.mod;\nmodel\n",
		cs.Commands())
}

func TestParse_RelativeToScriptDir(t *testing.T) {
	cs, err := Parse("scripts/job.run", []string{"model ../models/a.mod;\n", "data /abs/a.dat\n"})
	require.NoError(t, err)
	assert.Equal(t, []string{"models/a.mod"}, cs.ModelPaths)
	assert.Equal(t, []string{"/abs/a.dat"}, cs.DataPaths)
}

func TestParse_MalformedDirective(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		keyword string
	}{
		{name: "model semicolon only", line: "model ;\n", keyword: KeywordModel},
		{name: "data empty quotes", line: "data \"\";\n", keyword: KeywordData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("job.run", []string{"solve;\n", tt.line})
			require.Error(t, err)
			assert.True(t, IsMalformedDirective(err))

			var de *DirectiveError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, 2, de.Line)
			assert.Equal(t, tt.keyword, de.Keyword)
			assert.Equal(t, "job.run", de.Path)
		})
	}
}

func TestParse_IncludeLinesLeftInBody(t *testing.T) {
	// Parse runs after resolution; an include that survived is not its concern.
	cs, err := Parse("job.run", []string{"include x.run;\n"})
	require.NoError(t, err)
	assert.Equal(t, []string{"include x.run;\n"}, cs.Body)
}
