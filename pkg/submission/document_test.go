package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_XMLLayout(t *testing.T) {
	d := Document{
		Category:  "milp",
		Solver:    "Gurobi",
		InputType: InputType,
		Client:    "client-x",
		Priority:  Priority,
		Email:     "someone@example.org",
		Model:     "var x;\n",
		Data:      "",
		Commands:  "solve;\n",
		Comments:  "demo",
	}

	want := "<document>\n" +
		"<category>milp</category>\n" +
		"<solver>Gurobi</solver>\n" +
		"<inputType>AMPL</inputType>\n" +
		"<client>client-x</client>\n" +
		"<priority>long</priority>\n" +
		"<email>someone@example.org</email>\n" +
		"\n" +
		"<model><![CDATA[var x;\n]]></model>\n" +
		"<data><![CDATA[]]></data>\n" +
		"<commands><![CDATA[solve;\n]]></commands>\n" +
		"<comments><![CDATA[demo]]></comments>\n" +
		"\n" +
		"</document>\n"

	assert.Equal(t, want, d.XML())
	assert.Equal(t, len(want), d.Size())
}

func TestDocument_RoundTripLiteralContent(t *testing.T) {
	tests := []struct {
		name  string
		model string
	}{
		{name: "markup", model: "<model>not a tag</model> & </document>\n"},
		{name: "cdata terminator", model: "param s := \"]]>\";\n"},
		{name: "nested cdata", model: "<![CDATA[inner]]>]]>]]>\n"},
		{name: "trailing bracket", model: "x]]"},
		{name: "unicode", model: "param π := 3.14159; # ≥ ≤\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Document{
				Category:  "nco",
				Solver:    "Knitro",
				InputType: InputType,
				Client:    ClientIdentifier,
				Priority:  Priority,
				Email:     "a@b.c",
				Model:     tt.model,
				Data:      tt.model,
				Commands:  "solve;\n" + tt.model,
				Comments:  tt.model,
			}

			got, err := ParseDocument([]byte(d.XML()))
			require.NoError(t, err)
			assert.Equal(t, tt.model, got.Model)
			assert.Equal(t, tt.model, got.Data)
			assert.Equal(t, "solve;\n"+tt.model, got.Commands)
			assert.Equal(t, tt.model, got.Comments)
			assert.Equal(t, "nco", got.Category)
			assert.Equal(t, ClientIdentifier, got.Client)
		})
	}
}

func TestDocument_EscapesMetadata(t *testing.T) {
	d := Document{Category: "lp", Solver: "A&B<C>", Email: "x@y"}
	assert.Contains(t, d.XML(), "<solver>A&amp;B&lt;C&gt;</solver>\n")

	got, err := ParseDocument([]byte(d.XML()))
	require.NoError(t, err)
	assert.Equal(t, "A&B<C>", got.Solver)
}

func TestParseDocument_Invalid(t *testing.T) {
	_, err := ParseDocument([]byte("<document><model>"))
	assert.Error(t, err)
}
