package script

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemTree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func TestResolve_NoDirectives(t *testing.T) {
	fs := newMemTree(t, map[string]string{
		"/m/diet.mod": "set FOOD;\nparam cost {FOOD} > 0;\n",
	})

	lines, err := NewResolver(fs).Resolve("/m/diet.mod")
	require.NoError(t, err)
	assert.Equal(t, []string{"set FOOD;\n", "param cost {FOOD} > 0;\n"}, lines)
}

func TestResolve_SplicesIncludeInPlace(t *testing.T) {
	fs := newMemTree(t, map[string]string{
		"/x/y/a.txt": "first\ninclude \"b.txt\";\nlast\n",
		"/x/y/b.txt": "b1\nb2\n",
	})

	text, err := NewResolver(fs).ResolveText("/x/y/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "first\nb1\nb2\nlast\n", text)
}

func TestResolve_IsPureSplicing(t *testing.T) {
	fs := newMemTree(t, map[string]string{
		"/p/a.mod":     "var x;\ninclude sub/b.mod;\nminimize z: x;\n",
		"/p/sub/b.mod": "var y;\ninclude c.mod\n",
		"/p/sub/c.mod": "s.t. c1: x + y >= 1;\n",
	})
	r := NewResolver(fs)

	got, err := r.Resolve("/p/a.mod")
	require.NoError(t, err)

	inner, err := r.Resolve("/p/sub/b.mod")
	require.NoError(t, err)

	want := append([]string{"var x;\n"}, inner...)
	want = append(want, "minimize z: x;\n")
	assert.Equal(t, want, got)
}

func TestResolve_IncludeArgumentForms(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "quoted with semicolon", line: `include "inc.txt";`},
		{name: "bare with semicolon", line: `include inc.txt;`},
		{name: "bare", line: `include inc.txt`},
		{name: "space before semicolon", line: `include "inc.txt" ;`},
		{name: "single quotes", line: `include 'inc.txt';`},
		{name: "indented with tab", line: "\t  include   \"inc.txt\";  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newMemTree(t, map[string]string{
				"/d/main.txt": tt.line + "\n",
				"/d/inc.txt":  "included\n",
			})
			text, err := NewResolver(fs).ResolveText("/d/main.txt")
			require.NoError(t, err)
			assert.Equal(t, "included\n", text)
		})
	}
}

func TestResolve_PassthroughLines(t *testing.T) {
	content := strings.Join([]string{
		"",
		"   ",
		"# include \"missing.txt\";",
		"  #include missing.txt",
		"include",
		"Include other.txt;",
		"includes other.txt;",
		"option solver gurobi;",
		"solve;",
	}, "\n") + "\n"
	fs := newMemTree(t, map[string]string{"/d/run.txt": content})

	text, err := NewResolver(fs).ResolveText("/d/run.txt")
	require.NoError(t, err)
	assert.Equal(t, content, text)
}

func TestResolve_PreservesMissingFinalNewlineAndCRLF(t *testing.T) {
	fs := newMemTree(t, map[string]string{
		"/d/a.txt": "one\r\ninclude b.txt;\r\nthree",
		"/d/b.txt": "two\r\n",
	})

	text, err := NewResolver(fs).ResolveText("/d/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\r\ntwo\r\nthree", text)
}

func TestResolve_DirectCycle(t *testing.T) {
	fs := newMemTree(t, map[string]string{
		"/c/a.txt": "include a.txt;\n",
	})

	_, err := NewResolver(fs).Resolve("/c/a.txt")
	require.Error(t, err)
	assert.True(t, IsCyclicInclude(err))

	var cycle *CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, "/c/a.txt", cycle.Path)
	assert.Equal(t, []string{"/c/a.txt"}, cycle.Chain)
}

func TestResolve_TransitiveCycle(t *testing.T) {
	fs := newMemTree(t, map[string]string{
		"/c/a.txt":     "include sub/b.txt;\n",
		"/c/sub/b.txt": "include ../c.txt;\n",
		"/c/c.txt":     "include a.txt;\n",
	})

	_, err := NewResolver(fs).Resolve("/c/a.txt")
	require.Error(t, err)

	var cycle *CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, "/c/a.txt", cycle.Path)
	assert.Equal(t, []string{"/c/a.txt", "/c/sub/b.txt", "/c/c.txt"}, cycle.Chain)
	assert.Contains(t, err.Error(), "/c/sub/b.txt")
}

func TestResolve_CycleThroughEquivalentSpelling(t *testing.T) {
	fs := newMemTree(t, map[string]string{
		"/c/a.txt": "include ./sub/../a.txt;\n",
	})

	_, err := NewResolver(fs).Resolve("/c/a.txt")
	assert.True(t, IsCyclicInclude(err))
}

func TestResolve_DiamondIsNotACycle(t *testing.T) {
	fs := newMemTree(t, map[string]string{
		"/d/top.txt":    "include left.txt;\ninclude right.txt;\n",
		"/d/left.txt":   "include common.txt;\n",
		"/d/right.txt":  "include common.txt;\n",
		"/d/common.txt": "shared\n",
	})

	text, err := NewResolver(fs).ResolveText("/d/top.txt")
	require.NoError(t, err)
	assert.Equal(t, "shared\nshared\n", text)
}

func TestResolve_MissingInclude(t *testing.T) {
	fs := newMemTree(t, map[string]string{
		"/d/a.txt": "before\ninclude nope.txt;\n",
	})

	lines, err := NewResolver(fs).Resolve("/d/a.txt")
	require.Error(t, err)
	assert.Nil(t, lines)
	assert.True(t, IsFileAccess(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "/d/nope.txt", fe.Path)
}

func TestResolve_MalformedInclude(t *testing.T) {
	fs := newMemTree(t, map[string]string{
		"/d/a.txt": "ok\ninclude ;\n",
	})

	_, err := NewResolver(fs).Resolve("/d/a.txt")
	require.Error(t, err)
	assert.True(t, IsMalformedDirective(err))

	var de *DirectiveError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.Line)
	assert.Equal(t, KeywordInclude, de.Keyword)
	assert.Equal(t, "include ;", de.Text)
}

func TestResolve_RelativeToIncludingFileNotWorkingDir(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "x", "y")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "a.txt"), []byte("include \"b.txt\";\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "b.txt"), []byte("nested b\n"), 0o644))
	// A decoy next to the working directory must not be picked up.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("decoy\n"), 0o644))
	t.Chdir(dir)

	text, err := NewResolver(nil).ResolveText(filepath.Join("x", "y", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested b\n", text)
}
