package cmd

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/goneos/pkg/neos"
)

var (
	methodNameRx = regexp.MustCompile(`<methodName>([^<]+)</methodName>`)
	intParamRx   = regexp.MustCompile(`<(?:int|i4)>(-?\d+)</(?:int|i4)>`)
)

// fakeNEOS is a scripted NEOS server. Statuses are returned in order; the
// last one repeats.
type fakeNEOS struct {
	mu sync.Mutex

	jobNumber int
	password  string
	rejection string
	statuses  []string
	chunk     string
	result    string

	calls   map[string]int
	docs    []string
	offsets []int
}

func newFakeNEOS(statuses ...string) *fakeNEOS {
	return &fakeNEOS{
		jobNumber: 4242,
		password:  "s3cret",
		statuses:  statuses,
		result:    "Optimal solution found.\nobjective 88.2\n",
		calls:     make(map[string]int),
	}
}

func (f *fakeNEOS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	m := methodNameRx.FindSubmatch(body)
	if m == nil {
		http.Error(w, "no method", http.StatusBadRequest)
		return
	}
	method := string(m[1])

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++

	var value string
	switch method {
	case neos.MethodSubmitJob:
		f.docs = append(f.docs, string(body))
		if f.rejection != "" {
			value = xmlArray("<int>0</int>", xmlString(f.rejection))
		} else {
			value = xmlArray(fmt.Sprintf("<int>%d</int>", f.jobNumber), xmlString(f.password))
		}
	case neos.MethodGetJobStatus:
		n := f.calls[method] - 1
		if n >= len(f.statuses) {
			n = len(f.statuses) - 1
		}
		value = xmlString(f.statuses[n])
	case neos.MethodGetIntermediateResults:
		// The offset is the last integer parameter.
		offset := 0
		if ints := intParamRx.FindAllSubmatch(body, -1); len(ints) > 0 {
			offset, _ = strconv.Atoi(string(ints[len(ints)-1][1]))
		}
		f.offsets = append(f.offsets, offset)
		value = xmlArray(xmlString(f.chunk), fmt.Sprintf("<int>%d</int>", offset+len(f.chunk)))
	case neos.MethodGetFinalResults:
		value = xmlString(f.result)
	case neos.MethodPing:
		value = xmlString("NeosServer is alive\n")
	case neos.MethodListAllSolvers:
		value = xmlArray(
			xmlString("lp:MINOS:AMPL"),
			xmlString("lp:CPLEX:AMPL"),
			xmlString("milp:CBC:AMPL"),
			xmlString("lp:MINOS:GAMS"),
		)
	case neos.MethodListCategories:
		value = `<struct><member><name>lp</name><value><string>Linear Programming</string></value></member></struct>`
	default:
		http.Error(w, "unknown method", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	_, _ = io.WriteString(w, `<?xml version="1.0"?><methodResponse><params><param><value>`+value+`</value></param></params></methodResponse>`)
}

func (f *fakeNEOS) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeNEOS) offsetsSeen() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

func xmlString(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return "<string>" + b.String() + "</string>"
}

func xmlArray(values ...string) string {
	var b strings.Builder
	b.WriteString("<array><data>")
	for _, v := range values {
		b.WriteString("<value>" + v + "</value>")
	}
	b.WriteString("</data></array>")
	return b.String()
}

// testEnv isolates config, registry and endpoint for one test.
type testEnv struct {
	dir     string
	jobsDir string
	fake    *fakeNEOS
}

func newTestEnv(t *testing.T, fake *fakeNEOS) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{dir: dir, jobsDir: filepath.Join(dir, "jobs"), fake: fake}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("GONEOS_JOBS_DIR", env.jobsDir)
	t.Setenv("GONEOS_POLL_INTERVAL", "0s")
	t.Setenv("GONEOS_MAX_POLLS", "0")
	t.Setenv("GONEOS_ARCHIVE", "")
	t.Setenv("GONEOS_EMAIL", "")
	t.Setenv("GONEOS_CATEGORY", "")
	t.Setenv("GONEOS_SOLVER", "")

	if fake != nil {
		srv := httptest.NewServer(fake)
		t.Cleanup(srv.Close)
		t.Setenv("GONEOS_ENDPOINT", srv.URL)
	} else {
		t.Setenv("GONEOS_ENDPOINT", "")
	}

	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	return env
}

// write creates a file under the test directory and returns its path.
func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// dietFiles writes a run script with its model and data files.
func (e *testEnv) dietFiles(t *testing.T) string {
	t.Helper()
	e.write(t, "diet/diet.mod", "set NUTR;\nset FOOD;\n")
	e.write(t, "diet/diet.dat", "set NUTR := A B1 B2;\n")
	return e.write(t, "diet/diet.run", "model diet.mod;\ndata diet.dat;\nsolve;\ndisplay Buy;\n")
}

// execute runs the root command with fresh flag state and returns stdout,
// stderr and the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)
	appConfig = nil

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	rootCmd.SetContext(context.Background())

	err := rootCmd.Execute()

	rootCmd.SetArgs(nil)
	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	resetFlags(rootCmd)
	appConfig = nil

	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag in the tree to its default.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
