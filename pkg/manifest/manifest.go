// Package manifest loads and validates goneos submission manifests.
//
// A submission manifest is a YAML or JSON file describing one NEOS job:
// solver selection, AMPL inputs, polling behavior, and where to archive
// the results. It lets a job be re-run without retyping flags.
//
// Manifests are validated against an embedded JSON Schema before they are
// decoded. The schema disallows unknown properties.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	neos:
//	  category: milp
//	  solver: CPLEX
//	  email: ops@example.com
//	input:
//	  run: diet.run
//	poll:
//	  interval: 5s
//	archive:
//	  destination: s3://neos-results/diet/
//
// Input paths are relative to the manifest file.
package manifest

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/3leaps/goneos/pkg/submission"
)

// Manifest is a validated submission manifest.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	NEOS    NEOSConfig     `json:"neos" yaml:"neos"`
	Input   InputConfig    `json:"input" yaml:"input"`
	Poll    *PollConfig    `json:"poll,omitempty" yaml:"poll,omitempty"`
	Archive *ArchiveConfig `json:"archive,omitempty" yaml:"archive,omitempty"`

	// path is the file the manifest was loaded from.
	path string
}

// NEOSConfig selects the solver and carries submission metadata.
type NEOSConfig struct {
	Category string `json:"category" yaml:"category"`
	Solver   string `json:"solver" yaml:"solver"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Comments string `json:"comments,omitempty" yaml:"comments,omitempty"`

	// Endpoint overrides the configured NEOS endpoint for this job.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// InputConfig names the AMPL sources: either a run script, or a model with
// optional data.
type InputConfig struct {
	Run   string `json:"run,omitempty" yaml:"run,omitempty"`
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	Data  string `json:"data,omitempty" yaml:"data,omitempty"`
}

// PollConfig overrides the polling settings for this job.
type PollConfig struct {
	// Interval is a Go duration string ("5s", "500ms", "0").
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`
	MaxPolls *int   `json:"max_polls,omitempty" yaml:"max_polls,omitempty"`
	Verbose  *bool  `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// ArchiveConfig configures result archiving.
type ArchiveConfig struct {
	Destination string `json:"destination" yaml:"destination"`
	Force       bool   `json:"force,omitempty" yaml:"force,omitempty"`
}

// Path returns the file the manifest was loaded from, if any.
func (m *Manifest) Path() string {
	return m.path
}

// BaseDir is the directory input paths are resolved against.
func (m *Manifest) BaseDir() string {
	if m.path == "" {
		return "."
	}
	return filepath.Dir(m.path)
}

// resolve joins a manifest-relative path to BaseDir.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.BaseDir(), p)
}

// Request converts the manifest into a submission request with input
// paths resolved against the manifest's directory.
func (m *Manifest) Request() submission.Request {
	return submission.Request{
		RunPath:   m.resolve(m.Input.Run),
		ModelPath: m.resolve(m.Input.Model),
		DataPath:  m.resolve(m.Input.Data),
		Category:  m.NEOS.Category,
		Solver:    m.NEOS.Solver,
		Email:     m.NEOS.Email,
		Comments:  m.NEOS.Comments,
	}
}

// PollInterval returns the parsed poll interval and whether one was set.
func (m *Manifest) PollInterval() (time.Duration, bool, error) {
	if m.Poll == nil || m.Poll.Interval == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(m.Poll.Interval)
	if err != nil {
		return 0, false, fmt.Errorf("poll.interval: %w", err)
	}
	return d, true, nil
}
