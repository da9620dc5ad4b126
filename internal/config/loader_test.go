package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/goneos/pkg/neos"
)

// isolate points config lookup at an empty directory and clears GONEOS_* vars.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, spec := range getEnvSpecs() {
		t.Setenv(spec.Name, "")
		require.NoError(t, os.Unsetenv(spec.Name))
	}
	return dir
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		isolate(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, neos.DefaultEndpoint, cfg.NEOS.Endpoint)
		assert.Equal(t, time.Duration(0), cfg.NEOS.Timeout)
		assert.Equal(t, time.Second, cfg.Poll.Interval)
		assert.Equal(t, 0, cfg.Poll.MaxPolls)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, DefaultJobsDir(), cfg.Jobs.Dir)
		assert.Equal(t, "jobs", filepath.Base(cfg.Jobs.Dir))
		assert.Empty(t, cfg.Archive.Destination)
		assert.Empty(t, cfg.File)
	})

	t.Run("UserConfigFile", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, AppName), 0o755))
		content := "submission:\n  email: user@example.org\npoll:\n  interval: 3s\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, AppName, "config.yaml"), []byte(content), 0o644))

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "user@example.org", cfg.Submission.Email)
		assert.Equal(t, 3*time.Second, cfg.Poll.Interval)
		assert.Equal(t, filepath.Join(dir, AppName, "config.yaml"), cfg.File)
	})

	t.Run("ExplicitFile", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "custom.yaml")
		content := "neos:\n  endpoint: http://localhost:8080\n  timeout: 30s\narchive:\n  destination: s3://results/neos/\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", cfg.NEOS.Endpoint)
		assert.Equal(t, 30*time.Second, cfg.NEOS.Timeout)
		assert.Equal(t, "s3://results/neos/", cfg.Archive.Destination)
	})

	t.Run("ExplicitFileMissing", func(t *testing.T) {
		isolate(t)
		_, err := LoadFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})

	t.Run("EnvOverridesFile", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, AppName), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, AppName, "config.yaml"), []byte("poll:\n  interval: 3s\n"), 0o644))
		t.Setenv("GONEOS_POLL_INTERVAL", "5s")
		t.Setenv("GONEOS_LOG_LEVEL", "DEBUG")
		t.Setenv("GONEOS_MAX_POLLS", "12")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 12, cfg.Poll.MaxPolls)
	})

	t.Run("OverridesWin", func(t *testing.T) {
		isolate(t)
		t.Setenv("GONEOS_ENDPOINT", "http://env.example:1")

		cfg, err := Load(ctx,
			map[string]any{"neos": map[string]any{"endpoint": "http://flag.example:2"}},
			map[string]any{"poll.max_polls": 7},
		)
		require.NoError(t, err)
		assert.Equal(t, "http://flag.example:2", cfg.NEOS.Endpoint)
		assert.Equal(t, 7, cfg.Poll.MaxPolls)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		isolate(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Load(cctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name      string
		override  map[string]any
		errSubstr string
	}{
		{"endpoint scheme", map[string]any{"neos.endpoint": "ftp://neos"}, "neos.endpoint"},
		{"endpoint host", map[string]any{"neos.endpoint": "https://"}, "neos.endpoint"},
		{"negative interval", map[string]any{"poll.interval": "-1s"}, "poll.interval"},
		{"negative max polls", map[string]any{"poll.max_polls": -2}, "poll.max_polls"},
		{"negative timeout", map[string]any{"neos.timeout": "-5s"}, "neos.timeout"},
		{"bad level", map[string]any{"logging.level": "loud"}, "logging.level"},
		{"bad duration", map[string]any{"poll.interval": "soon"}, "decode config"},
		{"empty jobs dir", map[string]any{"jobs.dir": ""}, "jobs.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load(context.Background(), tt.override)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestGetConfig(t *testing.T) {
	isolate(t)
	cfg, err := Load(context.Background(), map[string]any{"submission.solver": "cbc"})
	require.NoError(t, err)

	got := GetConfig()
	require.NotNil(t, got)
	assert.Same(t, cfg, got)
	assert.Equal(t, "cbc", got.Submission.Solver)
}

func TestEnvSpecs(t *testing.T) {
	keys := make(map[string]bool)
	for _, k := range Keys() {
		keys[k] = true
	}

	seen := make(map[string]bool)
	for _, spec := range getEnvSpecs() {
		assert.True(t, keys[spec.Key], "env %s maps to unknown key %s", spec.Name, spec.Key)
		assert.False(t, seen[spec.Name], "duplicate env name %s", spec.Name)
		assert.Regexp(t, `^GONEOS_[A-Z_]+$`, spec.Name)
		seen[spec.Name] = true
	}
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"a":   1,
		"b":   map[string]any{"c": "x", "d": map[string]any{"e": true}},
		"f.g": 2,
	})
	assert.Equal(t, map[string]any{"a": 1, "b.c": "x", "b.d.e": true, "f.g": 2}, got)
}
