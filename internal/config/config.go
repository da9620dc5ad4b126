// Package config loads goneos settings.
//
// Precedence, lowest to highest: built-in defaults, the user config file
// ($XDG_CONFIG_HOME/goneos/config.yaml or --config), GONEOS_* environment
// variables, runtime overrides (bound command-line flags).
package config

import (
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap/zapcore"
)

// AppName is used for the config directory, data directory and env prefix.
const AppName = "goneos"

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "GONEOS"

// Config is the decoded configuration.
type Config struct {
	NEOS       NEOSConfig       `mapstructure:"neos"`
	Poll       PollConfig       `mapstructure:"poll"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Archive    ArchiveConfig    `mapstructure:"archive"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// NEOSConfig locates the NEOS server.
type NEOSConfig struct {
	Endpoint string `mapstructure:"endpoint"`

	// Timeout bounds each XML-RPC call. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`
}

// PollConfig controls the wait loop.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	MaxPolls int           `mapstructure:"max_polls"`
}

// SubmissionConfig supplies defaults for submit flags.
type SubmissionConfig struct {
	Email    string `mapstructure:"email"`
	Category string `mapstructure:"category"`
	Solver   string `mapstructure:"solver"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// JobsConfig locates the local job registry.
type JobsConfig struct {
	Dir string `mapstructure:"dir"`
}

// ArchiveConfig sets the default result archive.
type ArchiveConfig struct {
	Destination string `mapstructure:"destination"`
	Region      string `mapstructure:"region"`
	Endpoint    string `mapstructure:"endpoint"`
	Profile     string `mapstructure:"profile"`
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	u, err := url.Parse(c.NEOS.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("neos.endpoint must be an http(s) URL, got %q", c.NEOS.Endpoint)
	}
	if c.NEOS.Timeout < 0 {
		return fmt.Errorf("neos.timeout must not be negative")
	}
	if c.Poll.Interval < 0 {
		return fmt.Errorf("poll.interval must not be negative")
	}
	if c.Poll.MaxPolls < 0 {
		return fmt.Errorf("poll.max_polls must not be negative")
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Jobs.Dir == "" {
		return fmt.Errorf("jobs.dir must not be empty")
	}
	return nil
}
