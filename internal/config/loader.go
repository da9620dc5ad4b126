package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/3leaps/goneos/pkg/neos"
)

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// EnvSpec maps one environment variable to a config key.
type EnvSpec struct {
	Name string
	Key  string
}

// getEnvSpecs lists the supported environment variables. Short names
// are used for the common settings.
func getEnvSpecs() []EnvSpec {
	specs := []EnvSpec{
		{Name: EnvPrefix + "_ENDPOINT", Key: "neos.endpoint"},
		{Name: EnvPrefix + "_TIMEOUT", Key: "neos.timeout"},
		{Name: EnvPrefix + "_POLL_INTERVAL", Key: "poll.interval"},
		{Name: EnvPrefix + "_MAX_POLLS", Key: "poll.max_polls"},
		{Name: EnvPrefix + "_EMAIL", Key: "submission.email"},
		{Name: EnvPrefix + "_CATEGORY", Key: "submission.category"},
		{Name: EnvPrefix + "_SOLVER", Key: "submission.solver"},
		{Name: EnvPrefix + "_LOG_LEVEL", Key: "logging.level"},
		{Name: EnvPrefix + "_JOBS_DIR", Key: "jobs.dir"},
		{Name: EnvPrefix + "_ARCHIVE", Key: "archive.destination"},
		{Name: EnvPrefix + "_ARCHIVE_REGION", Key: "archive.region"},
		{Name: EnvPrefix + "_ARCHIVE_ENDPOINT", Key: "archive.endpoint"},
		{Name: EnvPrefix + "_ARCHIVE_PROFILE", Key: "archive.profile"},
	}
	return specs
}

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("neos.endpoint", neos.DefaultEndpoint)
	v.SetDefault("neos.timeout", "0s")
	v.SetDefault("poll.interval", "1s")
	v.SetDefault("poll.max_polls", 0)
	v.SetDefault("submission.email", "")
	v.SetDefault("submission.category", "")
	v.SetDefault("submission.solver", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("jobs.dir", DefaultJobsDir())
	v.SetDefault("archive.destination", "")
	v.SetDefault("archive.region", "")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.profile", "")
}

// DefaultJobsDir is the job registry root under the app data directory.
func DefaultJobsDir() string {
	return filepath.Join(gfconfig.GetAppDataDir(AppName), "jobs")
}

// UserConfigDir is where config.yaml is looked up when no file is given.
func UserConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName)
}

// Load reads configuration without an explicit config file.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, "", overrides...)
}

// LoadFile reads configuration from path (or the user config dir when
// path is empty), the environment, and overrides. Override maps may be
// nested ({"poll": {"interval": "5s"}}) or use dotted keys.
//
// The result is also stored for GetConfig.
func LoadFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir := UserConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Key, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.NEOS.Endpoint = strings.TrimSpace(cfg.NEOS.Endpoint)
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// Keys lists every known config key, sorted.
func Keys() []string {
	v := viper.New()
	SetDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}
