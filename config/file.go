package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory.
const DefaultConfigFile = ".stockreport.yaml"

// File is the YAML form of the configuration. Unset fields keep defaults.
type File struct {
	Input       string                    `yaml:"input"`
	Parallelism *int                      `yaml:"parallelism"`
	Timeout     string                    `yaml:"timeout"`
	MaxRetries  *int                      `yaml:"max_retries"`
	UserAgent   string                    `yaml:"user_agent"`
	Verbose     *bool                     `yaml:"verbose"`
	MetricsAddr string                    `yaml:"metrics_addr"`
	Reports     map[string]ReportOverride `yaml:"reports"`
}

// LoadFile parses the YAML file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

// FindConfigFile resolves the config file to load. An explicit path must
// exist; otherwise ./.stockreport.yaml and then
// $XDG_CONFIG_HOME/stockreport/config.yaml are tried. An empty result with a
// nil error means no file is present.
func FindConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
		}
		return explicit, nil
	}

	candidates := []string{DefaultConfigFile}
	if xdg.ConfigHome != "" {
		candidates = append(candidates, filepath.Join(xdg.ConfigHome, AppName, "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// Merge copies every field set in f onto cfg.
func (f *File) Merge(cfg *Config) error {
	if f.Input != "" {
		cfg.Input = f.Input
	}
	if f.Parallelism != nil {
		cfg.Parallelism = *f.Parallelism
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout %q: %w", f.Timeout, err)
		}
		cfg.Timeout = d
	}
	if f.MaxRetries != nil {
		cfg.MaxRetries = *f.MaxRetries
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.Verbose != nil {
		cfg.Verbose = *f.Verbose
	}
	if f.MetricsAddr != "" {
		cfg.MetricsAddr = f.MetricsAddr
	}
	if cfg.Reports == nil {
		cfg.Reports = map[string]ReportOverride{}
	}
	for name, o := range f.Reports {
		cfg.Reports[name] = o
	}
	return nil
}

// Load builds a Config from defaults, the config file and the environment,
// in that order of precedence. CLI flags are applied by the caller.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	cfg.ConfigFile = EnvString(EnvConfigFile, "")

	path, err := FindConfigFile(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := f.Merge(cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	ApplyEnv(cfg)
	return cfg, nil
}
