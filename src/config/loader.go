package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	precedence ConfigPrecedence
	validator  *Validator
	fs         afero.Fs
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader reading from the OS filesystem
// and environment.
func NewLoader(precedence ConfigPrecedence) *Loader {
	return &Loader{
		precedence: precedence,
		validator:  NewValidator(),
		fs:         afero.NewOsFs(),
		lookupEnv:  os.LookupEnv,
	}
}

// WithFs sets the filesystem config files are read from and written to.
func (l *Loader) WithFs(fs afero.Fs) *Loader {
	l.fs = fs
	return l
}

// WithEnv sets the environment lookup function.
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	l.lookupEnv = lookup
	return l
}

// Load loads configuration from all sources and merges them
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	sources := []struct {
		path   string
		source ConfigSource
	}{
		{l.precedence.SystemConfig, SourceSystem},
		{l.precedence.UserConfig, SourceUser},
		{l.precedence.ProjectConfig, SourceProject},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}

		if cfg, err := l.loadFile(src.path); err == nil {
			config = mergeConfigs(config, cfg)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}
	}

	if l.precedence.EnvironmentPrefix != "" {
		l.applyEnvironmentOverrides(config)
	}

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &config, nil
}

// SaveFile saves configuration to a file
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := l.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(l.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// mergeConfigs merges two configurations with the second taking precedence.
// Booleans only ever switch on; a file cannot turn off a setting enabled
// by a lower layer.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	if override.API.BaseURL != "" {
		result.API.BaseURL = override.API.BaseURL
	}
	if override.API.Timeout != 0 {
		result.API.Timeout = override.API.Timeout
	}
	if override.API.UploadTimeout != 0 {
		result.API.UploadTimeout = override.API.UploadTimeout
	}
	if override.API.UserAgent != "" {
		result.API.UserAgent = override.API.UserAgent
	}

	if override.Generation.DefaultCount != 0 {
		result.Generation.DefaultCount = override.Generation.DefaultCount
	}
	if override.Generation.EnableWebSearch {
		result.Generation.EnableWebSearch = true
	}
	if override.Generation.OutputDir != "" {
		result.Generation.OutputDir = override.Generation.OutputDir
	}

	if override.Output.Format != "" {
		result.Output.Format = override.Output.Format
	}
	if override.Output.Color != "" {
		result.Output.Color = override.Output.Color
	}

	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	if override.Storage.DatabasePath != "" {
		result.Storage.DatabasePath = override.Storage.DatabasePath
	}

	return &result
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) {
	prefix := l.precedence.EnvironmentPrefix
	env := func(name string) string {
		v, _ := l.lookupEnv(prefix + "_" + name)
		return v
	}

	if baseURL := env("BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if level := env("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := env("OUTPUT_FORMAT"); format != "" {
		config.Output.Format = format
	}
	if dbPath := env("DB_PATH"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	systemConfigPath := filepath.Join("/etc", AppName, "config.json")
	if runtime.GOOS == "windows" {
		systemConfigPath = filepath.Join(os.Getenv("PROGRAMDATA"), AppName, "config.json")
	}

	return ConfigPrecedence{
		SystemConfig:      systemConfigPath,
		UserConfig:        filepath.Join(xdg.ConfigHome, AppName, "config.json"),
		ProjectConfig:     filepath.Join("."+AppName, "config.json"),
		EnvironmentPrefix: "GENSTUDIO",
	}
}

// FindConfigFile returns the highest-precedence config file that exists.
func (l *Loader) FindConfigFile() (string, error) {
	checkPaths := []string{
		l.precedence.ProjectConfig,
		l.precedence.UserConfig,
		l.precedence.SystemConfig,
	}

	for _, path := range checkPaths {
		if path == "" {
			continue
		}
		if _, err := l.fs.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found")
}

// UpdateFile applies fn to the contents of a single config file and writes it
// back. Values from other layers are not copied into the file; the result is
// validated as it would load on top of the defaults.
func (l *Loader) UpdateFile(path string, fn func(*Config) error) error {
	raw, err := l.loadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		raw, err = &Config{}, nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	if err := fn(raw); err != nil {
		return err
	}
	if err := l.validator.Validate(mergeConfigs(DefaultConfig(), raw)); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := l.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := afero.WriteFile(l.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
