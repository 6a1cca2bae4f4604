package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the complete genstudio configuration
type Config struct {
	// Version of the configuration schema
	Version string `json:"version,omitempty"`

	// API configuration for the backend server
	API APIConfig `json:"api"`

	// Generation defaults for the generate command
	Generation GenerationConfig `json:"generation"`

	// Output controls how commands print results
	Output OutputConfig `json:"output"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Storage for local studio state
	Storage StorageConfig `json:"storage"`
}

// APIConfig contains backend connection settings
type APIConfig struct {
	// BaseURL includes the /api prefix
	BaseURL string `json:"base_url,omitempty" validate:"required,url"`

	// Timeout for JSON requests; generation can take minutes
	Timeout Duration `json:"timeout,omitempty" validate:"min=0"`

	// UploadTimeout for multipart uploads
	UploadTimeout Duration `json:"upload_timeout,omitempty" validate:"min=0"`

	UserAgent string `json:"user_agent,omitempty"`
}

// GenerationConfig contains defaults applied to generate requests
type GenerationConfig struct {
	DefaultCount    int    `json:"default_count,omitempty" validate:"min=1,max=3"`
	EnableWebSearch bool   `json:"enable_web_search,omitempty"`
	OutputDir       string `json:"output_dir,omitempty"`
}

// OutputConfig contains output preferences
type OutputConfig struct {
	// Format is text or json
	Format string `json:"format,omitempty" validate:"format"`

	// Color is auto, always or never
	Color string `json:"color,omitempty" validate:"oneof=auto always never"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level,omitempty" validate:"log_level"`
	Format string `json:"format,omitempty" validate:"log_format"`
}

// StorageConfig contains local storage settings
type StorageConfig struct {
	DatabasePath string `json:"database_path,omitempty"`
}

// Duration is a time.Duration that reads and writes as a Go duration string
// ("90s", "2m"). Plain numbers are read as seconds.
type Duration time.Duration

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// SystemConfig is the system-wide config file path
	SystemConfig string

	// UserConfig is the user's config file path
	UserConfig string

	// ProjectConfig is the project-specific config file path
	ProjectConfig string

	// EnvironmentPrefix for environment variables
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", e.Field, e.Message)
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceEnvironment ConfigSource = "environment"
	SourceCLI         ConfigSource = "cli"
)
