package config

import (
	"time"
)

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			BaseURL:       "http://localhost:8080/api",
			Timeout:       Duration(120 * time.Second),
			UploadTimeout: Duration(60 * time.Second),
			UserAgent:     "genstudio",
		},

		Generation: GenerationConfig{
			DefaultCount: 1,
		},

		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},

		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},

		Storage: StorageConfig{
			DatabasePath: GetDefaultStoragePaths().DatabasePath,
		},
	}
}
