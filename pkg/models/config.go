package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Config holds the application configuration.
type Config struct {
	MediaFolder  string `json:"media_folder"`  // watched media folder
	OutputFolder string `json:"output_folder"` // transcript output folder
	TempDir      string `json:"temp_dir"`      // temp dir for segment files, empty means system default
	WatchMode    bool   `json:"watch_mode"`    // watch MediaFolder for new files
	LogLevel     string `json:"log_level"`     // log level
	LogFile      string `json:"log_file"`      // log file path

	APIKey      string `json:"api_key"`      // transcription backend credential
	APIEndpoint string `json:"api_endpoint"` // transcription backend base URL
	Model       string `json:"model"`        // backend model name

	// Chunking budget. An asset over MaxChunkMB raw bytes is split into
	// ChunkMinutes windows re-encoded at mono/16kHz/32kbps, which keeps the
	// base64-inflated payload under the backend request-size limit.
	MaxChunkMB   int `json:"max_chunk_mb"`
	ChunkMinutes int `json:"chunk_minutes"`

	// Retry budget for the "segment not yet ready" class of failures.
	MaxAttempts int     `json:"max_attempts"`
	RetryDelay  float64 `json:"retry_delay"` // seconds between attempts

	// Readiness polling (upload flow only).
	PollMaxAttempts int     `json:"poll_max_attempts"`
	PollInterval    float64 `json:"poll_interval"` // seconds

	// A single transcription call can be long-running; it gets its own
	// deadline, independent from the polling loop.
	RequestTimeout int `json:"request_timeout"` // seconds

	UseUploadFlow bool `json:"use_upload_flow"` // upload-then-reference instead of inline bytes

	// Some deployments have a flaky file-status endpoint. When set, the
	// waiter sleeps GracePeriod once and proceeds optimistically, leaving
	// "not ready" failures to the transcription retry path.
	StatusCheckUnreliable bool    `json:"status_check_unreliable"`
	GracePeriod           float64 `json:"grace_period"` // seconds
}

// ConfigValidationError reports an invalid configuration field.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e *ConfigValidationError) Error() string {
	msg := fmt.Sprintf("config validation error: %s - %s", e.Field, e.Message)
	logrus.Error(msg)
	return msg
}

// NewDefaultConfig creates the default configuration. The API key falls
// back to the MEDIASCRIBE_API_KEY environment variable.
func NewDefaultConfig() *Config {
	return &Config{
		MediaFolder:  "./media",
		OutputFolder: "./output",
		TempDir:      "",
		WatchMode:    false,
		LogLevel:     "INFO",
		LogFile:      "",

		APIKey:      os.Getenv("MEDIASCRIBE_API_KEY"),
		APIEndpoint: "https://generativelanguage.googleapis.com",
		Model:       "gemini-2.0-flash",

		MaxChunkMB:   15,
		ChunkMinutes: 30,

		MaxAttempts: 10,
		RetryDelay:  15.0,

		PollMaxAttempts: 30,
		PollInterval:    2.0,

		RequestTimeout: 300,

		UseUploadFlow:         false,
		StatusCheckUnreliable: false,
		GracePeriod:           20.0,
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if err := ensureDirExists(c.MediaFolder); err != nil {
		return &ConfigValidationError{"MediaFolder", err.Error()}
	}

	if err := ensureDirExists(c.OutputFolder); err != nil {
		return &ConfigValidationError{"OutputFolder", err.Error()}
	}

	if c.MaxChunkMB < 1 || c.MaxChunkMB > 100 {
		return &ConfigValidationError{"MaxChunkMB", "must be between 1 and 100"}
	}

	if c.ChunkMinutes < 1 || c.ChunkMinutes > 120 {
		return &ConfigValidationError{"ChunkMinutes", "must be between 1 and 120"}
	}

	if c.MaxAttempts < 1 || c.MaxAttempts > 50 {
		return &ConfigValidationError{"MaxAttempts", "must be between 1 and 50"}
	}

	if c.RetryDelay < 0 || c.RetryDelay > 120 {
		return &ConfigValidationError{"RetryDelay", "must be between 0 and 120 seconds"}
	}

	if c.PollMaxAttempts < 1 || c.PollMaxAttempts > 500 {
		return &ConfigValidationError{"PollMaxAttempts", "must be between 1 and 500"}
	}

	if c.PollInterval <= 0 || c.PollInterval > 60 {
		return &ConfigValidationError{"PollInterval", "must be between 0 and 60 seconds"}
	}

	if c.RequestTimeout < 1 {
		return &ConfigValidationError{"RequestTimeout", "must be at least 1 second"}
	}

	return nil
}

// LoadFromFile loads the configuration from a JSON file.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("failed to read config file: %v", err)
		return err
	}

	err = json.Unmarshal(data, c)
	if err != nil {
		logrus.Errorf("failed to parse config file: %v", err)
		return err
	}

	if err := c.Validate(); err != nil {
		logrus.Errorf("config validation failed: %v", err)
		return err
	}

	return nil
}

// SaveToFile writes the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logrus.Errorf("failed to create directory: %v", err)
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		logrus.Errorf("failed to serialize config: %v", err)
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		logrus.Errorf("failed to write config file: %v", err)
		return err
	}

	return nil
}

// Update applies a map of field updates, rolling back on validation failure.
func (c *Config) Update(updates map[string]interface{}) error {
	tempConfig := *c

	updateBytes, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("failed to serialize updates: %w", err)
	}

	err = json.Unmarshal(updateBytes, c)
	if err != nil {
		*c = tempConfig
		return fmt.Errorf("failed to apply config updates: %w", err)
	}

	if err := c.Validate(); err != nil {
		*c = tempConfig
		return err
	}

	return nil
}

// Reset restores the default configuration.
func (c *Config) Reset() {
	defaultConfig := NewDefaultConfig()
	*c = *defaultConfig
}

func ensureDirExists(path string) error {
	if path == "" {
		return nil // empty path is optional
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}

	return nil
}
