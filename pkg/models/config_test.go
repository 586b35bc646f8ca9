package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "./media", config.MediaFolder)
	assert.Equal(t, "./output", config.OutputFolder)
	assert.Equal(t, 15, config.MaxChunkMB)
	assert.Equal(t, 30, config.ChunkMinutes)
	assert.Equal(t, 10, config.MaxAttempts)
	assert.Equal(t, 15.0, config.RetryDelay)
	assert.Equal(t, 300, config.RequestTimeout)
	assert.False(t, config.UseUploadFlow)
	assert.False(t, config.StatusCheckUnreliable)
}

func TestConfigValidate(t *testing.T) {
	tempDir := t.TempDir()

	config := NewDefaultConfig()
	config.MediaFolder = filepath.Join(tempDir, "media")
	config.OutputFolder = filepath.Join(tempDir, "output")
	assert.NoError(t, config.Validate())

	config.MaxAttempts = 0
	err := config.Validate()
	assert.Error(t, err)
	configErr, ok := err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "MaxAttempts", configErr.Field)

	config.MaxAttempts = 10
	config.ChunkMinutes = 0
	err = config.Validate()
	assert.Error(t, err)
	configErr, ok = err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "ChunkMinutes", configErr.Field)

	config.ChunkMinutes = 30
	config.PollInterval = 0
	err = config.Validate()
	assert.Error(t, err)
	configErr, ok = err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "PollInterval", configErr.Field)
}

func TestConfigSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, "config.json")

	originalConfig := NewDefaultConfig()
	originalConfig.MediaFolder = filepath.Join(tempDir, "media")
	originalConfig.OutputFolder = filepath.Join(tempDir, "output")
	originalConfig.MaxAttempts = 5
	originalConfig.UseUploadFlow = true

	err := originalConfig.SaveToFile(tempFile)
	assert.NoError(t, err)

	loadedConfig := NewDefaultConfig()
	err = loadedConfig.LoadFromFile(tempFile)
	assert.NoError(t, err)

	assert.Equal(t, originalConfig.MediaFolder, loadedConfig.MediaFolder)
	assert.Equal(t, originalConfig.MaxAttempts, loadedConfig.MaxAttempts)
	assert.Equal(t, originalConfig.UseUploadFlow, loadedConfig.UseUploadFlow)
}

func TestConfigUpdate(t *testing.T) {
	tempDir := t.TempDir()

	config := NewDefaultConfig()
	config.MediaFolder = filepath.Join(tempDir, "media")
	config.OutputFolder = filepath.Join(tempDir, "output")

	err := config.Update(map[string]interface{}{
		"max_attempts":  7,
		"chunk_minutes": 10,
	})
	assert.NoError(t, err)
	assert.Equal(t, 7, config.MaxAttempts)
	assert.Equal(t, 10, config.ChunkMinutes)

	// Invalid updates roll back.
	err = config.Update(map[string]interface{}{
		"max_attempts": 1000,
	})
	assert.Error(t, err)
	assert.Equal(t, 7, config.MaxAttempts)
}

func TestConfigAPIKeyFromEnv(t *testing.T) {
	os.Setenv("MEDIASCRIBE_API_KEY", "test-key")
	defer os.Unsetenv("MEDIASCRIBE_API_KEY")

	config := NewDefaultConfig()
	assert.Equal(t, "test-key", config.APIKey)
}
