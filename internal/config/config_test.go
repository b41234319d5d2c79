package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiboWorks/task-automator/internal/config"
)

func TestGetConfig(t *testing.T) {
	// Reset to get fresh config
	config.Reset()
	chdir(t, t.TempDir())

	cfg := config.Get()
	if cfg == nil {
		t.Fatal("config should not be nil")
	}

	// Check defaults
	if cfg.OpenAI.Model != config.DefaultOpenAIModel {
		t.Errorf("expected default OpenAI model %q, got %q", config.DefaultOpenAIModel, cfg.OpenAI.Model)
	}
	if cfg.Validator != config.DefaultValidator {
		t.Errorf("expected default validator %q, got %q", config.DefaultValidator, cfg.Validator)
	}
	if cfg.SMTP.Complete() {
		t.Error("SMTP should not be complete by default")
	}
}

func TestConfigFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("AUTOMATOR_SMTP_HOST", "smtp.example.com")
	t.Setenv("AUTOMATOR_SMTP_PORT", "465")
	t.Setenv("AUTOMATOR_SMTP_USERNAME", "bot")
	t.Setenv("AUTOMATOR_SMTP_PASSWORD", "secret")
	t.Setenv("AUTOMATOR_LOG_DEBUG", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.Complete())
	assert.True(t, cfg.Log.Debug)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "automator.yaml")
	content := `module: ./helpers.py
output_dir: ./scripts
validator: python
smtp:
  host: mail.example.com
  port: 587
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./helpers.py", cfg.Module)
	assert.Equal(t, "./scripts", cfg.OutputDir)
	assert.Equal(t, config.ValidatorPython, cfg.Validator)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.False(t, cfg.SMTP.Complete(), "username and password are missing")
}

func TestConfigRejectsUnknownValidator(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("AUTOMATOR_VALIDATOR", "pylint")

	_, err := config.Load("")
	assert.Error(t, err)
}

func TestConfigMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewConfigBuilder(t *testing.T) {
	cfg := config.NewConfig().
		WithOpenAI("test-key", "https://custom.api", "gpt-4").
		WithSMTP("smtp.example.com", 465, "bot", "pw").
		WithModule("helpers.py").
		WithValidator(config.ValidatorPython, "/usr/bin/python3").
		WithLog(true, "json", "automator.log")

	assert.Equal(t, "test-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "https://custom.api", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4", cfg.OpenAI.Model)
	assert.True(t, cfg.SMTP.Complete())
	assert.Equal(t, "helpers.py", cfg.Module)
	assert.Equal(t, "/usr/bin/python3", cfg.Python)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestConfigSingleton(t *testing.T) {
	config.Reset()

	cfg1 := config.Get()
	cfg2 := config.Get()

	if cfg1 != cfg2 {
		t.Error("Get() should return the same instance")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
