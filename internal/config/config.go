// Package config provides centralized configuration management for the task
// automator. Settings come from defaults, an optional config file and
// AUTOMATOR_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	// AppName is used for the default config file name.
	AppName = "automator"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "AUTOMATOR"
)

// Config holds all configuration settings for the task automator
type Config struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
	SMTP   SMTPConfig   `mapstructure:"smtp"`

	// Module is the path of the external Python module whose functions
	// custom steps may call.
	Module string `mapstructure:"module"`

	// Output settings
	OutputDir string `mapstructure:"output_dir"`

	// Validator selects the grammar check: "auto" (in memory, rejections
	// confirmed by the interpreter when one is installed), "gpython" (in
	// memory only) or "python" (external interpreter).
	Validator string `mapstructure:"validator"`
	Python    string `mapstructure:"python"`

	Log LogConfig `mapstructure:"log"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// SMTPConfig is the alert transport. Alerts are only generated when every
// field is set.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Complete reports whether all alert transport settings are present.
func (s SMTPConfig) Complete() bool {
	return s.Host != "" && s.Port > 0 && s.Username != "" && s.Password != ""
}

type LogConfig struct {
	Debug  bool   `mapstructure:"debug"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// Default values
const (
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOutputDir     = "."
	DefaultValidator     = ValidatorAuto
	DefaultPython        = "python3"
	DefaultLogFormat     = "console"

	ValidatorAuto    = "auto"
	ValidatorGPython = "gpython"
	ValidatorPython  = "python"
)

// Get returns the global configuration, loading from the environment if not
// already loaded. Load errors fall back to defaults.
func Get() *Config {
	configOnce.Do(func() {
		cfg, err := Load("")
		if err != nil {
			cfg = NewConfig()
		}
		globalConfig = cfg
	})
	return globalConfig
}

// Reset clears the global configuration, forcing reload on next Get()
// This is primarily useful for testing
func Reset() {
	configOnce = sync.Once{}
	globalConfig = nil
}

// Load reads configuration from cfgFile (optional) and the environment.
// When cfgFile is empty, automator.yaml in the working directory is used if
// present.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// OPENAI_API_KEY is honoured like every OpenAI client does
	if cfg.OpenAI.APIKey == "" {
		_ = v.BindEnv("openai_fallback_key", "OPENAI_API_KEY")
		cfg.OpenAI.APIKey = v.GetString("openai_fallback_key")
	}
	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", DefaultOpenAIBaseURL)
	v.SetDefault("openai.model", DefaultOpenAIModel)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 0)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("module", "")
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("validator", DefaultValidator)
	v.SetDefault("python", DefaultPython)
	v.SetDefault("log.debug", false)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", "")
}

// NewConfig creates a new configuration with default values
// This is useful for testing or programmatic configuration
func NewConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			BaseURL: DefaultOpenAIBaseURL,
			Model:   DefaultOpenAIModel,
		},
		OutputDir: DefaultOutputDir,
		Validator: DefaultValidator,
		Python:    DefaultPython,
		Log:       LogConfig{Format: DefaultLogFormat},
	}
}

// WithOpenAI configures OpenAI settings
func (c *Config) WithOpenAI(apiKey, baseURL, model string) *Config {
	c.OpenAI.APIKey = apiKey
	if baseURL != "" {
		c.OpenAI.BaseURL = baseURL
	}
	if model != "" {
		c.OpenAI.Model = model
	}
	return c
}

// WithSMTP configures the alert transport
func (c *Config) WithSMTP(host string, port int, username, password string) *Config {
	c.SMTP = SMTPConfig{Host: host, Port: port, Username: username, Password: password}
	return c
}

// WithModule sets the external module path
func (c *Config) WithModule(path string) *Config {
	c.Module = path
	return c
}

// WithValidator selects the grammar validator and interpreter
func (c *Config) WithValidator(name, python string) *Config {
	if name != "" {
		c.Validator = name
	}
	if python != "" {
		c.Python = python
	}
	return c
}

// WithLog configures logging
func (c *Config) WithLog(debug bool, format, file string) *Config {
	c.Log.Debug = debug
	if format != "" {
		c.Log.Format = format
	}
	c.Log.File = file
	return c
}

// Validate checks if the configuration is valid for the intended use
func (c *Config) Validate() error {
	switch c.Validator {
	case ValidatorAuto, ValidatorGPython, ValidatorPython:
	default:
		return fmt.Errorf("unknown validator %q (want %q, %q or %q)", c.Validator, ValidatorAuto, ValidatorGPython, ValidatorPython)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", c.Log.Format)
	}
	if c.SMTP.Port < 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp port %d out of range", c.SMTP.Port)
	}
	return nil
}
