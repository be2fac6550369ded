// Package config provides centralized configuration management for mumu.
// Settings come from defaults, an optional YAML file and MUMU_* environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for mumu
type Config struct {
	// Backend selects the streaming LLM backend: "openai" or "sse".
	Backend string `mapstructure:"backend" validate:"oneof=openai sse"`

	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	API       APIConfig       `mapstructure:"api"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Workflows WorkflowsConfig `mapstructure:"workflows"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gte=0"`
	Temperature float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// APIConfig points at the MuMu server used by the sse backend, the http
// catalog and the project handoff.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type CatalogConfig struct {
	Source       string        `mapstructure:"source" validate:"oneof=fs http sqlite"`
	TemplatesDir string        `mapstructure:"templates_dir"`
	DBPath       string        `mapstructure:"db_path"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

type WorkflowsConfig struct {
	// File optionally adds workflows from a YAML file to the built-in ones.
	File string `mapstructure:"file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// Default values
const (
	EnvPrefix = "MUMU"
	AppName   = "mumu"

	DefaultBackend       = "sse"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultAPIBaseURL    = "http://localhost:8000"
	DefaultAPITimeout    = 5 * time.Minute
	DefaultCatalogSource = "http"
	DefaultTemplatesDir  = "templates"
	DefaultDBPath        = "mumu.db"
	DefaultCacheTTL      = 5 * time.Minute
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultServiceName   = "mumu"
)

// Init loads the global configuration from cfgFile (or the default search
// paths when empty). It only has an effect before the first Get.
func Init(cfgFile string) error {
	var err error
	configOnce.Do(func() {
		globalConfig, err = Load(cfgFile)
		if err != nil {
			globalConfig = NewConfig()
		}
	})
	return err
}

// Get returns the global configuration, loading it if not already loaded.
// A configuration that fails to load yields the defaults.
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

// Load reads configuration without touching the global one. A missing
// default config file is not an error; a missing explicit one is.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/." + AppName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// The usual OpenAI variables work unprefixed too.
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", EnvPrefix+"_OPENAI_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("openai.model", EnvPrefix+"_OPENAI_MODEL", "OPENAI_MODEL")

	cfg := NewConfig()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", DefaultBackend)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", DefaultOpenAIBaseURL)
	v.SetDefault("openai.model", DefaultOpenAIModel)
	v.SetDefault("openai.max_tokens", 0)
	v.SetDefault("openai.temperature", 0)

	v.SetDefault("api.base_url", DefaultAPIBaseURL)
	v.SetDefault("api.timeout", DefaultAPITimeout)

	v.SetDefault("catalog.source", DefaultCatalogSource)
	v.SetDefault("catalog.templates_dir", DefaultTemplatesDir)
	v.SetDefault("catalog.db_path", DefaultDBPath)
	v.SetDefault("catalog.cache_ttl", DefaultCacheTTL)

	v.SetDefault("workflows.file", "")

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", DefaultServiceName)
}

// NewConfig creates a new configuration with custom values
// This is useful for testing or programmatic configuration
func NewConfig() *Config {
	return &Config{
		Backend: DefaultBackend,
		OpenAI: OpenAIConfig{
			BaseURL: DefaultOpenAIBaseURL,
			Model:   DefaultOpenAIModel,
		},
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: DefaultAPITimeout,
		},
		Catalog: CatalogConfig{
			Source:       DefaultCatalogSource,
			TemplatesDir: DefaultTemplatesDir,
			DBPath:       DefaultDBPath,
			CacheTTL:     DefaultCacheTTL,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Tracing: TracingConfig{
			ServiceName: DefaultServiceName,
		},
	}
}

// WithBackend selects the LLM backend
func (c *Config) WithBackend(name string) *Config {
	c.Backend = name
	return c
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

// WithAPI configures the MuMu server
func (c *Config) WithAPI(baseURL string, timeout time.Duration) *Config {
	if baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if timeout > 0 {
		c.API.Timeout = timeout
	}
	return c
}

// WithCatalog selects the template source. location is the templates
// directory for "fs" and the database path for "sqlite".
func (c *Config) WithCatalog(source, location string) *Config {
	c.Catalog.Source = source
	switch source {
	case "fs":
		if location != "" {
			c.Catalog.TemplatesDir = location
		}
	case "sqlite":
		if location != "" {
			c.Catalog.DBPath = location
		}
	}
	return c
}

// WithLogging configures log level and format
func (c *Config) WithLogging(level, format string) *Config {
	if level != "" {
		c.Log.Level = level
	}
	if format != "" {
		c.Log.Format = format
	}
	return c
}

// WithTracing enables OpenTelemetry export
func (c *Config) WithTracing(enabled bool, serviceName string) *Config {
	c.Tracing.Enabled = enabled
	if serviceName != "" {
		c.Tracing.ServiceName = serviceName
	}
	return c
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks enum values and ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s=%v (%s %s)", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param())
		}
		return err
	}
	return nil
}
