// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
)

// ErrMissingCredential is returned when no service credential is configured.
// It is fatal and surfaces before any session starts.
var ErrMissingCredential = errors.New("missing service credential")

// Config holds the entire application configuration. It is read once at
// startup and passed explicitly; nothing mutates it afterwards.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	OpenAI   OpenAIConfig   `mapstructure:"openai" yaml:"openai"`
	Gemini   GeminiConfig   `mapstructure:"gemini" yaml:"gemini"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Task     TaskConfig     `mapstructure:"task" yaml:"task"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// OpenAIConfig points at the computer-use and planner endpoints.
type OpenAIConfig struct {
	APIKey     string        `mapstructure:"api_key" yaml:"-"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	// RateLimit caps requests per second per client; 0 means unlimited.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// GeminiConfig is only consulted when the planner provider is gemini.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"-"`
	// Model replaces agent.planner_model, which names an OpenAI model.
	Model string `mapstructure:"model" yaml:"model"`
}

// LLMProvider defines the supported side-channel planner providers.
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
)

// AgentConfig tunes the session driver and its models.
type AgentConfig struct {
	ExecutorModel    string      `mapstructure:"executor_model" yaml:"executor_model"`
	PlannerModel     string      `mapstructure:"planner_model" yaml:"planner_model"`
	PlannerProvider  LLMProvider `mapstructure:"planner_provider" yaml:"planner_provider"`
	PlannerEnabled   bool        `mapstructure:"planner_enabled" yaml:"planner_enabled"`
	PlannerMaxTokens int         `mapstructure:"planner_max_tokens" yaml:"planner_max_tokens"`
	// MaxTurns caps follow-up turns per session. Zero disables the cap.
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// TaskConfig holds input validation and the sample values used for omitted fields.
type TaskConfig struct {
	RequiredDomain string              `mapstructure:"required_domain" yaml:"required_domain"`
	Defaults       schemas.TaskRequest `mapstructure:"defaults" yaml:"defaults"`
}

// DatabaseConfig holds the optional turn journal connection.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ServerConfig configures the HTTP trigger.
type ServerConfig struct {
	Addr                  string        `mapstructure:"addr" yaml:"addr"`
	MaxConcurrentSessions int64         `mapstructure:"max_concurrent_sessions" yaml:"max_concurrent_sessions"`
	ReadHeaderTimeout     time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "cua-scheduler")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Remote services --
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.api_timeout", "120s")
	v.SetDefault("openai.rate_limit", 0)

	// -- Gemini --
	v.SetDefault("gemini.model", "gemini-2.5-flash")

	// -- Agent --
	v.SetDefault("agent.executor_model", "computer-use-preview")
	v.SetDefault("agent.planner_model", "o3-mini")
	v.SetDefault("agent.planner_provider", string(ProviderOpenAI))
	v.SetDefault("agent.planner_enabled", true)
	v.SetDefault("agent.planner_max_tokens", 300)
	v.SetDefault("agent.max_turns", 100)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "90s")

	// -- Task --
	v.SetDefault("task.required_domain", schemas.DefaultRequiredDomain)
	v.SetDefault("task.defaults.url", "https://meetings.hubspot.com/caceres-d/prueba-rentimies")
	v.SetDefault("task.defaults.first_name", "Camilo")
	v.SetDefault("task.defaults.last_name", "Caceres")
	v.SetDefault("task.defaults.email", "camilo@rentmies.com")
	v.SetDefault("task.defaults.hour", "10")

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_concurrent_sessions", 2)
	v.SetDefault("server.read_header_timeout", "10s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg, err := LoadFromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromViper unmarshals and normalizes the configuration without
// validating it. Commands that never reach the remote service use it so
// they run without credentials.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials and model names follow the variable names the service has
	// always been deployed with, in addition to the CUA_ prefixed keys.
	_ = v.BindEnv("openai.api_key", "CUA_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("agent.planner_model", "CUA_AGENT_PLANNER_MODEL", "OPENAI_MODEL_PLANNER")
	_ = v.BindEnv("agent.executor_model", "CUA_AGENT_EXECUTOR_MODEL", "OPENAI_MODEL_EXECUTOR")
	_ = v.BindEnv("gemini.api_key", "CUA_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("database.url", "CUA_DATABASE_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Logger.LogFile != "" {
		expanded, err := homedir.Expand(cfg.Logger.LogFile)
		if err != nil {
			return nil, fmt.Errorf("invalid logger.log_file: %w", err)
		}
		cfg.Logger.LogFile = expanded
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY or openai.api_key", ErrMissingCredential)
	}
	if c.OpenAI.RateLimit < 0 {
		return fmt.Errorf("openai.rate_limit must not be negative")
	}
	if c.Agent.ExecutorModel == "" {
		return fmt.Errorf("agent.executor_model must not be empty")
	}
	if c.Agent.MaxTurns < 0 {
		return fmt.Errorf("agent.max_turns must not be negative")
	}
	if err := c.Agent.validatePlanner(c.Gemini); err != nil {
		return fmt.Errorf("agent planner configuration invalid: %w", err)
	}
	if c.Server.MaxConcurrentSessions <= 0 {
		return fmt.Errorf("server.max_concurrent_sessions must be a positive integer")
	}
	return nil
}

func (a *AgentConfig) validatePlanner(gemini GeminiConfig) error {
	if !a.PlannerEnabled {
		return nil
	}
	if a.PlannerMaxTokens <= 0 {
		return fmt.Errorf("planner_max_tokens must be greater than 0")
	}
	switch a.PlannerProvider {
	case ProviderOpenAI:
		if a.PlannerModel == "" {
			return fmt.Errorf("planner_model must not be empty when the planner is enabled")
		}
		return nil
	case ProviderGemini:
		if gemini.APIKey == "" {
			return fmt.Errorf("%w: gemini.api_key is required for the gemini planner", ErrMissingCredential)
		}
		if gemini.Model == "" {
			return fmt.Errorf("gemini.model must not be empty for the gemini planner")
		}
		return nil
	default:
		return fmt.Errorf("unsupported planner_provider '%s'. Supported: [%s, %s]", a.PlannerProvider, ProviderOpenAI, ProviderGemini)
	}
}
