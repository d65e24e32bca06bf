// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser and the per-step
// element location policy.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`
	// UserAgent overrides the browser's default User-Agent when non-empty.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	// ExtraHeaders are attached to every request a page makes.
	ExtraHeaders map[string]string `mapstructure:"extra_headers" yaml:"extra_headers"`
	// NavigationTimeout bounds a single page load including its quiet period.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// ElementTimeout bounds one locate attempt for a selector.
	ElementTimeout time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	// ElementAttempts is the number of locate attempts before an absent
	// selector stops being treated as not-yet-rendered.
	ElementAttempts int `mapstructure:"element_attempts" yaml:"element_attempts"`
	// StepTimeout bounds the execution of one action end to end.
	StepTimeout time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	// MaxElements caps how many interactive elements a page summary carries.
	MaxElements int `mapstructure:"max_elements" yaml:"max_elements"`
	// ExcerptChars caps the visible-text excerpt in a page summary.
	ExcerptChars int `mapstructure:"excerpt_chars" yaml:"excerpt_chars"`
	// VisualizeElements draws indexed outlines over detected elements after
	// each observation. Only effective on a headful browser.
	VisualizeElements bool `mapstructure:"visualize_elements" yaml:"visualize_elements"`
}

// AgentConfig tunes the interaction loop.
type AgentConfig struct {
	MaxSteps            int           `mapstructure:"max_steps" yaml:"max_steps"`
	PlanAttempts        int           `mapstructure:"plan_attempts" yaml:"plan_attempts"`
	StagnationThreshold int           `mapstructure:"stagnation_threshold" yaml:"stagnation_threshold"`
	SessionTimeout      time.Duration `mapstructure:"session_timeout" yaml:"session_timeout"`
	// TranscriptWindow is how many recent transcript entries are replayed to
	// the planner on each step.
	TranscriptWindow int `mapstructure:"transcript_window" yaml:"transcript_window"`
}

// Provider identifies a supported language-model provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// ProviderConfig defines the configuration for a single provider backend.
type ProviderConfig struct {
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// LLMConfig configures the language-model clients shared by all sessions.
type LLMConfig struct {
	// RequestsPerSecond rate limits outbound completion calls per provider.
	RequestsPerSecond float64                     `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Providers         map[Provider]ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

// SessionConfig bounds the session manager.
type SessionConfig struct {
	// MaxConcurrent caps how many sessions may run loops at the same time.
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	// RetainFinished is how long a terminal session stays queryable.
	RetainFinished time.Duration `mapstructure:"retain_finished" yaml:"retain_finished"`
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
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
	v.SetDefault("logger.service_name", "pilot-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.element_timeout", "3s")
	v.SetDefault("browser.element_attempts", 3)
	v.SetDefault("browser.step_timeout", "2m")
	v.SetDefault("browser.max_elements", 200)
	v.SetDefault("browser.excerpt_chars", 400)
	v.SetDefault("browser.visualize_elements", false)

	// -- Agent --
	v.SetDefault("agent.max_steps", 20)
	v.SetDefault("agent.plan_attempts", 3)
	v.SetDefault("agent.stagnation_threshold", 3)
	v.SetDefault("agent.session_timeout", "5m")
	v.SetDefault("agent.transcript_window", 8)

	// -- LLM --
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.providers.openai.model", "gpt-4o")
	v.SetDefault("llm.providers.openai.temperature", 0.0)
	v.SetDefault("llm.providers.openai.max_tokens", 1024)
	v.SetDefault("llm.providers.openai.api_timeout", "60s")
	v.SetDefault("llm.providers.anthropic.model", "claude-3-7-sonnet-20250219")
	v.SetDefault("llm.providers.anthropic.temperature", 0.0)
	v.SetDefault("llm.providers.anthropic.max_tokens", 1024)
	v.SetDefault("llm.providers.anthropic.api_timeout", "60s")

	// -- Session --
	v.SetDefault("session.max_concurrent", 4)
	v.SetDefault("session.retain_finished", "1h")

	// -- Server --
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for credentials. The PILOT_ prefixed names
	// win; the bare conventional names are accepted as a fallback so existing
	// shells keep working.
	v.BindEnv("llm.providers.openai.api_key", "PILOT_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.providers.anthropic.api_key", "PILOT_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if c.Session.MaxConcurrent <= 0 {
		return fmt.Errorf("session.max_concurrent must be a positive integer")
	}
	return nil
}

// Validate checks the interaction loop settings.
func (a *AgentConfig) Validate() error {
	if a.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be greater than 0")
	}
	if a.PlanAttempts <= 0 {
		return fmt.Errorf("plan_attempts must be greater than 0")
	}
	if a.StagnationThreshold < 2 {
		return fmt.Errorf("stagnation_threshold must be at least 2")
	}
	if a.SessionTimeout <= 0 {
		return fmt.Errorf("session_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	if b.ElementAttempts <= 0 {
		return fmt.Errorf("element_attempts must be greater than 0")
	}
	if b.NavigationTimeout <= 0 || b.ElementTimeout <= 0 || b.StepTimeout <= 0 {
		return fmt.Errorf("browser timeouts must be positive durations")
	}
	if b.MaxElements <= 0 {
		return fmt.Errorf("max_elements must be greater than 0")
	}
	return nil
}

// ProviderFor resolves the provider selected by a session's model identifier.
// The literal "openai" (case-insensitive) selects the OpenAI backend;
// anything else, including the empty string, selects Anthropic.
func ProviderFor(model string) Provider {
	if strings.EqualFold(strings.TrimSpace(model), string(ProviderOpenAI)) {
		return ProviderOpenAI
	}
	return ProviderAnthropic
}

var (
	globalMu  sync.RWMutex
	globalCfg = NewDefaultConfig()
)

// Get returns the process-wide configuration instance.
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCfg
}

// Set replaces the process-wide configuration instance. It is called once
// from the command bootstrap after viper has resolved all sources.
func Set(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
}
