// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Autopilot AutopilotConfig `mapstructure:"autopilot" yaml:"autopilot"`
}

// LoggerConfig configures console logging and the optional rotated JSON log
// file.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "autopilot")
	v.SetDefault("logger.log_file", "autopilot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// Database
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "autopilot.db")

	// Server
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	// Engine
	v.SetDefault("engine.queue_size", 64)
	v.SetDefault("engine.worker_concurrency", 4)
	v.SetDefault("engine.default_task_timeout", "12h")

	// Browser
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport.width", 1400)
	v.SetDefault("browser.viewport.height", 800)
	v.SetDefault("browser.navigation_timeout", "10s")
	v.SetDefault("browser.debug", false)

	// LLM
	v.SetDefault("llm.provider", string(ProviderOpenAI))
	v.SetDefault("llm.model", "o4-mini")
	v.SetDefault("llm.reasoning_effort", "low")
	v.SetDefault("llm.requests_per_minute", 30)
	v.SetDefault("llm.timeout", "3m")
	v.SetDefault("llm.max_retries", 2)

	// Autopilot
	v.SetDefault("autopilot.login_url", DefaultLoginURL)
	v.SetDefault("autopilot.output_path", "./output.md")
	v.SetDefault("autopilot.render_pdf", false)
	v.SetDefault("autopilot.screenshot_path", "./screenshot.png")
	v.SetDefault("autopilot.save_instructions", true)
	v.SetDefault("autopilot.next_question_selector", "#nextQuestion")
	v.SetDefault("autopilot.annotate_inputs", true)
	v.SetDefault("autopilot.student.name", "Student")
	v.SetDefault("autopilot.student.role", "high school student")
	v.SetDefault("autopilot.student.location", "the United States")
	v.SetDefault("autopilot.timeouts.default", "30s")
	v.SetDefault("autopilot.timeouts.navigation", "10s")
	v.SetDefault("autopilot.timeouts.duplicate_session", "3s")
	v.SetDefault("autopilot.timeouts.frame_progress", "3s")
	v.SetDefault("autopilot.timeouts.navigation_delay", "1s")
	v.SetDefault("autopilot.timeouts.audio_button", "15s")
	v.SetDefault("autopilot.timeouts.video_completion", "500ms")
	v.SetDefault("autopilot.timeouts.form_submission", "500ms")
	v.SetDefault("autopilot.timeouts.settle", "2s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("llm.api_key", "AUTOPILOT_LLM_API_KEY")
	_ = v.BindEnv("database.encryption_key", "AUTOPILOT_DATABASE_ENCRYPTION_KEY", "AUTH_SECRET")
	_ = v.BindEnv("server.jwt_secret", "AUTOPILOT_SERVER_JWT_SECRET")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Fall back to the provider SDKs' conventional variables.
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case ProviderGemini:
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// Secrets are checked where they are used, so commands that never touch the
// model or the store still run without them.
func (c *Config) Validate() error {
	if c.Engine.WorkerConcurrency <= 0 {
		return fmt.Errorf("engine.worker_concurrency must be a positive integer")
	}
	if c.Engine.QueueSize < 0 {
		return fmt.Errorf("engine.queue_size must not be negative")
	}
	switch strings.ToLower(c.Database.Driver) {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database.driver '%s'", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported llm.provider '%s'", c.LLM.Provider)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must not be negative")
	}
	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport must have positive width and height")
	}
	if err := c.Autopilot.Validate(); err != nil {
		return fmt.Errorf("autopilot configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the activity runner settings.
func (a *AutopilotConfig) Validate() error {
	if a.LoginURL == "" {
		return fmt.Errorf("login_url is required")
	}
	if a.OutputPath == "" {
		return fmt.Errorf("output_path is required")
	}
	if a.NextQuestion == "" {
		return fmt.Errorf("next_question_selector is required")
	}
	if a.Timeouts.Default <= 0 {
		return fmt.Errorf("timeouts.default must be a positive duration")
	}
	return nil
}
