package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Optimizer OptimizerConfig `yaml:"optimizer" mapstructure:"optimizer"`
	Workbook  WorkbookConfig  `yaml:"workbook" mapstructure:"workbook"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// OptimizerConfig holds the optimizer service settings.
type OptimizerConfig struct {
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	PollIntervalMs     int    `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// PollInterval returns the status poll period.
func (c OptimizerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout; zero means none.
func (c OptimizerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// WorkbookConfig configures local workbook handling before submission.
type WorkbookConfig struct {
	// Preflight checks that the requested sheet exists before uploading.
	Preflight    bool   `yaml:"preflight" mapstructure:"preflight"`
	DefaultSheet string `yaml:"default_sheet" mapstructure:"default_sheet"`
}

// ServerConfig configures the local web server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MEDIAPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("optimizer.base_url", "http://localhost:5001")
	v.SetDefault("optimizer.poll_interval_ms", 2000)
	v.SetDefault("optimizer.request_timeout_secs", 0)
	v.SetDefault("workbook.preflight", true)
	v.SetDefault("workbook.default_sheet", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "client" (optimize, status) and "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "client", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Optimizer.BaseURL == "" {
		problems = append(problems, "optimizer.base_url is required")
	}
	if c.Optimizer.PollIntervalMs <= 0 {
		problems = append(problems, "optimizer.poll_interval_ms must be > 0")
	}
	if c.Optimizer.RequestTimeoutSecs < 0 {
		problems = append(problems, "optimizer.request_timeout_secs must be >= 0")
	}
	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
