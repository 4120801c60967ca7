package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Forecast    ForecastConfig  `mapstructure:"forecast"`
	Narrative   NarrativeConfig `mapstructure:"narrative"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL string `mapstructure:"cache_ttl"`
}

// ForecastConfig is the configuration surface of the numeric pipeline.
// It is passed explicitly into every pipeline component; nothing reads it
// from ambient state.
type ForecastConfig struct {
	MinObservations int     `mapstructure:"min_observations"`
	HoldoutFraction float64 `mapstructure:"holdout_fraction"`
	MaxP            int     `mapstructure:"max_p"`
	MaxD            int     `mapstructure:"max_d"`
	MaxQ            int     `mapstructure:"max_q"`
	MaxVARLag       int     `mapstructure:"max_var_lag"`
	ConfidenceLevel float64 `mapstructure:"confidence_level"`
	DefaultHorizon  int     `mapstructure:"default_horizon"`
	Multivariate    bool    `mapstructure:"multivariate"`
	WorkerPoolSize  int     `mapstructure:"worker_pool_size"`
}

// MaxLag returns the largest lag any candidate model may use.
func (f ForecastConfig) MaxLag() int {
	maxLag := f.MaxP
	if f.MaxQ > maxLag {
		maxLag = f.MaxQ
	}
	if f.MaxVARLag > maxLag {
		maxLag = f.MaxVARLag
	}
	return maxLag
}

type NarrativeConfig struct {
	ServiceURL     string `mapstructure:"service_url"`
	APIKey         string `mapstructure:"api_key" json:"-" yaml:"-"`
	Model          string `mapstructure:"model"`
	Timeout        string `mapstructure:"timeout"`
	RequestsPerSec int    `mapstructure:"requests_per_sec"`
	MaxRetryTime   string `mapstructure:"max_retry_time"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("narrative.api_key", "NARRATIVE_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind NARRATIVE_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Forecast.Validate(); err != nil {
		return nil, err
	}

	if config.Narrative.Timeout != "" {
		if _, err := time.ParseDuration(config.Narrative.Timeout); err != nil {
			return nil, fmt.Errorf("invalid narrative timeout duration: %w", err)
		}
	}
	if config.Redis.CacheTTL != "" {
		if _, err := time.ParseDuration(config.Redis.CacheTTL); err != nil {
			return nil, fmt.Errorf("invalid redis cache TTL duration: %w", err)
		}
	}

	return &config, nil
}

// Validate checks that the forecasting parameters are internally consistent.
// The minimum observation count must leave room to fit the largest candidate
// model: at least 2*(max lag + 1) points.
func (f ForecastConfig) Validate() error {
	if f.MinObservations <= 0 {
		return fmt.Errorf("forecast.min_observations must be positive, got %d", f.MinObservations)
	}
	if required := 2 * (f.MaxLag() + 1); f.MinObservations < required {
		return fmt.Errorf("forecast.min_observations must be at least 2*(max lag+1) = %d, got %d",
			required, f.MinObservations)
	}
	if f.HoldoutFraction <= 0 || f.HoldoutFraction >= 1 {
		return fmt.Errorf("forecast.holdout_fraction must be in (0, 1), got %f", f.HoldoutFraction)
	}
	if f.ConfidenceLevel <= 0 || f.ConfidenceLevel >= 1 {
		return fmt.Errorf("forecast.confidence_level must be in (0, 1), got %f", f.ConfidenceLevel)
	}
	if f.DefaultHorizon <= 0 {
		return fmt.Errorf("forecast.default_horizon must be positive, got %d", f.DefaultHorizon)
	}
	if f.MaxD < 0 || f.MaxP < 0 || f.MaxQ < 0 || f.MaxVARLag < 1 {
		return fmt.Errorf("forecast order bounds out of range: max_p=%d max_d=%d max_q=%d max_var_lag=%d",
			f.MaxP, f.MaxD, f.MaxQ, f.MaxVARLag)
	}
	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "ma_health")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_conns", 8)
	viper.SetDefault("database.min_conns", 2)

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cache_ttl", "1h")

	// Forecast pipeline
	viper.SetDefault("forecast.min_observations", 24)
	viper.SetDefault("forecast.holdout_fraction", 0.1)
	viper.SetDefault("forecast.max_p", 5)
	viper.SetDefault("forecast.max_d", 2)
	viper.SetDefault("forecast.max_q", 5)
	viper.SetDefault("forecast.max_var_lag", 6)
	viper.SetDefault("forecast.confidence_level", 0.95)
	viper.SetDefault("forecast.default_horizon", 12)
	viper.SetDefault("forecast.multivariate", true)
	viper.SetDefault("forecast.worker_pool_size", 0) // 0 = size from CPU count

	// Narrative collaborator
	viper.SetDefault("narrative.service_url", "")
	viper.SetDefault("narrative.api_key", "")
	viper.SetDefault("narrative.model", "gemini-2.0-flash")
	viper.SetDefault("narrative.timeout", "30s")
	viper.SetDefault("narrative.requests_per_sec", 2)
	viper.SetDefault("narrative.max_retry_time", "20s")

	// Telegram alerts
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", 0)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
}
