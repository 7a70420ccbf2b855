// Package config provides configuration management for the outreach engine.
// Values come from, in order of precedence: environment variables, an
// optional config.yaml, and production-safe defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/formreach/formreach/internal/logger"
)

// Default configuration values.
const (
	defaultAppName     = "formreach"
	defaultEnvironment = "production"

	defaultServerAddress   = ":8070"
	defaultReadTimeoutSec  = 15
	defaultWriteTimeoutSec = 15
	defaultIdleTimeoutSec  = 60

	defaultDBHost    = "localhost"
	defaultDBPort    = 5432
	defaultDBUser    = "postgres"
	defaultDBName    = "formreach"
	defaultDBSSLMode = "disable"

	defaultRedisAddr = "localhost:6379"

	defaultUserAgent = "FormReach/1.0 (+https://formreach.dev/bot)"

	defaultMaxTasks       = 10
	defaultMaxTimeSec     = 240
	defaultMaxPages       = 25
	defaultMaxSubmissions = 3
	defaultMinSubmitScore = 40
	defaultDedupPolicy    = "skip"
	defaultDedupWindow    = 90

	defaultMinDelaySec = 3
	defaultMaxDelaySec = 10

	defaultScheduleIntervalMin = 5
	defaultStaleAfterMin       = 30

	defaultSenderName      = "Alex Morgan"
	defaultSenderEmail     = "outreach@formreach.dev"
	defaultMessageTemplate = "{Hi|Hello|Hey} {name}, I came across {domain_name} and " +
		"{wanted to reach out|thought I would get in touch}. {Best|Kind} regards, {name}"
)

// Config is the root configuration for all commands.
type Config struct {
	App       AppConfig       `mapstructure:"app"       yaml:"app"`
	Logger    logger.Config   `mapstructure:"logger"    yaml:"logger"`
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"database"  yaml:"database"`
	Redis     RedisConfig     `mapstructure:"redis"     yaml:"redis"`
	Processor ProcessorConfig `mapstructure:"processor" yaml:"processor"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" yaml:"ratelimit"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"  yaml:"schedule"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"   yaml:"crawler"`
}

// AppConfig holds application identity configuration.
type AppConfig struct {
	Name        string `mapstructure:"name"        yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	Debug       bool   `mapstructure:"debug"       yaml:"debug"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"       yaml:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"  yaml:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"     yaml:"host"`
	Port     int    `mapstructure:"port"     yaml:"port"`
	User     string `mapstructure:"user"     yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname"   yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode"  yaml:"sslmode"`
}

// RedisConfig holds Redis configuration for the shared rate limit store.
// When disabled the limiter falls back to process-local state.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"`
	Addr     string `mapstructure:"addr"     yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db"       yaml:"db"`
}

// ProcessorConfig holds batch processing configuration.
type ProcessorConfig struct {
	MaxTasks                int           `mapstructure:"max_tasks"                  yaml:"max_tasks"`
	MaxTime                 time.Duration `mapstructure:"max_time"                   yaml:"max_time"`
	MaxPagesPerDomain       int           `mapstructure:"max_pages_per_domain"       yaml:"max_pages_per_domain"`
	MaxSubmissionsPerDomain int           `mapstructure:"max_submissions_per_domain" yaml:"max_submissions_per_domain"`
	MinSubmitScore          int           `mapstructure:"min_submit_score"           yaml:"min_submit_score"`
	DedupPolicy             string        `mapstructure:"dedup_policy"               yaml:"dedup_policy"`
	DedupWindowDays         int           `mapstructure:"dedup_window_days"          yaml:"dedup_window_days"`
	SenderName              string        `mapstructure:"sender_name"                yaml:"sender_name"`
	SenderEmail             string        `mapstructure:"sender_email"               yaml:"sender_email"`
	SenderPhone             string        `mapstructure:"sender_phone"               yaml:"sender_phone"`
	SenderCompany           string        `mapstructure:"sender_company"             yaml:"sender_company"`
	MessageTemplate         string        `mapstructure:"message_template"           yaml:"message_template"`
}

// RateLimitConfig holds per-target throttling configuration.
type RateLimitConfig struct {
	MinDelay time.Duration `mapstructure:"min_delay" yaml:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

// ScheduleConfig holds the periodic batch scheduler configuration.
type ScheduleConfig struct {
	Enabled    bool          `mapstructure:"enabled"     yaml:"enabled"`
	Interval   time.Duration `mapstructure:"interval"    yaml:"interval"`
	StaleAfter time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
}

// CrawlerConfig holds outbound HTTP behavior shared by the analyzer, crawler,
// and executor.
type CrawlerConfig struct {
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// Load reads the fully merged configuration out of Viper. InitializeViper
// must have been called first.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for values no command could run with.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Message: "is required"}
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return &ValidationError{Field: "database.port", Message: "must be a valid port"}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return &ValidationError{Field: "redis.addr", Message: "is required when redis is enabled"}
	}
	if c.RateLimit.MinDelay < 0 {
		return &ValidationError{Field: "ratelimit.min_delay", Message: "must not be negative"}
	}
	if c.Processor.MessageTemplate == "" {
		return &ValidationError{Field: "processor.message_template", Message: "is required"}
	}
	return nil
}
