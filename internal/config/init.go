package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// InitializeViper initializes Viper from environment variables and config
// files. This must be called before Load().
func InitializeViper(cfgFile string) error {
	loadEnvFile()
	setupViper(cfgFile)
	setDefaults()
	readConfigFile()

	if err := bindEnvironmentVariables(); err != nil {
		return fmt.Errorf("failed to bind environment variables: %w", err)
	}

	setupDevelopmentLogging()
	return nil
}

// loadEnvFile loads .env file (ignores error if file doesn't exist).
func loadEnvFile() {
	_ = godotenv.Load()
}

// setupViper configures Viper for environment variable and config file reading.
func setupViper(cfgFile string) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
}

// readConfigFile reads config file (ignores error if file doesn't exist).
func readConfigFile() {
	_ = viper.ReadInConfig()
}

// bindEnvironmentVariables binds all environment variables to config keys.
func bindEnvironmentVariables() error {
	if err := bindAppEnvVars(); err != nil {
		return fmt.Errorf("failed to bind app env vars: %w", err)
	}
	if err := bindDatabaseEnvVars(); err != nil {
		return fmt.Errorf("failed to bind database env vars: %w", err)
	}
	if err := bindRedisEnvVars(); err != nil {
		return fmt.Errorf("failed to bind redis env vars: %w", err)
	}
	if err := bindSenderEnvVars(); err != nil {
		return fmt.Errorf("failed to bind sender env vars: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults - production safe
	viper.SetDefault("app", map[string]any{
		"name":        defaultAppName,
		"environment": defaultEnvironment,
		"debug":       false,
	})

	// Logger defaults - production safe
	viper.SetDefault("logger", map[string]any{
		"level":        "info",
		"development":  false,
		"output_paths": []string{"stdout"},
	})

	// Server defaults - production safe
	viper.SetDefault("server", map[string]any{
		"address":       defaultServerAddress,
		"read_timeout":  fmt.Sprintf("%ds", defaultReadTimeoutSec),
		"write_timeout": fmt.Sprintf("%ds", defaultWriteTimeoutSec),
		"idle_timeout":  fmt.Sprintf("%ds", defaultIdleTimeoutSec),
	})

	// Database defaults - production safe
	viper.SetDefault("database", map[string]any{
		"host":    defaultDBHost,
		"port":    defaultDBPort,
		"user":    defaultDBUser,
		"dbname":  defaultDBName,
		"sslmode": defaultDBSSLMode,
	})

	// Redis defaults - disabled until an address is configured
	viper.SetDefault("redis", map[string]any{
		"enabled": false,
		"addr":    defaultRedisAddr,
		"db":      0,
	})

	// Processor defaults sized for serverless-style bounded invocations
	viper.SetDefault("processor", map[string]any{
		"max_tasks":                  defaultMaxTasks,
		"max_time":                   fmt.Sprintf("%ds", defaultMaxTimeSec),
		"max_pages_per_domain":       defaultMaxPages,
		"max_submissions_per_domain": defaultMaxSubmissions,
		"min_submit_score":           defaultMinSubmitScore,
		"dedup_policy":               defaultDedupPolicy,
		"dedup_window_days":          defaultDedupWindow,
		"sender_name":                defaultSenderName,
		"sender_email":               defaultSenderEmail,
		"message_template":           defaultMessageTemplate,
	})

	// Rate limit defaults
	viper.SetDefault("ratelimit", map[string]any{
		"min_delay": fmt.Sprintf("%ds", defaultMinDelaySec),
		"max_delay": fmt.Sprintf("%ds", defaultMaxDelaySec),
	})

	// Schedule defaults - manual triggering unless enabled
	viper.SetDefault("schedule", map[string]any{
		"enabled":     false,
		"interval":    fmt.Sprintf("%dm", defaultScheduleIntervalMin),
		"stale_after": fmt.Sprintf("%dm", defaultStaleAfterMin),
	})

	// Crawler defaults
	viper.SetDefault("crawler", map[string]any{
		"user_agent": defaultUserAgent,
	})
}

// bindAppEnvVars binds application and logger environment variables to config keys.
func bindAppEnvVars() error {
	if err := viper.BindEnv("app.environment", "APP_ENV"); err != nil {
		return fmt.Errorf("failed to bind APP_ENV: %w", err)
	}
	if err := viper.BindEnv("app.debug", "APP_DEBUG"); err != nil {
		return fmt.Errorf("failed to bind APP_DEBUG: %w", err)
	}
	if err := viper.BindEnv("logger.level", "LOG_LEVEL"); err != nil {
		return fmt.Errorf("failed to bind LOG_LEVEL: %w", err)
	}
	return nil
}

// bindDatabaseEnvVars binds PostgreSQL environment variables to config keys.
func bindDatabaseEnvVars() error {
	if err := viper.BindEnv("database.host", "POSTGRES_HOST"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_HOST: %w", err)
	}
	if err := viper.BindEnv("database.port", "POSTGRES_PORT"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_PORT: %w", err)
	}
	if err := viper.BindEnv("database.user", "POSTGRES_USER"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_USER: %w", err)
	}
	if err := viper.BindEnv("database.password", "POSTGRES_PASSWORD"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_PASSWORD: %w", err)
	}
	if err := viper.BindEnv("database.dbname", "POSTGRES_DB"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_DB: %w", err)
	}
	return nil
}

// bindRedisEnvVars binds Redis environment variables to config keys.
func bindRedisEnvVars() error {
	if err := viper.BindEnv("redis.enabled", "REDIS_ENABLED"); err != nil {
		return fmt.Errorf("failed to bind REDIS_ENABLED: %w", err)
	}
	if err := viper.BindEnv("redis.addr", "REDIS_ADDR"); err != nil {
		return fmt.Errorf("failed to bind REDIS_ADDR: %w", err)
	}
	if err := viper.BindEnv("redis.password", "REDIS_PASSWORD"); err != nil {
		return fmt.Errorf("failed to bind REDIS_PASSWORD: %w", err)
	}
	return nil
}

// bindSenderEnvVars binds sender identity environment variables to config keys.
func bindSenderEnvVars() error {
	if err := viper.BindEnv("processor.sender_name", "SENDER_NAME"); err != nil {
		return fmt.Errorf("failed to bind SENDER_NAME: %w", err)
	}
	if err := viper.BindEnv("processor.sender_email", "SENDER_EMAIL"); err != nil {
		return fmt.Errorf("failed to bind SENDER_EMAIL: %w", err)
	}
	if err := viper.BindEnv("processor.sender_phone", "SENDER_PHONE"); err != nil {
		return fmt.Errorf("failed to bind SENDER_PHONE: %w", err)
	}
	if err := viper.BindEnv("processor.sender_company", "SENDER_COMPANY"); err != nil {
		return fmt.Errorf("failed to bind SENDER_COMPANY: %w", err)
	}
	return nil
}

// setupDevelopmentLogging configures logging based on environment variables.
// Debug level (APP_DEBUG) and development formatting (APP_ENV) are separate
// concerns; debug logs can be enabled in production for troubleshooting.
func setupDevelopmentLogging() {
	if viper.GetBool("app.debug") {
		viper.Set("logger.level", "debug")
	}
	if viper.GetString("app.environment") == "development" {
		viper.Set("logger.development", true)
	}
}
