package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"resort-billing/logger"
)

// Config holds all runtime configuration. Values come from the environment
// (optionally seeded from .env by main).
type Config struct {
	// Database
	DBDriver   string `validate:"oneof=postgres sqlite"`
	DBHost     string `validate:"required_if=DBDriver postgres"`
	DBPort     int    `validate:"min=1,max=65535"`
	DBUser     string `validate:"required_if=DBDriver postgres"`
	DBPassword string
	DBName     string `validate:"required_if=DBDriver postgres"`
	DBSSLMode  string
	SQLitePath string `validate:"required_if=DBDriver sqlite"`

	// HTTP
	Port                  string `validate:"required,numeric"`
	AllowedOrigins        string
	RateLimitMax          int `validate:"min=1"`
	RateLimitWindow       time.Duration
	BodyLimitBytes        int `validate:"min=1"`
	JWTSecret             string
	CompanyName           string
	ReminderRulesFilePath string

	// Scheduler
	Scheduler SchedulerConfig

	// Mail
	Mail MailConfig

	// Logging
	LogLevel      string `validate:"oneof=trace debug info warn error"`
	LogFormat     string `validate:"oneof=console json"`
	LogTimeFormat string
	LogOutput     string
}

// SchedulerConfig holds the cron specs of the recurring checks.
type SchedulerConfig struct {
	Timezone        string
	OverdueSpec     string `validate:"required"`
	RemindersSpec   string `validate:"required"`
	ExpirySpec      string `validate:"required"`
	CustomSpec      string `validate:"required"`
	StartupDelay    time.Duration
	RunOnStartup    bool
	DisableSchedule bool
}

// MailConfig selects and configures reminder mail transports.
type MailConfig struct {
	Transports   []string `validate:"min=1,dive,oneof=log smtp redis file"`
	From         string   `validate:"required,email"`
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FilePath     string
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	OutboxKey    string
	RatePerSec   float64 `validate:"min=0"`
	Burst        int     `validate:"min=0"`
}

var validate = validator.New()

func Load() (*Config, error) {
	bodyLimit := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimit <= 0 {
		bodyLimit = envInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}
	secret := getEnv("JWT_SECRET_KEY", "")
	if strings.TrimSpace(secret) == "" {
		secret = getEnv("JWT_SECRET", "")
	}

	cfg := &Config{
		DBDriver:              strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:                getEnv("DB_HOST", "db"),
		DBPort:                envInt("DB_PORT", 5432),
		DBUser:                getEnv("DB_USER", ""),
		DBPassword:            getEnv("DB_PASSWORD", ""),
		DBName:                getEnv("DB_NAME", ""),
		DBSSLMode:             getEnv("DB_SSLMODE", "disable"),
		SQLitePath:            getEnv("SQLITE_PATH", "data/resort.db"),
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigins:        getEnv("ALLOWED_ORIGINS", "*"),
		RateLimitMax:          envInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow:       time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		BodyLimitBytes:        bodyLimit,
		JWTSecret:             secret,
		CompanyName:           getEnv("COMPANY_NAME", "Resort"),
		ReminderRulesFilePath: getEnv("REMINDER_RULES_FILE", ""),
		Scheduler: SchedulerConfig{
			Timezone:        getEnv("SCHEDULER_TIMEZONE", "Local"),
			OverdueSpec:     getEnv("SCHEDULE_OVERDUE", "0 1 * * *"),
			RemindersSpec:   getEnv("SCHEDULE_REMINDERS", "0 9 * * *"),
			ExpirySpec:      getEnv("SCHEDULE_EXPIRY", "30 0 * * *"),
			CustomSpec:      getEnv("SCHEDULE_CUSTOM", "0 10 * * *"),
			StartupDelay:    envDuration("SCHEDULER_STARTUP_DELAY", 10*time.Second),
			RunOnStartup:    envBool("SCHEDULER_RUN_ON_STARTUP", true),
			DisableSchedule: envBool("SCHEDULER_DISABLED", false),
		},
		Mail: MailConfig{
			Transports:   envList("MAIL_TRANSPORT", []string{"log"}),
			From:         getEnv("MAIL_FROM", "billing@example.com"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     envInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FilePath:     getEnv("MAIL_FILE_PATH", "data/mail.log"),
			RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPass:    getEnv("REDIS_PASSWORD", ""),
			RedisDB:      envInt("REDIS_DB", 0),
			OutboxKey:    getEnv("MAIL_OUTBOX_KEY", "mail:outbox"),
			RatePerSec:   envFloat("MAIL_RATE_PER_SEC", 5),
			Burst:        envInt("MAIL_BURST", 1),
		},
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "console")),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:     getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks struct constraints and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, t := range c.Mail.Transports {
		if t == "smtp" && strings.TrimSpace(c.Mail.SMTPHost) == "" {
			return fmt.Errorf("SMTP_HOST is required for the smtp mail transport")
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid SCHEDULER_TIMEZONE %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}

// Location returns the scheduler timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Scheduler.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
