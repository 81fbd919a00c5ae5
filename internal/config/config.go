package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StampPolicy decides when a dispatched task keeps its notified stamp.
type StampPolicy string

const (
	// StampOnSuccess keeps the stamp only when at least one delivery succeeded.
	StampOnSuccess StampPolicy = "on_success"
	// StampAlways keeps the stamp regardless of delivery outcome.
	StampAlways StampPolicy = "always"
)

// Config keeps runtime settings for the service.
type Config struct {
	DatabaseURL string
	HTTPAddr    string
	AppURL      string
	CronSecret  string

	DailyRunAt string
	Location   *time.Location

	StampPolicy       StampPolicy
	SendRatePerSecond float64

	SMTP          SMTPConfig
	TelegramToken string

	LogDir string
	Debug  bool
}

// SMTPConfig holds outbound mail settings. Email is disabled when Host is empty.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// Enabled reports whether SMTP delivery is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Load reads configuration from the environment, after merging an optional
// .env file, with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		DatabaseURL:       getEnv("DATABASE_URL", "task_reminder.db"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		AppURL:            strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		CronSecret:        getEnv("CRON_SECRET", ""),
		DailyRunAt:        getEnv("DAILY_RUN_AT", "08:00"),
		StampPolicy:       StampPolicy(getEnv("NOTIFY_STAMP_POLICY", string(StampOnSuccess))),
		SendRatePerSecond: getEnvAsFloat("SEND_RATE_PER_SECOND", 5),
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("SMTP_FROM_EMAIL", "reminders@localhost"),
			FromName:  getEnv("SMTP_FROM_NAME", "Task Reminders"),
		},
		TelegramToken: getEnv("TELEGRAM_TOKEN", ""),
		LogDir:        getEnv("LOG_DIR", "logs"),
		Debug:         getEnvAsBool("DEBUG", false),
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that have no usable fallback.
func (c Config) Validate() error {
	if _, _, err := ParseClock(c.DailyRunAt); err != nil {
		return fmt.Errorf("DAILY_RUN_AT: %w", err)
	}
	switch c.StampPolicy {
	case StampOnSuccess, StampAlways:
	default:
		return fmt.Errorf("NOTIFY_STAMP_POLICY: unknown policy %q", c.StampPolicy)
	}
	if c.SendRatePerSecond <= 0 {
		return fmt.Errorf("SEND_RATE_PER_SECOND must be positive")
	}
	return nil
}

// ParseClock parses an HH:MM time of day.
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
