// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	DBDriver    string // postgres | sqlite | memory
	DatabaseURL string
	RedisAddr   string
	FeedBackend string // local | redis | postgres

	JWTSecret string

	BillingThreshold   int
	SessionDuration    time.Duration
	OTPTTL             time.Duration
	OTPMaxAttempts     int
	AttendanceTokenTTL time.Duration

	ReminderSchedule        string
	PaymentReminderSchedule string

	SMTPHost  string
	SMTPPort  int
	EmailUser string
	EmailPass string
}

func defaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("port", "8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("feed_backend", "local")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("billing_threshold", 8)
	v.SetDefault("session_duration", time.Hour)
	v.SetDefault("otp_ttl", 15*time.Minute)
	v.SetDefault("otp_max_attempts", 5)
	v.SetDefault("attendance_token_ttl", 5*time.Minute)
	v.SetDefault("reminder_schedule", "* * * * *")
	v.SetDefault("payment_reminder_schedule", "0 9 * * *")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("email_user", "")
	v.SetDefault("email_pass", "")
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("config: could not load .env: %v", err)
	}
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	defaults(v)
	v.AutomaticEnv()
	return FromViper(v), nil
}

func FromViper(v *viper.Viper) *Config {
	return &Config{
		Env:                     v.GetString("env"),
		Port:                    v.GetString("port"),
		LogLevel:                v.GetString("log_level"),
		DBDriver:                v.GetString("db_driver"),
		DatabaseURL:             v.GetString("database_url"),
		RedisAddr:               v.GetString("redis_addr"),
		FeedBackend:             v.GetString("feed_backend"),
		JWTSecret:               v.GetString("jwt_secret"),
		BillingThreshold:        v.GetInt("billing_threshold"),
		SessionDuration:         v.GetDuration("session_duration"),
		OTPTTL:                  v.GetDuration("otp_ttl"),
		OTPMaxAttempts:          v.GetInt("otp_max_attempts"),
		AttendanceTokenTTL:      v.GetDuration("attendance_token_ttl"),
		ReminderSchedule:        v.GetString("reminder_schedule"),
		PaymentReminderSchedule: v.GetString("payment_reminder_schedule"),
		SMTPHost:                v.GetString("smtp_host"),
		SMTPPort:                v.GetInt("smtp_port"),
		EmailUser:               v.GetString("email_user"),
		EmailPass:               v.GetString("email_pass"),
	}
}

// Level maps the configured log level name onto fiber's logger levels.
func (c *Config) Level() log.Level {
	switch c.LogLevel {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	}
	return log.LevelInfo
}
