package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the reminder service reads from the environment
type Config struct {
	Mode     string
	Port     string
	Log      Log
	Database Database
	SendGrid SendGrid
	Reminder Reminder
	HTTP     HTTP
}

type Log struct {
	Level  string
	Pretty bool
}

type Database struct {
	URL      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string

	MaxRetries   int
	RetryDelay   time.Duration
	MaxIdleConns int
	MaxOpenConns int
}

// DSN returns DATABASE_URL when set, otherwise builds a key/value DSN
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC connect_timeout=10",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

type SendGrid struct {
	APIKey     string
	APIHost    string
	FromEmail  string
	FromName   string
	RatePerSec float64
}

type Reminder struct {
	Schedule      string
	Concurrency   int
	SendTimeout   time.Duration
	TriggerSecret string
}

type HTTP struct {
	AllowedOrigins []string
}

// IsRelease reports whether gin runs in release mode
func (c Config) IsRelease() bool {
	return c.Mode == "release"
}

// Load reads an optional .env file and then the environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment only
func FromEnv() (Config, error) {
	e := &env{}
	cfg := Config{
		Mode: e.get("GIN_MODE", "debug"),
		Port: e.get("PORT", "8080"),
		Log: Log{
			Level:  e.get("LOG_LEVEL", "info"),
			Pretty: e.getBool("LOG_PRETTY", false),
		},
		SendGrid: SendGrid{
			APIKey:     e.required("SENDGRID_API_KEY"),
			APIHost:    e.get("SENDGRID_API_HOST", ""),
			FromEmail:  e.required("SENDGRID_NOTIFICATIONS_FROM_EMAIL"),
			FromName:   e.get("SENDGRID_FROM_NAME", "Review Reminders"),
			RatePerSec: e.getFloat("NOTIFY_RATE_PER_SEC", 10),
		},
		Reminder: Reminder{
			Schedule:      e.get("REMINDER_SCHEDULE", "@every 15m"),
			Concurrency:   e.getInt("REMINDER_CONCURRENCY", 4),
			SendTimeout:   e.getDuration("REMINDER_SEND_TIMEOUT", 10*time.Second),
			TriggerSecret: e.get("REMINDER_TRIGGER_SECRET", ""),
		},
		HTTP: HTTP{
			AllowedOrigins: e.getList("CORS_ALLOWED_ORIGINS"),
		},
	}

	cfg.Database = Database{
		SSLMode:      e.get("DB_SSL_MODE", "disable"),
		MaxRetries:   e.getInt("DB_MAX_RETRIES", 5),
		RetryDelay:   e.getDuration("DB_RETRY_DELAY", 5*time.Second),
		MaxIdleConns: e.getInt("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns: e.getInt("DB_MAX_OPEN_CONNS", 100),
	}
	if cfg.IsRelease() {
		// In production, use the hosted DATABASE_URL
		cfg.Database.URL = e.required("DATABASE_URL")
		// The trigger endpoint is never left open in production
		cfg.Reminder.TriggerSecret = e.required("REMINDER_TRIGGER_SECRET")
	} else {
		cfg.Database.Host = e.required("DB_HOST")
		cfg.Database.User = e.required("DB_USER")
		cfg.Database.Password = e.required("DB_PASSWORD")
		cfg.Database.Name = e.required("DB_NAME")
		cfg.Database.Port = e.get("DB_PORT", "5432")
	}

	if cfg.Database.MaxRetries < 1 {
		cfg.Database.MaxRetries = 1
	}
	if err := e.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// env collects lookup errors so every problem is reported at once
type env struct {
	missing []string
	invalid []string
}

func (e *env) get(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) required(key string) string {
	v := e.get(key, "")
	if v == "" {
		e.missing = append(e.missing, key)
	}
	return v
}

func (e *env) getInt(key string, def int) int {
	raw := e.get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.invalid = append(e.invalid, key)
		return def
	}
	return v
}

func (e *env) getFloat(key string, def float64) float64 {
	raw := e.get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.invalid = append(e.invalid, key)
		return def
	}
	return v
}

func (e *env) getBool(key string, def bool) bool {
	raw := e.get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.invalid = append(e.invalid, key)
		return def
	}
	return v
}

func (e *env) getDuration(key string, def time.Duration) time.Duration {
	raw := e.get(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.invalid = append(e.invalid, key)
		return def
	}
	return v
}

func (e *env) getList(key string) []string {
	raw := e.get(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *env) err() error {
	var errs []error
	if len(e.missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables not set: %s", strings.Join(e.missing, ", ")))
	}
	if len(e.invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variables: %s", strings.Join(e.invalid, ", ")))
	}
	return errors.Join(errs...)
}
