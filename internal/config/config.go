package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DataFile    string   `mapstructure:"DATA_FILE"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// Scheduling policy windows.
	BookingHorizonDays     int `mapstructure:"BOOKING_HORIZON_DAYS"`
	PatientLookaheadDays   int `mapstructure:"PATIENT_LOOKAHEAD_DAYS"`
	SymptomRecencyHours    int `mapstructure:"SYMPTOM_RECENCY_HOURS"`
	BookingCooldownMinutes int `mapstructure:"BOOKING_COOLDOWN_MINUTES"`
	DoctorConflictMinutes  int `mapstructure:"DOCTOR_CONFLICT_MINUTES"`
	SlotIncrementMinutes   int `mapstructure:"SLOT_INCREMENT_MINUTES"`
	DefaultSlotHour        int `mapstructure:"DEFAULT_SLOT_HOUR"`

	// Outbound email. Empty SMTP_HOST disables email delivery.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	// Google Calendar. Empty client id disables calendar integration.
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRefreshToken string `mapstructure:"GOOGLE_REFRESH_TOKEN"`
	GoogleCalendarID   string `mapstructure:"GOOGLE_CALENDAR_ID"`
	GoogleTimezone     string `mapstructure:"GOOGLE_TIMEZONE"`

	NotifyQueueSize      int `mapstructure:"NOTIFY_QUEUE_SIZE"`
	NotifyTimeoutSeconds int `mapstructure:"NOTIFY_TIMEOUT_SECONDS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATA_FILE", "medai_records.json")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BOOKING_HORIZON_DAYS", 60)
	v.SetDefault("PATIENT_LOOKAHEAD_DAYS", 7)
	v.SetDefault("SYMPTOM_RECENCY_HOURS", 24)
	v.SetDefault("BOOKING_COOLDOWN_MINUTES", 10)
	v.SetDefault("DOCTOR_CONFLICT_MINUTES", 60)
	v.SetDefault("SLOT_INCREMENT_MINUTES", 30)
	v.SetDefault("DEFAULT_SLOT_HOUR", 10)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("GOOGLE_CALENDAR_ID", "primary")
	v.SetDefault("GOOGLE_TIMEZONE", "UTC")
	v.SetDefault("NOTIFY_QUEUE_SIZE", 128)
	v.SetDefault("NOTIFY_TIMEOUT_SECONDS", 10)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATA_FILE", "CORS_ORIGINS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"BOOKING_HORIZON_DAYS", "PATIENT_LOOKAHEAD_DAYS", "SYMPTOM_RECENCY_HOURS",
		"BOOKING_COOLDOWN_MINUTES", "DOCTOR_CONFLICT_MINUTES", "SLOT_INCREMENT_MINUTES",
		"DEFAULT_SLOT_HOUR",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REFRESH_TOKEN",
		"GOOGLE_CALENDAR_ID", "GOOGLE_TIMEZONE",
		"NOTIFY_QUEUE_SIZE", "NOTIFY_TIMEOUT_SECONDS",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// EmailEnabled reports whether outbound SMTP is configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

// CalendarEnabled reports whether Google Calendar integration is configured.
func (c *Config) CalendarEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRefreshToken != ""
}

// NotifyTimeout returns the per-delivery timeout as a duration.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutSeconds) * time.Second
}

// Validate checks that the configuration can produce a working policy. Every
// window must be positive; a zero or negative window would make bookings
// either always or never admissible.
func (c *Config) Validate() error {
	if c.DataFile == "" {
		return fmt.Errorf("DATA_FILE is required")
	}
	for _, w := range []struct {
		name string
		val  int
	}{
		{"BOOKING_HORIZON_DAYS", c.BookingHorizonDays},
		{"PATIENT_LOOKAHEAD_DAYS", c.PatientLookaheadDays},
		{"SYMPTOM_RECENCY_HOURS", c.SymptomRecencyHours},
		{"BOOKING_COOLDOWN_MINUTES", c.BookingCooldownMinutes},
		{"DOCTOR_CONFLICT_MINUTES", c.DoctorConflictMinutes},
		{"SLOT_INCREMENT_MINUTES", c.SlotIncrementMinutes},
	} {
		if w.val <= 0 {
			return fmt.Errorf("%s must be positive, got %d", w.name, w.val)
		}
	}
	if c.DefaultSlotHour < 0 || c.DefaultSlotHour > 23 {
		return fmt.Errorf("DEFAULT_SLOT_HOUR must be between 0 and 23, got %d", c.DefaultSlotHour)
	}
	if c.EmailEnabled() && c.SMTPUsername == "" {
		return fmt.Errorf("SMTP_USERNAME is required when SMTP_HOST is set")
	}
	if c.GoogleClientID != "" && !c.CalendarEnabled() {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN are required when GOOGLE_CLIENT_ID is set")
	}
	return nil
}
