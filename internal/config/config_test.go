package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.DataFile != "medai_records.json" {
		t.Errorf("expected default data file, got %s", cfg.DataFile)
	}
	if cfg.BookingHorizonDays != 60 {
		t.Errorf("expected default horizon 60 days, got %d", cfg.BookingHorizonDays)
	}
	if cfg.BookingCooldownMinutes != 10 {
		t.Errorf("expected default cooldown 10 minutes, got %d", cfg.BookingCooldownMinutes)
	}
	if cfg.NotifyTimeout() != 10*time.Second {
		t.Errorf("expected default notify timeout 10s, got %s", cfg.NotifyTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("BOOKING_HORIZON_DAYS", "14")
	os.Setenv("DATA_FILE", "/tmp/records.json")
	defer os.Unsetenv("BOOKING_HORIZON_DAYS")
	defer os.Unsetenv("DATA_FILE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BookingHorizonDays != 14 {
		t.Errorf("expected horizon 14, got %d", cfg.BookingHorizonDays)
	}
	if cfg.DataFile != "/tmp/records.json" {
		t.Errorf("expected overridden data file, got %s", cfg.DataFile)
	}
}

func TestValidate_RejectsBadWindows(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.BookingCooldownMinutes = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero cooldown")
	}
	cfg.BookingCooldownMinutes = 10

	cfg.DefaultSlotHour = 24
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range slot hour")
	}
	cfg.DefaultSlotHour = 10

	cfg.SMTPHost = "smtp.example.com"
	cfg.SMTPUsername = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for SMTP host without username")
	}

	cfg.SMTPUsername = "user"
	cfg.GoogleClientID = "client-id"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for partial Google credentials")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func TestConfig_FeatureToggles(t *testing.T) {
	c := &Config{}
	if c.EmailEnabled() {
		t.Error("email should be disabled without SMTP_HOST")
	}
	if c.CalendarEnabled() {
		t.Error("calendar should be disabled without Google credentials")
	}

	c.SMTPHost = "smtp.example.com"
	if !c.EmailEnabled() {
		t.Error("email should be enabled with SMTP_HOST")
	}

	c.GoogleClientID = "id"
	c.GoogleClientSecret = "secret"
	c.GoogleRefreshToken = "token"
	if !c.CalendarEnabled() {
		t.Error("calendar should be enabled with full Google credentials")
	}
}
