package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/medai/medai/internal/config"
	"github.com/medai/medai/internal/domain/booking"
	"github.com/medai/medai/internal/domain/directory"
	"github.com/medai/medai/internal/domain/visit"
	"github.com/medai/medai/internal/platform/calendar"
	"github.com/medai/medai/internal/platform/filestore"
	"github.com/medai/medai/internal/platform/middleware"
	"github.com/medai/medai/internal/platform/notification"
	"github.com/medai/medai/internal/platform/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medai-server",
		Short: "Medical appointment coordination API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the record store with a starter doctor roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := filestore.Open(cfg.DataFile, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			seed := []struct {
				email, name, specialization, days string
			}{
				{"a.diaz@clinic.example", "Dr. Ana Diaz", "Cardiology", "Mon,Tue,Wed,Thu,Fri"},
				{"b.chen@clinic.example", "Dr. Bo Chen", "Dermatology", "Mon,Wed,Fri"},
				{"c.okafor@clinic.example", "Dr. Chidi Okafor", filestore.GeneralMedicine, "Mon,Tue,Wed,Thu,Fri"},
				{"d.haas@clinic.example", "Dr. Dana Haas", "Pediatrics", "Tue,Thu"},
			}
			for _, d := range seed {
				id, err := store.UpsertDoctor(d.email, d.name, d.specialization, d.days)
				if err != nil {
					return fmt.Errorf("seed doctor %s: %w", d.email, err)
				}
				fmt.Printf("seeded doctor %d: %s (%s)\n", id, d.name, d.specialization)
			}
			return nil
		},
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Record store
	store, err := filestore.Open(cfg.DataFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open record store")
	}
	defer store.Close()
	logger.Info().Str("data_file", cfg.DataFile).Msg("record store opened")

	metrics := telemetry.New()
	store.OnCommit = metrics.ObserveCommit

	// Outbound channels. Both degrade to no-ops when unconfigured so the
	// booking flow never depends on external services being reachable.
	var sender notification.EmailSender
	if cfg.EmailEnabled() {
		sender = notification.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		logger.Info().Str("host", cfg.SMTPHost).Msg("email delivery enabled")
	} else {
		sender = &notification.MockEmailSender{}
		logger.Info().Msg("email delivery disabled, using mock sender")
	}

	var cal calendar.Client
	if cfg.CalendarEnabled() {
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/calendar.events"},
		}
		token := &oauth2.Token{RefreshToken: cfg.GoogleRefreshToken}
		cal = calendar.NewGoogleClient(oauthCfg, token, cfg.GoogleCalendarID, cfg.GoogleTimezone)
		logger.Info().Str("calendar_id", cfg.GoogleCalendarID).Msg("calendar integration enabled")
	}

	dispatcher := notification.NewDispatcher(sender, cal, metrics, logger, notification.DispatcherConfig{
		QueueSize:       cfg.NotifyQueueSize,
		DeliveryTimeout: cfg.NotifyTimeout(),
	})
	defer dispatcher.Close()
	dispatcher.OnCalendarEvent = func(appointmentID int, eventID string) {
		if _, err := store.SetAppointmentCalendarEvent(appointmentID, eventID); err != nil {
			logger.Error().Err(err).Int("appointment_id", appointmentID).Msg("failed to persist calendar event id")
		}
	}

	// Domain services
	policy := booking.Policy{Windows: booking.Windows{
		Horizon:          time.Duration(cfg.BookingHorizonDays) * 24 * time.Hour,
		PatientLookahead: time.Duration(cfg.PatientLookaheadDays) * 24 * time.Hour,
		SymptomRecency:   time.Duration(cfg.SymptomRecencyHours) * time.Hour,
		Cooldown:         time.Duration(cfg.BookingCooldownMinutes) * time.Minute,
		DoctorConflict:   time.Duration(cfg.DoctorConflictMinutes) * time.Minute,
		SlotIncrement:    time.Duration(cfg.SlotIncrementMinutes) * time.Minute,
		DefaultSlotHour:  cfg.DefaultSlotHour,
	}}

	bookingSvc := booking.NewService(store, policy, dispatcher, metrics, logger)
	visitSvc := visit.NewService(store, dispatcher, metrics, logger)
	directorySvc := directory.NewService(store, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	booking.NewHandler(bookingSvc).RegisterRoutes(apiV1)
	visit.NewHandler(visitSvc).RegisterRoutes(apiV1)
	directory.NewHandler(directorySvc).RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/metrics", metrics.Handler())

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
