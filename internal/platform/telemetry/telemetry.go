// Package telemetry provides Prometheus metrics for the coordination core.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	registry *prometheus.Registry

	BookingDecisions       *prometheus.CounterVec
	AppointmentsScheduled  prometheus.Gauge
	VisitRecordsTotal      prometheus.Counter
	NotificationDeliveries *prometheus.CounterVec
	StoreCommits           prometheus.Counter
	StoreCommitDuration    prometheus.Histogram
	CircuitBreakerState    *prometheus.GaugeVec
	RequestDuration        *prometheus.HistogramVec
}

// New creates and registers all metrics on a private registry, so tests can
// build independent instances without collisions.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BookingDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_decisions_total",
			Help: "Booking outcomes by decision (accepted or a rejection reason)",
		}, []string{"decision"}),
		AppointmentsScheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "appointments_scheduled",
			Help: "Appointments currently in the scheduled state",
		}),
		VisitRecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visit_records_total",
			Help: "Total post-visit records written",
		}),
		NotificationDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Notification delivery attempts by channel and outcome",
		}, []string{"channel", "outcome"}),
		StoreCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "store_commits_total",
			Help: "Total committed record store updates",
		}),
		StoreCommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "store_commit_duration_seconds",
			Help:    "Record store commit duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration by method, route and status",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.BookingDecisions,
		m.AppointmentsScheduled,
		m.VisitRecordsTotal,
		m.NotificationDeliveries,
		m.StoreCommits,
		m.StoreCommitDuration,
		m.CircuitBreakerState,
		m.RequestDuration,
	)

	return m
}

// BookingDecision counts one booking outcome.
func (m *Metrics) BookingDecision(decision string) {
	m.BookingDecisions.WithLabelValues(decision).Inc()
}

// Delivery counts one notification delivery attempt.
func (m *Metrics) Delivery(channel, outcome string) {
	m.NotificationDeliveries.WithLabelValues(channel, outcome).Inc()
}

// ObserveCommit records one durable store commit.
func (m *Metrics) ObserveCommit(d time.Duration) {
	m.StoreCommits.Inc()
	m.StoreCommitDuration.Observe(d.Seconds())
}

// SetBreakerState publishes a circuit breaker's state.
func (m *Metrics) SetBreakerState(name string, state float64) {
	m.CircuitBreakerState.WithLabelValues(name).Set(state)
}

// Middleware returns an Echo middleware recording per-request duration.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			m.RequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
