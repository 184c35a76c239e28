package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	m1 := New()
	m2 := New()

	m1.BookingDecision("accepted")
	if got := testutil.ToFloat64(m1.BookingDecisions.WithLabelValues("accepted")); got != 1 {
		t.Errorf("expected 1 accepted decision, got %v", got)
	}
	if got := testutil.ToFloat64(m2.BookingDecisions.WithLabelValues("accepted")); got != 0 {
		t.Errorf("expected second instance untouched, got %v", got)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Delivery("email", "sent")
	m.Delivery("email", "failed")
	m.Delivery("email", "sent")
	if got := testutil.ToFloat64(m.NotificationDeliveries.WithLabelValues("email", "sent")); got != 2 {
		t.Errorf("expected 2 sent deliveries, got %v", got)
	}

	m.ObserveCommit(3 * time.Millisecond)
	if got := testutil.ToFloat64(m.StoreCommits); got != 1 {
		t.Errorf("expected 1 store commit, got %v", got)
	}

	m.SetBreakerState("email", 1)
	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("email")); got != 1 {
		t.Errorf("expected breaker state 1, got %v", got)
	}
}

func TestMiddleware_RecordsRequest(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/appointments/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/7", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	count := testutil.CollectAndCount(m.RequestDuration)
	if count == 0 {
		t.Error("expected request duration to be recorded")
	}
}

func TestHandler_ServesExposition(t *testing.T) {
	m := New()
	m.BookingDecision("doctor_conflict")

	e := echo.New()
	e.GET("/metrics", m.Handler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "booking_decisions_total") {
		t.Error("expected booking_decisions_total in exposition output")
	}
}
