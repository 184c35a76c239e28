package visit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medai/medai/internal/platform/filestore"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	return NewHandler(svc), repo, echo.New()
}

func TestHandler_RecordVisit(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.addPatient("Pat Doe", "pat@example.com")
	repo.addDoctor("Dr. Diaz", "diaz@clinic.test")

	body := `{"patient_email":"pat@example.com","doctor_email":"diaz@clinic.test",` +
		`"visit_summary":"Routine checkup.","medications":[{"name":"Aspirin","dosage":"81mg"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visits", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.RecordVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var saved filestore.VisitRecord
	json.Unmarshal(rec.Body.Bytes(), &saved)
	if saved.ID == 0 {
		t.Error("response missing visit record id")
	}
	if saved.Summary != "Routine checkup." {
		t.Errorf("summary = %q", saved.Summary)
	}
}

func TestHandler_RecordVisit_UnknownDoctor(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.addPatient("Pat Doe", "pat@example.com")

	body := `{"patient_email":"pat@example.com","doctor_email":"ghost@clinic.test","visit_summary":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visits", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.RecordVisit(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 HTTPError, got %v", err)
	}
}

func TestHandler_RecordVisit_IncompleteAppointment(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.addPatient("Pat Doe", "pat@example.com")
	repo.addDoctor("Dr. Diaz", "diaz@clinic.test")
	repo.appts[1] = &filestore.Appointment{ID: 1, Status: filestore.StatusScheduled}

	body := `{"patient_email":"pat@example.com","doctor_email":"diaz@clinic.test",` +
		`"appointment_id":1,"visit_summary":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visits", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.RecordVisit(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409 HTTPError, got %v", err)
	}
}

func TestHandler_PatientMedications_EmptyList(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.addPatient("Pat Doe", "pat@example.com")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("email")
	c.SetParamValues("pat@example.com")

	if err := h.PatientMedications(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty JSON array", got)
	}
}
