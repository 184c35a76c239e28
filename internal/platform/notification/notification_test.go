package notification

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medai/medai/internal/platform/calendar"
	"github.com/medai/medai/internal/platform/filestore"
)

func TestTemplateEngine_RenderBuiltIn(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render(TemplateAppointmentBooked, map[string]string{
		"doctor_name":   "Dr. Diaz",
		"patient_name":  "Pat Doe",
		"patient_email": "pat@example.com",
		"date":          "Monday, June 2, 2025",
		"time":          "10:00 AM",
		"symptoms":      "headache",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(subject, "Pat Doe") {
		t.Errorf("subject = %q, missing patient name", subject)
	}
	if !strings.Contains(body, "Symptoms: headache") {
		t.Errorf("body = %q, missing symptoms", body)
	}
	if strings.Contains(body, "{{") {
		t.Errorf("body = %q, unreplaced placeholder", body)
	}
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestTemplateEngine_MissingKeysLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render(TemplateVisitSummary, map[string]string{"patient_name": "Pat"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(body, "{{summary}}") {
		t.Errorf("body = %q, expected unfilled placeholder preserved", body)
	}
}

func testFixtures() (*filestore.Appointment, *filestore.Patient, *filestore.Doctor) {
	appt := &filestore.Appointment{
		ID:           7,
		PatientEmail: "pat@example.com",
		DoctorEmail:  "diaz@clinic.test",
		Symptoms:     "headache",
		ScheduledFor: time.Date(2025, time.June, 3, 10, 0, 0, 0, time.UTC),
		Status:       filestore.StatusScheduled,
	}
	patient := &filestore.Patient{ID: 1, Name: "Pat Doe", Email: "pat@example.com"}
	doctor := &filestore.Doctor{ID: 1, Name: "Dr. Diaz", Email: "diaz@clinic.test"}
	return appt, patient, doctor
}

func TestDispatcher_AppointmentBookedDeliversEmailAndCalendar(t *testing.T) {
	sender := &MockEmailSender{}
	cal := &calendar.MockClient{}
	d := NewDispatcher(sender, cal, nil, zerolog.Nop(), DispatcherConfig{})

	var mu sync.Mutex
	events := make(map[int]string)
	d.OnCalendarEvent = func(appointmentID int, eventID string) {
		mu.Lock()
		events[appointmentID] = eventID
		mu.Unlock()
	}

	appt, patient, doctor := testFixtures()
	d.AppointmentBooked(appt, patient, doctor)
	d.Close()

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d emails, want 1", len(calls))
	}
	if calls[0].To != "diaz@clinic.test" {
		t.Errorf("email to %q, want the doctor", calls[0].To)
	}
	if !strings.Contains(calls[0].Body, "pat@example.com") {
		t.Errorf("email body missing patient email: %q", calls[0].Body)
	}

	created := cal.Created()
	if len(created) != 1 {
		t.Fatalf("got %d calendar events, want 1", len(created))
	}
	if !created[0].Start.Equal(appt.ScheduledFor) {
		t.Errorf("event start = %s, want %s", created[0].Start, appt.ScheduledFor)
	}
	mu.Lock()
	defer mu.Unlock()
	if events[appt.ID] == "" {
		t.Error("calendar event id not reported back")
	}
}

func TestDispatcher_CancelRemovesCalendarEvent(t *testing.T) {
	sender := &MockEmailSender{}
	cal := &calendar.MockClient{}
	d := NewDispatcher(sender, cal, nil, zerolog.Nop(), DispatcherConfig{})

	appt, patient, doctor := testFixtures()
	appt.CalendarEventID = "evt-42"
	d.AppointmentCancelled(appt, patient, doctor)
	d.Close()

	if deleted := cal.Deleted(); len(deleted) != 1 || deleted[0] != "evt-42" {
		t.Errorf("deleted = %v, want [evt-42]", deleted)
	}
	if calls := sender.Calls(); len(calls) != 1 || calls[0].To != "diaz@clinic.test" {
		t.Errorf("cancellation email calls = %v", calls)
	}
}

func TestDispatcher_VisitRecordedEmailsPatient(t *testing.T) {
	sender := &MockEmailSender{}
	d := NewDispatcher(sender, nil, nil, zerolog.Nop(), DispatcherConfig{})

	_, patient, doctor := testFixtures()
	rec := &filestore.VisitRecord{
		ID:           3,
		PatientEmail: patient.Email,
		DoctorEmail:  doctor.Email,
		VisitDate:    time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
		Summary:      "Follow-up for headaches.",
		Medications:  []filestore.Medication{{Name: "Ibuprofen", Dosage: "400mg"}},
	}
	d.VisitRecorded(rec, patient, doctor)
	d.Close()

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d emails, want 1", len(calls))
	}
	if calls[0].To != "pat@example.com" {
		t.Errorf("email to %q, want the patient", calls[0].To)
	}
	if !strings.Contains(calls[0].Body, "Ibuprofen 400mg") {
		t.Errorf("body missing medications: %q", calls[0].Body)
	}
}

func TestDispatcher_SenderFailureIsSwallowed(t *testing.T) {
	sender := &MockEmailSender{ShouldFail: true}
	d := NewDispatcher(sender, nil, nil, zerolog.Nop(), DispatcherConfig{})

	appt, patient, doctor := testFixtures()
	// Must not panic or block the caller.
	d.AppointmentBooked(appt, patient, doctor)
	d.Close()
}

func TestSMTPSenderHonorsCancelledContext(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "user", "pass", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SendEmail(ctx, "to@example.com", "subject", "body"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
