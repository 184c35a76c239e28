package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medai/medai/internal/platform/filestore"
	"github.com/medai/medai/internal/platform/telemetry"
)

// BookRequest carries one booking attempt. The candidate time is either the
// explicit When, a natural-language Date/Time pair, or absent entirely, in
// which case the policy hunts for the doctor's next open slot.
type BookRequest struct {
	PatientEmail   string    `json:"patient_email"`
	PatientName    string    `json:"patient_name"`
	Symptoms       string    `json:"symptoms"`
	Specialization string    `json:"specialization,omitempty"`
	When           time.Time `json:"when,omitempty"`
	Date           string    `json:"date,omitempty"`
	Time           string    `json:"time,omitempty"`
}

// Service drives the booking flow and the appointment lifecycle.
type Service struct {
	repo    Repository
	policy  Policy
	fanout  Fanout
	metrics *telemetry.Metrics
	logger  zerolog.Logger

	// clock is swappable in tests.
	clock func() time.Time
}

func NewService(repo Repository, policy Policy, fanout Fanout, metrics *telemetry.Metrics, logger zerolog.Logger) *Service {
	if fanout == nil {
		fanout = NopFanout{}
	}
	return &Service{
		repo:    repo,
		policy:  policy,
		fanout:  fanout,
		metrics: metrics,
		logger:  logger,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Book registers the patient if needed, resolves a doctor by specialization,
// runs the admissibility checks, and commits the appointment. The checks run
// again inside the store's critical section so a conflicting appointment
// created during processing fails with RaceConditionError instead of
// double-booking.
func (s *Service) Book(ctx context.Context, req BookRequest) (*filestore.Appointment, error) {
	if strings.TrimSpace(req.PatientEmail) == "" {
		return nil, fmt.Errorf("%w: patient_email is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		return nil, fmt.Errorf("%w: symptoms are required", ErrInvalidRequest)
	}
	if req.Specialization == "" {
		req.Specialization = filestore.GeneralMedicine
	}

	now := s.clock()

	// Registration on first booking.
	if _, err := s.repo.UpsertPatient(req.PatientEmail, req.PatientName, "", ""); err != nil {
		return nil, fmt.Errorf("upsert patient: %w", err)
	}

	doctors, err := s.repo.ListDoctorsBySpecialization(req.Specialization)
	if err != nil {
		return nil, fmt.Errorf("resolve doctor: %w", err)
	}
	if len(doctors) == 0 {
		return nil, ErrNoDoctorAvailable
	}
	doctor := doctors[0]

	appts, err := s.repo.ListAppointments()
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	candidate, err := s.resolveCandidate(req, doctor.Email, now, appts)
	if err != nil {
		s.countDecision(err)
		return nil, err
	}

	if err := s.policy.Admit(now, candidate, req.PatientEmail, doctor.Email, req.Symptoms, appts); err != nil {
		s.countDecision(err)
		return nil, err
	}

	appt := &filestore.Appointment{
		PatientEmail: filestore.NormalizeEmail(req.PatientEmail),
		DoctorEmail:  doctor.Email,
		Symptoms:     strings.TrimSpace(req.Symptoms),
		ScheduledFor: candidate,
		CreatedAt:    now,
	}
	id, err := s.repo.CreateAppointment(appt, func(d *filestore.Document) error {
		// Final re-check under the store lock: anything that changed the
		// verdict since the first pass is a race, not a policy rejection.
		if err := s.policy.Admit(s.clock(), candidate, req.PatientEmail, doctor.Email, req.Symptoms, d.Appointments); err != nil {
			return &RaceConditionError{Cause: err}
		}
		return nil
	})
	if err != nil {
		s.countDecision(err)
		return nil, err
	}

	booked, err := s.repo.GetAppointmentByID(id)
	if err != nil {
		return nil, fmt.Errorf("read back appointment %d: %w", id, err)
	}

	s.countDecision(nil)
	s.publishScheduledCount()
	s.logger.Info().
		Int("appointment_id", booked.ID).
		Str("patient", booked.PatientEmail).
		Str("doctor", booked.DoctorEmail).
		Time("scheduled_for", booked.ScheduledFor).
		Msg("appointment booked")

	patient, err := s.repo.GetPatientByEmail(booked.PatientEmail)
	if err == nil {
		s.fanout.AppointmentBooked(booked, patient, doctor)
	}
	return booked, nil
}

func (s *Service) resolveCandidate(req BookRequest, doctorEmail string, now time.Time, appts []*filestore.Appointment) (time.Time, error) {
	if !req.When.IsZero() {
		return req.When, nil
	}
	if req.Date != "" || req.Time != "" {
		return ResolveDateTime(req.Date, req.Time, now, s.policy.Windows.DefaultSlotHour)
	}
	return s.policy.NextOpenSlot(now, doctorEmail, appts)
}

// Complete transitions a scheduled appointment to completed. Completing an
// already-completed appointment is a no-op, reported through the second
// return value rather than an error, and leaves the completion timestamp
// unchanged.
func (s *Service) Complete(ctx context.Context, id int) (*filestore.Appointment, bool, error) {
	appt, err := s.repo.GetAppointmentByID(id)
	if err != nil {
		return nil, false, err
	}
	if appt.Completed {
		return appt, false, nil
	}

	found, err := s.repo.SetAppointmentCompletion(id, true)
	if err != nil {
		return nil, false, fmt.Errorf("complete appointment %d: %w", id, err)
	}
	if !found {
		return nil, false, filestore.ErrNotFound
	}

	appt, err = s.repo.GetAppointmentByID(id)
	if err != nil {
		return nil, false, err
	}
	s.publishScheduledCount()
	s.logger.Info().Int("appointment_id", id).Msg("appointment completed")
	return appt, true, nil
}

// Cancel removes the appointment entirely. Cancellation is modeled as a hard
// delete; the second cancel of the same id returns false.
func (s *Service) Cancel(ctx context.Context, id int) (bool, error) {
	appt, err := s.repo.GetAppointmentByID(id)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	deleted, err := s.repo.DeleteAppointment(id)
	if err != nil {
		return false, fmt.Errorf("cancel appointment %d: %w", id, err)
	}
	if !deleted {
		return false, nil
	}

	s.publishScheduledCount()
	s.logger.Info().Int("appointment_id", id).Msg("appointment cancelled")

	patient, perr := s.repo.GetPatientByEmail(appt.PatientEmail)
	doctor, derr := s.repo.GetDoctorByEmail(appt.DoctorEmail)
	if perr == nil && derr == nil {
		s.fanout.AppointmentCancelled(appt, patient, doctor)
	}
	return true, nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id int) (*filestore.Appointment, error) {
	return s.repo.GetAppointmentByID(id)
}

// List returns all appointments in insertion order.
func (s *Service) List(ctx context.Context) ([]*filestore.Appointment, error) {
	return s.repo.ListAppointments()
}

// ListByPatient returns the patient's appointments in insertion order.
func (s *Service) ListByPatient(ctx context.Context, email string) ([]*filestore.Appointment, error) {
	return s.repo.ListAppointmentsByPatient(email)
}

// ActiveAppointment resolves the doctor's current patient: the scheduled
// appointment with the earliest time. A doctor with appointments but none
// still scheduled gets ErrNoActiveAppointment; a doctor with no appointments
// at all gets ErrNoAppointments. The two empty states are distinct on
// purpose.
func (s *Service) ActiveAppointment(ctx context.Context, doctorEmail string) (*filestore.Appointment, error) {
	if _, err := s.repo.GetDoctorByEmail(doctorEmail); err != nil {
		return nil, err
	}
	appts, err := s.repo.ListAppointmentsByDoctor(doctorEmail)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, ErrNoAppointments
	}

	var active *filestore.Appointment
	for _, a := range appts {
		if a.Status != filestore.StatusScheduled || a.Completed {
			continue
		}
		if active == nil || a.ScheduledFor.Before(active.ScheduledFor) {
			active = a
		}
	}
	if active == nil {
		return nil, ErrNoActiveAppointment
	}
	return active, nil
}

// publishScheduledCount refreshes the scheduled-appointments gauge after any
// lifecycle change. Best effort; a listing failure leaves the gauge stale.
func (s *Service) publishScheduledCount() {
	if s.metrics == nil {
		return
	}
	appts, err := s.repo.ListAppointments()
	if err != nil {
		return
	}
	n := 0
	for _, a := range appts {
		if a.Status == filestore.StatusScheduled && !a.Completed {
			n++
		}
	}
	s.metrics.AppointmentsScheduled.Set(float64(n))
}

func (s *Service) countDecision(err error) {
	if s.metrics == nil {
		return
	}
	if err == nil {
		s.metrics.BookingDecision("accepted")
		return
	}
	if reason := Reason(err); reason != "" {
		s.metrics.BookingDecision(reason)
	}
}
