package visit

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

var (
	// ErrAppointmentNotCompleted rejects a visit record whose referenced
	// appointment has not been marked completed.
	ErrAppointmentNotCompleted = errors.New("referenced appointment is not completed")

	// ErrInvalidRecord marks malformed visit input.
	ErrInvalidRecord = errors.New("invalid visit record")
)

// RecordRequest carries one post-visit record submission. AppointmentID is
// optional; when present the appointment must exist and be completed.
type RecordRequest struct {
	PatientEmail    string                 `json:"patient_email"`
	DoctorEmail     string                 `json:"doctor_email"`
	AppointmentID   int                    `json:"appointment_id,omitempty"`
	VisitDate       time.Time              `json:"visit_date,omitempty"`
	Summary         string                 `json:"visit_summary"`
	Medications     []filestore.Medication `json:"medications,omitempty"`
	Instructions    string                 `json:"instructions,omitempty"`
	NextAppointment string                 `json:"next_appointment,omitempty"`
}

// Service writes and reads post-visit records. Records are append-only.
type Service struct {
	repo    Repository
	fanout  Fanout
	metrics *telemetry.Metrics
	logger  zerolog.Logger
	clock   func() time.Time
}

func NewService(repo Repository, fanout Fanout, metrics *telemetry.Metrics, logger zerolog.Logger) *Service {
	if fanout == nil {
		fanout = NopFanout{}
	}
	return &Service{
		repo:    repo,
		fanout:  fanout,
		metrics: metrics,
		logger:  logger,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Record persists the visit record and folds its medications into the
// patient's running medication summary in the same commit. The patient is
// then sent a summary email, best effort.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*filestore.VisitRecord, error) {
	if strings.TrimSpace(req.PatientEmail) == "" {
		return nil, fmt.Errorf("%w: patient_email is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(req.DoctorEmail) == "" {
		return nil, fmt.Errorf("%w: doctor_email is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(req.Summary) == "" {
		return nil, fmt.Errorf("%w: visit_summary is required", ErrInvalidRecord)
	}

	if req.AppointmentID != 0 {
		appt, err := s.repo.GetAppointmentByID(req.AppointmentID)
		if err != nil {
			return nil, err
		}
		if !appt.Completed {
			return nil, ErrAppointmentNotCompleted
		}
	}

	rec := &filestore.VisitRecord{
		PatientEmail:    req.PatientEmail,
		DoctorEmail:     req.DoctorEmail,
		AppointmentID:   req.AppointmentID,
		VisitDate:       req.VisitDate,
		Summary:         strings.TrimSpace(req.Summary),
		Medications:     req.Medications,
		Instructions:    req.Instructions,
		NextAppointment: req.NextAppointment,
		CreatedAt:       s.clock(),
	}
	id, err := s.repo.InsertVisitRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("insert visit record: %w", err)
	}

	saved, err := s.repo.GetVisitRecordByID(id)
	if err != nil {
		return nil, fmt.Errorf("read back visit record %d: %w", id, err)
	}

	if s.metrics != nil {
		s.metrics.VisitRecordsTotal.Inc()
	}
	s.logger.Info().
		Int("visit_record_id", saved.ID).
		Str("patient", saved.PatientEmail).
		Str("doctor", saved.DoctorEmail).
		Msg("visit record written")

	patient, perr := s.repo.GetPatientByEmail(saved.PatientEmail)
	doctor, derr := s.repo.GetDoctorByEmail(saved.DoctorEmail)
	if perr == nil && derr == nil {
		s.fanout.VisitRecorded(saved, patient, doctor)
	}
	return saved, nil
}

// Get returns one visit record.
func (s *Service) Get(ctx context.Context, id int) (*filestore.VisitRecord, error) {
	return s.repo.GetVisitRecordByID(id)
}

// History returns the patient's visit records, most recent first.
func (s *Service) History(ctx context.Context, patientEmail string) ([]*filestore.VisitRecord, error) {
	if _, err := s.repo.GetPatientByEmail(patientEmail); err != nil {
		return nil, err
	}
	return s.repo.ListVisitsByPatient(patientEmail)
}

// DoctorHistory returns visits conducted by a doctor, optionally narrowed to
// one patient, most recent first.
func (s *Service) DoctorHistory(ctx context.Context, doctorEmail, patientEmail string) ([]*filestore.VisitRecord, error) {
	if _, err := s.repo.GetDoctorByEmail(doctorEmail); err != nil {
		return nil, err
	}
	return s.repo.ListVisitsByDoctor(doctorEmail, patientEmail)
}

// CurrentMedications returns the medication list of the patient's most
// recent visit, or an empty list for a patient with no visits yet.
func (s *Service) CurrentMedications(ctx context.Context, patientEmail string) ([]filestore.Medication, error) {
	visits, err := s.History(ctx, patientEmail)
	if err != nil {
		return nil, err
	}
	if len(visits) == 0 {
		return nil, nil
	}
	return visits[0].Medications, nil
}
