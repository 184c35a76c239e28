// Package directory manages the patient and doctor registries: registration
// is an upsert keyed by lowercased email, and doctors are discoverable by
// specialization with a General Medicine fallback.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medai/medai/internal/platform/filestore"
)

// ErrInvalidInput marks malformed registration input.
var ErrInvalidInput = errors.New("invalid directory input")

// RegisterPatientRequest upserts a patient. Empty optional fields leave any
// existing values untouched.
type RegisterPatientRequest struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	HistoryNote       string `json:"history_note,omitempty"`
	MedicationSummary string `json:"medication_summary,omitempty"`
}

// RegisterDoctorRequest upserts a doctor. A blank specialization defaults to
// General Medicine on first registration.
type RegisterDoctorRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Specialization string `json:"specialization,omitempty"`
	DaysAvailable  string `json:"days_available,omitempty"`
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) RegisterPatient(ctx context.Context, req RegisterPatientRequest) (*filestore.Patient, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := s.repo.UpsertPatient(req.Email, req.Name, req.HistoryNote, req.MedicationSummary); err != nil {
		return nil, fmt.Errorf("upsert patient: %w", err)
	}
	p, err := s.repo.GetPatientByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient", p.Email).Int("id", p.ID).Msg("patient registered")
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, email string) (*filestore.Patient, error) {
	return s.repo.GetPatientByEmail(email)
}

func (s *Service) ListPatients(ctx context.Context) ([]*filestore.Patient, error) {
	return s.repo.ListPatients()
}

// History returns the patient's append-only medical history, oldest first.
func (s *Service) History(ctx context.Context, email string) ([]filestore.HistoryEntry, error) {
	p, err := s.repo.GetPatientByEmail(email)
	if err != nil {
		return nil, err
	}
	return p.MedicalHistory, nil
}

// AddHistory appends one note to the patient's medical history.
func (s *Service) AddHistory(ctx context.Context, email, note, doctorEmail string) error {
	if strings.TrimSpace(note) == "" {
		return fmt.Errorf("%w: note is required", ErrInvalidInput)
	}
	return s.repo.AppendPatientHistory(email, note, doctorEmail)
}

func (s *Service) RegisterDoctor(ctx context.Context, req RegisterDoctorRequest) (*filestore.Doctor, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := s.repo.UpsertDoctor(req.Email, req.Name, req.Specialization, req.DaysAvailable); err != nil {
		return nil, fmt.Errorf("upsert doctor: %w", err)
	}
	d, err := s.repo.GetDoctorByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("doctor", d.Email).Str("specialization", d.Specialization).Msg("doctor registered")
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, email string) (*filestore.Doctor, error) {
	return s.repo.GetDoctorByEmail(email)
}

// ListDoctors returns all doctors, or those matching a specialization when
// one is given. The match falls back to General Medicine and ranks exact
// specialization matches first.
func (s *Service) ListDoctors(ctx context.Context, specialization string) ([]*filestore.Doctor, error) {
	if strings.TrimSpace(specialization) == "" {
		return s.repo.ListDoctors()
	}
	return s.repo.ListDoctorsBySpecialization(specialization)
}
