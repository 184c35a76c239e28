package filestore

import (
	"strings"
	"time"
)

// NormalizeEmail lowercases and trims an email so it can act as a stable key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpsertPatient creates a patient or merges the provided fields into an
// existing one. Empty fields leave the stored value untouched; non-empty
// fields replace it wholesale. A history note is appended to the log unless
// it repeats the most recent entry, which keeps repeated identical calls
// idempotent. Returns the patient id.
func (s *Store) UpsertPatient(email, name, historyNote, medicationSummary string) (int, error) {
	email = NormalizeEmail(email)
	var id int
	err := s.Update(func(d *Document) error {
		if p := d.patientByEmail(email); p != nil {
			if name != "" {
				p.Name = name
			}
			if historyNote != "" {
				appendHistory(p, historyNote, "", s.now())
			}
			if medicationSummary != "" {
				p.CurrentMedication = medicationSummary
			}
			id = p.ID
			return nil
		}

		p := &Patient{
			ID:                d.NextPatientID,
			Name:              name,
			Email:             email,
			Role:              "Patient",
			CurrentMedication: medicationSummary,
			CreatedAt:         s.now(),
		}
		if historyNote != "" {
			appendHistory(p, historyNote, "", s.now())
		}
		d.Patients[idKey(p.ID)] = p
		d.NextPatientID++
		id = p.ID
		return nil
	})
	return id, err
}

func appendHistory(p *Patient, note, doctorEmail string, at time.Time) {
	if n := len(p.MedicalHistory); n > 0 && p.MedicalHistory[n-1].Note == note {
		return
	}
	p.MedicalHistory = append(p.MedicalHistory, HistoryEntry{
		RecordedAt:  at,
		Note:        note,
		DoctorEmail: doctorEmail,
	})
}

// GetPatientByEmail looks a patient up by email.
func (s *Store) GetPatientByEmail(email string) (*Patient, error) {
	email = NormalizeEmail(email)
	var out *Patient
	err := s.View(func(d *Document) error {
		p := d.patientByEmail(email)
		if p == nil {
			return ErrNotFound
		}
		out = clonePatient(p)
		return nil
	})
	return out, err
}

// GetPatientByID looks a patient up by id.
func (s *Store) GetPatientByID(id int) (*Patient, error) {
	var out *Patient
	err := s.View(func(d *Document) error {
		p, ok := d.Patients[idKey(id)]
		if !ok {
			return ErrNotFound
		}
		out = clonePatient(p)
		return nil
	})
	return out, err
}

// ListPatients returns all patients in insertion (id) order.
func (s *Store) ListPatients() ([]*Patient, error) {
	var out []*Patient
	err := s.View(func(d *Document) error {
		for _, p := range sortedPatients(d) {
			out = append(out, clonePatient(p))
		}
		return nil
	})
	return out, err
}

// AppendPatientHistory adds a timestamped note to the patient's append-only
// medical history log.
func (s *Store) AppendPatientHistory(email, note, doctorEmail string) error {
	email = NormalizeEmail(email)
	return s.Update(func(d *Document) error {
		p := d.patientByEmail(email)
		if p == nil {
			return ErrNotFound
		}
		p.MedicalHistory = append(p.MedicalHistory, HistoryEntry{
			RecordedAt:  s.now(),
			Note:        note,
			DoctorEmail: doctorEmail,
		})
		return nil
	})
}
