package filestore

import (
	"sort"
	"strings"
)

// InsertVisitRecord appends an immutable visit record and, in the same
// committed step, folds the listed medications into the patient's running
// medication summary. The fold appends, never replaces: re-running the same
// record duplicates entries, which is accepted behavior for this projection.
func (s *Store) InsertVisitRecord(rec *VisitRecord) (int, error) {
	rec.PatientEmail = NormalizeEmail(rec.PatientEmail)
	rec.DoctorEmail = NormalizeEmail(rec.DoctorEmail)
	var id int
	err := s.Update(func(d *Document) error {
		patient := d.patientByEmail(rec.PatientEmail)
		if patient == nil {
			return &UnknownReferenceError{Kind: "patient", Ref: rec.PatientEmail}
		}
		doctor := d.doctorByEmail(rec.DoctorEmail)
		if doctor == nil {
			return &UnknownReferenceError{Kind: "doctor", Ref: rec.DoctorEmail}
		}

		stored := cloneVisitRecord(rec)
		stored.ID = d.NextVisitRecordID
		stored.PatientID = patient.ID
		stored.PatientName = patient.Name
		stored.DoctorID = doctor.ID
		stored.DoctorName = doctor.Name
		if stored.VisitDate.IsZero() {
			stored.VisitDate = s.now()
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = s.now()
		}
		d.VisitRecords = append(d.VisitRecords, stored)
		d.NextVisitRecordID++

		if folded := FoldMedications(patient.CurrentMedication, stored.Medications); folded != "" {
			patient.CurrentMedication = folded
		}

		id = stored.ID
		return nil
	})
	return id, err
}

// FoldMedications appends each medication with a non-empty name to the
// existing free-text summary, formatted as "Name Dosage (Frequency)".
func FoldMedications(existing string, meds []Medication) string {
	parts := []string{}
	if existing != "" {
		parts = append(parts, existing)
	}
	for _, m := range meds {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		entry := name
		if m.Dosage != "" {
			entry += " " + m.Dosage
		}
		if m.Frequency != "" {
			entry += " (" + m.Frequency + ")"
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, ", ")
}

// GetVisitRecordByID looks a visit record up by id.
func (s *Store) GetVisitRecordByID(id int) (*VisitRecord, error) {
	var out *VisitRecord
	err := s.View(func(d *Document) error {
		for _, v := range d.VisitRecords {
			if v.ID == id {
				out = cloneVisitRecord(v)
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

// ListVisitsByPatient returns the patient's visit records, most recent visit
// first.
func (s *Store) ListVisitsByPatient(email string) ([]*VisitRecord, error) {
	email = NormalizeEmail(email)
	var out []*VisitRecord
	err := s.View(func(d *Document) error {
		for _, v := range d.VisitRecords {
			if v.PatientEmail == email {
				out = append(out, cloneVisitRecord(v))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortVisitsDesc(out)
	return out, nil
}

// ListVisitsByDoctor returns the doctor's visit records, most recent visit
// first, optionally filtered to one patient. An empty patientEmail matches
// all patients.
func (s *Store) ListVisitsByDoctor(doctorEmail, patientEmail string) ([]*VisitRecord, error) {
	doctorEmail = NormalizeEmail(doctorEmail)
	patientEmail = NormalizeEmail(patientEmail)
	var out []*VisitRecord
	err := s.View(func(d *Document) error {
		for _, v := range d.VisitRecords {
			if v.DoctorEmail != doctorEmail {
				continue
			}
			if patientEmail != "" && v.PatientEmail != patientEmail {
				continue
			}
			out = append(out, cloneVisitRecord(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortVisitsDesc(out)
	return out, nil
}

func sortVisitsDesc(visits []*VisitRecord) {
	sort.SliceStable(visits, func(i, j int) bool {
		if !visits[i].VisitDate.Equal(visits[j].VisitDate) {
			return visits[i].VisitDate.After(visits[j].VisitDate)
		}
		return visits[i].ID > visits[j].ID
	})
}
