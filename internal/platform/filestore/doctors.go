package filestore

import (
	"sort"
	"strings"
)

// UpsertDoctor creates a doctor or merges the provided fields into an
// existing one, following the same replace-or-leave rule as UpsertPatient.
// Returns the doctor id.
func (s *Store) UpsertDoctor(email, name, specialization, daysAvailable string) (int, error) {
	email = NormalizeEmail(email)
	var id int
	err := s.Update(func(d *Document) error {
		if doc := d.doctorByEmail(email); doc != nil {
			if name != "" {
				doc.Name = name
			}
			if specialization != "" {
				doc.Specialization = specialization
			}
			if daysAvailable != "" {
				doc.DaysAvailable = daysAvailable
			}
			id = doc.ID
			return nil
		}

		if specialization == "" {
			specialization = GeneralMedicine
		}
		doc := &Doctor{
			ID:             d.NextDoctorID,
			Name:           name,
			Email:          email,
			Role:           "Doctor",
			Specialization: specialization,
			DaysAvailable:  daysAvailable,
			CreatedAt:      s.now(),
		}
		d.Doctors[idKey(doc.ID)] = doc
		d.NextDoctorID++
		id = doc.ID
		return nil
	})
	return id, err
}

// GetDoctorByEmail looks a doctor up by email.
func (s *Store) GetDoctorByEmail(email string) (*Doctor, error) {
	email = NormalizeEmail(email)
	var out *Doctor
	err := s.View(func(d *Document) error {
		doc := d.doctorByEmail(email)
		if doc == nil {
			return ErrNotFound
		}
		out = cloneDoctor(doc)
		return nil
	})
	return out, err
}

// GetDoctorByID looks a doctor up by id.
func (s *Store) GetDoctorByID(id int) (*Doctor, error) {
	var out *Doctor
	err := s.View(func(d *Document) error {
		doc, ok := d.Doctors[idKey(id)]
		if !ok {
			return ErrNotFound
		}
		out = cloneDoctor(doc)
		return nil
	})
	return out, err
}

// ListDoctors returns all doctors in insertion (id) order.
func (s *Store) ListDoctors() ([]*Doctor, error) {
	var out []*Doctor
	err := s.View(func(d *Document) error {
		for _, doc := range sortedDoctors(d) {
			out = append(out, cloneDoctor(doc))
		}
		return nil
	})
	return out, err
}

// ListDoctorsBySpecialization returns the doctors whose specialization
// contains the requested one (case-insensitive), plus General Medicine
// doctors as the designated fallback. Exact matches rank first, ties broken
// by name.
func (s *Store) ListDoctorsBySpecialization(specialization string) ([]*Doctor, error) {
	want := strings.ToLower(strings.TrimSpace(specialization))
	var out []*Doctor
	err := s.View(func(d *Document) error {
		for _, doc := range sortedDoctors(d) {
			have := strings.ToLower(doc.Specialization)
			if strings.Contains(have, want) || doc.Specialization == GeneralMedicine {
				out = append(out, cloneDoctor(doc))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		iExact := strings.EqualFold(out[i].Specialization, specialization)
		jExact := strings.EqualFold(out[j].Specialization, specialization)
		if iExact != jExact {
			return iExact
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
