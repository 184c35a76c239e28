package filestore

// CreateAppointment assigns the next appointment id and appends the record,
// advancing the counter in the same committed step. Patient and doctor
// references must resolve or the write is refused with UnknownReferenceError.
//
// precommit, when non-nil, runs inside the critical section against the
// live document just before the insert. It is the hook the scheduling policy
// uses to re-run its admissibility checks so that a conflicting appointment
// created during processing is caught instead of silently double-booked.
// precommit must not mutate the document.
func (s *Store) CreateAppointment(a *Appointment, precommit func(*Document) error) (int, error) {
	a.PatientEmail = NormalizeEmail(a.PatientEmail)
	a.DoctorEmail = NormalizeEmail(a.DoctorEmail)
	var id int
	err := s.Update(func(d *Document) error {
		patient := d.patientByEmail(a.PatientEmail)
		if patient == nil {
			return &UnknownReferenceError{Kind: "patient", Ref: a.PatientEmail}
		}
		doctor := d.doctorByEmail(a.DoctorEmail)
		if doctor == nil {
			return &UnknownReferenceError{Kind: "doctor", Ref: a.DoctorEmail}
		}
		if precommit != nil {
			if err := precommit(d); err != nil {
				return err
			}
		}

		rec := cloneAppointment(a)
		rec.ID = d.NextAppointmentID
		rec.PatientID = patient.ID
		rec.DoctorID = doctor.ID
		rec.Status = StatusScheduled
		rec.Completed = false
		rec.CompletedAt = nil
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = s.now()
		}
		d.Appointments = append(d.Appointments, rec)
		d.NextAppointmentID++
		id = rec.ID
		return nil
	})
	return id, err
}

// GetAppointmentByID looks an appointment up by id.
func (s *Store) GetAppointmentByID(id int) (*Appointment, error) {
	var out *Appointment
	err := s.View(func(d *Document) error {
		a := d.appointmentByID(id)
		if a == nil {
			return ErrNotFound
		}
		out = cloneAppointment(a)
		return nil
	})
	return out, err
}

// ListAppointments returns all appointments in insertion order.
func (s *Store) ListAppointments() ([]*Appointment, error) {
	var out []*Appointment
	err := s.View(func(d *Document) error {
		for _, a := range d.Appointments {
			out = append(out, cloneAppointment(a))
		}
		return nil
	})
	return out, err
}

// ListAppointmentsByPatient returns the patient's appointments in insertion order.
func (s *Store) ListAppointmentsByPatient(email string) ([]*Appointment, error) {
	email = NormalizeEmail(email)
	var out []*Appointment
	err := s.View(func(d *Document) error {
		for _, a := range d.Appointments {
			if a.PatientEmail == email {
				out = append(out, cloneAppointment(a))
			}
		}
		return nil
	})
	return out, err
}

// ListAppointmentsByDoctor returns the doctor's appointments in insertion order.
func (s *Store) ListAppointmentsByDoctor(email string) ([]*Appointment, error) {
	email = NormalizeEmail(email)
	var out []*Appointment
	err := s.View(func(d *Document) error {
		for _, a := range d.Appointments {
			if a.DoctorEmail == email {
				out = append(out, cloneAppointment(a))
			}
		}
		return nil
	})
	return out, err
}

// DeleteAppointment removes the appointment. The second delete of the same
// id is a no-op returning false.
func (s *Store) DeleteAppointment(id int) (bool, error) {
	deleted := false
	err := s.Update(func(d *Document) error {
		for i, a := range d.Appointments {
			if a.ID == id {
				d.Appointments = append(d.Appointments[:i], d.Appointments[i+1:]...)
				deleted = true
				return nil
			}
		}
		return nil
	})
	return deleted, err
}

// SetAppointmentCalendarEvent records the external calendar event reference
// on an appointment. Returns false if the appointment does not exist, which
// the notifier treats as the appointment having been cancelled mid-flight.
func (s *Store) SetAppointmentCalendarEvent(id int, eventID string) (bool, error) {
	found := false
	err := s.Update(func(d *Document) error {
		a := d.appointmentByID(id)
		if a == nil {
			return nil
		}
		found = true
		a.CalendarEventID = eventID
		return nil
	})
	return found, err
}

// SetAppointmentCompletion sets the completion flag together with the derived
// status and completion timestamp. Returns false if the appointment does not
// exist.
func (s *Store) SetAppointmentCompletion(id int, completed bool) (bool, error) {
	found := false
	err := s.Update(func(d *Document) error {
		a := d.appointmentByID(id)
		if a == nil {
			return nil
		}
		found = true
		a.Completed = completed
		if completed {
			a.Status = StatusCompleted
			if a.CompletedAt == nil {
				t := s.now()
				a.CompletedAt = &t
			}
		} else {
			a.Status = StatusScheduled
			a.CompletedAt = nil
		}
		return nil
	})
	return found, err
}
