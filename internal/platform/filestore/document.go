package filestore

import (
	"sort"
	"strconv"
	"time"
)

// Appointment lifecycle statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
)

// GeneralMedicine is the fallback specialization used when no doctor matches
// the requested one exactly.
const GeneralMedicine = "General Medicine"

// HistoryEntry is a single timestamped note in a patient's medical history.
// The history is an append-only log; entries are never edited or removed.
type HistoryEntry struct {
	RecordedAt  time.Time `json:"recorded_at"`
	Note        string    `json:"note"`
	DoctorEmail string    `json:"doctor_email,omitempty"`
}

// Patient is a care recipient, keyed by email.
type Patient struct {
	ID                int            `json:"id"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	Role              string         `json:"role"`
	MedicalHistory    []HistoryEntry `json:"medical_history,omitempty"`
	CurrentMedication string         `json:"current_medication,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Doctor is a care provider, keyed by email. Specialization is treated as
// immutable after creation by policy; the store does not enforce it.
type Doctor struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Specialization string    `json:"specialization"`
	DaysAvailable  string    `json:"days_available,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Appointment links a patient and a doctor at a scheduled time. The Completed
// flag is redundant with Status but persisted separately for compatibility
// with documents written before Status existed.
type Appointment struct {
	ID              int        `json:"id"`
	PatientID       int        `json:"patient_id"`
	PatientEmail    string     `json:"patient_email"`
	DoctorID        int        `json:"doctor_id"`
	DoctorEmail     string     `json:"doctor_email"`
	Symptoms        string     `json:"symptoms"`
	ScheduledFor    time.Time  `json:"appointment_date"`
	Status          string     `json:"status"`
	Completed       bool       `json:"appointment_completed"`
	CalendarEventID string     `json:"google_event_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Medication is one structured entry on a visit record's medication list.
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// VisitRecord is the immutable post-visit artifact. Records are only ever
// appended; there is no update or delete operation.
type VisitRecord struct {
	ID              int          `json:"id"`
	PatientID       int          `json:"patient_id"`
	PatientEmail    string       `json:"patient_email"`
	PatientName     string       `json:"patient_name"`
	DoctorID        int          `json:"doctor_id"`
	DoctorEmail     string       `json:"doctor_email"`
	DoctorName      string       `json:"doctor_name"`
	AppointmentID   int          `json:"appointment_id,omitempty"`
	VisitDate       time.Time    `json:"visit_date"`
	Summary         string       `json:"visit_summary"`
	Medications     []Medication `json:"medications,omitempty"`
	Instructions    string       `json:"instructions,omitempty"`
	NextAppointment string       `json:"next_appointment,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Document is the entire persisted state: five collections plus the monotonic
// id counters that must advance atomically with inserts.
type Document struct {
	Patients          map[string]*Patient `json:"patients"`
	Doctors           map[string]*Doctor  `json:"doctors"`
	Appointments      []*Appointment      `json:"appointments"`
	VisitRecords      []*VisitRecord      `json:"post_visit_records"`
	NextPatientID     int                 `json:"next_patient_id"`
	NextDoctorID      int                 `json:"next_doctor_id"`
	NextAppointmentID int                 `json:"next_appointment_id"`
	NextVisitRecordID int                 `json:"next_visit_record_id"`
}

// NewDocument returns the empty, well-formed initial structure.
func NewDocument() *Document {
	return &Document{
		Patients:          make(map[string]*Patient),
		Doctors:           make(map[string]*Doctor),
		Appointments:      []*Appointment{},
		VisitRecords:      []*VisitRecord{},
		NextPatientID:     1,
		NextDoctorID:      1,
		NextAppointmentID: 1,
		NextVisitRecordID: 1,
	}
}

// normalize repairs a loaded document so that older or hand-edited files are
// usable: nil collections are allocated, counters are backfilled past the
// highest existing id, and the completion flag is derived for appointments
// written before it existed.
func (d *Document) normalize() {
	if d.Patients == nil {
		d.Patients = make(map[string]*Patient)
	}
	if d.Doctors == nil {
		d.Doctors = make(map[string]*Doctor)
	}
	if d.Appointments == nil {
		d.Appointments = []*Appointment{}
	}
	if d.VisitRecords == nil {
		d.VisitRecords = []*VisitRecord{}
	}

	maxPatient, maxDoctor, maxAppt, maxVisit := 0, 0, 0, 0
	for _, p := range d.Patients {
		if p.ID > maxPatient {
			maxPatient = p.ID
		}
	}
	for _, doc := range d.Doctors {
		if doc.ID > maxDoctor {
			maxDoctor = doc.ID
		}
	}
	for _, a := range d.Appointments {
		if a.ID > maxAppt {
			maxAppt = a.ID
		}
		if a.Status == "" {
			a.Status = StatusScheduled
		}
		// Keep flag and status consistent for documents that predate one
		// of the two fields.
		if a.Status == StatusCompleted {
			a.Completed = true
		}
		if a.Completed && a.Status == StatusScheduled {
			a.Status = StatusCompleted
		}
	}
	for _, v := range d.VisitRecords {
		if v.ID > maxVisit {
			maxVisit = v.ID
		}
	}

	if d.NextPatientID <= maxPatient {
		d.NextPatientID = maxPatient + 1
	}
	if d.NextDoctorID <= maxDoctor {
		d.NextDoctorID = maxDoctor + 1
	}
	if d.NextAppointmentID <= maxAppt {
		d.NextAppointmentID = maxAppt + 1
	}
	if d.NextVisitRecordID <= maxVisit {
		d.NextVisitRecordID = maxVisit + 1
	}
	if d.NextPatientID < 1 {
		d.NextPatientID = 1
	}
	if d.NextDoctorID < 1 {
		d.NextDoctorID = 1
	}
	if d.NextAppointmentID < 1 {
		d.NextAppointmentID = 1
	}
	if d.NextVisitRecordID < 1 {
		d.NextVisitRecordID = 1
	}
}

func (d *Document) patientByEmail(email string) *Patient {
	for _, p := range d.Patients {
		if p.Email == email {
			return p
		}
	}
	return nil
}

func (d *Document) doctorByEmail(email string) *Doctor {
	for _, doc := range d.Doctors {
		if doc.Email == email {
			return doc
		}
	}
	return nil
}

func (d *Document) appointmentByID(id int) *Appointment {
	for _, a := range d.Appointments {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func idKey(id int) string { return strconv.Itoa(id) }

func sortedPatients(d *Document) []*Patient {
	out := make([]*Patient, 0, len(d.Patients))
	for _, p := range d.Patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedDoctors(d *Document) []*Doctor {
	out := make([]*Doctor, 0, len(d.Doctors))
	for _, doc := range d.Doctors {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
