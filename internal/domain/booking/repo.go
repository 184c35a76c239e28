package booking

import "github.com/medai/medai/internal/platform/filestore"

// Repository is the slice of the record store the booking domain uses.
// *filestore.Store satisfies it; tests substitute a map-backed mock.
type Repository interface {
	UpsertPatient(email, name, historyNote, medicationSummary string) (int, error)
	GetPatientByEmail(email string) (*filestore.Patient, error)
	GetDoctorByEmail(email string) (*filestore.Doctor, error)
	ListDoctorsBySpecialization(specialization string) ([]*filestore.Doctor, error)

	CreateAppointment(a *filestore.Appointment, precommit func(*filestore.Document) error) (int, error)
	GetAppointmentByID(id int) (*filestore.Appointment, error)
	ListAppointments() ([]*filestore.Appointment, error)
	ListAppointmentsByPatient(email string) ([]*filestore.Appointment, error)
	ListAppointmentsByDoctor(email string) ([]*filestore.Appointment, error)
	DeleteAppointment(id int) (bool, error)
	SetAppointmentCompletion(id int, completed bool) (bool, error)
}

// Fanout receives lifecycle events for best-effort external notification.
// Implementations must return quickly; delivery happens in the background and
// its failure never affects the committed record change.
type Fanout interface {
	AppointmentBooked(appt *filestore.Appointment, patient *filestore.Patient, doctor *filestore.Doctor)
	AppointmentCancelled(appt *filestore.Appointment, patient *filestore.Patient, doctor *filestore.Doctor)
}

// NopFanout discards all events.
type NopFanout struct{}

func (NopFanout) AppointmentBooked(*filestore.Appointment, *filestore.Patient, *filestore.Doctor)   {}
func (NopFanout) AppointmentCancelled(*filestore.Appointment, *filestore.Patient, *filestore.Doctor) {}
