package visit

import "github.com/medai/medai/internal/platform/filestore"

// Repository is the slice of the record store the visit domain uses.
// *filestore.Store satisfies it.
type Repository interface {
	InsertVisitRecord(rec *filestore.VisitRecord) (int, error)
	GetVisitRecordByID(id int) (*filestore.VisitRecord, error)
	ListVisitsByPatient(email string) ([]*filestore.VisitRecord, error)
	ListVisitsByDoctor(doctorEmail, patientEmail string) ([]*filestore.VisitRecord, error)

	GetPatientByEmail(email string) (*filestore.Patient, error)
	GetDoctorByEmail(email string) (*filestore.Doctor, error)
	GetAppointmentByID(id int) (*filestore.Appointment, error)
}

// Fanout receives the recorded visit for best-effort patient notification.
type Fanout interface {
	VisitRecorded(rec *filestore.VisitRecord, patient *filestore.Patient, doctor *filestore.Doctor)
}

// NopFanout discards all events.
type NopFanout struct{}

func (NopFanout) VisitRecorded(*filestore.VisitRecord, *filestore.Patient, *filestore.Doctor) {}
