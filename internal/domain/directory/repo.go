package directory

import "github.com/medai/medai/internal/platform/filestore"

// Repository is the slice of the record store the directory uses.
// *filestore.Store satisfies it.
type Repository interface {
	UpsertPatient(email, name, historyNote, medicationSummary string) (int, error)
	GetPatientByEmail(email string) (*filestore.Patient, error)
	ListPatients() ([]*filestore.Patient, error)
	AppendPatientHistory(email, note, doctorEmail string) error

	UpsertDoctor(email, name, specialization, daysAvailable string) (int, error)
	GetDoctorByEmail(email string) (*filestore.Doctor, error)
	ListDoctors() ([]*filestore.Doctor, error)
	ListDoctorsBySpecialization(specialization string) ([]*filestore.Doctor, error)
}
