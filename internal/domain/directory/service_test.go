package directory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medai/medai/internal/platform/filestore"
)

// The directory service is a thin layer over the record store, so these
// tests run against a real store in a temp directory rather than a mock.
func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := filestore.Open(filepath.Join(t.TempDir(), "records.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewService(store, zerolog.Nop())
}

func TestRegisterPatientUpserts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.RegisterPatient(ctx, RegisterPatientRequest{
		Email: "Pat@Example.com", Name: "Pat Doe",
	})
	if err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}
	if p.Email != "pat@example.com" {
		t.Errorf("email = %q, want normalized", p.Email)
	}

	// Re-registering with a different case keeps the same record.
	again, err := svc.RegisterPatient(ctx, RegisterPatientRequest{
		Email: "PAT@example.COM", Name: "Patricia Doe",
	})
	if err != nil {
		t.Fatalf("second RegisterPatient: %v", err)
	}
	if again.ID != p.ID {
		t.Errorf("id changed across upsert: %d then %d", p.ID, again.ID)
	}
	if again.Name != "Patricia Doe" {
		t.Errorf("name = %q, want updated name", again.Name)
	}

	if _, err := svc.RegisterPatient(ctx, RegisterPatientRequest{Name: "No Email"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing email err = %v, want ErrInvalidInput", err)
	}
}

func TestHistoryAppendOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterPatient(ctx, RegisterPatientRequest{Email: "pat@example.com", Name: "Pat"}); err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}

	if err := svc.AddHistory(ctx, "pat@example.com", "Diagnosed with tension headaches", "diaz@clinic.test"); err != nil {
		t.Fatalf("AddHistory: %v", err)
	}
	if err := svc.AddHistory(ctx, "pat@example.com", "Prescribed ibuprofen", ""); err != nil {
		t.Fatalf("second AddHistory: %v", err)
	}

	history, err := svc.History(ctx, "pat@example.com")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Note != "Diagnosed with tension headaches" {
		t.Errorf("first note = %q", history[0].Note)
	}
	if history[0].DoctorEmail != "diaz@clinic.test" {
		t.Errorf("first note doctor = %q", history[0].DoctorEmail)
	}

	if err := svc.AddHistory(ctx, "pat@example.com", "   ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank note err = %v, want ErrInvalidInput", err)
	}
	if err := svc.AddHistory(ctx, "ghost@example.com", "note", ""); !errors.Is(err, filestore.ErrNotFound) {
		t.Fatalf("unknown patient err = %v, want ErrNotFound", err)
	}
}

func TestRegisterDoctorDefaultsSpecialization(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	d, err := svc.RegisterDoctor(ctx, RegisterDoctorRequest{
		Email: "diaz@clinic.test", Name: "Dr. Diaz",
	})
	if err != nil {
		t.Fatalf("RegisterDoctor: %v", err)
	}
	if d.Specialization != filestore.GeneralMedicine {
		t.Errorf("specialization = %q, want default %q", d.Specialization, filestore.GeneralMedicine)
	}
}

func TestListDoctorsBySpecializationRanksExactFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, d := range []RegisterDoctorRequest{
		{Email: "gm@clinic.test", Name: "Dr. General", Specialization: filestore.GeneralMedicine},
		{Email: "chen@clinic.test", Name: "Bo Chen", Specialization: "Cardiology"},
		{Email: "diaz@clinic.test", Name: "Al Diaz", Specialization: "Cardiology"},
	} {
		if _, err := svc.RegisterDoctor(ctx, d); err != nil {
			t.Fatalf("RegisterDoctor %s: %v", d.Email, err)
		}
	}

	doctors, err := svc.ListDoctors(ctx, "Cardiology")
	if err != nil {
		t.Fatalf("ListDoctors: %v", err)
	}
	if len(doctors) != 3 {
		t.Fatalf("got %d doctors, want 3 (exact matches plus fallback)", len(doctors))
	}
	if doctors[0].Name != "Al Diaz" || doctors[1].Name != "Bo Chen" {
		t.Errorf("exact matches not ranked first by name: %s, %s", doctors[0].Name, doctors[1].Name)
	}
	if doctors[2].Specialization != filestore.GeneralMedicine {
		t.Errorf("fallback doctor not ranked last: %s", doctors[2].Specialization)
	}

	all, err := svc.ListDoctors(ctx, "")
	if err != nil {
		t.Fatalf("ListDoctors all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d doctors, want all 3", len(all))
	}
}
