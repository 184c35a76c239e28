package booking

import (
	"strings"
	"time"

	"github.com/medai/medai/internal/platform/filestore"
)

// Windows bounds the admissibility checks. All values come from
// configuration; DefaultWindows gives the standing policy.
type Windows struct {
	// Horizon is how far ahead an appointment may be booked.
	Horizon time.Duration
	// PatientLookahead blocks a second scheduled appointment for the same
	// patient within this span from now.
	PatientLookahead time.Duration
	// SymptomRecency blocks re-booking identical symptom text created
	// within this span.
	SymptomRecency time.Duration
	// Cooldown blocks any booking made this soon after the patient's
	// previous one.
	Cooldown time.Duration
	// DoctorConflict is the half-width of the exclusion window around each
	// of a doctor's scheduled appointments.
	DoctorConflict time.Duration
	// SlotIncrement is the step used when hunting for an open slot.
	SlotIncrement time.Duration
	// DefaultSlotHour is the hour of day used when the caller names a date
	// but no time, and as the starting slot for the automatic search.
	DefaultSlotHour int
}

// DefaultWindows returns the standing policy values.
func DefaultWindows() Windows {
	return Windows{
		Horizon:          60 * 24 * time.Hour,
		PatientLookahead: 7 * 24 * time.Hour,
		SymptomRecency:   24 * time.Hour,
		Cooldown:         10 * time.Minute,
		DoctorConflict:   time.Hour,
		SlotIncrement:    30 * time.Minute,
		DefaultSlotHour:  10,
	}
}

// Policy decides whether a booking request is admissible given the existing
// appointments. It is pure logic: all state comes in as arguments, so the
// same checks can run both before commit and again inside the store's
// critical section.
type Policy struct {
	Windows Windows
}

// Admit evaluates the admissibility checks in order and returns the first
// failure, so the caller is never shown contradictory rejection reasons.
func (p Policy) Admit(now, candidate time.Time, patientEmail, doctorEmail, symptoms string, appts []*filestore.Appointment) error {
	patientEmail = filestore.NormalizeEmail(patientEmail)
	doctorEmail = filestore.NormalizeEmail(doctorEmail)

	// 1. The candidate time must be in the future and inside the horizon.
	if !candidate.After(now) {
		return &InvalidTimeError{When: candidate, Detail: "in the past"}
	}
	if candidate.Sub(now) > p.Windows.Horizon {
		return &InvalidTimeError{When: candidate, Detail: "beyond the booking horizon"}
	}

	// 2. At most one active future appointment per patient within the
	// lookahead window.
	for _, a := range appts {
		if a.PatientEmail != patientEmail || a.Status != filestore.StatusScheduled {
			continue
		}
		if d := a.ScheduledFor.Sub(now); d >= 0 && d <= p.Windows.PatientLookahead {
			return &DuplicateBookingError{ExistingID: a.ID, ScheduledFor: a.ScheduledFor}
		}
	}

	// 3. No recent appointment, scheduled or completed, with identical
	// symptom text.
	for _, a := range appts {
		if a.PatientEmail != patientEmail {
			continue
		}
		if sameSymptoms(a.Symptoms, symptoms) && now.Sub(a.CreatedAt) <= p.Windows.SymptomRecency {
			return &DuplicateSymptomError{ExistingID: a.ID, Symptoms: symptoms}
		}
	}

	// 4. Booking cooldown per patient.
	for _, a := range appts {
		if a.PatientEmail != patientEmail {
			continue
		}
		if since := now.Sub(a.CreatedAt); since >= 0 && since < p.Windows.Cooldown {
			return &RateLimitError{RetryAfter: p.Windows.Cooldown - since}
		}
	}

	// 5. The doctor must be free around the candidate time.
	if conflict := p.doctorConflictAt(candidate, doctorEmail, appts); conflict != nil {
		return &DoctorConflictError{
			DoctorEmail:  doctorEmail,
			ExistingID:   conflict.ID,
			ScheduledFor: conflict.ScheduledFor,
		}
	}

	return nil
}

func (p Policy) doctorConflictAt(candidate time.Time, doctorEmail string, appts []*filestore.Appointment) *filestore.Appointment {
	for _, a := range appts {
		if a.DoctorEmail != doctorEmail || a.Status != filestore.StatusScheduled {
			continue
		}
		diff := candidate.Sub(a.ScheduledFor)
		if diff < 0 {
			diff = -diff
		}
		if diff <= p.Windows.DoctorConflict {
			return a
		}
	}
	return nil
}

// NextOpenSlot finds the doctor's first conflict-free slot, starting tomorrow
// at the default hour and advancing in fixed increments up to the horizon.
// Only used when the caller supplied no explicit time; an explicit time is
// never silently moved.
func (p Policy) NextOpenSlot(now time.Time, doctorEmail string, appts []*filestore.Appointment) (time.Time, error) {
	doctorEmail = filestore.NormalizeEmail(doctorEmail)
	start := time.Date(now.Year(), now.Month(), now.Day(), p.Windows.DefaultSlotHour, 0, 0, 0, now.Location()).
		AddDate(0, 0, 1)
	for t := start; t.Sub(now) <= p.Windows.Horizon; t = t.Add(p.Windows.SlotIncrement) {
		if p.doctorConflictAt(t, doctorEmail, appts) == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrNoOpenSlot
}

func sameSymptoms(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
