package booking

import (
	"errors"
	"fmt"
	"time"
)

// Machine-readable rejection reasons, surfaced to API callers and used as
// metric labels.
const (
	ReasonInvalidTime      = "invalid_time"
	ReasonDuplicateBooking = "duplicate_booking"
	ReasonDuplicateSymptom = "duplicate_symptom"
	ReasonRateLimited      = "rate_limited"
	ReasonDoctorConflict   = "doctor_conflict"
	ReasonRaceCondition    = "race_condition"
	ReasonParse            = "parse_error"
)

var (
	// ErrNoDoctorAvailable means no doctor matched the requested
	// specialization and no General Medicine fallback exists.
	ErrNoDoctorAvailable = errors.New("no doctor available for the requested specialization")

	// ErrNoOpenSlot means the automatic slot search exhausted the booking
	// horizon without finding a conflict-free time.
	ErrNoOpenSlot = errors.New("no open slot within the booking horizon")

	// ErrNoAppointments means the doctor has no appointments at all, as
	// opposed to having appointments but none still scheduled.
	ErrNoAppointments = errors.New("doctor has no appointments")

	// ErrNoActiveAppointment means the doctor has appointments but none is
	// still scheduled.
	ErrNoActiveAppointment = errors.New("doctor has no active appointment")

	// ErrInvalidRequest marks malformed booking input (missing email,
	// empty symptoms, and the like).
	ErrInvalidRequest = errors.New("invalid booking request")
)

// InvalidTimeError rejects a candidate time outside the bookable range.
type InvalidTimeError struct {
	When   time.Time
	Detail string
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("requested time %s is %s", e.When.Format(time.RFC3339), e.Detail)
}

// DuplicateBookingError rejects a booking because the patient already has a
// scheduled appointment inside the lookahead window.
type DuplicateBookingError struct {
	ExistingID   int
	ScheduledFor time.Time
}

func (e *DuplicateBookingError) Error() string {
	return fmt.Sprintf("patient already has scheduled appointment %d on %s",
		e.ExistingID, e.ScheduledFor.Format(time.RFC3339))
}

// DuplicateSymptomError rejects a booking whose symptom text matches a very
// recent appointment for the same patient.
type DuplicateSymptomError struct {
	ExistingID int
	Symptoms   string
}

func (e *DuplicateSymptomError) Error() string {
	return fmt.Sprintf("appointment %d with identical symptoms was created recently", e.ExistingID)
}

// RateLimitError rejects a booking made too soon after the patient's
// previous one.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many booking attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// DoctorConflictError rejects a candidate time too close to another of the
// doctor's scheduled appointments. The caller must pick a different time.
type DoctorConflictError struct {
	DoctorEmail  string
	ExistingID   int
	ScheduledFor time.Time
}

func (e *DoctorConflictError) Error() string {
	return fmt.Sprintf("doctor %s already has appointment %d at %s",
		e.DoctorEmail, e.ExistingID, e.ScheduledFor.Format(time.RFC3339))
}

// RaceConditionError reports a conflicting appointment that appeared between
// the admissibility check and the commit. The caller must retry the whole
// booking flow, not just the commit.
type RaceConditionError struct {
	Cause error
}

func (e *RaceConditionError) Error() string {
	return fmt.Sprintf("booking conflict detected at commit: %v", e.Cause)
}

func (e *RaceConditionError) Unwrap() error { return e.Cause }

// ParseError reports unrecognized natural-language date or time input.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unrecognized date/time: %q", e.Input)
}

// Reason maps a policy rejection to its machine-readable reason, or "" when
// the error is not a policy rejection.
func Reason(err error) string {
	var (
		invalidTime *InvalidTimeError
		dupBooking  *DuplicateBookingError
		dupSymptom  *DuplicateSymptomError
		rateLimit   *RateLimitError
		conflict    *DoctorConflictError
		race        *RaceConditionError
		parse       *ParseError
	)
	switch {
	case errors.As(err, &race):
		return ReasonRaceCondition
	case errors.As(err, &invalidTime):
		return ReasonInvalidTime
	case errors.As(err, &dupBooking):
		return ReasonDuplicateBooking
	case errors.As(err, &dupSymptom):
		return ReasonDuplicateSymptom
	case errors.As(err, &rateLimit):
		return ReasonRateLimited
	case errors.As(err, &conflict):
		return ReasonDoctorConflict
	case errors.As(err, &parse):
		return ReasonParse
	}
	return ""
}
