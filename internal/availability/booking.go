package availability

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type Reason string

const (
	ReasonMissingField      Reason = "missing_field"
	ReasonPastDate          Reason = "past_date"
	ReasonNonWorkingDay     Reason = "non_working_day"
	ReasonDoctorUnavailable Reason = "doctor_unavailable"
	ReasonNotASlotBoundary  Reason = "not_a_slot_boundary"
	ReasonSlotTaken         Reason = "slot_taken"
)

// RejectionError explains why a booking request was refused. Use errors.Is
// against the Err* sentinels to classify it.
type RejectionError struct {
	Reason  Reason
	Field   string
	Weekday time.Weekday
	Detail  string
}

var (
	ErrMissingField      = &RejectionError{Reason: ReasonMissingField}
	ErrPastDate          = &RejectionError{Reason: ReasonPastDate}
	ErrNonWorkingDay     = &RejectionError{Reason: ReasonNonWorkingDay}
	ErrDoctorUnavailable = &RejectionError{Reason: ReasonDoctorUnavailable}
	ErrNotASlotBoundary  = &RejectionError{Reason: ReasonNotASlotBoundary}
	ErrSlotTaken         = &RejectionError{Reason: ReasonSlotTaken}
)

func (e *RejectionError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonMissingField:
		msg = "required field missing"
		if e.Field != "" {
			msg = "required field missing: " + e.Field
		}
	case ReasonPastDate:
		msg = "date is in the past"
	case ReasonNonWorkingDay:
		msg = "doctor does not work on " + WeekdayName(e.Weekday)
	case ReasonDoctorUnavailable:
		msg = "doctor is unavailable on the selected date"
	case ReasonNotASlotBoundary:
		msg = "selected time is not an available slot"
	case ReasonSlotTaken:
		msg = "slot already taken"
	default:
		msg = string(e.Reason)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *RejectionError) Is(target error) bool {
	t, ok := target.(*RejectionError)
	return ok && t.Reason == e.Reason
}

func reject(reason Reason, detail string) *RejectionError {
	return &RejectionError{Reason: reason, Detail: detail}
}

// Request is a booking as submitted, before any normalization.
type Request struct {
	DoctorID  string
	PatientID string
	Date      string
	Time      string
	Motif     string
}

// Acceptance is the normalized outcome of a successful validation. It
// reserves nothing; the caller must still persist it and handle a
// uniqueness conflict from storage.
type Acceptance struct {
	DoctorID  string
	PatientID string
	Date      time.Time
	Time      TimeOfDay
	Motif     string
}

// CheckRequired performs only the presence check of ValidateBooking.
func CheckRequired(req Request) error {
	fields := []struct {
		name  string
		value string
	}{
		{"doctorId", req.DoctorID},
		{"date", req.Date},
		{"time", req.Time},
		{"patientId", req.PatientID},
		{"motif", req.Motif},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &RejectionError{Reason: ReasonMissingField, Field: f.name}
		}
	}
	return nil
}

// ValidateBooking checks a request against a doctor's schedule and the
// bookings already held for that doctor on the requested date. Checks run
// in a fixed order and stop at the first failure.
func ValidateBooking(s Schedule, req Request, booked []Booking, today time.Time) (Acceptance, error) {
	if err := CheckRequired(req); err != nil {
		return Acceptance{}, err
	}

	date, err := ParseDate(req.Date)
	if err != nil {
		return Acceptance{}, &RejectionError{Reason: ReasonMissingField, Field: "date", Detail: "expected YYYY-MM-DD"}
	}

	if date.Before(DateOf(today)) {
		return Acceptance{}, reject(ReasonPastDate, FormatDate(date))
	}

	if !IsWorkingDay(s, date) {
		return Acceptance{}, &RejectionError{Reason: ReasonNonWorkingDay, Weekday: date.Weekday()}
	}

	if IsUnavailable(s, date) {
		return Acceptance{}, reject(ReasonDoctorUnavailable, FormatDate(date))
	}

	t, err := ParseTimeOfDay(req.Time)
	if err != nil {
		return Acceptance{}, reject(ReasonNotASlotBoundary, err.Error())
	}
	if !slices.Contains(ComputeSlots(s, date, s.SlotDuration()), t) {
		return Acceptance{}, reject(ReasonNotASlotBoundary, t.String())
	}

	for _, b := range booked {
		if !b.Cancelled && b.Time == t.String() {
			return Acceptance{}, reject(ReasonSlotTaken, fmt.Sprintf("%s %s", FormatDate(date), t))
		}
	}

	doctorID := strings.TrimSpace(req.DoctorID)
	if s.DoctorID != "" {
		doctorID = s.DoctorID
	}

	return Acceptance{
		DoctorID:  doctorID,
		PatientID: strings.TrimSpace(req.PatientID),
		Date:      date,
		Time:      t,
		Motif:     strings.TrimSpace(req.Motif),
	}, nil
}
