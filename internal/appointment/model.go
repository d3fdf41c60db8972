package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

type RecipientType string

const (
	RecipientDoctor  RecipientType = "DOCTOR"
	RecipientPatient RecipientType = "PATIENT"
)

type Doctor struct {
	ID               uuid.UUID
	Code             string
	Name             string
	Specialization   string
	Email            string
	Phone            string
	WorkingDays      []time.Weekday
	WorkingHours     availability.Interval
	Break            availability.Interval
	SlotMinutes      int
	UnavailableDates []time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Schedule returns the canonical schedule consumed by the resolver.
func (d *Doctor) Schedule() availability.Schedule {
	return availability.Schedule{
		DoctorID:         d.ID.String(),
		WorkingDays:      d.WorkingDays,
		WorkingHours:     d.WorkingHours,
		Break:            d.Break,
		SlotMinutes:      d.SlotMinutes,
		UnavailableDates: d.UnavailableDates,
	}
}

type Patient struct {
	ID          uuid.UUID
	Code        string
	Name        string
	DateOfBirth *time.Time
	Gender      string
	Phone       string
	Email       string
	Address     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Appointment keeps Time as the stored "HH:MM" string so that bookings made
// under an older schedule survive unchanged.
type Appointment struct {
	ID        uuid.UUID
	Code      string
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time
	Time      string
	Status    AppointmentStatus
	Motif     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Appointment) booking() availability.Booking {
	return availability.Booking{Time: a.Time, Cancelled: a.Status == StatusCancelled}
}

type Notification struct {
	ID            int64
	Channel       Channel
	RecipientType RecipientType
	RecipientName string
	Contact       string
	Message       string
	AppointmentID *uuid.UUID
	CreatedAt     time.Time
}

type AppointmentDetail struct {
	Appointment
	Doctor  *Doctor
	Patient *Patient
}

type DoctorFilter struct {
	Name           string
	Specialization string
}

// AppointmentFilter narrows ListAppointments. Zero fields match everything.
type AppointmentFilter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Date      *time.Time
	From      *time.Time
	To        *time.Time
	Status    AppointmentStatus
}

func (f AppointmentFilter) matches(a *Appointment) bool {
	if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
		return false
	}
	if f.PatientID != nil && a.PatientID != *f.PatientID {
		return false
	}
	if f.Date != nil && !a.Date.Equal(*f.Date) {
		return false
	}
	if f.From != nil && a.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && a.Date.After(*f.To) {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

type DashboardStats struct {
	TodayCount int
	Upcoming   int
	Completed  int
	Cancelled  int
}

type Dashboard struct {
	DoctorID          uuid.UUID
	DoctorCode        string
	TodayAppointments []Appointment
	Stats             DashboardStats
}
