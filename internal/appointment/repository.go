package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotConflict is returned by storage when a non-cancelled
	// appointment already holds the same doctor, date and time.
	ErrSlotConflict = errors.New("slot already held by another appointment")
)

// Repository contains all storage interactions needed by the services.
type Repository interface {
	CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error)
	UpdateDoctor(ctx context.Context, d Doctor) (*Doctor, error)
	DeleteDoctor(ctx context.Context, id uuid.UUID) error
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetDoctorByCode(ctx context.Context, code string) (*Doctor, error)
	ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, error)

	CreatePatient(ctx context.Context, p Patient) (*Patient, error)
	UpdatePatient(ctx context.Context, p Patient) (*Patient, error)
	DeletePatient(ctx context.Context, id uuid.UUID) error
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPatientByCode(ctx context.Context, code string) (*Patient, error)
	ListPatients(ctx context.Context, name string) ([]Patient, error)

	// Creation and updates. Both return ErrSlotConflict when the target
	// slot is already held.
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	RescheduleAppointment(ctx context.Context, id uuid.UUID, date time.Time, hhmm, motif string) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentByCode(ctx context.Context, code string) (*Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error)

	// Completion worker
	CompletePastAppointments(ctx context.Context, before time.Time) (int, error)

	InsertNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, limit int) ([]Notification, error)
}
