package appointment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
	"github.com/hackgods/hospital-appointment-scheduling/internal/config"
	redisclient "github.com/hackgods/hospital-appointment-scheduling/internal/redis"
)

var (
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidInput            = errors.New("invalid input")
)

type Service struct {
	repo               Repository
	locker             redisclient.Locker
	log                zerolog.Logger
	loc                *time.Location
	defaultSlotMinutes int
	now                func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:               repo,
		locker:             locker,
		log:                logger.With().Str("component", "appointment").Logger(),
		loc:                cfg.Location,
		defaultSlotMinutes: cfg.DefaultSlotMinutes,
		now:                time.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.defaultSlotMinutes <= 0 {
		s.defaultSlotMinutes = availability.DefaultSlotMinutes
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current calendar date in the hospital's time zone.
func (s *Service) Today() time.Time {
	return availability.DateOf(s.now().In(s.loc))
}

// ResolveDoctor accepts either the internal id or the doctor code.
func (s *Service) ResolveDoctor(ctx context.Context, ref string) (*Doctor, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetDoctorByID(ctx, id)
	}
	return s.repo.GetDoctorByCode(ctx, ref)
}

// ResolvePatient accepts either the internal id or the patient code.
func (s *Service) ResolvePatient(ctx context.Context, ref string) (*Patient, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetPatientByID(ctx, id)
	}
	return s.repo.GetPatientByCode(ctx, ref)
}

func (s *Service) resolveAppointment(ctx context.Context, ref string) (*Appointment, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetAppointmentByID(ctx, id)
	}
	return s.repo.GetAppointmentByCode(ctx, ref)
}

func (s *Service) bookings(ctx context.Context, doctorID uuid.UUID, date time.Time, except uuid.UUID) ([]availability.Booking, error) {
	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{DoctorID: &doctorID, Date: &date})
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	booked := make([]availability.Booking, 0, len(appts))
	for i := range appts {
		if appts[i].ID == except {
			continue
		}
		booked = append(booked, appts[i].booking())
	}
	return booked, nil
}

// AvailableSlots lists the free slots of a doctor on a date. An unknown
// doctor has no slots.
func (s *Service) AvailableSlots(ctx context.Context, doctorRef string, date time.Time) ([]availability.TimeOfDay, error) {
	doctor, err := s.ResolveDoctor(ctx, doctorRef)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return []availability.TimeOfDay{}, nil
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	booked, err := s.bookings(ctx, doctor.ID, date, uuid.Nil)
	if err != nil {
		return nil, err
	}

	schedule := doctor.Schedule()
	slots := availability.ComputeSlots(schedule, date, schedule.SlotDuration())

	if stray := availability.OffBoundary(slots, booked); len(stray) > 0 {
		s.log.Debug().
			Str("doctor", doctor.Code).
			Str("date", availability.FormatDate(date)).
			Int("count", len(stray)).
			Msg("bookings outside the current schedule")
	}

	return availability.FilterAvailable(slots, booked), nil
}

// BookAppointment validates a request against the doctor's schedule and
// existing bookings, then creates it. The per-slot lock only narrows
// contention; a lost race still surfaces as SlotTaken through storage.
func (s *Service) BookAppointment(ctx context.Context, req availability.Request) (*Appointment, error) {
	if err := availability.CheckRequired(req); err != nil {
		return nil, err
	}

	doctor, err := s.ResolveDoctor(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	patient, err := s.ResolvePatient(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	var booked []availability.Booking
	if date, err := availability.ParseDate(req.Date); err == nil {
		booked, err = s.bookings(ctx, doctor.ID, date, uuid.Nil)
		if err != nil {
			return nil, err
		}
	}

	acc, err := availability.ValidateBooking(doctor.Schedule(), req, booked, s.Today())
	if err != nil {
		return nil, err
	}

	var created *Appointment

	key := redisclient.SlotKey(doctor.ID.String(), availability.FormatDate(acc.Date), acc.Time.String())
	err = s.locker.WithSlotLock(ctx, key, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			DoctorID:  doctor.ID,
			PatientID: patient.ID,
			Date:      acc.Date,
			Time:      acc.Time.String(),
			Motif:     acc.Motif,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		return nil, s.slotWriteError(err, "create appointment")
	}

	s.log.Info().
		Str("appointment", created.Code).
		Str("doctor", doctor.Code).
		Str("patient", patient.Code).
		Str("date", availability.FormatDate(created.Date)).
		Str("time", created.Time).
		Msg("appointment booked")

	s.notifyBooked(ctx, created, doctor, patient)

	return created, nil
}

// RescheduleAppointment moves a scheduled appointment to another slot of
// the same doctor. The appointment's own slot does not count as taken.
// An empty motif keeps the current one.
func (s *Service) RescheduleAppointment(ctx context.Context, ref, date, hhmm, motif string) (*Appointment, error) {
	appt, err := s.resolveAppointment(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusScheduled {
		return nil, ErrInvalidStatusTransition
	}

	doctor, err := s.repo.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	if strings.TrimSpace(motif) == "" {
		motif = appt.Motif
	}
	req := availability.Request{
		DoctorID:  doctor.ID.String(),
		PatientID: appt.PatientID.String(),
		Date:      date,
		Time:      hhmm,
		Motif:     motif,
	}

	var booked []availability.Booking
	if d, err := availability.ParseDate(date); err == nil {
		booked, err = s.bookings(ctx, doctor.ID, d, appt.ID)
		if err != nil {
			return nil, err
		}
	}

	acc, err := availability.ValidateBooking(doctor.Schedule(), req, booked, s.Today())
	if err != nil {
		return nil, err
	}

	var updated *Appointment

	key := redisclient.SlotKey(doctor.ID.String(), availability.FormatDate(acc.Date), acc.Time.String())
	err = s.locker.WithSlotLock(ctx, key, func(lockCtx context.Context) error {
		a, err := s.repo.RescheduleAppointment(lockCtx, appt.ID, acc.Date, acc.Time.String(), acc.Motif)
		if err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Cancelled or completed between the read and the write.
			return nil, ErrInvalidStatusTransition
		}
		return nil, s.slotWriteError(err, "reschedule appointment")
	}

	s.log.Info().
		Str("appointment", updated.Code).
		Str("date", availability.FormatDate(updated.Date)).
		Str("time", updated.Time).
		Msg("appointment rescheduled")

	return updated, nil
}

func (s *Service) slotWriteError(err error, op string) error {
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return ErrSlotBeingBooked
	case errors.Is(err, ErrSlotConflict):
		return &availability.RejectionError{Reason: availability.ReasonSlotTaken, Detail: "taken concurrently"}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// CancelAppointment moves a scheduled appointment to cancelled. Cancelled
// and completed appointments never change again.
func (s *Service) CancelAppointment(ctx context.Context, ref string) (*Appointment, error) {
	appt, err := s.resolveAppointment(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status != StatusScheduled {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.log.Info().Str("appointment", updated.Code).Msg("appointment cancelled")

	return updated, nil
}

// CompletePastAppointments is intended to be called by the worker once a
// day. Every scheduled appointment dated before today becomes completed.
func (s *Service) CompletePastAppointments(ctx context.Context) (int, error) {
	n, err := s.repo.CompletePastAppointments(ctx, s.Today())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int("count", n).Msg("past appointments marked completed")
	}
	return n, nil
}

// GetAppointment retrieves a fully hydrated appointment by id or code.
func (s *Service) GetAppointment(ctx context.Context, ref string) (*AppointmentDetail, error) {
	appt, err := s.resolveAppointment(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return s.hydrate(ctx, *appt)
}

func (s *Service) hydrate(ctx context.Context, appt Appointment) (*AppointmentDetail, error) {
	detail := &AppointmentDetail{Appointment: appt}

	doctor, err := s.repo.GetDoctorByID(ctx, appt.DoctorID)
	switch {
	case err == nil:
		detail.Doctor = doctor
	case !errors.Is(err, ErrDoctorNotFound):
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
	switch {
	case err == nil:
		detail.Patient = patient
	case !errors.Is(err, ErrPatientNotFound):
		return nil, fmt.Errorf("load patient: %w", err)
	}

	return detail, nil
}

// AppointmentQuery is the caller-facing filter; doctor and patient may be
// given by id or code.
type AppointmentQuery struct {
	DoctorRef  string
	PatientRef string
	Date       *time.Time
	Status     AppointmentStatus
}

func (s *Service) ListAppointments(ctx context.Context, q AppointmentQuery) ([]Appointment, error) {
	var f AppointmentFilter

	if q.DoctorRef != "" {
		d, err := s.ResolveDoctor(ctx, q.DoctorRef)
		if err != nil {
			return nil, err
		}
		f.DoctorID = &d.ID
	}
	if q.PatientRef != "" {
		p, err := s.ResolvePatient(ctx, q.PatientRef)
		if err != nil {
			return nil, err
		}
		f.PatientID = &p.ID
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidInput, q.Status)
	}
	f.Date = q.Date
	f.Status = q.Status

	appts, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// PatientHistory returns every appointment of a patient, most recent first.
func (s *Service) PatientHistory(ctx context.Context, patientRef string) ([]Appointment, error) {
	appts, err := s.ListAppointments(ctx, AppointmentQuery{PatientRef: patientRef})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(appts, func(a, b Appointment) int { return compareSlot(b, a) })
	return appts, nil
}

// DoctorDashboard summarizes a doctor's day and overall activity.
func (s *Service) DoctorDashboard(ctx context.Context, doctorRef string) (*Dashboard, error) {
	doctor, err := s.ResolveDoctor(ctx, doctorRef)
	if err != nil {
		return nil, err
	}

	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{DoctorID: &doctor.ID})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	today := s.Today()
	dash := &Dashboard{
		DoctorID:          doctor.ID,
		DoctorCode:        doctor.Code,
		TodayAppointments: []Appointment{},
	}

	for _, a := range appts {
		if a.Date.Equal(today) {
			dash.TodayAppointments = append(dash.TodayAppointments, a)
		}
		switch a.Status {
		case StatusScheduled:
			if !a.Date.Before(today) {
				dash.Stats.Upcoming++
			}
		case StatusCompleted:
			dash.Stats.Completed++
		case StatusCancelled:
			dash.Stats.Cancelled++
		}
	}
	slices.SortFunc(dash.TodayAppointments, compareSlot)
	dash.Stats.TodayCount = len(dash.TodayAppointments)

	return dash, nil
}
