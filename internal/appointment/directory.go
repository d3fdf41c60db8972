package appointment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
	"github.com/hackgods/hospital-appointment-scheduling/internal/translate"
)

// DoctorInput is a doctor as submitted by a caller. Working days may use
// canonical English or front-desk French labels. Zero working hours fall
// back to the default day with its lunch break.
type DoctorInput struct {
	Name             string
	Specialization   string
	Email            string
	Phone            string
	WorkingDays      []string
	WorkingHours     availability.Interval
	Break            availability.Interval
	SlotMinutes      int
	UnavailableDates []time.Time
}

type PatientInput struct {
	Name        string
	DateOfBirth *time.Time
	Gender      string
	Phone       string
	Email       string
	Address     string
}

func (s *Service) buildDoctor(in DoctorInput) (Doctor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Doctor{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	days, err := translate.ParseWorkingDays(in.WorkingDays)
	if err != nil {
		return Doctor{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// Missing hours fall back to the default day. A break given without
	// hours is kept and must fit inside that day.
	hours, brk := in.WorkingHours, in.Break
	if hours == (availability.Interval{}) {
		hours = translate.DefaultWorkingHours
		if brk == (availability.Interval{}) {
			brk = translate.DefaultBreak
		}
	}
	if brk.IsEmpty() {
		brk = availability.Interval{}
	}

	slotMinutes := in.SlotMinutes
	if slotMinutes == 0 {
		slotMinutes = s.defaultSlotMinutes
	}
	if slotMinutes < 0 || slotMinutes > availability.MaxSlotMinutes {
		return Doctor{}, fmt.Errorf("%w: appointment duration must be between 1 and %d minutes", ErrInvalidInput, availability.MaxSlotMinutes)
	}

	unavailable := make([]time.Time, 0, len(in.UnavailableDates))
	for _, d := range in.UnavailableDates {
		unavailable = append(unavailable, availability.DateOf(d))
	}
	slices.SortFunc(unavailable, time.Time.Compare)
	unavailable = slices.CompactFunc(unavailable, time.Time.Equal)

	d := Doctor{
		Name:             name,
		Specialization:   strings.TrimSpace(in.Specialization),
		Email:            strings.TrimSpace(in.Email),
		Phone:            strings.TrimSpace(in.Phone),
		WorkingDays:      days,
		WorkingHours:     hours,
		Break:            brk,
		SlotMinutes:      slotMinutes,
		UnavailableDates: unavailable,
	}
	if err := d.Schedule().Validate(); err != nil {
		return Doctor{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return d, nil
}

func (s *Service) CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	d, err := s.buildDoctor(in)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateDoctor(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("create doctor: %w", err)
	}

	s.log.Info().Str("doctor", created.Code).Msg("doctor created")
	return created, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, ref string, in DoctorInput) (*Doctor, error) {
	cur, err := s.ResolveDoctor(ctx, ref)
	if err != nil {
		return nil, err
	}

	d, err := s.buildDoctor(in)
	if err != nil {
		return nil, err
	}
	d.ID = cur.ID

	updated, err := s.repo.UpdateDoctor(ctx, d)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	return updated, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, ref string) error {
	d, err := s.ResolveDoctor(ctx, ref)
	if err != nil {
		return err
	}
	return s.repo.DeleteDoctor(ctx, d.ID)
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

func buildPatient(in PatientInput) (Patient, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Patient{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	p := Patient{
		Name:    name,
		Gender:  strings.TrimSpace(in.Gender),
		Phone:   strings.TrimSpace(in.Phone),
		Email:   strings.TrimSpace(in.Email),
		Address: strings.TrimSpace(in.Address),
	}
	if in.DateOfBirth != nil {
		dob := availability.DateOf(*in.DateOfBirth)
		p.DateOfBirth = &dob
	}
	return p, nil
}

func (s *Service) CreatePatient(ctx context.Context, in PatientInput) (*Patient, error) {
	p, err := buildPatient(in)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreatePatient(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}

	s.log.Info().Str("patient", created.Code).Msg("patient created")
	return created, nil
}

func (s *Service) UpdatePatient(ctx context.Context, ref string, in PatientInput) (*Patient, error) {
	cur, err := s.ResolvePatient(ctx, ref)
	if err != nil {
		return nil, err
	}

	p, err := buildPatient(in)
	if err != nil {
		return nil, err
	}
	p.ID = cur.ID

	updated, err := s.repo.UpdatePatient(ctx, p)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return updated, nil
}

func (s *Service) DeletePatient(ctx context.Context, ref string) error {
	p, err := s.ResolvePatient(ctx, ref)
	if err != nil {
		return err
	}
	return s.repo.DeletePatient(ctx, p.ID)
}

func (s *Service) ListPatients(ctx context.Context, name string) ([]Patient, error) {
	patients, err := s.repo.ListPatients(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}
