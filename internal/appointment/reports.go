package appointment

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

const unknownName = "Unknown"

// DefaultFrequentMinCount is the minimum number of appointments for a
// patient to count as frequent when the caller gives none.
const DefaultFrequentMinCount = 2

type AppointmentReport struct {
	ID          uuid.UUID
	Code        string
	PatientID   uuid.UUID
	PatientName string
	DoctorID    uuid.UUID
	DoctorName  string
	Date        time.Time
	Time        string
	Status      AppointmentStatus
}

type DoctorCount struct {
	DoctorID   uuid.UUID
	DoctorCode string
	DoctorName string
	Count      int
}

type SpecialtyCount struct {
	Specialty string
	Count     int
}

type PatientCount struct {
	PatientID   uuid.UUID
	PatientCode string
	PatientName string
	Count       int
}

// directory is a name lookup built once per report.
type directory struct {
	doctors  map[uuid.UUID]Doctor
	patients map[uuid.UUID]Patient
}

func (s *Service) loadDirectory(ctx context.Context) (*directory, error) {
	doctors, err := s.repo.ListDoctors(ctx, DoctorFilter{})
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	patients, err := s.repo.ListPatients(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	dir := &directory{
		doctors:  make(map[uuid.UUID]Doctor, len(doctors)),
		patients: make(map[uuid.UUID]Patient, len(patients)),
	}
	for _, d := range doctors {
		dir.doctors[d.ID] = d
	}
	for _, p := range patients {
		dir.patients[p.ID] = p
	}
	return dir, nil
}

func (d *directory) doctorName(id uuid.UUID) string {
	if doc, ok := d.doctors[id]; ok {
		return doc.Name
	}
	return unknownName
}

func (d *directory) patientName(id uuid.UUID) string {
	if p, ok := d.patients[id]; ok {
		return p.Name
	}
	return unknownName
}

func (s *Service) AppointmentsByDate(ctx context.Context, date time.Time) ([]AppointmentReport, error) {
	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{Date: &date})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	dir, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]AppointmentReport, 0, len(appts))
	for _, a := range appts {
		out = append(out, AppointmentReport{
			ID:          a.ID,
			Code:        a.Code,
			PatientID:   a.PatientID,
			PatientName: dir.patientName(a.PatientID),
			DoctorID:    a.DoctorID,
			DoctorName:  dir.doctorName(a.DoctorID),
			Date:        a.Date,
			Time:        a.Time,
			Status:      a.Status,
		})
	}
	return out, nil
}

// AppointmentsPerDoctor counts appointments in [from, to], busiest doctor
// first.
func (s *Service) AppointmentsPerDoctor(ctx context.Context, from, to time.Time) ([]DoctorCount, error) {
	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	dir, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int)
	for _, a := range appts {
		counts[a.DoctorID]++
	}

	out := make([]DoctorCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, DoctorCount{
			DoctorID:   id,
			DoctorCode: dir.doctors[id].Code,
			DoctorName: dir.doctorName(id),
			Count:      n,
		})
	}
	slices.SortFunc(out, func(a, b DoctorCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.DoctorName, b.DoctorName)
	})
	return out, nil
}

// AppointmentsPerSpecialty counts appointments in [from, to] by the
// specialization of their doctor. Appointments of deleted doctors are
// left out.
func (s *Service) AppointmentsPerSpecialty(ctx context.Context, from, to time.Time) ([]SpecialtyCount, error) {
	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	dir, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, a := range appts {
		if d, ok := dir.doctors[a.DoctorID]; ok {
			counts[d.Specialization]++
		}
	}

	out := make([]SpecialtyCount, 0, len(counts))
	for spec, n := range counts {
		out = append(out, SpecialtyCount{Specialty: spec, Count: n})
	}
	slices.SortFunc(out, func(a, b SpecialtyCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Specialty, b.Specialty)
	})
	return out, nil
}

// FrequentPatients lists patients with at least minCount appointments
// dated on or after from.
func (s *Service) FrequentPatients(ctx context.Context, from time.Time, minCount int) ([]PatientCount, error) {
	if minCount <= 0 {
		minCount = DefaultFrequentMinCount
	}

	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{From: &from})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	dir, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int)
	for _, a := range appts {
		counts[a.PatientID]++
	}

	out := []PatientCount{}
	for id, n := range counts {
		if n < minCount {
			continue
		}
		out = append(out, PatientCount{
			PatientID:   id,
			PatientCode: dir.patients[id].Code,
			PatientName: dir.patientName(id),
			Count:       n,
		})
	}
	slices.SortFunc(out, func(a, b PatientCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.PatientName, b.PatientName)
	})
	return out, nil
}
