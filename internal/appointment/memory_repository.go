package appointment

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps everything in process. It backs STORE=memory and
// the tests, and enforces the same active-slot uniqueness as the Postgres
// index.
type MemoryRepository struct {
	mu sync.RWMutex

	doctors       map[uuid.UUID]*Doctor
	patients      map[uuid.UUID]*Patient
	appointments  map[uuid.UUID]*Appointment
	notifications []Notification

	doctorSeq      int
	patientSeq     int
	appointmentSeq int
	notificationID int64

	now func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		doctors:        make(map[uuid.UUID]*Doctor),
		patients:       make(map[uuid.UUID]*Patient),
		appointments:   make(map[uuid.UUID]*Appointment),
		doctorSeq:      2000,
		appointmentSeq: 3000,
		now:            time.Now,
	}
}

// Doctors

func (r *MemoryRepository) CreateDoctor(_ context.Context, d Doctor) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doctorSeq++
	d.ID = uuid.New()
	d.Code = fmt.Sprintf("D%d", r.doctorSeq)
	d.CreatedAt = r.now()
	d.UpdatedAt = d.CreatedAt

	r.doctors[d.ID] = &d
	out := d
	return &out, nil
}

func (r *MemoryRepository) UpdateDoctor(_ context.Context, d Doctor) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.doctors[d.ID]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	d.Code = cur.Code
	d.CreatedAt = cur.CreatedAt
	d.UpdatedAt = r.now()

	r.doctors[d.ID] = &d
	out := d
	return &out, nil
}

func (r *MemoryRepository) DeleteDoctor(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[id]; !ok {
		return ErrDoctorNotFound
	}
	delete(r.doctors, id)
	for aid, a := range r.appointments {
		if a.DoctorID == id {
			delete(r.appointments, aid)
		}
	}
	return nil
}

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	out := *d
	return &out, nil
}

func (r *MemoryRepository) GetDoctorByCode(_ context.Context, code string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.doctors {
		if strings.EqualFold(d.Code, code) {
			out := *d
			return &out, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *MemoryRepository) ListDoctors(_ context.Context, f DoctorFilter) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []Doctor{}
	for _, d := range r.doctors {
		if !containsFold(d.Name, f.Name) || !containsFold(d.Specialization, f.Specialization) {
			continue
		}
		result = append(result, *d)
	}
	slices.SortFunc(result, func(a, b Doctor) int { return cmp.Compare(a.Code, b.Code) })
	return result, nil
}

// Patients

func (r *MemoryRepository) CreatePatient(_ context.Context, p Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.patientSeq++
	p.ID = uuid.New()
	p.Code = fmt.Sprintf("P%04d", r.patientSeq)
	p.CreatedAt = r.now()
	p.UpdatedAt = p.CreatedAt

	r.patients[p.ID] = &p
	out := p
	return &out, nil
}

func (r *MemoryRepository) UpdatePatient(_ context.Context, p Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.patients[p.ID]
	if !ok {
		return nil, ErrPatientNotFound
	}
	p.Code = cur.Code
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = r.now()

	r.patients[p.ID] = &p
	out := p
	return &out, nil
}

func (r *MemoryRepository) DeletePatient(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; !ok {
		return ErrPatientNotFound
	}
	delete(r.patients, id)
	for aid, a := range r.appointments {
		if a.PatientID == id {
			delete(r.appointments, aid)
		}
	}
	return nil
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	out := *p
	return &out, nil
}

func (r *MemoryRepository) GetPatientByCode(_ context.Context, code string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patients {
		if strings.EqualFold(p.Code, code) {
			out := *p
			return &out, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *MemoryRepository) ListPatients(_ context.Context, name string) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []Patient{}
	for _, p := range r.patients {
		if containsFold(p.Name, name) {
			result = append(result, *p)
		}
	}
	slices.SortFunc(result, func(a, b Patient) int { return cmp.Compare(a.Code, b.Code) })
	return result, nil
}

// Appointments

// slotHeld must be called with the write lock held.
func (r *MemoryRepository) slotHeld(doctorID uuid.UUID, date time.Time, hhmm string, except uuid.UUID) bool {
	for _, a := range r.appointments {
		if a.ID == except || a.Status == StatusCancelled {
			continue
		}
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Time == hhmm {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slotHeld(a.DoctorID, a.Date, a.Time, uuid.Nil) {
		return nil, ErrSlotConflict
	}

	r.appointmentSeq++
	a.ID = uuid.New()
	a.Code = fmt.Sprintf("A%d", r.appointmentSeq)
	a.Status = StatusScheduled
	a.CreatedAt = r.now()
	a.UpdatedAt = a.CreatedAt

	r.appointments[a.ID] = &a
	out := a
	return &out, nil
}

func (r *MemoryRepository) RescheduleAppointment(_ context.Context, id uuid.UUID, date time.Time, hhmm, motif string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != StatusScheduled {
		return nil, ErrAppointmentNotFound
	}
	if r.slotHeld(a.DoctorID, date, hhmm, id) {
		return nil, ErrSlotConflict
	}

	a.Date = date
	a.Time = hhmm
	a.Motif = motif
	a.UpdatedAt = r.now()

	out := *a
	return &out, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}

	a.Status = to
	a.UpdatedAt = r.now()

	out := *a
	return &out, nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (r *MemoryRepository) GetAppointmentByCode(_ context.Context, code string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.appointments {
		if strings.EqualFold(a.Code, code) {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemoryRepository) ListAppointments(_ context.Context, f AppointmentFilter) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []Appointment{}
	for _, a := range r.appointments {
		if f.matches(a) {
			result = append(result, *a)
		}
	}
	slices.SortFunc(result, compareSlot)
	return result, nil
}

func (r *MemoryRepository) CompletePastAppointments(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, a := range r.appointments {
		if a.Status == StatusScheduled && a.Date.Before(before) {
			a.Status = StatusCompleted
			a.UpdatedAt = r.now()
			n++
		}
	}
	return n, nil
}

// Notifications

func (r *MemoryRepository) InsertNotification(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notificationID++
	n.ID = r.notificationID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *MemoryRepository) ListNotifications(_ context.Context, limit int) ([]Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notification, 0, min(limit, len(r.notifications)))
	for i := len(r.notifications) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, r.notifications[i])
	}
	return result, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

// compareSlot orders appointments by date then time.
func compareSlot(a, b Appointment) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.Time, b.Time)
}
