package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
	"github.com/hackgods/hospital-appointment-scheduling/internal/config"
	redisclient "github.com/hackgods/hospital-appointment-scheduling/internal/redis"
)

// 2030-01-01 is a Tuesday; 2030-01-07 is the following Monday.
const (
	monday     = "2030-01-07"
	nextMonday = "2030-01-14"
	sunday     = "2030-01-06"
)

type testEnv struct {
	svc  *Service
	repo *MemoryRepository
	now  time.Time
}

func newTestEnv(t *testing.T, opts ...func(*testEnv)) *testEnv {
	t.Helper()

	env := &testEnv{
		repo: NewMemoryRepository(),
		now:  time.Date(2030, 1, 1, 15, 0, 0, 0, time.UTC),
	}
	cfg := config.Config{Location: time.UTC, DefaultSlotMinutes: 30}
	env.svc = NewService(env.repo, redisclient.NewLocalSlotLocker(), cfg, zerolog.Nop(),
		WithClock(func() time.Time { return env.now }))
	for _, opt := range opts {
		opt(env)
	}
	return env
}

func (e *testEnv) doctor(t *testing.T, in DoctorInput) *Doctor {
	t.Helper()
	if in.Name == "" {
		in.Name = "Dr House"
	}
	if in.WorkingDays == nil {
		in.WorkingDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	}
	d, err := e.svc.CreateDoctor(context.Background(), in)
	if err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	return d
}

func (e *testEnv) patient(t *testing.T, name string) *Patient {
	t.Helper()
	p, err := e.svc.CreatePatient(context.Background(), PatientInput{Name: name, Email: "p@example.com", Phone: "0600000000"})
	if err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return p
}

func (e *testEnv) book(t *testing.T, d *Doctor, p *Patient, date, hhmm string) *Appointment {
	t.Helper()
	a, err := e.svc.BookAppointment(context.Background(), availability.Request{
		DoctorID:  d.Code,
		PatientID: p.Code,
		Date:      date,
		Time:      hhmm,
		Motif:     "checkup",
	})
	if err != nil {
		t.Fatalf("book %s %s: %v", date, hhmm, err)
	}
	return a
}

type busyLocker struct{}

func (busyLocker) WithSlotLock(context.Context, string, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

// staleRepo hides existing appointments from reads, as a concurrent
// writer would between validation and insert.
type staleRepo struct {
	*MemoryRepository
}

func (staleRepo) ListAppointments(context.Context, AppointmentFilter) ([]Appointment, error) {
	return []Appointment{}, nil
}

func TestBookAppointment_Success(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{Email: "house@example.com", Phone: "0102030405"})
	p := env.patient(t, "Alice")

	a := env.book(t, d, p, monday, "9:00")

	if a.Status != StatusScheduled {
		t.Errorf("expected SCHEDULED, got %s", a.Status)
	}
	if a.Code != "A3001" {
		t.Errorf("expected code A3001, got %s", a.Code)
	}
	if a.Time != "09:00" {
		t.Errorf("expected normalized time 09:00, got %s", a.Time)
	}
	if a.DoctorID != d.ID || a.PatientID != p.ID {
		t.Errorf("appointment not linked to doctor and patient: %+v", a)
	}

	ns, err := env.svc.RecentNotifications(context.Background())
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(ns) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(ns))
	}
	for _, n := range ns {
		if n.AppointmentID == nil || *n.AppointmentID != a.ID {
			t.Errorf("notification not linked to appointment: %+v", n)
		}
	}
}

func TestBookAppointment_SkipsNotificationsWithoutContact(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{})
	p, err := env.svc.CreatePatient(context.Background(), PatientInput{Name: "Bob", Phone: "0611111111"})
	if err != nil {
		t.Fatal(err)
	}

	env.book(t, d, p, monday, "10:00")

	ns, _ := env.svc.RecentNotifications(context.Background())
	if len(ns) != 1 || ns[0].Channel != ChannelSMS || ns[0].RecipientType != RecipientPatient {
		t.Fatalf("expected a single patient SMS, got %+v", ns)
	}
}

func TestBookAppointment_Rejections(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{UnavailableDates: []time.Time{time.Date(2030, 1, 8, 0, 0, 0, 0, time.UTC)}})
	p := env.patient(t, "Alice")
	env.book(t, d, p, monday, "09:00")

	tests := []struct {
		name string
		req  availability.Request
		want error
	}{
		{"missing motif", availability.Request{DoctorID: d.Code, PatientID: p.Code, Date: monday, Time: "09:30"}, availability.ErrMissingField},
		{"missing doctor before lookup", availability.Request{PatientID: "nobody", Date: monday, Time: "09:30", Motif: "x"}, availability.ErrMissingField},
		{"unknown doctor", availability.Request{DoctorID: "D9999", PatientID: p.Code, Date: monday, Time: "09:30", Motif: "x"}, ErrDoctorNotFound},
		{"unknown patient", availability.Request{DoctorID: d.Code, PatientID: "P9999", Date: monday, Time: "09:30", Motif: "x"}, ErrPatientNotFound},
		{"past date", availability.Request{DoctorID: d.Code, PatientID: p.Code, Date: "2029-12-31", Time: "09:30", Motif: "x"}, availability.ErrPastDate},
		{"sunday", availability.Request{DoctorID: d.Code, PatientID: p.Code, Date: sunday, Time: "09:30", Motif: "x"}, availability.ErrNonWorkingDay},
		{"day off", availability.Request{DoctorID: d.Code, PatientID: p.Code, Date: "2030-01-08", Time: "09:30", Motif: "x"}, availability.ErrDoctorUnavailable},
		{"lunch break", availability.Request{DoctorID: d.Code, PatientID: p.Code, Date: monday, Time: "12:00", Motif: "x"}, availability.ErrNotASlotBoundary},
		{"off boundary", availability.Request{DoctorID: d.Code, PatientID: p.Code, Date: monday, Time: "09:15", Motif: "x"}, availability.ErrNotASlotBoundary},
		{"taken", availability.Request{DoctorID: d.ID.String(), PatientID: p.ID.String(), Date: monday, Time: "09:00", Motif: "x"}, availability.ErrSlotTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.BookAppointment(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBookAppointment_FrenchWorkingDays(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{WorkingDays: []string{"Lundi"}})
	p := env.patient(t, "Alice")

	env.book(t, d, p, monday, "14:00")

	_, err := env.svc.BookAppointment(context.Background(), availability.Request{
		DoctorID: d.Code, PatientID: p.Code, Date: "2030-01-08", Time: "14:00", Motif: "x",
	})
	var rej *availability.RejectionError
	if !errors.As(err, &rej) || rej.Reason != availability.ReasonNonWorkingDay || rej.Weekday != time.Tuesday {
		t.Fatalf("expected non working Tuesday, got %v", err)
	}
}

func TestBookAppointment_LockContention(t *testing.T) {
	repo := NewMemoryRepository()
	cfg := config.Config{Location: time.UTC, DefaultSlotMinutes: 30}
	now := func() time.Time { return time.Date(2030, 1, 1, 15, 0, 0, 0, time.UTC) }
	svc := NewService(repo, busyLocker{}, cfg, zerolog.Nop(), WithClock(now))

	d, _ := svc.CreateDoctor(context.Background(), DoctorInput{Name: "Dr X", WorkingDays: []string{"Monday"}})
	p, _ := svc.CreatePatient(context.Background(), PatientInput{Name: "Alice"})

	_, err := svc.BookAppointment(context.Background(), availability.Request{
		DoctorID: d.Code, PatientID: p.Code, Date: monday, Time: "09:00", Motif: "x",
	})
	if !errors.Is(err, ErrSlotBeingBooked) {
		t.Fatalf("expected ErrSlotBeingBooked, got %v", err)
	}
}

func TestBookAppointment_StorageConflictIsSlotTaken(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{})
	p := env.patient(t, "Alice")
	env.book(t, d, p, monday, "09:00")

	cfg := config.Config{Location: time.UTC, DefaultSlotMinutes: 30}
	stale := NewService(staleRepo{env.repo}, redisclient.NewLocalSlotLocker(), cfg, zerolog.Nop(),
		WithClock(func() time.Time { return env.now }))

	_, err := stale.BookAppointment(context.Background(), availability.Request{
		DoctorID: d.Code, PatientID: p.Code, Date: monday, Time: "09:00", Motif: "again",
	})
	if !errors.Is(err, availability.ErrSlotTaken) {
		t.Fatalf("expected SlotTaken from storage conflict, got %v", err)
	}
}

func TestBookAppointment_ConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{})
	p := env.patient(t, "Alice")

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.BookAppointment(context.Background(), availability.Request{
				DoctorID: d.Code, PatientID: p.Code, Date: monday, Time: "11:00", Motif: "race",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, availability.ErrSlotTaken), errors.Is(err, ErrSlotBeingBooked):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one booking, got %d", success)
	}
}

func TestCancelAppointment(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{})
	p := env.patient(t, "Alice")
	a := env.book(t, d, p, monday, "09:00")

	cancelled, err := env.svc.CancelAppointment(context.Background(), a.Code)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}

	if _, err := env.svc.CancelAppointment(context.Background(), a.ID.String()); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("second cancel: expected ErrInvalidStatusTransition, got %v", err)
	}

	// The slot is free again.
	env.book(t, d, p, monday, "09:00")

	if _, err := env.svc.CancelAppointment(context.Background(), "A9999"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestRescheduleAppointment(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{})
	p := env.patient(t, "Alice")
	a := env.book(t, d, p, monday, "09:00")
	env.book(t, d, p, monday, "10:00")
	ctx := context.Background()

	// Its own slot does not block it.
	same, err := env.svc.RescheduleAppointment(ctx, a.Code, monday, "09:00", "follow-up")
	if err != nil {
		t.Fatalf("reschedule in place: %v", err)
	}
	if same.Motif != "follow-up" {
		t.Errorf("expected motif to change, got %q", same.Motif)
	}

	if _, err := env.svc.RescheduleAppointment(ctx, a.Code, monday, "10:00", ""); !errors.Is(err, availability.ErrSlotTaken) {
		t.Fatalf("expected SlotTaken, got %v", err)
	}

	moved, err := env.svc.RescheduleAppointment(ctx, a.Code, nextMonday, "15:30", "")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if availability.FormatDate(moved.Date) != nextMonday || moved.Time != "15:30" || moved.Motif != "follow-up" {
		t.Errorf("unexpected appointment after move: %+v", moved)
	}

	slots, _ := env.svc.AvailableSlots(ctx, d.Code, mustDate(t, monday))
	if !containsSlot(slots, "09:00") {
		t.Error("old slot should be free after reschedule")
	}

	if _, err := env.svc.CancelAppointment(ctx, a.Code); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.RescheduleAppointment(ctx, a.Code, nextMonday, "16:00", ""); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}
}

func TestCompletePastAppointments(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{})
	p := env.patient(t, "Alice")
	ctx := context.Background()

	past := env.book(t, d, p, monday, "09:00")
	cancelled := env.book(t, d, p, monday, "09:30")
	future := env.book(t, d, p, nextMonday, "09:00")
	if _, err := env.svc.CancelAppointment(ctx, cancelled.Code); err != nil {
		t.Fatal(err)
	}

	env.now = time.Date(2030, 1, 9, 2, 0, 0, 0, time.UTC)

	n, err := env.svc.CompletePastAppointments(ctx)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 completed, got %d", n)
	}

	want := map[string]AppointmentStatus{
		past.Code:      StatusCompleted,
		cancelled.Code: StatusCancelled,
		future.Code:    StatusScheduled,
	}
	for code, status := range want {
		got, err := env.svc.GetAppointment(ctx, code)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != status {
			t.Errorf("%s: expected %s, got %s", code, status, got.Status)
		}
	}

	if _, err := env.svc.CancelAppointment(ctx, past.Code); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("completed appointment must not be cancellable, got %v", err)
	}
}

func TestAvailableSlots(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{})
	p := env.patient(t, "Alice")
	ctx := context.Background()

	slots, err := env.svc.AvailableSlots(ctx, d.Code, mustDate(t, monday))
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 14 {
		t.Fatalf("expected 14 slots on a default day, got %d", len(slots))
	}

	a := env.book(t, d, p, monday, "10:00")
	slots, _ = env.svc.AvailableSlots(ctx, d.ID.String(), mustDate(t, monday))
	if len(slots) != 13 || containsSlot(slots, "10:00") {
		t.Fatalf("booked slot should be gone: %v", slots)
	}

	if _, err := env.svc.CancelAppointment(ctx, a.Code); err != nil {
		t.Fatal(err)
	}
	slots, _ = env.svc.AvailableSlots(ctx, d.Code, mustDate(t, monday))
	if !containsSlot(slots, "10:00") {
		t.Fatal("cancelled booking must not hide the slot")
	}

	slots, err = env.svc.AvailableSlots(ctx, "D9999", mustDate(t, monday))
	if err != nil || len(slots) != 0 {
		t.Fatalf("unknown doctor: expected empty list, got %v, %v", slots, err)
	}

	slots, _ = env.svc.AvailableSlots(ctx, d.Code, mustDate(t, sunday))
	if len(slots) != 0 {
		t.Fatalf("expected no slots on Sunday, got %v", slots)
	}
}

func TestPatientHistoryAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	d := env.doctor(t, DoctorInput{WorkingDays: []string{"Monday", "Tuesday"}})
	p := env.patient(t, "Alice")
	ctx := context.Background()

	env.book(t, d, p, monday, "09:00")
	env.book(t, d, p, nextMonday, "09:00")
	env.book(t, d, p, monday, "14:00")
	today := env.book(t, d, p, "2030-01-01", "16:00")
	env.book(t, d, p, "2030-01-01", "15:30")
	if _, err := env.svc.CancelAppointment(ctx, today.Code); err != nil {
		t.Fatal(err)
	}

	history, err := env.svc.PatientHistory(ctx, p.Code)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, a := range history {
		got = append(got, availability.FormatDate(a.Date)+" "+a.Time)
	}
	want := []string{"2030-01-14 09:00", "2030-01-07 14:00", "2030-01-07 09:00", "2030-01-01 16:00", "2030-01-01 15:30"}
	if len(got) != len(want) {
		t.Fatalf("history: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("history: got %v, want %v", got, want)
		}
	}

	dash, err := env.svc.DoctorDashboard(ctx, d.Code)
	if err != nil {
		t.Fatal(err)
	}
	if dash.Stats.TodayCount != 2 || dash.Stats.Upcoming != 4 || dash.Stats.Cancelled != 1 || dash.Stats.Completed != 0 {
		t.Errorf("unexpected stats: %+v", dash.Stats)
	}
	if dash.TodayAppointments[0].Time != "15:30" {
		t.Errorf("today's appointments should be sorted by time: %+v", dash.TodayAppointments)
	}

	if _, err := env.svc.DoctorDashboard(ctx, "D9999"); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestListAppointments_Filters(t *testing.T) {
	env := newTestEnv(t)
	d1 := env.doctor(t, DoctorInput{Name: "Dr One"})
	d2 := env.doctor(t, DoctorInput{Name: "Dr Two"})
	p := env.patient(t, "Alice")
	ctx := context.Background()

	env.book(t, d1, p, monday, "09:00")
	a := env.book(t, d2, p, monday, "09:00")
	env.book(t, d2, p, nextMonday, "09:00")
	if _, err := env.svc.CancelAppointment(ctx, a.Code); err != nil {
		t.Fatal(err)
	}

	date := mustDate(t, monday)
	tests := []struct {
		name string
		q    AppointmentQuery
		want int
	}{
		{"all", AppointmentQuery{}, 3},
		{"by doctor", AppointmentQuery{DoctorRef: d2.Code}, 2},
		{"by date", AppointmentQuery{Date: &date}, 2},
		{"by status", AppointmentQuery{Status: StatusScheduled}, 2},
		{"combined", AppointmentQuery{DoctorRef: d2.ID.String(), Date: &date, Status: StatusCancelled}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.svc.ListAppointments(ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, len(got))
			}
		})
	}

	if _, err := env.svc.ListAppointments(ctx, AppointmentQuery{Status: "PLANNED"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := availability.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func containsSlot(slots []availability.TimeOfDay, hhmm string) bool {
	for _, s := range slots {
		if s.String() == hhmm {
			return true
		}
	}
	return false
}
