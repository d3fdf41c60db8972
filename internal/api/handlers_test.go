package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-appointment-scheduling/internal/appointment"
	"github.com/hackgods/hospital-appointment-scheduling/internal/auth"
	"github.com/hackgods/hospital-appointment-scheduling/internal/config"
	redisclient "github.com/hackgods/hospital-appointment-scheduling/internal/redis"
)

// Today is Tuesday 2030-01-01; 2030-01-06 is a Sunday and 2030-01-07 a Monday.
var testNow = time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, mutate ...func(*RouterConfig)) http.Handler {
	t.Helper()

	cfg := config.Config{Location: time.UTC, DefaultSlotMinutes: 30}
	svc := appointment.NewService(appointment.NewMemoryRepository(), redisclient.NewLocalSlotLocker(), cfg, zerolog.Nop(),
		appointment.WithClock(func() time.Time { return testNow }))

	rc := RouterConfig{Service: svc, Logger: zerolog.Nop(), Env: "test", Version: "test"}
	for _, m := range mutate {
		m(&rc)
	}
	return NewRouter(rc)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func seed(t *testing.T, h http.Handler) (DoctorResponse, PatientResponse) {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/doctors", map[string]any{
		"name":           "Dr Martin",
		"specialization": "Cardiology",
		"email":          "martin@example.com",
		"workingDays":    []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		"workingHours":   map[string]string{"start": "09:00", "end": "17:00"},
		"breakTime":      map[string]string{"start": "12:00", "end": "13:00"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create doctor: %d %s", rec.Code, rec.Body.String())
	}
	doctor := decode[DoctorResponse](t, rec)

	rec = do(t, h, http.MethodPost, "/api/patients", map[string]any{
		"name":  "Alice Durand",
		"email": "alice@example.com",
		"phone": "0601020304",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create patient: %d %s", rec.Code, rec.Body.String())
	}
	return doctor, decode[PatientResponse](t, rec)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/health/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("live: %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/health/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: %d", rec.Code)
	}
	ready := decode[ReadinessResponse](t, rec)
	if ready.Status != "ok" || ready.Dependencies["postgres"] != "disabled" || ready.Dependencies["redis"] != "disabled" {
		t.Errorf("unexpected readiness %+v", ready)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestBookingFlow(t *testing.T) {
	h := newTestRouter(t)
	doctor, patient := seed(t, h)

	if doctor.DoctorID != "D2001" || patient.PatientID != "P0001" {
		t.Fatalf("unexpected codes %s %s", doctor.DoctorID, patient.PatientID)
	}

	rec := do(t, h, http.MethodGet, "/api/appointments/availability/D2001?date=2030-01-07", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: %d %s", rec.Code, rec.Body.String())
	}
	slots := decode[[]string](t, rec)
	if len(slots) != 14 || slots[0] != "09:00" || slots[5] != "11:30" || slots[6] != "13:00" || slots[13] != "16:30" {
		t.Fatalf("unexpected slots %v", slots)
	}

	booking := map[string]string{
		"patientId": patient.PatientID,
		"doctorId":  doctor.DoctorID,
		"date":      "2030-01-07",
		"time":      "09:00",
		"motif":     "Consultation",
	}
	rec = do(t, h, http.MethodPost, "/api/appointments", booking)
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}
	appt := decode[AppointmentResponse](t, rec)
	if appt.AppointmentID != "A3001" || appt.Status != "SCHEDULED" || appt.Date != "2030-01-07" || appt.Time != "09:00" {
		t.Fatalf("unexpected appointment %+v", appt)
	}

	rec = do(t, h, http.MethodPost, "/api/appointments", booking)
	if rec.Code != http.StatusConflict || decode[ErrorResponse](t, rec).Error != "slot_taken" {
		t.Fatalf("second booking: %d %s", rec.Code, rec.Body.String())
	}

	slots = decode[[]string](t, do(t, h, http.MethodGet, "/api/appointments/availability/"+doctor.ID.String()+"?date=2030-01-07", nil))
	if len(slots) != 13 || slots[0] != "09:30" {
		t.Fatalf("booked slot still offered: %v", slots)
	}

	rec = do(t, h, http.MethodGet, "/api/appointments/A3001", nil)
	if got := decode[AppointmentResponse](t, rec); got.DoctorName != "Dr Martin" || got.PatientName != "Alice Durand" {
		t.Fatalf("detail missing names: %+v", got)
	}

	rec = do(t, h, http.MethodPut, "/api/appointments/A3001", map[string]string{"date": "2030-01-08", "time": "14:30"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reschedule: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[AppointmentResponse](t, rec); got.Date != "2030-01-08" || got.Time != "14:30" || got.Motif != "Consultation" {
		t.Fatalf("unexpected rescheduled appointment %+v", got)
	}

	rec = do(t, h, http.MethodDelete, "/api/appointments/A3001", nil)
	if rec.Code != http.StatusOK || decode[AppointmentResponse](t, rec).Status != "CANCELLED" {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodDelete, "/api/appointments/A3001", nil)
	if rec.Code != http.StatusConflict || decode[ErrorResponse](t, rec).Error != "invalid_status_transition" {
		t.Fatalf("second cancel: %d %s", rec.Code, rec.Body.String())
	}

	notifications := decode[[]NotificationResponse](t, do(t, h, http.MethodGet, "/api/notifications", nil))
	if len(notifications) != 3 {
		t.Fatalf("expected doctor email plus patient email and SMS, got %d", len(notifications))
	}
}

func TestBookingRejections(t *testing.T) {
	h := newTestRouter(t)
	doctor, patient := seed(t, h)

	base := func(date, hhmm string) map[string]string {
		return map[string]string{
			"patientId": patient.PatientID,
			"doctorId":  doctor.DoctorID,
			"date":      date,
			"time":      hhmm,
			"motif":     "Consultation",
		}
	}

	noMotif := base("2030-01-07", "09:00")
	delete(noMotif, "motif")
	unknownDoctor := base("2030-01-07", "09:00")
	unknownDoctor["doctorId"] = "D9999"
	unknownPatient := base("2030-01-07", "09:00")
	unknownPatient["patientId"] = "P9999"

	tests := []struct {
		name    string
		body    map[string]string
		status  int
		code    string
		field   string
		weekday string
	}{
		{"missing motif", noMotif, http.StatusBadRequest, "missing_field", "motif", ""},
		{"bad date", base("07/01/2030", "09:00"), http.StatusBadRequest, "missing_field", "date", ""},
		{"past date", base("2029-12-31", "09:00"), http.StatusUnprocessableEntity, "past_date", "", ""},
		{"sunday", base("2030-01-06", "10:00"), http.StatusUnprocessableEntity, "non_working_day", "", "Sunday"},
		{"lunch break", base("2030-01-07", "12:30"), http.StatusUnprocessableEntity, "not_a_slot_boundary", "", ""},
		{"after hours", base("2030-01-07", "17:00"), http.StatusUnprocessableEntity, "not_a_slot_boundary", "", ""},
		{"unknown doctor", unknownDoctor, http.StatusNotFound, "doctor_not_found", "", ""},
		{"unknown patient", unknownPatient, http.StatusNotFound, "patient_not_found", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/appointments", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			resp := decode[ErrorResponse](t, rec)
			if resp.Error != tt.code || resp.Field != tt.field || resp.Weekday != tt.weekday {
				t.Fatalf("unexpected error body %+v", resp)
			}
		})
	}
}

func TestFrontDeskDoctors(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/frontdesk/doctors", map[string]any{
		"name":        "Dr Bernard",
		"workingDays": []string{"Lundi", "Mercredi"},
		"workingHours": map[string]any{
			"morning":   map[string]string{"start": "08:00", "end": "12:00"},
			"afternoon": map[string]string{"start": "14:00", "end": "18:00"},
		},
		"appointmentDuration": 60,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	fd := decode[FrontDeskDoctorResponse](t, rec)
	if len(fd.WorkingDays) != 2 || fd.WorkingDays[0] != "Lundi" || fd.WorkingDays[1] != "Mercredi" {
		t.Errorf("unexpected days %v", fd.WorkingDays)
	}
	if fd.WorkingHours.Morning.End != "12:00" || fd.WorkingHours.Afternoon.Start != "14:00" {
		t.Errorf("round trip lost the split: %+v", fd.WorkingHours)
	}

	canonical := decode[DoctorResponse](t, do(t, h, http.MethodGet, "/api/doctors/"+fd.DoctorID, nil))
	if canonical.WorkingDays[0] != "Monday" || canonical.WorkingDays[1] != "Wednesday" {
		t.Errorf("canonical days %v", canonical.WorkingDays)
	}
	if canonical.WorkingHours.Start != "08:00" || canonical.WorkingHours.End != "18:00" {
		t.Errorf("canonical hours %+v", canonical.WorkingHours)
	}
	if canonical.BreakTime == nil || canonical.BreakTime.Start != "12:00" || canonical.BreakTime.End != "14:00" {
		t.Errorf("canonical break %+v", canonical.BreakTime)
	}

	slots := decode[[]string](t, do(t, h, http.MethodGet, "/api/appointments/availability/"+fd.DoctorID+"?date=2030-01-09", nil))
	want := []string{"08:00", "09:00", "10:00", "11:00", "14:00", "15:00", "16:00", "17:00"}
	if len(slots) != len(want) {
		t.Fatalf("slots %v, want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("slots %v, want %v", slots, want)
		}
	}

	// Overlapping halves mean no break.
	rec = do(t, h, http.MethodPut, "/api/frontdesk/doctors/"+fd.DoctorID, map[string]any{
		"name":        "Dr Bernard",
		"workingDays": []string{"Lundi"},
		"workingHours": map[string]any{
			"morning":   map[string]string{"start": "08:00", "end": "13:00"},
			"afternoon": map[string]string{"start": "12:00", "end": "16:00"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	canonical = decode[DoctorResponse](t, do(t, h, http.MethodGet, "/api/doctors/"+fd.DoctorID, nil))
	if canonical.BreakTime != nil {
		t.Errorf("expected no break, got %+v", canonical.BreakTime)
	}
}

func TestDoctorValidation(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name string
		body map[string]any
		code string
	}{
		{"no name", map[string]any{"workingDays": []string{"Monday"}}, "invalid_request"},
		{"bad email", map[string]any{"name": "Dr X", "email": "nope", "workingDays": []string{"Monday"}}, "invalid_request"},
		{"no days", map[string]any{"name": "Dr X", "workingDays": []string{}}, "invalid_request"},
		{"unknown day", map[string]any{"name": "Dr X", "workingDays": []string{"Someday"}}, "invalid_input"},
		{"bad time", map[string]any{"name": "Dr X", "workingDays": []string{"Monday"}, "workingHours": map[string]string{"start": "9h", "end": "17:00"}}, "invalid_request"},
		{"break outside", map[string]any{
			"name": "Dr X", "workingDays": []string{"Monday"},
			"workingHours": map[string]string{"start": "09:00", "end": "12:00"},
			"breakTime":    map[string]string{"start": "11:30", "end": "13:00"},
		}, "invalid_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/doctors", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decode[ErrorResponse](t, rec).Error; got != tt.code {
				t.Fatalf("expected %s, got %s", tt.code, got)
			}
		})
	}
}

func TestCreateDoctor_BreakWithoutHours(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/doctors", map[string]any{
		"name":        "Dr Break",
		"workingDays": []string{"Monday"},
		"breakTime":   map[string]string{"start": "13:00", "end": "14:00"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	d := decode[DoctorResponse](t, rec)
	if d.WorkingHours.Start != "09:00" || d.WorkingHours.End != "17:00" {
		t.Errorf("expected default hours, got %+v", d.WorkingHours)
	}
	if d.BreakTime == nil || d.BreakTime.Start != "13:00" || d.BreakTime.End != "14:00" {
		t.Errorf("supplied break not kept, got %+v", d.BreakTime)
	}
}

func TestAvailability_Params(t *testing.T) {
	h := newTestRouter(t)
	seed(t, h)

	rec := do(t, h, http.MethodGet, "/api/appointments/availability/D2001", nil)
	if rec.Code != http.StatusBadRequest || decode[ErrorResponse](t, rec).Field != "date" {
		t.Fatalf("missing date: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/appointments/availability/D2001?date=tomorrow", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/appointments/availability/D9999?date=2030-01-07", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Fatalf("unknown doctor: %d %q", rec.Code, rec.Body.String())
	}
}

func TestDashboardHistoryAndReports(t *testing.T) {
	h := newTestRouter(t)
	doctor, patient := seed(t, h)

	for _, slot := range []struct{ date, time string }{
		{"2030-01-01", "14:00"},
		{"2030-01-07", "09:00"},
		{"2030-01-08", "10:00"},
	} {
		rec := do(t, h, http.MethodPost, "/api/appointments", map[string]string{
			"patientId": patient.ID.String(), "doctorId": doctor.ID.String(),
			"date": slot.date, "time": slot.time, "motif": "Suivi",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("book %v: %d %s", slot, rec.Code, rec.Body.String())
		}
	}

	dash := decode[DashboardResponse](t, do(t, h, http.MethodGet, "/api/appointments/doctor/D2001/dashboard", nil))
	if dash.DoctorID != "D2001" || dash.Stats.TodayCount != 1 || dash.Stats.Upcoming != 3 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	history := decode[[]AppointmentResponse](t, do(t, h, http.MethodGet, "/api/appointments/patient/P0001/history", nil))
	if len(history) != 3 || history[0].Date != "2030-01-08" || history[2].Date != "2030-01-01" {
		t.Fatalf("unexpected history %+v", history)
	}

	list := decode[[]AppointmentResponse](t, do(t, h, http.MethodGet, "/api/appointments?doctorId=D2001&date=2030-01-07", nil))
	if len(list) != 1 || list[0].Time != "09:00" {
		t.Fatalf("unexpected filtered list %+v", list)
	}

	perDoctor := decode[[]DoctorCountResponse](t, do(t, h, http.MethodGet, "/api/reports/appointments-per-doctor?from=2030-01-01&to=2030-01-31", nil))
	if len(perDoctor) != 1 || perDoctor[0].DoctorID != "D2001" || perDoctor[0].Count != 3 {
		t.Fatalf("unexpected per doctor %+v", perDoctor)
	}

	perSpecialty := decode[[]SpecialtyCountResponse](t, do(t, h, http.MethodGet, "/api/reports/appointments-per-specialty?from=2030-01-01&to=2030-01-07", nil))
	if len(perSpecialty) != 1 || perSpecialty[0].Specialty != "Cardiology" || perSpecialty[0].Count != 2 {
		t.Fatalf("unexpected per specialty %+v", perSpecialty)
	}

	frequent := decode[[]PatientCountResponse](t, do(t, h, http.MethodGet, "/api/reports/frequent-patients?from=2030-01-02&minCount=2", nil))
	if len(frequent) != 1 || frequent[0].PatientID != "P0001" || frequent[0].Count != 2 {
		t.Fatalf("unexpected frequent patients %+v", frequent)
	}

	byDate := decode[[]AppointmentReportResponse](t, do(t, h, http.MethodGet, "/api/reports/appointments-by-date", nil))
	if len(byDate) != 1 || byDate[0].DoctorName != "Dr Martin" || byDate[0].PatientName != "Alice Durand" {
		t.Fatalf("unexpected by date report %+v", byDate)
	}

	rec := do(t, h, http.MethodGet, "/api/reports/appointments-per-doctor?from=2030-01-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing to: %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/appointments/maintenance/mark-past-completed", nil)
	if rec.Code != http.StatusOK || decode[CompletedResponse](t, rec).Updated != 0 {
		t.Fatalf("mark completed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	const secret = "handler-test-secret"
	h := newTestRouter(t, func(rc *RouterConfig) { rc.JWTSecret = secret })

	rec := do(t, h, http.MethodGet, "/api/doctors", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	if rec := do(t, h, http.MethodGet, "/health/live", nil); rec.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rec.Code)
	}

	sess, err := auth.Sign(secret, "frontdesk", nil, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	req.Header.Set("Authorization", sess.Authorization())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBookingRateLimit(t *testing.T) {
	h := newTestRouter(t, func(rc *RouterConfig) {
		rc.BookingRateLimit = 0.001
		rc.BookingRateBurst = 2
	})

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(t, h, http.MethodPost, "/api/appointments", map[string]string{}).Code)
	}
	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusBadRequest || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}

	// Reads are not limited.
	if rec := do(t, h, http.MethodGet, "/api/appointments", nil); rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
}
