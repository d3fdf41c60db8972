package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/hospital-appointment-scheduling/internal/appointment"
	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
)

// queryDate reads an optional YYYY-MM-DD query parameter. It writes the 400
// itself and returns ok=false on a malformed value.
func queryDate(w http.ResponseWriter, r *http.Request, key string) (date *time.Time, ok bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, true
	}
	d, err := availability.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return nil, false
	}
	return &d, true
}

// requireDate is queryDate for mandatory parameters.
func requireDate(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	d, ok := queryDate(w, r, key)
	if !ok {
		return time.Time{}, false
	}
	if d == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   string(availability.ReasonMissingField),
			Details: "query parameter " + key + " is required",
			Field:   key,
		})
		return time.Time{}, false
	}
	return *d, true
}

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.BookAppointment(r.Context(), availability.Request{
			DoctorID:  req.DoctorID,
			PatientID: req.PatientID,
			Date:      req.Date,
			Time:      req.Time,
			Motif:     req.Motif,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RescheduleRequest
		if !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.RescheduleAppointment(r.Context(), chi.URLParam(r, "id"), req.Date, req.Time, req.Motif)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.CancelAppointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.GetAppointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		resp := toAppointmentResponse(&detail.Appointment)
		if detail.Doctor != nil {
			resp.DoctorName = detail.Doctor.Name
		}
		if detail.Patient != nil {
			resp.PatientName = detail.Patient.Name
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		date, ok := queryDate(w, r, "date")
		if !ok {
			return
		}

		appts, err := svc.ListAppointments(r.Context(), appointment.AppointmentQuery{
			DoctorRef:  q.Get("doctorId"),
			PatientRef: q.Get("patientId"),
			Date:       date,
			Status:     appointment.AppointmentStatus(strings.ToUpper(q.Get("status"))),
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func availabilityHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := requireDate(w, r, "date")
		if !ok {
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), chi.URLParam(r, "doctorId"), date)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		out := make([]string, len(slots))
		for i, s := range slots {
			out[i] = s.String()
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func doctorDashboardHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dash, err := svc.DoctorDashboard(r.Context(), chi.URLParam(r, "doctorId"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, DashboardResponse{
			DoctorID:          dash.DoctorCode,
			TodayAppointments: toAppointmentResponses(dash.TodayAppointments),
			Stats: DashboardStats{
				TodayCount: dash.Stats.TodayCount,
				Upcoming:   dash.Stats.Upcoming,
				Completed:  dash.Stats.Completed,
				Cancelled:  dash.Stats.Cancelled,
			},
		})
	}
}

func patientHistoryHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.PatientHistory(r.Context(), chi.URLParam(r, "patientId"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func markPastCompletedHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.CompletePastAppointments(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, CompletedResponse{Updated: n})
	}
}

func listNotificationsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, err := svc.RecentNotifications(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		out := make([]NotificationResponse, len(ns))
		for i, n := range ns {
			out[i] = toNotificationResponse(n)
		}
		writeJSON(w, http.StatusOK, out)
	}
}
