package api

import (
	"net/http"
	"strconv"

	"github.com/hackgods/hospital-appointment-scheduling/internal/appointment"
	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
)

func appointmentsByDateHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := queryDate(w, r, "date")
		if !ok {
			return
		}
		day := svc.Today()
		if date != nil {
			day = *date
		}

		rows, err := svc.AppointmentsByDate(r.Context(), day)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		out := make([]AppointmentReportResponse, len(rows))
		for i, row := range rows {
			out[i] = AppointmentReportResponse{
				ID:            row.ID,
				AppointmentID: row.Code,
				PatientID:     row.PatientID,
				PatientName:   row.PatientName,
				DoctorID:      row.DoctorID,
				DoctorName:    row.DoctorName,
				Date:          availability.FormatDate(row.Date),
				Time:          row.Time,
				Status:        string(row.Status),
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func appointmentsPerDoctorHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, ok := requireDate(w, r, "from")
		if !ok {
			return
		}
		to, ok := requireDate(w, r, "to")
		if !ok {
			return
		}

		counts, err := svc.AppointmentsPerDoctor(r.Context(), from, to)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		out := make([]DoctorCountResponse, len(counts))
		for i, c := range counts {
			id := c.DoctorCode
			if id == "" {
				id = c.DoctorID.String()
			}
			out[i] = DoctorCountResponse{DoctorID: id, DoctorName: c.DoctorName, Count: c.Count}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func appointmentsPerSpecialtyHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, ok := requireDate(w, r, "from")
		if !ok {
			return
		}
		to, ok := requireDate(w, r, "to")
		if !ok {
			return
		}

		counts, err := svc.AppointmentsPerSpecialty(r.Context(), from, to)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		out := make([]SpecialtyCountResponse, len(counts))
		for i, c := range counts {
			out[i] = SpecialtyCountResponse{Specialty: c.Specialty, Count: c.Count}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func frequentPatientsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, ok := requireDate(w, r, "from")
		if !ok {
			return
		}

		minCount := appointment.DefaultFrequentMinCount
		if raw := r.URL.Query().Get("minCount"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid_min_count", "minCount must be a positive integer")
				return
			}
			minCount = n
		}

		counts, err := svc.FrequentPatients(r.Context(), from, minCount)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		out := make([]PatientCountResponse, len(counts))
		for i, c := range counts {
			id := c.PatientCode
			if id == "" {
				id = c.PatientID.String()
			}
			out[i] = PatientCountResponse{PatientID: id, PatientName: c.PatientName, Count: c.Count}
		}
		writeJSON(w, http.StatusOK, out)
	}
}
