package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/hospital-appointment-scheduling/internal/appointment"
)

// Doctors, canonical shape

func listDoctorsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context(), appointment.DoctorFilter{
			Name:           r.URL.Query().Get("name"),
			Specialization: r.URL.Query().Get("specialty"),
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		out := make([]DoctorResponse, len(doctors))
		for i := range doctors {
			out[i] = toDoctorResponse(&doctors[i])
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getDoctorHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.ResolveDoctor(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponse(d))
	}
}

func createDoctorHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DoctorRequest
		if !decodeBody(w, r, &req) {
			return
		}
		in, err := req.input()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		d, err := svc.CreateDoctor(r.Context(), in)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDoctorResponse(d))
	}
}

func updateDoctorHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DoctorRequest
		if !decodeBody(w, r, &req) {
			return
		}
		in, err := req.input()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		d, err := svc.UpdateDoctor(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponse(d))
	}
}

func deleteDoctorHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteDoctor(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Doctors, front-desk shape

func listFrontDeskDoctorsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context(), appointment.DoctorFilter{
			Name:           r.URL.Query().Get("name"),
			Specialization: r.URL.Query().Get("specialty"),
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		out := make([]FrontDeskDoctorResponse, len(doctors))
		for i := range doctors {
			out[i] = toFrontDeskDoctorResponse(&doctors[i])
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getFrontDeskDoctorHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.ResolveDoctor(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toFrontDeskDoctorResponse(d))
	}
}

func createFrontDeskDoctorHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FrontDeskDoctorRequest
		if !decodeBody(w, r, &req) {
			return
		}
		in, err := req.input()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		d, err := svc.CreateDoctor(r.Context(), in)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toFrontDeskDoctorResponse(d))
	}
}

func updateFrontDeskDoctorHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FrontDeskDoctorRequest
		if !decodeBody(w, r, &req) {
			return
		}
		in, err := req.input()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		d, err := svc.UpdateDoctor(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toFrontDeskDoctorResponse(d))
	}
}

// Patients

func listPatientsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := svc.ListPatients(r.Context(), r.URL.Query().Get("name"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		out := make([]PatientResponse, len(patients))
		for i := range patients {
			out[i] = toPatientResponse(&patients[i])
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getPatientHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.ResolvePatient(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func createPatientHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PatientRequest
		if !decodeBody(w, r, &req) {
			return
		}
		in, err := req.input()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		p, err := svc.CreatePatient(r.Context(), in)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPatientResponse(p))
	}
}

func updatePatientHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PatientRequest
		if !decodeBody(w, r, &req) {
			return
		}
		in, err := req.input()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		p, err := svc.UpdatePatient(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func deletePatientHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeletePatient(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
