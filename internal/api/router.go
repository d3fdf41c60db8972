package api

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-appointment-scheduling/internal/appointment"
	"github.com/hackgods/hospital-appointment-scheduling/internal/auth"
)

type RouterConfig struct {
	Service *appointment.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string

	// JWTSecret enables bearer auth on /api when set.
	JWTSecret string

	BookingRateLimit float64
	BookingRateBurst int

	// TrustedProxies lists the peers whose X-Forwarded-For is believed.
	TrustedProxies []netip.Prefix
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Service
	limitBooking := RateLimitMiddleware(cfg.BookingRateLimit, cfg.BookingRateBurst, cfg.TrustedProxies)

	r.Route("/api", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(auth.Middleware(auth.NewVerifier(cfg.JWTSecret)))
			r.Use(SubjectLogMiddleware)
		}

		r.Route("/doctors", func(r chi.Router) {
			r.Get("/", listDoctorsHandler(svc))
			r.Post("/", createDoctorHandler(svc))
			r.Get("/{id}", getDoctorHandler(svc))
			r.Put("/{id}", updateDoctorHandler(svc))
			r.Delete("/{id}", deleteDoctorHandler(svc))
		})

		r.Route("/frontdesk/doctors", func(r chi.Router) {
			r.Get("/", listFrontDeskDoctorsHandler(svc))
			r.Post("/", createFrontDeskDoctorHandler(svc))
			r.Get("/{id}", getFrontDeskDoctorHandler(svc))
			r.Put("/{id}", updateFrontDeskDoctorHandler(svc))
		})

		r.Route("/patients", func(r chi.Router) {
			r.Get("/", listPatientsHandler(svc))
			r.Post("/", createPatientHandler(svc))
			r.Get("/{id}", getPatientHandler(svc))
			r.Put("/{id}", updatePatientHandler(svc))
			r.Delete("/{id}", deletePatientHandler(svc))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", listAppointmentsHandler(svc))
			r.With(limitBooking).Post("/", createAppointmentHandler(svc))
			r.Get("/availability/{doctorId}", availabilityHandler(svc))
			r.Get("/doctor/{doctorId}/dashboard", doctorDashboardHandler(svc))
			r.Get("/patient/{patientId}/history", patientHistoryHandler(svc))
			r.Post("/maintenance/mark-past-completed", markPastCompletedHandler(svc))
			r.Get("/{id}", getAppointmentHandler(svc))
			r.With(limitBooking).Put("/{id}", rescheduleAppointmentHandler(svc))
			r.Delete("/{id}", cancelAppointmentHandler(svc))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/appointments-by-date", appointmentsByDateHandler(svc))
			r.Get("/appointments-per-doctor", appointmentsPerDoctorHandler(svc))
			r.Get("/appointments-per-specialty", appointmentsPerSpecialtyHandler(svc))
			r.Get("/frequent-patients", frequentPatientsHandler(svc))
		})

		r.Get("/notifications", listNotificationsHandler(svc))
	})

	return r
}
