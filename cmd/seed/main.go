package main

import (
	"context"
	"errors"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-appointment-scheduling/internal/appointment"
	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
	"github.com/hackgods/hospital-appointment-scheduling/internal/config"
	"github.com/hackgods/hospital-appointment-scheduling/internal/db"
	"github.com/hackgods/hospital-appointment-scheduling/internal/logging"
	redisclient "github.com/hackgods/hospital-appointment-scheduling/internal/redis"
)

const (
	doctorCount      = 40
	patientCount     = 5000
	appointmentCount = 1500
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var motifs = []string{
	"Annual checkup",
	"Follow-up visit",
	"Chest pain",
	"Skin rash",
	"Back pain",
	"Vaccination",
	"Prescription renewal",
	"Headaches",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("prod", "seed")
		bootLog.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, "seed")
	if cfg.Store != config.StorePostgres {
		logger.Fatal().Msg("seed needs STORE=postgres and POSTGRES_DSN")
	}
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	// Seeding is single-process, so the in-process slot lock is enough.
	svc := appointment.NewService(appointment.NewPgRepository(pool), redisclient.NewLocalSlotLocker(), cfg, zerolog.Nop())
	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	work := context.Background()
	doctors, err := seedDoctors(work, svc, faker, logger, doctorCount)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}
	patients, err := seedPatients(work, pool, faker, logger, patientCount)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedAppointments(work, svc, faker, logger, doctors, patients, appointmentCount); err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}

	logger.Info().Msg("seed complete")
}

// randomSchedule returns weekday working days and one of a few common
// working-day shapes.
func randomSchedule(faker *gofakeit.Faker) (days []string, hours, brk availability.Interval, slot int) {
	weekdays := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	for _, d := range weekdays {
		if d == "Saturday" && faker.Number(0, 3) != 0 {
			continue
		}
		if faker.Number(0, 4) == 0 {
			continue
		}
		days = append(days, d)
	}
	if len(days) == 0 {
		days = []string{"Monday"}
	}

	shapes := []struct{ start, end, breakStart, breakEnd string }{
		{"09:00", "17:00", "12:00", "13:00"},
		{"08:00", "16:00", "12:00", "12:30"},
		{"10:00", "18:00", "13:00", "14:00"},
		{"08:30", "12:30", "", ""},
	}
	sh := shapes[faker.Number(0, len(shapes)-1)]
	hours, _ = availability.ParseInterval(sh.start, sh.end)
	if sh.breakStart != "" {
		brk, _ = availability.ParseInterval(sh.breakStart, sh.breakEnd)
	}

	slots := []int{15, 20, 30, 30, 45}
	return days, hours, brk, slots[faker.Number(0, len(slots)-1)]
}

func seedDoctors(ctx context.Context, svc *appointment.Service, faker *gofakeit.Faker, logger zerolog.Logger, count int) ([]appointment.Doctor, error) {
	logger.Info().Int("count", count).Msg("seeding doctors")

	doctors := make([]appointment.Doctor, 0, count)
	for i := 0; i < count; i++ {
		days, hours, brk, slot := randomSchedule(faker)

		var off []time.Time
		for j := faker.Number(0, 3); j > 0; j-- {
			off = append(off, svc.Today().AddDate(0, 0, faker.Number(1, 60)))
		}

		d, err := svc.CreateDoctor(ctx, appointment.DoctorInput{
			Name:             "Dr. " + faker.Name(),
			Specialization:   specialties[faker.Number(0, len(specialties)-1)],
			Email:            faker.Email(),
			Phone:            faker.Phone(),
			WorkingDays:      days,
			WorkingHours:     hours,
			Break:            brk,
			SlotMinutes:      slot,
			UnavailableDates: off,
		})
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, *d)
	}

	logger.Info().Msg("doctors seeded")
	return doctors, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, logger zerolog.Logger, count int) ([]uuid.UUID, error) {
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500
	ids := make([]uuid.UUID, 0, count)
	genders := []string{"M", "F"}

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			dob := faker.DateRange(time.Now().AddDate(-90, 0, 0), time.Now().AddDate(-1, 0, 0))

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, code, name, dob, gender, phone, email, address)
				VALUES ($1, 'P' || lpad(nextval('patient_code_seq')::text, 4, '0'), $2, $3, $4, $5, $6, $7)
			`, id, faker.Name(), dob, genders[faker.Number(0, 1)], faker.Phone(), faker.Email(), faker.Address().Address)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		logger.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return ids, nil
}

// seedAppointments books through the service so every seeded appointment
// passes the same checks as an API booking. Rejected picks are skipped.
func seedAppointments(ctx context.Context, svc *appointment.Service, faker *gofakeit.Faker, logger zerolog.Logger, doctors []appointment.Doctor, patients []uuid.UUID, count int) error {
	if len(doctors) == 0 || len(patients) == 0 {
		return nil
	}
	logger.Info().Int("target", count).Msg("seeding appointments")

	booked, rejected := 0, 0
	for attempt := 0; booked < count && attempt < count*4; attempt++ {
		d := doctors[faker.Number(0, len(doctors)-1)]
		date := svc.Today().AddDate(0, 0, faker.Number(1, 30))

		slots, err := svc.AvailableSlots(ctx, d.ID.String(), date)
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			rejected++
			continue
		}

		_, err = svc.BookAppointment(ctx, availability.Request{
			PatientID: patients[faker.Number(0, len(patients)-1)].String(),
			DoctorID:  d.ID.String(),
			Date:      availability.FormatDate(date),
			Time:      slots[faker.Number(0, len(slots)-1)].String(),
			Motif:     motifs[faker.Number(0, len(motifs)-1)],
		})
		var rej *availability.RejectionError
		switch {
		case err == nil:
			booked++
		case errors.As(err, &rej):
			rejected++
		default:
			return err
		}
	}

	logger.Info().Int("booked", booked).Int("rejected", rejected).Msg("appointments seeded")
	return nil
}
