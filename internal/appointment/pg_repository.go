package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
)

const activeSlotConstraint = "appointments_active_slot_uniq"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const doctorColumns = `id, code, name, specialization, email, phone, working_days,
	work_start, work_end, break_start, break_end, slot_minutes, unavailable_dates,
	created_at, updated_at`

const patientColumns = `id, code, name, dob, gender, phone, email, address, created_at, updated_at`

const appointmentColumns = `id, code, doctor_id, patient_id, date, time, status, motif, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var days []string
	var workStart, workEnd string
	var breakStart, breakEnd *string

	err := row.Scan(
		&d.ID,
		&d.Code,
		&d.Name,
		&d.Specialization,
		&d.Email,
		&d.Phone,
		&days,
		&workStart,
		&workEnd,
		&breakStart,
		&breakEnd,
		&d.SlotMinutes,
		&d.UnavailableDates,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	for _, name := range days {
		wd, ok := availability.ParseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("doctor %s: stored weekday %q", d.Code, name)
		}
		d.WorkingDays = append(d.WorkingDays, wd)
	}

	d.WorkingHours, err = availability.ParseInterval(workStart, workEnd)
	if err != nil {
		return nil, fmt.Errorf("doctor %s: stored working hours: %w", d.Code, err)
	}
	if breakStart != nil && breakEnd != nil {
		d.Break, err = availability.ParseInterval(*breakStart, *breakEnd)
		if err != nil {
			return nil, fmt.Errorf("doctor %s: stored break: %w", d.Code, err)
		}
	}

	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var dob *time.Time

	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&dob,
		&p.Gender,
		&p.Phone,
		&p.Email,
		&p.Address,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.DateOfBirth = dob
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.Code,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&a.Time,
		&a.Status,
		&a.Motif,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		if isSlotConflict(err) {
			return nil, ErrSlotConflict
		}
		return nil, err
	}

	return &a, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeSlotConstraint
}

func breakColumns(brk availability.Interval) (start, end *string) {
	if brk.IsEmpty() {
		return nil, nil
	}
	s, e := brk.Start.String(), brk.End.String()
	return &s, &e
}

func unavailableDates(d Doctor) []time.Time {
	if d.UnavailableDates == nil {
		return []time.Time{}
	}
	return d.UnavailableDates
}

// Doctors

func (r *PgRepository) CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	breakStart, breakEnd := breakColumns(d.Break)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, code, name, specialization, email, phone, working_days,
			work_start, work_end, break_start, break_end, slot_minutes, unavailable_dates)
		VALUES ($1, 'D' || nextval('doctor_code_seq'), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+doctorColumns,
		uuid.New(), d.Name, d.Specialization, d.Email, d.Phone, weekdayNames(d.WorkingDays),
		d.WorkingHours.Start.String(), d.WorkingHours.End.String(), breakStart, breakEnd,
		d.SlotMinutes, unavailableDates(d))

	return scanDoctor(row)
}

func (r *PgRepository) UpdateDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	breakStart, breakEnd := breakColumns(d.Break)

	row := r.pool.QueryRow(ctx, `
		UPDATE doctors
		SET name = $2,
		    specialization = $3,
		    email = $4,
		    phone = $5,
		    working_days = $6,
		    work_start = $7,
		    work_end = $8,
		    break_start = $9,
		    break_end = $10,
		    slot_minutes = $11,
		    unavailable_dates = $12,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+doctorColumns,
		d.ID, d.Name, d.Specialization, d.Email, d.Phone, weekdayNames(d.WorkingDays),
		d.WorkingHours.Start.String(), d.WorkingHours.End.String(), breakStart, breakEnd,
		d.SlotMinutes, unavailableDates(d))

	return scanDoctor(row)
}

func (r *PgRepository) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByCode(ctx context.Context, code string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE upper(code) = upper($1)`, code)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR specialization ILIKE '%' || $2 || '%')
		ORDER BY code
	`, f.Name, f.Specialization)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDoctor)
}

// Patients

func (r *PgRepository) CreatePatient(ctx context.Context, p Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, code, name, dob, gender, phone, email, address)
		VALUES ($1, 'P' || lpad(nextval('patient_code_seq')::text, 4, '0'), $2, $3, $4, $5, $6, $7)
		RETURNING `+patientColumns,
		uuid.New(), p.Name, p.DateOfBirth, p.Gender, p.Phone, p.Email, p.Address)

	return scanPatient(row)
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE patients
		SET name = $2,
		    dob = $3,
		    gender = $4,
		    phone = $5,
		    email = $6,
		    address = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+patientColumns,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.Phone, p.Email, p.Address)

	return scanPatient(row)
}

func (r *PgRepository) DeletePatient(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetPatientByCode(ctx context.Context, code string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE upper(code) = upper($1)`, code)
	return scanPatient(row)
}

func (r *PgRepository) ListPatients(ctx context.Context, name string) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY code
	`, name)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPatient)
}

// Appointments

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, code, doctor_id, patient_id, date, time, status, motif, created_at, updated_at)
		VALUES ($1, 'A' || nextval('appointment_code_seq'), $2, $3, $4, $5, 'SCHEDULED', $6, now(), now())
		RETURNING `+appointmentColumns,
		uuid.New(), a.DoctorID, a.PatientID, a.Date, a.Time, a.Motif)

	return scanAppointment(row)
}

func (r *PgRepository) RescheduleAppointment(ctx context.Context, id uuid.UUID, date time.Time, hhmm, motif string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2,
		    time = $3,
		    motif = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'SCHEDULED'
		RETURNING `+appointmentColumns,
		id, date, hhmm, motif)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByCode(ctx context.Context, code string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE upper(code) = upper($1)`, code)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.DoctorID != nil {
		add("doctor_id = $%d", *f.DoctorID)
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.Date != nil {
		add("date = $%d", *f.Date)
	}
	if f.From != nil {
		add("date >= $%d", *f.From)
	}
	if f.To != nil {
		add("date <= $%d", *f.To)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date, time`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

func (r *PgRepository) CompletePastAppointments(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'COMPLETED',
		    updated_at = now()
		WHERE status = 'SCHEDULED'
		  AND date < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("complete past appointments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Notifications

func (r *PgRepository) InsertNotification(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (channel, recipient_type, recipient_name, contact, message, appointment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`, n.Channel, n.RecipientType, n.RecipientName, n.Contact, n.Message, n.AppointmentID, nullableTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (r *PgRepository) ListNotifications(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, channel, recipient_type, recipient_name, contact, message, appointment_id, created_at
		FROM notifications
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (*Notification, error) {
		var n Notification
		if err := row.Scan(&n.ID, &n.Channel, &n.RecipientType, &n.RecipientName, &n.Contact, &n.Message, &n.AppointmentID, &n.CreatedAt); err != nil {
			return nil, err
		}
		return &n, nil
	})
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func weekdayNames(days []time.Weekday) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = availability.WeekdayName(d)
	}
	return out
}
