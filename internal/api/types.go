package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-scheduling/internal/appointment"
	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
	"github.com/hackgods/hospital-appointment-scheduling/internal/translate"
)

type TimeRange struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

type SplitHours struct {
	Morning   TimeRange `json:"morning" validate:"required"`
	Afternoon TimeRange `json:"afternoon" validate:"required"`
}

type DoctorRequest struct {
	Name                string     `json:"name" validate:"required,min=2,max=120"`
	Specialization      string     `json:"specialization" validate:"max=120"`
	Email               string     `json:"email" validate:"omitempty,email"`
	Phone               string     `json:"phone" validate:"omitempty,min=6,max=20"`
	WorkingDays         []string   `json:"workingDays" validate:"required,min=1,dive,required"`
	WorkingHours        *TimeRange `json:"workingHours"`
	BreakTime           *TimeRange `json:"breakTime"`
	AppointmentDuration int        `json:"appointmentDuration" validate:"omitempty,min=5,max=480"`
	UnavailableDates    []string   `json:"unavailableDates" validate:"dive,datetime=2006-01-02"`
}

// FrontDeskDoctorRequest is the split morning/afternoon shape with
// French weekday labels.
type FrontDeskDoctorRequest struct {
	Name                string      `json:"name" validate:"required,min=2,max=120"`
	Specialization      string      `json:"specialization" validate:"max=120"`
	Email               string      `json:"email" validate:"omitempty,email"`
	Phone               string      `json:"phone" validate:"omitempty,min=6,max=20"`
	WorkingDays         []string    `json:"workingDays" validate:"required,min=1,dive,required"`
	WorkingHours        *SplitHours `json:"workingHours"`
	AppointmentDuration int         `json:"appointmentDuration" validate:"omitempty,min=5,max=480"`
	UnavailableDates    []string    `json:"unavailableDates" validate:"dive,datetime=2006-01-02"`
}

type DoctorResponse struct {
	ID                  uuid.UUID  `json:"id"`
	DoctorID            string     `json:"doctorId"`
	Name                string     `json:"name"`
	Specialization      string     `json:"specialization"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	WorkingDays         []string   `json:"workingDays"`
	WorkingHours        TimeRange  `json:"workingHours"`
	BreakTime           *TimeRange `json:"breakTime"`
	AppointmentDuration int        `json:"appointmentDuration"`
	UnavailableDates    []string   `json:"unavailableDates"`
}

type FrontDeskDoctorResponse struct {
	ID                  uuid.UUID  `json:"id"`
	DoctorID            string     `json:"doctorId"`
	Name                string     `json:"name"`
	Specialization      string     `json:"specialization"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	WorkingDays         []string   `json:"workingDays"`
	WorkingHours        SplitHours `json:"workingHours"`
	AppointmentDuration int        `json:"appointmentDuration"`
	UnavailableDates    []string   `json:"unavailableDates"`
}

type PatientRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender" validate:"max=20"`
	Phone       string `json:"phone" validate:"omitempty,min=6,max=20"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address" validate:"max=250"`
}

type PatientResponse struct {
	ID          uuid.UUID `json:"id"`
	PatientID   string    `json:"patientId"`
	Name        string    `json:"name"`
	DateOfBirth *string   `json:"dateOfBirth"`
	Gender      string    `json:"gender"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
}

// BookAppointmentRequest carries no validation tags: presence is checked by
// the resolver so the caller gets the missing_field code and field name.
type BookAppointmentRequest struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Motif     string `json:"motif"`
}

type RescheduleRequest struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Motif string `json:"motif"`
}

type AppointmentResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID string    `json:"appointmentId"`
	DoctorID      uuid.UUID `json:"doctorId"`
	PatientID     uuid.UUID `json:"patientId"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
	Motif         string    `json:"motif"`
	DoctorName    string    `json:"doctorName,omitempty"`
	PatientName   string    `json:"patientName,omitempty"`
}

type DashboardResponse struct {
	DoctorID          string                `json:"doctorId"`
	TodayAppointments []AppointmentResponse `json:"todayAppointments"`
	Stats             DashboardStats        `json:"stats"`
}

type DashboardStats struct {
	TodayCount int `json:"todayCount"`
	Upcoming   int `json:"upcoming"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

type AppointmentReportResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID string    `json:"appointmentId"`
	PatientID     uuid.UUID `json:"patientId"`
	PatientName   string    `json:"patientName"`
	DoctorID      uuid.UUID `json:"doctorId"`
	DoctorName    string    `json:"doctorName"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
}

type DoctorCountResponse struct {
	DoctorID   string `json:"doctorId"`
	DoctorName string `json:"doctorName"`
	Count      int    `json:"count"`
}

type SpecialtyCountResponse struct {
	Specialty string `json:"specialty"`
	Count     int    `json:"count"`
}

type PatientCountResponse struct {
	PatientID   string `json:"patientId"`
	PatientName string `json:"patientName"`
	Count       int    `json:"count"`
}

type NotificationResponse struct {
	ID            int64      `json:"id"`
	Channel       string     `json:"channel"`
	RecipientType string     `json:"recipientType"`
	RecipientName string     `json:"recipientName"`
	Contact       string     `json:"contact"`
	Message       string     `json:"message"`
	AppointmentID *uuid.UUID `json:"appointmentId,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

type CompletedResponse struct {
	Updated int `json:"updated"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
	Weekday string `json:"weekday,omitempty"`
}

// Conversions

func toTimeRange(iv availability.Interval) TimeRange {
	return TimeRange{Start: iv.Start.String(), End: iv.End.String()}
}

func parseTimeRange(tr *TimeRange) (availability.Interval, error) {
	if tr == nil {
		return availability.Interval{}, nil
	}
	return availability.ParseInterval(tr.Start, tr.End)
}

func formatDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = availability.FormatDate(d)
	}
	return out
}

func parseDates(ss []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(ss))
	for _, s := range ss {
		d, err := availability.ParseDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func toDoctorResponse(d *appointment.Doctor) DoctorResponse {
	resp := DoctorResponse{
		ID:                  d.ID,
		DoctorID:            d.Code,
		Name:                d.Name,
		Specialization:      d.Specialization,
		Email:               d.Email,
		Phone:               d.Phone,
		WorkingDays:         translate.WeekdayNames(d.WorkingDays),
		WorkingHours:        toTimeRange(d.WorkingHours),
		AppointmentDuration: d.SlotMinutes,
		UnavailableDates:    formatDates(d.UnavailableDates),
	}
	if d.Schedule().HasBreak() {
		br := toTimeRange(d.Break)
		resp.BreakTime = &br
	}
	return resp
}

func toFrontDeskDoctorResponse(d *appointment.Doctor) FrontDeskDoctorResponse {
	sp := translate.DefaultSplit()
	if !d.WorkingHours.IsEmpty() {
		sp = translate.ToSplit(d.WorkingHours, d.Break)
	}
	return FrontDeskDoctorResponse{
		ID:             d.ID,
		DoctorID:       d.Code,
		Name:           d.Name,
		Specialization: d.Specialization,
		Email:          d.Email,
		Phone:          d.Phone,
		WorkingDays:    translate.DaysToExternal(translate.WeekdayNames(d.WorkingDays)),
		WorkingHours: SplitHours{
			Morning:   toTimeRange(sp.Morning),
			Afternoon: toTimeRange(sp.Afternoon),
		},
		AppointmentDuration: d.SlotMinutes,
		UnavailableDates:    formatDates(d.UnavailableDates),
	}
}

func (req DoctorRequest) input() (appointment.DoctorInput, error) {
	hours, err := parseTimeRange(req.WorkingHours)
	if err != nil {
		return appointment.DoctorInput{}, err
	}
	brk, err := parseTimeRange(req.BreakTime)
	if err != nil {
		return appointment.DoctorInput{}, err
	}
	dates, err := parseDates(req.UnavailableDates)
	if err != nil {
		return appointment.DoctorInput{}, err
	}
	return appointment.DoctorInput{
		Name:             req.Name,
		Specialization:   req.Specialization,
		Email:            req.Email,
		Phone:            req.Phone,
		WorkingDays:      req.WorkingDays,
		WorkingHours:     hours,
		Break:            brk,
		SlotMinutes:      req.AppointmentDuration,
		UnavailableDates: dates,
	}, nil
}

func (req FrontDeskDoctorRequest) input() (appointment.DoctorInput, error) {
	sp := translate.DefaultSplit()
	if req.WorkingHours != nil {
		morning, err := parseTimeRange(&req.WorkingHours.Morning)
		if err != nil {
			return appointment.DoctorInput{}, err
		}
		afternoon, err := parseTimeRange(&req.WorkingHours.Afternoon)
		if err != nil {
			return appointment.DoctorInput{}, err
		}
		sp = translate.Split{Morning: morning, Afternoon: afternoon}
	}
	hours, brk := translate.FromSplit(sp)

	dates, err := parseDates(req.UnavailableDates)
	if err != nil {
		return appointment.DoctorInput{}, err
	}
	return appointment.DoctorInput{
		Name:             req.Name,
		Specialization:   req.Specialization,
		Email:            req.Email,
		Phone:            req.Phone,
		WorkingDays:      translate.DaysToCanonical(req.WorkingDays),
		WorkingHours:     hours,
		Break:            brk,
		SlotMinutes:      req.AppointmentDuration,
		UnavailableDates: dates,
	}, nil
}

func toPatientResponse(p *appointment.Patient) PatientResponse {
	resp := PatientResponse{
		ID:        p.ID,
		PatientID: p.Code,
		Name:      p.Name,
		Gender:    p.Gender,
		Phone:     p.Phone,
		Email:     p.Email,
		Address:   p.Address,
	}
	if p.DateOfBirth != nil {
		dob := availability.FormatDate(*p.DateOfBirth)
		resp.DateOfBirth = &dob
	}
	return resp
}

func (req PatientRequest) input() (appointment.PatientInput, error) {
	in := appointment.PatientInput{
		Name:    req.Name,
		Gender:  req.Gender,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	}
	if req.DateOfBirth != "" {
		dob, err := availability.ParseDate(req.DateOfBirth)
		if err != nil {
			return appointment.PatientInput{}, err
		}
		in.DateOfBirth = &dob
	}
	return in, nil
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		AppointmentID: a.Code,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Date:          availability.FormatDate(a.Date),
		Time:          a.Time,
		Status:        string(a.Status),
		Motif:         a.Motif,
	}
}

func toAppointmentResponses(as []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, len(as))
	for i := range as {
		out[i] = toAppointmentResponse(&as[i])
	}
	return out
}

func toNotificationResponse(n appointment.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		Channel:       string(n.Channel),
		RecipientType: string(n.RecipientType),
		RecipientName: n.RecipientName,
		Contact:       n.Contact,
		Message:       n.Message,
		AppointmentID: n.AppointmentID,
		Timestamp:     n.CreatedAt,
	}
}
