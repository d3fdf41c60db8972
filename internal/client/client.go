// Package client is a typed HTTP client for the scheduling API. It holds
// no credentials: every call takes the caller's auth.Session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hackgods/hospital-appointment-scheduling/internal/auth"
)

type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Doctor struct {
	ID                  string     `json:"id"`
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

type Patient struct {
	ID        string `json:"id"`
	PatientID string `json:"patientId"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type Appointment struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointmentId"`
	DoctorID      string `json:"doctorId"`
	PatientID     string `json:"patientId"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
	Motif         string `json:"motif"`
	DoctorName    string `json:"doctorName,omitempty"`
	PatientName   string `json:"patientName,omitempty"`
}

type BookingRequest struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Motif     string `json:"motif"`
}

// APIError is a non-2xx response decoded from the API error body.
type APIError struct {
	Status  int
	Code    string `json:"error"`
	Details string `json:"details"`
	Field   string `json:"field"`
	Weekday string `json:"weekday"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error %d %s", e.Status, e.Code)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// IsConflict reports whether err is a 409 from the API, which for bookings
// means the slot was taken or is being booked.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, sess auth.Session, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h := sess.Authorization(); h != "" {
		req.Header.Set("Authorization", h)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Details = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// AvailableSlots returns the free "HH:MM" start times of a doctor on a
// YYYY-MM-DD date.
func (c *Client) AvailableSlots(ctx context.Context, sess auth.Session, doctorRef, date string) ([]string, error) {
	var slots []string
	path := "/api/appointments/availability/" + url.PathEscape(doctorRef) + "?date=" + url.QueryEscape(date)
	if err := c.do(ctx, sess, http.MethodGet, path, nil, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *Client) GetDoctor(ctx context.Context, sess auth.Session, ref string) (*Doctor, error) {
	var d Doctor
	if err := c.do(ctx, sess, http.MethodGet, "/api/doctors/"+url.PathEscape(ref), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) ListDoctors(ctx context.Context, sess auth.Session) ([]Doctor, error) {
	var ds []Doctor
	if err := c.do(ctx, sess, http.MethodGet, "/api/doctors", nil, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (c *Client) ListPatients(ctx context.Context, sess auth.Session, name string) ([]Patient, error) {
	path := "/api/patients"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}
	var ps []Patient
	if err := c.do(ctx, sess, http.MethodGet, path, nil, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (c *Client) Book(ctx context.Context, sess auth.Session, req BookingRequest) (*Appointment, error) {
	var a Appointment
	if err := c.do(ctx, sess, http.MethodPost, "/api/appointments", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

type RescheduleRequest struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Motif string `json:"motif,omitempty"`
}

func (c *Client) Reschedule(ctx context.Context, sess auth.Session, ref string, req RescheduleRequest) (*Appointment, error) {
	var a Appointment
	if err := c.do(ctx, sess, http.MethodPut, "/api/appointments/"+url.PathEscape(ref), req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) Cancel(ctx context.Context, sess auth.Session, ref string) (*Appointment, error) {
	var a Appointment
	if err := c.do(ctx, sess, http.MethodDelete, "/api/appointments/"+url.PathEscape(ref), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) GetAppointment(ctx context.Context, sess auth.Session, ref string) (*Appointment, error) {
	var a Appointment
	if err := c.do(ctx, sess, http.MethodGet, "/api/appointments/"+url.PathEscape(ref), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) PatientHistory(ctx context.Context, sess auth.Session, patientRef string) ([]Appointment, error) {
	var as []Appointment
	path := "/api/appointments/patient/" + url.PathEscape(patientRef) + "/history"
	if err := c.do(ctx, sess, http.MethodGet, path, nil, &as); err != nil {
		return nil, err
	}
	return as, nil
}
