package appointment

import (
	"context"
	"fmt"
	"strings"

	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
)

const notificationListLimit = 50

// notifyBooked records an email and an SMS for both the doctor and the
// patient, skipping any channel without contact data. Failures are logged
// and never fail the booking.
func (s *Service) notifyBooked(ctx context.Context, appt *Appointment, doctor *Doctor, patient *Patient) {
	date := availability.FormatDate(appt.Date)

	toDoctor := fmt.Sprintf("Appointment on %s at %s with patient %s.", date, appt.Time, patient.Name)
	toPatient := fmt.Sprintf("Your appointment with Dr %s is scheduled on %s at %s.", doctor.Name, date, appt.Time)

	out := []Notification{
		{Channel: ChannelEmail, RecipientType: RecipientDoctor, RecipientName: doctor.Name, Contact: doctor.Email, Message: toDoctor},
		{Channel: ChannelSMS, RecipientType: RecipientDoctor, RecipientName: doctor.Name, Contact: doctor.Phone, Message: toDoctor},
		{Channel: ChannelEmail, RecipientType: RecipientPatient, RecipientName: patient.Name, Contact: patient.Email, Message: toPatient},
		{Channel: ChannelSMS, RecipientType: RecipientPatient, RecipientName: patient.Name, Contact: patient.Phone, Message: toPatient},
	}

	for _, n := range out {
		if strings.TrimSpace(n.Contact) == "" {
			continue
		}
		id := appt.ID
		n.AppointmentID = &id
		n.CreatedAt = s.now()

		if err := s.repo.InsertNotification(ctx, n); err != nil {
			s.log.Error().Err(err).
				Str("appointment", appt.Code).
				Str("channel", string(n.Channel)).
				Msg("failed to record notification")
			continue
		}
		s.log.Debug().
			Str("channel", string(n.Channel)).
			Str("recipient", string(n.RecipientType)).
			Str("contact", n.Contact).
			Msg("notification recorded")
	}
}

// RecentNotifications returns the most recent notifications, newest first.
func (s *Service) RecentNotifications(ctx context.Context) ([]Notification, error) {
	ns, err := s.repo.ListNotifications(ctx, notificationListLimit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}
