package availability

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// DefaultSlotMinutes is used when a schedule carries no slot duration.
const DefaultSlotMinutes = 30

// MaxSlotMinutes is the longest slot a schedule may use: one whole day.
const MaxSlotMinutes = 24 * 60

var (
	ErrNoWorkingDays       = errors.New("working days must not be empty")
	ErrInvalidWorkingHours = errors.New("working hours start must be before end")
	ErrBreakOutsideHours   = errors.New("break must lie inside working hours")
)

var weekdays = [...]time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday, time.Saturday,
}

// Schedule is the canonical form of a doctor's availability. Working days
// are time.Weekday values so no presentation label ever reaches slot logic.
type Schedule struct {
	DoctorID         string
	WorkingDays      []time.Weekday
	WorkingHours     Interval
	Break            Interval
	SlotMinutes      int
	UnavailableDates []time.Time
}

func (s Schedule) SlotDuration() int {
	if s.SlotMinutes <= 0 {
		return DefaultSlotMinutes
	}
	return s.SlotMinutes
}

// HasBreak reports whether the schedule has a usable break window. An
// inverted or zero-length break counts as no break.
func (s Schedule) HasBreak() bool {
	return !s.Break.IsEmpty()
}

func (s Schedule) Validate() error {
	if len(s.WorkingDays) == 0 {
		return ErrNoWorkingDays
	}
	if s.WorkingHours.IsEmpty() {
		return ErrInvalidWorkingHours
	}
	if !s.WorkingHours.Covers(s.Break) {
		return ErrBreakOutsideHours
	}
	return nil
}

// WeekdayName returns the canonical English name of a weekday.
func WeekdayName(d time.Weekday) string {
	return d.String()
}

// ParseWeekday resolves a canonical English weekday name, ignoring case.
func ParseWeekday(name string) (time.Weekday, bool) {
	name = strings.TrimSpace(name)
	for _, d := range weekdays {
		if strings.EqualFold(d.String(), name) {
			return d, true
		}
	}
	return 0, false
}

// NormalizeWeekdays sorts days Sunday-first and removes duplicates.
func NormalizeWeekdays(days []time.Weekday) []time.Weekday {
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}

func IsWorkingDay(s Schedule, date time.Time) bool {
	return slices.Contains(s.WorkingDays, date.Weekday())
}

// IsUnavailable reports whether date is one of the doctor's days off.
func IsUnavailable(s Schedule, date time.Time) bool {
	for _, d := range s.UnavailableDates {
		if sameDate(d, date) {
			return true
		}
	}
	return false
}
