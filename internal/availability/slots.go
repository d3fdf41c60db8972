package availability

import (
	"iter"
	"slices"
	"time"
)

// Booking is the part of an existing appointment the resolver needs.
type Booking struct {
	Time      string
	Cancelled bool
}

// Slots yields the bookable start times of a doctor's day in ascending
// order. Each call walks the working hours afresh, so the sequence can be
// ranged over any number of times.
//
// Nothing is yielded on a non-working or unavailable day, for an empty
// working interval, or for a non-positive slot length. A trailing step
// that would run past the end of working hours is dropped, and a step
// starting inside the break is skipped.
func Slots(s Schedule, date time.Time, slotMinutes int) iter.Seq[TimeOfDay] {
	return func(yield func(TimeOfDay) bool) {
		if slotMinutes <= 0 || s.WorkingHours.IsEmpty() {
			return
		}
		if !IsWorkingDay(s, date) || IsUnavailable(s, date) {
			return
		}

		// Bounded by the last start that still fits, so a huge slot length
		// cannot overflow the step.
		if slotMinutes > int(s.WorkingHours.End-s.WorkingHours.Start) {
			return
		}
		last := s.WorkingHours.End - TimeOfDay(slotMinutes)

		for t := s.WorkingHours.Start; t <= last; t = t.Add(slotMinutes) {
			if s.Break.Contains(t) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

func ComputeSlots(s Schedule, date time.Time, slotMinutes int) []TimeOfDay {
	return slices.Collect(Slots(s, date, slotMinutes))
}

// FilterAvailable drops every slot whose "HH:MM" form exactly matches a
// non-cancelled booking. Bookings that do not sit on a slot boundary
// remove nothing.
func FilterAvailable(slots []TimeOfDay, booked []Booking) []TimeOfDay {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		if b.Cancelled {
			continue
		}
		taken[b.Time] = struct{}{}
	}

	out := make([]TimeOfDay, 0, len(slots))
	for _, slot := range slots {
		if _, ok := taken[slot.String()]; ok {
			continue
		}
		out = append(out, slot)
	}
	return out
}

// OffBoundary returns the non-cancelled bookings whose time is not one of
// the given slots. These are typically appointments made under an older
// schedule.
func OffBoundary(slots []TimeOfDay, booked []Booking) []Booking {
	valid := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		valid[slot.String()] = struct{}{}
	}

	var out []Booking
	for _, b := range booked {
		if b.Cancelled {
			continue
		}
		if _, ok := valid[b.Time]; !ok {
			out = append(out, b)
		}
	}
	return out
}
