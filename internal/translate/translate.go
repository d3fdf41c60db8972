// Package translate converts doctor schedules between the canonical form
// used by the availability resolver and the front-desk representation,
// which splits the day into morning and afternoon ranges and labels
// weekdays in French.
package translate

import (
	"fmt"
	"time"

	"github.com/hackgods/hospital-appointment-scheduling/internal/availability"
)

var (
	DefaultWorkingHours = availability.Interval{
		Start: availability.NewTimeOfDay(9, 0),
		End:   availability.NewTimeOfDay(17, 0),
	}
	DefaultBreak = availability.Interval{
		Start: availability.NewTimeOfDay(12, 0),
		End:   availability.NewTimeOfDay(13, 0),
	}
)

var canonicalToFrench = map[string]string{
	"Monday":    "Lundi",
	"Tuesday":   "Mardi",
	"Wednesday": "Mercredi",
	"Thursday":  "Jeudi",
	"Friday":    "Vendredi",
	"Saturday":  "Samedi",
	"Sunday":    "Dimanche",
}

var frenchToCanonical = func() map[string]string {
	m := make(map[string]string, len(canonicalToFrench))
	for en, fr := range canonicalToFrench {
		m[fr] = en
	}
	return m
}()

// DayToExternal maps a canonical weekday name to its front-desk label.
// Unknown labels are returned unchanged.
func DayToExternal(label string) string {
	if fr, ok := canonicalToFrench[label]; ok {
		return fr
	}
	return label
}

// DayToCanonical maps a front-desk label to the canonical weekday name.
// Unknown labels are returned unchanged.
func DayToCanonical(label string) string {
	if en, ok := frenchToCanonical[label]; ok {
		return en
	}
	return label
}

func DaysToExternal(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = DayToExternal(l)
	}
	return out
}

func DaysToCanonical(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = DayToCanonical(l)
	}
	return out
}

// ParseWorkingDays resolves labels in either language into weekdays,
// sorted and de-duplicated. Any label that is neither a canonical nor a
// front-desk weekday is an error.
func ParseWorkingDays(labels []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(labels))
	for _, l := range labels {
		d, ok := availability.ParseWeekday(DayToCanonical(l))
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", l)
		}
		days = append(days, d)
	}
	return availability.NormalizeWeekdays(days), nil
}

func WeekdayNames(days []time.Weekday) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = availability.WeekdayName(d)
	}
	return out
}

// Split is the front-desk shape of a working day.
type Split struct {
	Morning   availability.Interval
	Afternoon availability.Interval
}

// FromSplit builds the canonical working hours and break. The break is the
// gap between morning end and afternoon start; when the two ranges overlap
// the gap is inverted and the result has no break.
func FromSplit(sp Split) (hours, brk availability.Interval) {
	hours = availability.Interval{Start: sp.Morning.Start, End: sp.Afternoon.End}
	brk = availability.Interval{Start: sp.Morning.End, End: sp.Afternoon.Start}
	if brk.IsEmpty() {
		brk = availability.Interval{}
	}
	return hours, brk
}

// ToSplit renders canonical hours as morning and afternoon. Without a
// break the whole day is the morning and the afternoon is empty at the
// closing time, which FromSplit reads back as no break.
func ToSplit(hours, brk availability.Interval) Split {
	if brk.IsEmpty() {
		return Split{
			Morning:   hours,
			Afternoon: availability.Interval{Start: hours.End, End: hours.End},
		}
	}
	return Split{
		Morning:   availability.Interval{Start: hours.Start, End: brk.Start},
		Afternoon: availability.Interval{Start: brk.End, End: hours.End},
	}
}

// DefaultSplit is the front-desk rendering used when a doctor has no
// working hours on record.
func DefaultSplit() Split {
	return ToSplit(DefaultWorkingHours, DefaultBreak)
}
