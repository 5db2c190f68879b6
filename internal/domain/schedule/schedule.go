// Package schedule projects expected payment dates for a frequency and
// classifies an expected date against today.
//
// Month-based frequencies keep their anchor day-of-month and clamp it to the
// last day of shorter months: anchor 31 projected into February lands on the
// 28th or 29th, and the following projection returns to the 31st.
package schedule

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// DueSoonWindowDays is the number of days ahead of today within which an
// expected payment counts as due soon.
const DueSoonWindowDays = 5

// maxOccurrences bounds projection loops.
const maxOccurrences = 1000

// DueWindow classifies an expected date relative to today.
type DueWindow string

const (
	Overdue  DueWindow = "overdue"
	DueSoon  DueWindow = "due_soon"
	UpToDate DueWindow = "up_to_date"
)

// Status maps the window to the service status of the same name.
func (w DueWindow) Status() model.ServiceStatus {
	switch w {
	case Overdue:
		return model.StatusOverdue
	case DueSoon:
		return model.StatusDueSoon
	default:
		return model.StatusUpToDate
	}
}

// NextDate adds one frequency interval to from. For month-based frequencies
// the day-of-month is anchorDay (or from's day when anchorDay is 0), clamped
// to the last valid day of the resulting month.
func NextDate(freq model.Frequency, anchorDay int, from civil.Date) civil.Date {
	if days := freq.IntervalDays(); days > 0 {
		return from.AddDays(days)
	}

	months := freq.IntervalMonths()
	if months == 0 {
		// Unknown frequency: treat as monthly rather than stall.
		months = 1
	}
	if anchorDay <= 0 {
		anchorDay = from.Day
	}
	return addMonths(from, months, anchorDay)
}

// FirstOnOrAfter returns the first scheduled date on or after from. It is
// used when a service has no payment history to project from.
func FirstOnOrAfter(freq model.Frequency, anchorDay int, from civil.Date) civil.Date {
	if !freq.MonthBased() || anchorDay <= 0 {
		return from
	}
	candidate := addMonths(from, 0, anchorDay)
	if !candidate.Before(from) {
		return candidate
	}
	return NextDate(freq, anchorDay, candidate)
}

// Occurrences returns every projected date in [start, end], walking forward
// from first. For month-based frequencies without an anchor, first's day is
// used so that clamping in short months does not drift the schedule.
func Occurrences(freq model.Frequency, anchorDay int, first, start, end civil.Date) []civil.Date {
	if freq.MonthBased() && anchorDay <= 0 {
		anchorDay = first.Day
	}

	var dates []civil.Date
	d := first
	for i := 0; i < maxOccurrences && !d.After(end); i++ {
		if !d.Before(start) {
			dates = append(dates, d)
		}
		d = NextDate(freq, anchorDay, d)
	}
	return dates
}

// ClassifyDueWindow returns Overdue when next is before today, DueSoon when
// next is within DueSoonWindowDays of today (inclusive), and UpToDate
// otherwise.
func ClassifyDueWindow(today, next civil.Date) DueWindow {
	if next.Before(today) {
		return Overdue
	}
	if !next.After(today.AddDays(DueSoonWindowDays)) {
		return DueSoon
	}
	return UpToDate
}

// AddMonths shifts d by n calendar months keeping its day, clamped to the
// target month's length.
func AddMonths(d civil.Date, n int) civil.Date {
	return addMonths(d, n, d.Day)
}

// DaysBetween returns b - a in days.
func DaysBetween(a, b civil.Date) int {
	return b.DaysSince(a)
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(year int, month time.Month) (civil.Date, civil.Date) {
	first := civil.Date{Year: year, Month: month, Day: 1}
	last := civil.Date{Year: year, Month: month, Day: daysIn(year, month)}
	return first, last
}

func addMonths(d civil.Date, n, day int) civil.Date {
	// time.Date normalises month overflow; day 1 avoids spilling into the
	// following month before clamping.
	t := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := daysIn(t.Year(), t.Month())
	if day > last {
		day = last
	}
	return civil.Date{Year: t.Year(), Month: t.Month(), Day: day}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
