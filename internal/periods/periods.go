// Package periods computes report period identities and windows.
//
// A period start is a calendar date. It is encoded as a time.Time at UTC
// midnight of the local date so that it compares and persists the same way
// regardless of the server's zone. Windows are half-open instant ranges
// [Start, End) in the report location.
package periods

import (
	"errors"
	"time"

	"github.com/tbourn/go-couple-reports/internal/domain"
)

// ErrInvalidWeek is returned by ISOWeekStart for a week the year does not have.
var ErrInvalidWeek = errors.New("invalid iso week")

// ErrInvalidMonth is returned for a month outside 1..12 or a non-positive year.
var ErrInvalidMonth = errors.New("invalid month")

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Empty reports whether the window covers no instant.
func (w Window) Empty() bool { return !w.Start.Before(w.End) }

// Date returns the UTC-midnight encoding of the calendar date of t in loc.
func Date(t time.Time, loc *time.Location) time.Time {
	lt := t.In(orUTC(loc))
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of the ISO week containing t in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	d := Date(t, loc)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return d.AddDate(0, 0, -offset)
}

// MonthStart returns the first day of the month containing t in loc.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	d := Date(t, loc)
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PreviousWeek returns the start of the week before the one containing now.
func PreviousWeek(now time.Time, loc *time.Location) time.Time {
	return WeekStart(now, loc).AddDate(0, 0, -7)
}

// PreviousMonth returns the start of the month before the one containing now.
func PreviousMonth(now time.Time, loc *time.Location) time.Time {
	return MonthStart(now, loc).AddDate(0, -1, 0)
}

// WeekWindow returns the instants of the week starting at weekStart in loc.
func WeekWindow(weekStart time.Time, loc *time.Location) Window {
	start := atLocalMidnight(weekStart, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthWindow returns the instants of the month starting at monthStart in loc.
func MonthWindow(monthStart time.Time, loc *time.Location) Window {
	start := atLocalMidnight(monthStart, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// ClampStart moves the window start forward to from when from is later.
// The monthly job uses it so pre-subscription history is never analyzed.
func (w Window) ClampStart(from time.Time) Window {
	if from.After(w.Start) {
		w.Start = from
	}
	return w
}

// ISOWeekStart returns the Monday of ISO week `week` of ISO year `year`.
func ISOWeekStart(year, week int) (time.Time, error) {
	if year < 1 || week < 1 || week > 53 {
		return time.Time{}, ErrInvalidWeek
	}
	// Jan 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := WeekStart(jan4, time.UTC).AddDate(0, 0, (week-1)*7)
	if y, w := monday.ISOWeek(); y != year || w != week {
		return time.Time{}, ErrInvalidWeek
	}
	return monday, nil
}

// MonthOf returns the month start for a (year, month) pair.
func MonthOf(year, month int) (time.Time, error) {
	if year < 1 || month < 1 || month > 12 {
		return time.Time{}, ErrInvalidMonth
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

// WeekOfMonth is the 1-based index of a date within its month in 7-day
// blocks: days 1-7 are week 1, 8-14 week 2, and so on.
func WeekOfMonth(d time.Time) int {
	return (d.Day()-1)/7 + 1
}

// Label builds the navigation label for a stored week start.
func Label(weekStart time.Time) domain.WeekLabel {
	iy, iw := weekStart.ISOWeek()
	return domain.WeekLabel{
		Year:        weekStart.Year(),
		Month:       int(weekStart.Month()),
		WeekOfMonth: WeekOfMonth(weekStart),
		ISOYear:     iy,
		ISOWeek:     iw,
		WeekStart:   weekStart,
	}
}

func atLocalMidnight(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, orUTC(loc))
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
