// Package warranty derives warranty end dates, remaining days and status from
// a purchase date and a warranty length in months. Nothing here is persisted;
// every value is recomputed from the stored dates and a reference "today".
package warranty

import (
	"math"
	"time"
)

// Status is the tri-state warranty status.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
)

const (
	// DefaultMonths applies when an appliance has no warranty length.
	DefaultMonths = 12
	// ExpiringWindowDays is the inclusive upper bound of the expiring state.
	ExpiringWindowDays = 60
)

// Result is the derived warranty state of one appliance.
type Result struct {
	EndDate   *time.Time
	DaysLeft  *int
	TotalDays *int
	Status    Status
	// Known is false when the purchase date is missing and Status is the
	// optimistic default.
	Known bool
}

// Compute derives the warranty state. today is taken as the calendar date in
// its own location, purchase as a stored date. A missing purchase date yields
// an active status with no end date. months below 1 fall back to DefaultMonths.
func Compute(purchase *time.Time, months int, today time.Time) Result {
	if purchase == nil {
		return Result{Status: StatusActive}
	}
	if months < 1 {
		months = DefaultMonths
	}

	start := StoredDate(*purchase)
	end := AddMonths(start, months)
	left := DaysBetween(DateOf(today), end)
	total := DaysBetween(start, end)

	return Result{
		EndDate:   &end,
		DaysLeft:  &left,
		TotalDays: &total,
		Status:    StatusFor(left),
		Known:     true,
	}
}

// StatusFor buckets a remaining-day count: expired at 0 or below, expiring up
// to and including ExpiringWindowDays, active beyond.
func StatusFor(daysLeft int) Status {
	switch {
	case daysLeft <= 0:
		return StatusExpired
	case daysLeft <= ExpiringWindowDays:
		return StatusExpiring
	default:
		return StatusActive
	}
}

// ProgressPercent is the share of the warranty period already elapsed, for
// progress bars. It never drops below 5 so new purchases still show a sliver.
func (r Result) ProgressPercent() int {
	if !r.Known || r.DaysLeft == nil || r.TotalDays == nil || *r.TotalDays <= 0 {
		if r.Status == StatusExpired {
			return 100
		}
		return 50
	}
	if r.Status == StatusExpired {
		return 100
	}
	total := float64(*r.TotalDays)
	elapsed := total - float64(max(0, *r.DaysLeft))
	pct := int(math.Round(elapsed / total * 100))
	return min(100, max(5, pct))
}

// RemainingDays returns DaysLeft clamped at zero, or 0 when unknown.
func (r Result) RemainingDays() int {
	if r.DaysLeft == nil {
		return 0
	}
	return max(0, *r.DaysLeft)
}

// AddMonths adds n calendar months to t. A day that does not exist in the
// target month clamps to that month's last day (Jan 31 + 1 month = Feb 28).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// MonthsBetween returns the calendar distance from start to end rounded to
// the nearest whole month. It is used when a warranty length has to be
// recovered from two stored dates.
func MonthsBetween(start, end time.Time) int {
	start, end = StoredDate(start), StoredDate(end)
	if end.Before(start) {
		return -MonthsBetween(end, start)
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	for months > 0 && AddMonths(start, months).After(end) {
		months--
	}
	lower := AddMonths(start, months)
	upper := AddMonths(start, months+1)
	if 2*DaysBetween(lower, end) >= DaysBetween(lower, upper) {
		months++
	}
	return months
}

// DateOf drops the clock part of t, keeping the calendar date seen in t's
// own location, and returns it as UTC midnight. Use it to turn "now" in the
// configured timezone into today.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StoredDate is the calendar date of a persisted date. Dates are written as
// UTC midnight, and drivers may hand them back in the server's local zone,
// so the date is always read in UTC.
func StoredDate(t time.Time) time.Time {
	return DateOf(t.UTC())
}

// DaysBetween counts calendar days from a to b; negative when b precedes a.
// Both are read as stored dates; pass today through DateOf first.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(StoredDate(b).Sub(StoredDate(a)).Hours() / 24))
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
