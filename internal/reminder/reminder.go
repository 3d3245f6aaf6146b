// Package reminder schedules recurring maintenance tasks. Next-due dates
// advance by calendar months from the last completion; urgency is derived
// from the next-due date and today.
package reminder

import (
	"time"

	"appliance-warranty-backend/internal/warranty"
)

// Urgency classifies how close a reminder is to being due.
type Urgency string

const (
	UrgencyUnset   Urgency = "unset"
	UrgencyOverdue Urgency = "overdue"
	UrgencySoon    Urgency = "soon"
	UrgencyOK      Urgency = "ok"
)

// SoonWindowDays is the inclusive upper bound of the soon state.
const SoonWindowDays = 30

// NextDue returns lastDone advanced by months, or nil without a completion
// date. Intervals below one month are treated as one month.
func NextDue(lastDone *time.Time, months int) *time.Time {
	if lastDone == nil {
		return nil
	}
	if months < 1 {
		months = 1
	}
	next := warranty.AddMonths(warranty.StoredDate(*lastDone), months)
	return &next
}

// DaysUntil counts calendar days from today to nextDue, nil when unset.
func DaysUntil(nextDue *time.Time, today time.Time) *int {
	if nextDue == nil {
		return nil
	}
	d := warranty.DaysBetween(warranty.DateOf(today), *nextDue)
	return &d
}

// UrgencyOf classifies nextDue relative to today.
func UrgencyOf(nextDue *time.Time, today time.Time) Urgency {
	days := DaysUntil(nextDue, today)
	switch {
	case days == nil:
		return UrgencyUnset
	case *days < 0:
		return UrgencyOverdue
	case *days <= SoonWindowDays:
		return UrgencySoon
	default:
		return UrgencyOK
	}
}

// Complete marks a task done on completedOn. The next due date is counted
// from the completion, never from the previous schedule, so late
// completions do not compound.
func Complete(months int, completedOn time.Time) (lastDone, nextDue time.Time) {
	lastDone = warranty.StoredDate(completedOn)
	return lastDone, *NextDue(&lastDone, months)
}

// NeedsAttention reports whether an urgency should surface in alerts.
func (u Urgency) NeedsAttention() bool {
	return u == UrgencyOverdue || u == UrgencySoon
}
