// internal/model/window.go
package model

import "time"

// ReminderWindow selects one reminder pass: how far out the appointment is,
// which confirmation statuses still qualify, and what status a send advances to.
type ReminderWindow int

const (
	WindowOneDay ReminderWindow = iota
	WindowOneWeek
	WindowTwoWeeks
)

func (w ReminderWindow) String() string {
	switch w {
	case WindowOneDay:
		return "one-day"
	case WindowOneWeek:
		return "one-week"
	case WindowTwoWeeks:
		return "two-weeks"
	}
	return "unknown"
}

// AllWindows in the order a scheduler pass runs them.
func AllWindows() []ReminderWindow {
	return []ReminderWindow{WindowOneDay, WindowOneWeek, WindowTwoWeeks}
}

// LeadDays returns the appointment lead times the window covers. On a Friday
// the one-day window also picks up Monday's appointments.
func (w ReminderWindow) LeadDays(now time.Time) []int {
	switch w {
	case WindowOneDay:
		if now.Weekday() == time.Friday {
			return []int{1, 3}
		}
		return []int{1}
	case WindowOneWeek:
		return []int{7}
	case WindowTwoWeeks:
		return []int{14}
	}
	return nil
}

// AllowedStatuses are the confirmation codes an appointment may hold and still
// receive this window's reminder.
func (w ReminderWindow) AllowedStatuses(d *ConfirmationDefs) []int64 {
	switch w {
	case WindowOneDay:
		return []int64{d.WebSched, d.NotCalled, d.Unconfirmed, d.OneWeekConfirmed, d.TwoWeekConfirmed, d.OneWeekSent, d.TwoWeekSent}
	case WindowOneWeek:
		return []int64{d.WebSched, d.NotCalled, d.Unconfirmed, d.TwoWeekConfirmed, d.TwoWeekSent}
	case WindowTwoWeeks:
		return []int64{d.WebSched, d.NotCalled, d.Unconfirmed}
	}
	return nil
}

// TargetStatus is the confirmation code a successful send advances to.
func (w ReminderWindow) TargetStatus(d *ConfirmationDefs) int64 {
	switch w {
	case WindowOneDay:
		return d.Texted
	case WindowOneWeek:
		return d.OneWeekSent
	case WindowTwoWeeks:
		return d.TwoWeekSent
	}
	return 0
}
