// internal/model/defs.go
package model

// ConfirmationDefs holds the appointment confirmation-status codes resolved
// from the definitions table at startup. The codes are external identifiers,
// so nothing here hardcodes them.
type ConfirmationDefs struct {
	Texted           int64
	TwoWeekSent      int64
	OneWeekSent      int64
	TwoWeekConfirmed int64
	OneWeekConfirmed int64
	Confirmed        int64
	NotCalled        int64
	Unconfirmed      int64
	WebSched         int64
}

// SanityCheck verifies no two statuses share a code. Duplicate-meaning codes
// would silently confirm the wrong band, so sending must not start.
func (d *ConfirmationDefs) SanityCheck() bool {
	all := []int64{
		d.Texted, d.TwoWeekSent, d.OneWeekSent,
		d.TwoWeekConfirmed, d.OneWeekConfirmed, d.Confirmed,
		d.NotCalled, d.Unconfirmed, d.WebSched,
	}
	seen := make(map[int64]bool, len(all))
	for _, n := range all {
		if seen[n] {
			return false
		}
		seen[n] = true
	}
	return true
}

// StatusFor maps days-until-appointment to the confirmation status a YES reply
// should set. Returns 0 for out-of-band values; callers log and take no action.
func (d *ConfirmationDefs) StatusFor(daysUntilAppointment int) int64 {
	switch {
	case daysUntilAppointment >= 14 && daysUntilAppointment < 22:
		return d.TwoWeekConfirmed
	case daysUntilAppointment >= 7 && daysUntilAppointment < 14:
		return d.OneWeekConfirmed
	case daysUntilAppointment >= 0 && daysUntilAppointment <= 4:
		return d.Confirmed
	}
	return 0
}

// IsReminderSent reports whether status means a reminder went out and the
// appointment is still awaiting the patient's reply.
func (d *ConfirmationDefs) IsReminderSent(status int64) bool {
	return status == d.Texted || status == d.OneWeekSent || status == d.TwoWeekSent
}
