// internal/inbound/confirm.go
package inbound

import (
	"log"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/practiceops/smsbridge-backend/internal/model"
)

// Reminders older than this are never matched against a YES reply.
const reminderLookback = 21 * 24 * time.Hour

type confirmOutcome int

const (
	// confirmUpdated: an appointment's confirmation status was advanced.
	confirmUpdated confirmOutcome = iota
	// confirmSkip: the appointment exists but needs no confirmation; stay quiet.
	confirmSkip
	// confirmNoMatch: nothing actionable found; the patient gets a reply.
	confirmNoMatch
)

// confirmAppointment runs the YES automation against the candidate patients:
// find their most recent reminder, recover the appointment it referenced, and
// advance that appointment's confirmation status by band.
func (p *Processor) confirmAppointment(matches []model.Patient) confirmOutcome {
	patNums := make([]int64, len(matches))
	for i, m := range matches {
		patNums[i] = m.PatNum
	}

	latest, err := p.commlogs.LatestReminderAwaitingYes(patNums, time.Now().Add(-reminderLookback))
	if err != nil {
		log.Println("⚠️ reminder commlog lookup failed:", err)
		return confirmNoMatch
	}
	if latest == nil {
		log.Println("YES received, but no recent reminder for any matching patient")
		return confirmNoMatch
	}

	aptTime, ok := extractAppointmentTime(latest.Note)
	if !ok {
		log.Println("⚠️ could not parse an appointment date out of reminder note:", latest.Note)
		return confirmNoMatch
	}

	// Days are counted from when the reminder went out, not from now: the
	// band must match the reminder the patient is answering.
	daysUntil := int(math.Ceil(aptTime.Sub(latest.CommDateTime).Hours() / 24))
	status := p.defs.StatusFor(daysUntil)
	if status == 0 {
		log.Printf("received YES to an appointment %d days away, which is unexpected - ignoring", daysUntil)
		return confirmNoMatch
	}

	appt, err := p.appointments.GetByPatientAndTime(latest.PatNum, aptTime)
	if err != nil {
		log.Println("⚠️ appointment lookup failed:", err)
		return confirmNoMatch
	}
	if appt == nil {
		log.Printf("no appointment for patient %d at %s", latest.PatNum, aptTime)
		return confirmNoMatch
	}

	if !p.defs.IsReminderSent(appt.Confirmed) {
		log.Println("patient replied yes to an appointment that is already confirmed, ignoring")
		return confirmSkip
	}

	updated, err := p.appointments.UpdateConfirmed(appt.AptNum, appt.Confirmed, status)
	if err != nil {
		log.Println("⚠️ failed to update appointment status:", err)
		return confirmNoMatch
	}
	if !updated {
		// Lost the optimistic race; someone else confirmed it first.
		log.Printf("appointment %d changed under us, not updating", appt.AptNum)
		return confirmSkip
	}
	log.Printf("updated appointment %d for patient %d from %d to %d", appt.AptNum, appt.PatNum, appt.Confirmed, status)
	return confirmUpdated
}

// Reminder notes render the appointment as "[date] at [time]" using the fixed
// layouts in model. Example: "Monday, 2 September 2026 at 2:30 pm".
var (
	aptDatePattern = regexp.MustCompile(`[A-Z][a-z]+day, \d{1,2} [A-Z][a-z]+ \d{4}`)
	aptTimePattern = regexp.MustCompile(`\d{1,2}:\d{2} ?[apAP][mM]`)
)

func extractAppointmentTime(note string) (time.Time, bool) {
	dateStr := aptDatePattern.FindString(note)
	timeStr := aptTimePattern.FindString(note)
	if dateStr == "" || timeStr == "" {
		return time.Time{}, false
	}
	// Normalize "2:30PM" / "2:30 pm" to the "3:04 pm" layout.
	timeStr = strings.ToLower(strings.ReplaceAll(timeStr, " ", ""))
	timeStr = timeStr[:len(timeStr)-2] + " " + timeStr[len(timeStr)-2:]

	t, err := time.ParseInLocation(
		model.AptDateLayout+" "+model.AptTimeLayout,
		dateStr+" "+timeStr,
		time.Local,
	)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
