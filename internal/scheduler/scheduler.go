// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/practiceops/smsbridge-backend/internal/config"
	"github.com/practiceops/smsbridge-backend/internal/model"
	"github.com/practiceops/smsbridge-backend/internal/repository"
)

// Batcher is satisfied by dispatch.Dispatcher.
type Batcher interface {
	SendMany(msgs []*model.OutboundMessage) []*model.OutboundMessage
}

// Scheduler produces reminder and birthday messages on a wall-clock cadence
// and feeds them to the dispatcher.
type Scheduler struct {
	cfg          *config.Config
	patients     repository.PatientRepositoryInterface
	appointments repository.AppointmentRepositoryInterface
	commlogs     repository.CommlogRepositoryInterface
	dispatcher   Batcher
	defs         *model.ConfirmationDefs

	now func() time.Time
}

func New(
	cfg *config.Config,
	patients repository.PatientRepositoryInterface,
	appointments repository.AppointmentRepositoryInterface,
	commlogs repository.CommlogRepositoryInterface,
	dispatcher Batcher,
	defs *model.ConfirmationDefs,
) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		patients:     patients,
		appointments: appointments,
		commlogs:     commlogs,
		dispatcher:   dispatcher,
		defs:         defs,
		now:          time.Now,
	}
}

// Run loops until the context is cancelled: sleep to the next quarter-hour
// boundary (every five minutes in debug mode), run a pass when inside the
// send window.
func (s *Scheduler) Run(ctx context.Context) {
	log.Println("⏰ reminder scheduler running")
	for {
		now := s.now()
		if s.shouldRun(now) {
			s.RunPass(now)
		}

		select {
		case <-ctx.Done():
			log.Println("reminder scheduler stopped")
			return
		case <-time.After(s.waitBeforeNextCheck(now)):
		}
	}
}

// shouldRun gates a pass: every five minutes in debug mode, otherwise only at
// quarter past the hour during business hours.
func (s *Scheduler) shouldRun(now time.Time) bool {
	if s.cfg.DebugMode() {
		return now.Minute()%5 == 0
	}
	return now.Minute() >= 14 && now.Minute() <= 16 && now.Hour() >= 8 && now.Hour() <= 17
}

// waitBeforeNextCheck sleeps to the next check boundary rather than a fixed
// interval, so a process started mid-window still lands on the marks shouldRun
// looks for.
func (s *Scheduler) waitBeforeNextCheck(now time.Time) time.Duration {
	if s.cfg.DebugMode() {
		return time.Duration(minutesUntilNextMark(now, 5)) * time.Minute
	}
	return time.Duration(minutesUntilNextMark(now, 15)) * time.Minute
}

func minutesUntilNextMark(now time.Time, every int) int {
	minutes := every - now.Minute()%every
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// RunPass executes one full sweep: the three reminder windows, then birthdays.
func (s *Scheduler) RunPass(now time.Time) {
	log.Println("performing regular SMS sending")
	for _, window := range model.AllWindows() {
		s.sendReminders(window, now)
	}
	s.sendBirthdays()
}

func (s *Scheduler) sendReminders(window model.ReminderWindow, now time.Time) {
	pairs, err := s.appointments.DueForReminder(window, s.defs, now)
	if err != nil {
		log.Printf("⚠️ %s reminder query failed: %v", window, err)
		return
	}
	if len(pairs) == 0 {
		return
	}

	template := s.templateFor(window)
	msgs := make([]*model.OutboundMessage, len(pairs))
	for i, pair := range pairs {
		msgs[i] = &model.OutboundMessage{
			PatNum:      pair.Patient.PatNum,
			Destination: pair.Patient.WirelessPhone,
			Body:        model.RenderMessage(template, &pair.Patient, &pair.Appointment),
			Class:       model.ClassReminder,
			Status:      model.SendPending,
		}
		log.Printf("to: %s, message: %s", msgs[i].Destination, msgs[i].Body)
	}

	if !s.cfg.SendEnabled {
		log.Println("⚠️ SMS sending is disabled, not sending any messages")
		return
	}

	s.dispatcher.SendMany(msgs)

	// Per-message outcome drives the record updates; batch position or a
	// partial failure elsewhere in the batch must not.
	target := window.TargetStatus(s.defs)
	for i, msg := range msgs {
		if msg.Status != model.SendSent {
			continue
		}
		s.logSent(msg)
		apt := pairs[i].Appointment
		updated, err := s.appointments.UpdateConfirmed(apt.AptNum, apt.Confirmed, target)
		if err != nil || !updated {
			log.Printf("⚠️ failure updating appointment %d: %v", apt.AptNum, err)
			continue
		}
		log.Printf("updated appointment %d on patient %d from %d to %d", apt.AptNum, apt.PatNum, apt.Confirmed, target)
	}
}

func (s *Scheduler) sendBirthdays() {
	patients, err := s.patients.BirthdaysToday()
	if err != nil {
		log.Println("⚠️ birthday query failed:", err)
		return
	}
	if len(patients) == 0 {
		return
	}

	msgs := make([]*model.OutboundMessage, len(patients))
	for i := range patients {
		msgs[i] = &model.OutboundMessage{
			PatNum:      patients[i].PatNum,
			Destination: patients[i].WirelessPhone,
			Body:        model.RenderMessage(s.cfg.BirthdayMsg, &patients[i], nil),
			Class:       model.ClassBirthday,
			Status:      model.SendPending,
		}
		log.Printf("to: %s, message: %s", msgs[i].Destination, msgs[i].Body)
	}

	if !s.cfg.SendEnabled {
		log.Println("⚠️ SMS sending is disabled, not sending any messages")
		return
	}

	// Birthday greetings get a commlog entry but no appointment update.
	for _, msg := range s.dispatcher.SendMany(msgs) {
		s.logSent(msg)
	}
}

// logSent records the outbound text in the communication log. The reminder
// notes are what the YES-confirmation automation later searches, so the body
// goes in verbatim.
func (s *Scheduler) logSent(msg *model.OutboundMessage) {
	entry := &model.Commlog{
		PatNum:         msg.PatNum,
		Note:           "Text message sent: " + msg.Body,
		Mode:           model.CommModeText,
		CommDateTime:   s.now(),
		SentOrReceived: model.CommSent,
	}
	if err := s.commlogs.Insert(entry); err != nil {
		log.Println("⚠️ failed to write commlog for sent text:", err)
	}
}

func (s *Scheduler) templateFor(window model.ReminderWindow) string {
	switch window {
	case model.WindowOneDay:
		return s.cfg.OneDayTemplate
	case model.WindowOneWeek:
		return s.cfg.OneWeekTemplate
	default:
		return s.cfg.TwoWeekTemplate
	}
}
