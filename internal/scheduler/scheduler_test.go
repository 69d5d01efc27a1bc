package scheduler

import (
	"strings"
	"testing"
	"time"

	"github.com/practiceops/smsbridge-backend/internal/config"
	"github.com/practiceops/smsbridge-backend/internal/model"
)

type mockPatientRepo struct {
	birthdays []model.Patient
}

func (m *mockPatientRepo) FindByMobile(localDigits string) ([]model.Patient, error) { return nil, nil }
func (m *mockPatientRepo) BirthdaysToday() ([]model.Patient, error)                 { return m.birthdays, nil }

type updateCall struct {
	aptNum, from, to int64
}

type mockApptRepo struct {
	due     map[model.ReminderWindow][]model.PatientAppointment
	updates []updateCall
}

func (m *mockApptRepo) GetByPatientAndTime(patNum int64, at time.Time) (*model.Appointment, error) {
	return nil, nil
}

func (m *mockApptRepo) UpdateConfirmed(aptNum, fromStatus, toStatus int64) (bool, error) {
	m.updates = append(m.updates, updateCall{aptNum, fromStatus, toStatus})
	return true, nil
}

func (m *mockApptRepo) DueForReminder(window model.ReminderWindow, defs *model.ConfirmationDefs, now time.Time) ([]model.PatientAppointment, error) {
	return m.due[window], nil
}

type mockCommlogRepo struct {
	inserted []model.Commlog
}

func (m *mockCommlogRepo) Insert(log *model.Commlog) error {
	m.inserted = append(m.inserted, *log)
	return nil
}

func (m *mockCommlogRepo) LatestReminderAwaitingYes(patNums []int64, since time.Time) (*model.Commlog, error) {
	return nil, nil
}

// mockBatcher marks every message sent, except destinations listed in fail.
type mockBatcher struct {
	batches [][]*model.OutboundMessage
	fail    map[string]bool
}

func (m *mockBatcher) SendMany(msgs []*model.OutboundMessage) []*model.OutboundMessage {
	m.batches = append(m.batches, msgs)
	sent := []*model.OutboundMessage{}
	for _, msg := range msgs {
		if m.fail[msg.Destination] {
			msg.Status = model.SendFailed
			continue
		}
		msg.Status = model.SendSent
		sent = append(sent, msg)
	}
	return sent
}

func testDefs() *model.ConfirmationDefs {
	return &model.ConfirmationDefs{
		Texted:           1,
		TwoWeekSent:      2,
		OneWeekSent:      3,
		TwoWeekConfirmed: 4,
		OneWeekConfirmed: 5,
		Confirmed:        6,
		NotCalled:        7,
		Unconfirmed:      8,
		WebSched:         9,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		SendEnabled:     true,
		OneDayTemplate:  "Hi [NamePreferredOrFirst], see you on [date] at [time]. Please reply YES to confirm.",
		OneWeekTemplate: "Hi [NamePreferredOrFirst], your appointment is on [date] at [time]. Please reply YES to confirm.",
		TwoWeekTemplate: "Hi [NamePreferredOrFirst], your appointment is on [date] at [time]. Please reply YES to confirm.",
		BirthdayMsg:     "Happy birthday [NamePreferredOrFirst]!",
	}
}

func pair(patNum, aptNum, confirmed int64, aptTime time.Time) model.PatientAppointment {
	return model.PatientAppointment{
		Patient:     model.Patient{PatNum: patNum, FName: "Anna", WirelessPhone: "0211626986"},
		Appointment: model.Appointment{AptNum: aptNum, PatNum: patNum, AptDateTime: aptTime, Confirmed: confirmed},
	}
}

func TestShouldRun(t *testing.T) {
	s := New(testConfig(), &mockPatientRepo{}, &mockApptRepo{}, &mockCommlogRepo{}, &mockBatcher{}, testDefs())

	cases := []struct {
		hour, minute int
		want         bool
	}{
		{10, 15, true},
		{10, 14, true},
		{10, 16, true},
		{8, 15, true},
		{17, 15, true},
		{10, 13, false},
		{10, 17, false},
		{10, 30, false},
		{7, 15, false},
		{18, 15, false},
		{2, 15, false},
	}
	for _, tc := range cases {
		now := time.Date(2026, 9, 1, tc.hour, tc.minute, 0, 0, time.Local)
		if got := s.shouldRun(now); got != tc.want {
			t.Errorf("shouldRun(%02d:%02d) = %v, want %v", tc.hour, tc.minute, got, tc.want)
		}
	}
}

func TestShouldRunDebugMode(t *testing.T) {
	cfg := testConfig()
	cfg.DebugNumber = "64210000001"
	s := New(cfg, &mockPatientRepo{}, &mockApptRepo{}, &mockCommlogRepo{}, &mockBatcher{}, testDefs())

	// Debug mode runs around the clock, every five minutes.
	if !s.shouldRun(time.Date(2026, 9, 1, 2, 35, 0, 0, time.Local)) {
		t.Error("debug mode should run at 02:35")
	}
	if s.shouldRun(time.Date(2026, 9, 1, 10, 12, 0, 0, time.Local)) {
		t.Error("debug mode should not run off the five-minute marks")
	}
}

func TestMinutesUntilNextMark(t *testing.T) {
	cases := []struct {
		minute int
		every  int
		want   int
	}{
		{0, 15, 15},
		{1, 15, 14},
		{14, 15, 1},
		{15, 15, 15},
		{16, 15, 14},
		{29, 15, 1},
		{59, 15, 1},
		{0, 5, 5},
		{12, 5, 3},
		{14, 5, 1},
		{55, 5, 5},
	}
	for _, tc := range cases {
		now := time.Date(2026, 9, 1, 10, tc.minute, 0, 0, time.Local)
		if got := minutesUntilNextMark(now, tc.every); got != tc.want {
			t.Errorf("minutesUntilNextMark(:%02d, %d) = %d, want %d", tc.minute, tc.every, got, tc.want)
		}
	}
}

func TestDebugCadenceReachesAMark(t *testing.T) {
	cfg := testConfig()
	cfg.DebugNumber = "64210000001"
	s := New(cfg, &mockPatientRepo{}, &mockApptRepo{}, &mockCommlogRepo{}, &mockBatcher{}, testDefs())

	// Start off the five-minute marks and step the loop's own wait; a pass must
	// come up within one interval rather than keeping the start minute's phase.
	now := time.Date(2026, 9, 1, 10, 12, 0, 0, time.Local)
	fired := false
	for i := 0; i < 12 && !fired; i++ {
		fired = s.shouldRun(now)
		now = now.Add(s.waitBeforeNextCheck(now))
	}
	if !fired {
		t.Fatal("debug cadence never reached a five-minute mark")
	}
}

func TestRunPassSendsRemindersAndUpdates(t *testing.T) {
	defs := testDefs()
	now := time.Date(2026, 9, 1, 10, 15, 0, 0, time.Local)
	aptTime := now.Add(7 * 24 * time.Hour)

	appts := &mockApptRepo{due: map[model.ReminderWindow][]model.PatientAppointment{
		model.WindowOneWeek: {
			pair(42, 7, defs.TwoWeekSent, aptTime),
			pair(43, 8, defs.TwoWeekSent, aptTime),
		},
	}}
	comms := &mockCommlogRepo{}
	batcher := &mockBatcher{}
	s := New(testConfig(), &mockPatientRepo{}, appts, comms, batcher, testDefs())
	s.now = func() time.Time { return now }

	s.RunPass(now)

	if len(batcher.batches) != 1 {
		t.Fatalf("dispatched %d batches, want 1", len(batcher.batches))
	}
	batch := batcher.batches[0]
	if len(batch) != 2 {
		t.Fatalf("batch has %d messages, want 2", len(batch))
	}
	if !strings.Contains(batch[0].Body, "Hi Anna") {
		t.Errorf("rendered body = %q", batch[0].Body)
	}
	if !strings.Contains(batch[0].Body, aptTime.Format(model.AptDateLayout)) {
		t.Errorf("body %q missing the appointment date", batch[0].Body)
	}

	if len(appts.updates) != 2 {
		t.Fatalf("updated %d appointments, want 2", len(appts.updates))
	}
	want := updateCall{aptNum: 7, from: defs.TwoWeekSent, to: defs.OneWeekSent}
	if appts.updates[0] != want {
		t.Errorf("update = %+v, want %+v", appts.updates[0], want)
	}

	if len(comms.inserted) != 2 {
		t.Fatalf("inserted %d commlogs, want 2", len(comms.inserted))
	}
	for _, entry := range comms.inserted {
		if !strings.HasPrefix(entry.Note, "Text message sent: ") || entry.SentOrReceived != model.CommSent {
			t.Errorf("sent commlog = %+v", entry)
		}
	}
}

func TestRunPassSkipsFailedSends(t *testing.T) {
	defs := testDefs()
	now := time.Date(2026, 9, 1, 10, 15, 0, 0, time.Local)

	good := pair(42, 7, defs.Texted, now.Add(24*time.Hour))
	bad := pair(43, 8, defs.Texted, now.Add(24*time.Hour))
	bad.Patient.WirelessPhone = "0219999999"

	appts := &mockApptRepo{due: map[model.ReminderWindow][]model.PatientAppointment{
		model.WindowOneDay: {good, bad},
	}}
	comms := &mockCommlogRepo{}
	batcher := &mockBatcher{fail: map[string]bool{"0219999999": true}}
	s := New(testConfig(), &mockPatientRepo{}, appts, comms, batcher, testDefs())
	s.now = func() time.Time { return now }

	s.RunPass(now)

	if len(appts.updates) != 1 {
		t.Fatalf("updated %d appointments, a failed send must not advance its status", len(appts.updates))
	}
	if appts.updates[0].aptNum != 7 {
		t.Errorf("updated appointment %d, want the one that sent", appts.updates[0].aptNum)
	}
	if len(comms.inserted) != 1 {
		t.Errorf("inserted %d commlogs, failed sends must not be logged as sent", len(comms.inserted))
	}
}

func TestRunPassSendDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.SendEnabled = false
	defs := testDefs()
	now := time.Date(2026, 9, 1, 10, 15, 0, 0, time.Local)

	appts := &mockApptRepo{due: map[model.ReminderWindow][]model.PatientAppointment{
		model.WindowOneDay: {pair(42, 7, defs.Texted, now.Add(24*time.Hour))},
	}}
	batcher := &mockBatcher{}
	comms := &mockCommlogRepo{}
	s := New(cfg, &mockPatientRepo{birthdays: []model.Patient{{PatNum: 9, FName: "Ben", WirelessPhone: "0210000009"}}}, appts, comms, batcher, testDefs())
	s.now = func() time.Time { return now }

	s.RunPass(now)

	if len(batcher.batches) != 0 {
		t.Error("disabled sending must never reach the dispatcher")
	}
	if len(appts.updates) != 0 || len(comms.inserted) != 0 {
		t.Error("disabled sending must not touch any records")
	}
}

func TestRunPassBirthdays(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 15, 0, 0, time.Local)
	patients := &mockPatientRepo{birthdays: []model.Patient{
		{PatNum: 9, FName: "Ben", Preferred: "Benny", WirelessPhone: "0210000009"},
	}}
	appts := &mockApptRepo{}
	comms := &mockCommlogRepo{}
	batcher := &mockBatcher{}
	s := New(testConfig(), patients, appts, comms, batcher, testDefs())
	s.now = func() time.Time { return now }

	s.RunPass(now)

	if len(batcher.batches) != 1 || len(batcher.batches[0]) != 1 {
		t.Fatalf("dispatched %v, want one birthday message", batcher.batches)
	}
	msg := batcher.batches[0][0]
	if msg.Body != "Happy birthday Benny!" {
		t.Errorf("body = %q", msg.Body)
	}
	if msg.Class != model.ClassBirthday {
		t.Errorf("class = %s, want birthday", msg.Class)
	}
	if len(comms.inserted) != 1 {
		t.Errorf("inserted %d commlogs, want 1", len(comms.inserted))
	}
	if len(appts.updates) != 0 {
		t.Error("birthday greetings must not touch appointments")
	}
}
