// internal/inbound/processor.go
package inbound

import (
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/practiceops/smsbridge-backend/internal/config"
	"github.com/practiceops/smsbridge-backend/internal/dedup"
	appErrors "github.com/practiceops/smsbridge-backend/internal/errors"
	"github.com/practiceops/smsbridge-backend/internal/dispatch"
	"github.com/practiceops/smsbridge-backend/internal/model"
	"github.com/practiceops/smsbridge-backend/internal/repository"
)

const (
	// More matches than this means a shared or front-desk line; automation
	// would be guessing.
	sharedLineThreshold = 20
	// YES automation only runs below this many candidate patients.
	automationThreshold = 10
)

const confirmationFailureReply = "Thank you for your response.\n" +
	"We couldn't find any appointments that need confirmation.\n" +
	"If this doesn't seem right, please give us a call."

// Sender is satisfied by dispatch.Dispatcher.
type Sender interface {
	Send(msg *model.OutboundMessage, mode dispatch.Mode) bool
}

// Processor turns one phone-originated SMS into a logged message, an
// automated appointment confirmation, or both.
type Processor struct {
	cfg          *config.Config
	store        *dedup.Store
	patients     repository.PatientRepositoryInterface
	appointments repository.AppointmentRepositoryInterface
	commlogs     repository.CommlogRepositoryInterface
	sender       Sender
	defs         *model.ConfirmationDefs
}

func NewProcessor(
	cfg *config.Config,
	store *dedup.Store,
	patients repository.PatientRepositoryInterface,
	appointments repository.AppointmentRepositoryInterface,
	commlogs repository.CommlogRepositoryInterface,
	sender Sender,
	defs *model.ConfirmationDefs,
) *Processor {
	return &Processor{
		cfg:          cfg,
		store:        store,
		patients:     patients,
		appointments: appointments,
		commlogs:     commlogs,
		sender:       sender,
		defs:         defs,
	}
}

// Handle processes one inbound SMS. It never panics or errors outward: a
// failure escaping into the tether event path could destabilize the phone
// session.
func (p *Processor) Handle(from, body string, at time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("💥 panic while processing inbound SMS:", r)
		}
	}()

	msg := model.InboundMessage{From: from, Body: body, ReceivedAt: at}
	fingerprint := msg.Fingerprint(p.cfg.DedupGranularity)

	if p.store.SeenBefore(fingerprint) {
		log.Println("dropping:", appErrors.NewDuplicateMessage(fingerprint))
		return
	}
	// Fail closed: without a durable marker the message must not be acted on,
	// or a restart could double-confirm an appointment.
	if err := p.store.MarkSeen(fingerprint, body); err != nil {
		log.Println("⚠️ could not persist dedup marker, dropping message:", err)
		return
	}

	log.Printf("📩 SMS from %s at %s: %s", from, at.Format(time.RFC3339), body)

	matches, err := p.patients.FindByMobile(localDigits(from, p.cfg.CountryCode))
	if err != nil {
		log.Println("⚠️ patient lookup failed:", err)
		return
	}
	log.Printf("%d patients match %s", len(matches), from)

	if len(matches) > sharedLineThreshold {
		log.Println("assuming a shared line:", appErrors.NewAmbiguousMatch(from, len(matches)))
		return
	}

	var patNum int64
	if len(matches) > 0 {
		patNum = matches[0].PatNum
	}
	entry := &model.Commlog{
		PatNum:         patNum,
		Note:           "Text message received: " + body,
		Mode:           model.CommModeText,
		CommDateTime:   at,
		SentOrReceived: model.CommReceived,
		UserNum:        1, // admin
	}
	if err := p.commlogs.Insert(entry); err != nil {
		log.Println("⚠️ failed to write commlog for received text:", err)
	}

	if isAffirmative(body) && len(matches) < automationThreshold {
		p.runConfirmation(matches, from)
	} else if isAffirmative(body) {
		log.Println("YES received matching ten or more patients - process manually")
	}
}

func (p *Processor) runConfirmation(matches []model.Patient, from string) {
	switch p.confirmAppointment(matches) {
	case confirmUpdated:
		log.Println("✅ appointment confirmed from YES reply")
	case confirmSkip:
		// Patient replied yes to an appointment that no longer needs it.
	case confirmNoMatch:
		p.sendFailureReply(matches, from)
	}
}

func (p *Processor) sendFailureReply(matches []model.Patient, from string) {
	var patNum int64
	if len(matches) > 0 {
		patNum = matches[0].PatNum
	}
	reply := &model.OutboundMessage{
		PatNum:      patNum,
		Destination: from,
		Body:        confirmationFailureReply,
		Class:       model.ClassConfirmReply,
		Status:      model.SendPending,
	}
	if !p.sender.Send(reply, dispatch.ModeAuto) {
		log.Println("⚠️ failed to send confirmation-failure reply to", from)
		return
	}
	entry := &model.Commlog{
		PatNum:         patNum,
		Note:           "Text message sent: " + reply.Body,
		Mode:           model.CommModeText,
		CommDateTime:   time.Now(),
		SentOrReceived: model.CommSent,
	}
	if err := p.commlogs.Insert(entry); err != nil {
		log.Println("⚠️ failed to write commlog for auto-reply:", err)
	}
}

var (
	nonLetters = regexp.MustCompile("[^A-Z]")
	nonDigits  = regexp.MustCompile("[^0-9]")
)

// isAffirmative uppercases the body, strips everything but letters, and
// accepts YES or Y.
func isAffirmative(body string) bool {
	cleaned := nonLetters.ReplaceAllString(strings.ToUpper(body), "")
	return cleaned == "YES" || cleaned == "Y"
}

// localDigits reduces a sender number to the digits the store matches on:
// punctuation, the international prefix, and the country code removed.
func localDigits(number, countryCode string) string {
	digits := nonDigits.ReplaceAllString(number, "")
	digits = strings.TrimPrefix(digits, countryCode)
	return digits
}
