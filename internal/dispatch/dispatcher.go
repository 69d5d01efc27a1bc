// internal/dispatch/dispatcher.go
package dispatch

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/practiceops/smsbridge-backend/internal/config"
	"github.com/practiceops/smsbridge-backend/internal/model"
	"github.com/practiceops/smsbridge-backend/internal/phone"
)

// Mode selects the transport for one send.
type Mode int

const (
	// ModeAuto picks Direct on the bridge machine, Relay everywhere else.
	ModeAuto Mode = iota
	ModeDirect
	ModeRelay
)

// Dispatcher is the single entry point for sending one SMS. It owns the
// message until it reaches a terminal status.
type Dispatcher struct {
	cfg       *config.Config
	bridge    phone.Bridge // nil off the bridge machine
	client    *http.Client
	relayBase string

	mu       sync.Mutex
	pending  map[string]pendingSend
	lastSend time.Time

	now func() time.Time
}

// pendingSend is a single-resolution completion signal for one direct send.
// The agent may never answer (e.g. after a disconnect), so entries also carry
// their creation time and abandoned ones are pruned on later registrations.
type pendingSend struct {
	ch      chan bool
	created time.Time
}

const pendingMaxAge = 10 * time.Minute

func New(cfg *config.Config, bridge phone.Bridge) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		bridge:    bridge,
		client:    &http.Client{Timeout: 30 * time.Second},
		relayBase: cfg.RelayBaseURL(),
		pending:   make(map[string]pendingSend),
		now:       time.Now,
	}
}

// Send delivers one message and reports success. Direct sends are
// fire-and-forget by default: the tether agent's result arrives asynchronously
// and interactive callers should not block on it. Setting
// AWAIT_SEND_CONFIRMATION makes every direct send wait, bounded by the
// configured timeout.
func (d *Dispatcher) Send(msg *model.OutboundMessage, mode Mode) bool {
	// Debug override protects real patients during testing.
	if d.cfg.DebugNumber != "" && msg.Destination != d.cfg.DebugNumber {
		log.Printf("⚠️ debug mode: redirecting SMS for %s to %s", msg.Destination, d.cfg.DebugNumber)
		msg.Destination = d.cfg.DebugNumber
	}

	normalized, err := NormalizeNumber(msg.Destination, d.cfg.CountryCode)
	if err != nil {
		return d.fail(msg, err)
	}
	if normalized != msg.Destination {
		log.Printf("phone number formatted from %s to %s", msg.Destination, normalized)
		msg.Destination = normalized
	}

	if mode == ModeAuto {
		if d.cfg.IsBridgeMachine {
			mode = ModeDirect
		} else {
			mode = ModeRelay
		}
	}

	var ok bool
	if mode == ModeDirect {
		ok = d.sendDirect(msg)
	} else {
		ok = d.sendRelay(msg)
	}

	if ok {
		msg.Status = model.SendSent
	} else if msg.Status != model.SendFailed {
		msg.Status = model.SendFailed
	}
	return ok
}

// SendMany issues messages in order; each outcome is independent and one
// failure never aborts the rest. The successful subset is returned so batch
// callers update records per message, not per batch position.
func (d *Dispatcher) SendMany(msgs []*model.OutboundMessage) []*model.OutboundMessage {
	log.Printf("about to bulk send %d messages", len(msgs))
	sent := []*model.OutboundMessage{}
	for _, msg := range msgs {
		if d.Send(msg, ModeAuto) {
			sent = append(sent, msg)
		}
	}
	return sent
}

func (d *Dispatcher) sendDirect(msg *model.OutboundMessage) bool {
	if d.bridge == nil {
		log.Println("⚠️ direct send requested but no phone bridge on this machine")
		msg.Status = model.SendFailed
		msg.LastError = "no local phone bridge"
		return false
	}

	id, err := d.bridge.SendSMS([]string{msg.Destination}, msg.Body)
	if err != nil {
		return d.fail(msg, err)
	}
	msg.CorrelationID = id

	p := d.register(id)

	if d.cfg.AwaitSendConfirm {
		return d.waitOn(id, p, d.cfg.SendConfirmTimeout)
	}
	// Fire-and-forget: the send_result event still removes the pending entry
	// via the event pump, we just do not wait for it here.
	return true
}

// register tracks one in-flight direct send. Entries whose result never came
// back (agent dropped mid-send) are pruned by age here.
func (d *Dispatcher) register(id string) pendingSend {
	d.mu.Lock()
	defer d.mu.Unlock()
	for old, p := range d.pending {
		if d.now().Sub(p.created) > pendingMaxAge {
			delete(d.pending, old)
		}
	}
	p := pendingSend{ch: make(chan bool, 1), created: d.now()}
	d.pending[id] = p
	d.lastSend = d.now()
	return p
}

func (d *Dispatcher) sendRelay(msg *model.OutboundMessage) bool {
	form := url.Values{}
	form.Set("phoneNumber", msg.Destination)
	form.Set("message", msg.Body)

	req, err := http.NewRequest(http.MethodPost, d.relayBase+"/sendSms", strings.NewReader(form.Encode()))
	if err != nil {
		return d.fail(msg, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("ApiKey", d.cfg.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return d.fail(msg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ relay send to %s returned %d", msg.Destination, resp.StatusCode)
		msg.Status = model.SendFailed
		msg.LastError = resp.Status
		return false
	}
	return true
}

// WaitForResult is the strict-confirmation path: it resolves the pending
// completion or times out false. Unknown ids (already resolved, or aged out)
// report false.
func (d *Dispatcher) WaitForResult(correlationID string, timeout time.Duration) bool {
	d.mu.Lock()
	p, exists := d.pending[correlationID]
	d.mu.Unlock()
	if !exists {
		return false
	}
	return d.waitOn(correlationID, p, timeout)
}

// waitOn blocks on a pendingSend captured at registration, so a result that
// lands between registering and waiting is delivered through the buffered
// channel rather than lost. The entry is gone afterwards either way.
func (d *Dispatcher) waitOn(correlationID string, p pendingSend, timeout time.Duration) bool {
	defer func() {
		d.mu.Lock()
		delete(d.pending, correlationID)
		d.mu.Unlock()
	}()

	select {
	case ok := <-p.ch:
		return ok
	case <-time.After(timeout):
		log.Printf("⚠️ no send result for %s within %s", correlationID, timeout)
		return false
	}
}

// Resolve removes the pending entry and deposits the agent's outcome; called
// by the event pump. A waiter that captured the entry at registration still
// receives the result through the buffered channel. Unknown ids (already
// resolved, aged out, or a replayed result) are ignored.
func (d *Dispatcher) Resolve(correlationID string, ok bool) {
	d.mu.Lock()
	p, exists := d.pending[correlationID]
	if exists {
		delete(d.pending, correlationID)
	}
	d.mu.Unlock()
	if !exists {
		return
	}
	select {
	case p.ch <- ok:
	default:
	}
}

// CooldownSecondsRemaining is advisory: seconds until the cooldown window
// since the last direct send has elapsed.
func (d *Dispatcher) CooldownSecondsRemaining() int {
	d.mu.Lock()
	last := d.lastSend
	d.mu.Unlock()
	if last.IsZero() {
		return 0
	}
	remaining := d.cfg.CooldownWindow - d.now().Sub(last)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// PendingCount is used by tests and diagnostics.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) fail(msg *model.OutboundMessage, err error) bool {
	log.Println("⚠️ failed to send SMS:", err)
	msg.Status = model.SendFailed
	msg.LastError = err.Error()
	return false
}
