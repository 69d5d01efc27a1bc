// internal/phone/bridge.go
package phone

import (
	"time"

	"github.com/practiceops/smsbridge-backend/internal/model"
)

// Bridge is the capability surface of the phone tether agent. SendSMS is
// asynchronous: the returned correlation id is matched against a later
// SendResult event, which is not guaranteed to arrive.
type Bridge interface {
	Connect() error
	State() model.ConnectionState
	SendSMS(numbers []string, body string) (correlationID string, err error)
	Events() <-chan Event
	Close() error
}

// Event is published by the bridge onto a bounded channel and drained by a
// single consumer (RunEventPump), so tether callbacks never mutate shared
// state directly.
type Event interface {
	event()
}

// StateChanged reports an application-link transition.
type StateChanged struct {
	New    model.AppState
	Old    model.AppState
	Device model.DeviceState
}

// SmsReceived is a phone-originated message.
type SmsReceived struct {
	From  string
	Label string
	Body  string
	At    time.Time
}

// SendResult resolves an earlier SendSMS by correlation id, one entry per
// destination number.
type SendResult struct {
	CorrelationID string
	Results       map[string]bool
}

func (StateChanged) event() {}
func (SmsReceived) event()  {}
func (SendResult) event()   {}

// OK reports whether every destination was accepted.
func (r SendResult) OK() bool {
	for _, ok := range r.Results {
		if !ok {
			return false
		}
	}
	return len(r.Results) > 0
}
