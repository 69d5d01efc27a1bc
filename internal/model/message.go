// internal/model/message.go
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type MessageClass string

const (
	ClassReminder     MessageClass = "reminder"
	ClassBirthday     MessageClass = "birthday"
	ClassConfirmReply MessageClass = "confirmation-reply"
	ClassAdhoc        MessageClass = "adhoc"
)

type SendStatus string

const (
	SendPending SendStatus = "pending"
	SendSent    SendStatus = "sent"
	SendFailed  SendStatus = "failed"
)

// OutboundMessage is owned by the dispatcher from creation until it reaches a
// terminal status, after which it is only logged.
type OutboundMessage struct {
	PatNum        int64        `json:"pat_num,omitempty"`
	Destination   string       `json:"destination"`
	Body          string       `json:"body"`
	Class         MessageClass `json:"class"`
	Status        SendStatus   `json:"status"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
}

type InboundMessage struct {
	From       string    `json:"from"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// Fingerprint is the dedup key: sender, body and the receive time truncated to
// the given granularity. Identical replies within one granularity window
// collapse to a single message on purpose.
func (m *InboundMessage) Fingerprint(granularity time.Duration) string {
	if granularity <= 0 {
		granularity = time.Minute
	}
	truncated := m.ReceivedAt.UTC().Truncate(granularity)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", m.From, m.Body, truncated.Unix())))
	return hex.EncodeToString(sum[:])
}
