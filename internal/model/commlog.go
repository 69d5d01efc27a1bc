// internal/model/commlog.go
package model

import "time"

const (
	CommReceived = 0
	CommSent     = 1
)

// CommModeText marks a commlog entry as a text message.
const CommModeText = 5

type Commlog struct {
	CommlogNum     int64     `db:"commlog_num" json:"commlog_num"`
	PatNum         int64     `db:"pat_num" json:"pat_num"`
	Note           string    `db:"note" json:"note"`
	Mode           int       `db:"mode" json:"mode"`
	CommDateTime   time.Time `db:"comm_datetime" json:"comm_datetime"`
	SentOrReceived int       `db:"sent_or_received" json:"sent_or_received"`
	UserNum        int64     `db:"user_num" json:"user_num"`
}
