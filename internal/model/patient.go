// internal/model/patient.go
package model

import "time"

// PatStatus values mirror the practice-management store.
const (
	PatStatusActive   = 0
	PatStatusInactive = 2
)

// TxtMsgOk: 0 = unknown, 1 = ok, 2 = refused. Anything below 2 may be texted.
const TxtMsgRefused = 2

// PreferConfirmMethod values under which a reminder text is acceptable. The
// remaining codes (do-not-call, home/work phone, email, mail) mean the patient
// asked to be confirmed some other way.
const (
	ConfirmMethodNone     = 0
	ConfirmMethodWireless = 4
	ConfirmMethodText     = 8
)

type Patient struct {
	PatNum        int64      `db:"pat_num" json:"pat_num"`
	FName         string     `db:"f_name" json:"f_name"`
	Preferred     string     `db:"preferred" json:"preferred,omitempty"`
	LName         string     `db:"l_name" json:"l_name"`
	WirelessPhone string     `db:"wireless_phone" json:"wireless_phone"`
	Birthdate     *time.Time `db:"birthdate" json:"birthdate,omitempty"`
	TxtMsgOk      int        `db:"txt_msg_ok" json:"txt_msg_ok"`
	PatStatus     int        `db:"pat_status" json:"pat_status"`

	// How the patient asked to have appointments confirmed.
	PreferConfirmMethod int `db:"prefer_confirm_method" json:"prefer_confirm_method"`
}

// NameFirstOrPreferred is what reminder templates greet the patient with.
func (p *Patient) NameFirstOrPreferred() string {
	if p.Preferred != "" {
		return p.Preferred
	}
	return p.FName
}
