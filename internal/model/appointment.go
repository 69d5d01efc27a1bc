// internal/model/appointment.go
package model

import "time"

// AptStatus values mirror the practice-management store.
const (
	AptStatusScheduled = 1
	AptStatusComplete  = 2
	AptStatusBroken    = 5
)

type Appointment struct {
	AptNum      int64     `db:"apt_num" json:"apt_num"`
	PatNum      int64     `db:"pat_num" json:"pat_num"`
	AptDateTime time.Time `db:"apt_datetime" json:"apt_datetime"`
	Confirmed   int64     `db:"confirmed" json:"confirmed"`
	AptStatus   int       `db:"apt_status" json:"apt_status"`
}

// PatientAppointment pairs a patient with one of their appointments, the unit
// the reminder queries return.
type PatientAppointment struct {
	Patient     Patient
	Appointment Appointment
}
