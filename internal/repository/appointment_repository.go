// internal/repository/appointment_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/practiceops/smsbridge-backend/internal/model"
)

type AppointmentRepositoryInterface interface {
	GetByPatientAndTime(patNum int64, at time.Time) (*model.Appointment, error)
	UpdateConfirmed(aptNum, fromStatus, toStatus int64) (bool, error)
	DueForReminder(window model.ReminderWindow, defs *model.ConfirmationDefs, now time.Time) ([]model.PatientAppointment, error)
}

type AppointmentRepository struct {
	DB *sql.DB
}

// GetByPatientAndTime locates the appointment a YES reply refers to. Returns
// nil without error when no appointment exists at that exact time.
func (r *AppointmentRepository) GetByPatientAndTime(patNum int64, at time.Time) (*model.Appointment, error) {
	query := `
        SELECT apt_num, pat_num, apt_datetime, confirmed, apt_status
        FROM appointments
        WHERE pat_num = $1 AND apt_datetime = $2
    `
	var a model.Appointment
	err := r.DB.QueryRow(query, patNum, at).Scan(&a.AptNum, &a.PatNum, &a.AptDateTime, &a.Confirmed, &a.AptStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// UpdateConfirmed advances the confirmation status with an optimistic
// precondition on the old value. Returns false when another writer got there
// first.
func (r *AppointmentRepository) UpdateConfirmed(aptNum, fromStatus, toStatus int64) (bool, error) {
	query := `UPDATE appointments SET confirmed=$1 WHERE apt_num=$2 AND confirmed=$3`
	res, err := r.DB.Exec(query, toStatus, aptNum, fromStatus)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DueForReminder selects patient+appointment pairs qualifying for one reminder
// window: right lead time, allowed confirmation band, textable and preferring
// text confirmation, mobile number present, no earlier upcoming appointment,
// still scheduled.
func (r *AppointmentRepository) DueForReminder(window model.ReminderWindow, defs *model.ConfirmationDefs, now time.Time) ([]model.PatientAppointment, error) {
	query, args := dueForReminderQuery(window, defs, now)
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := []model.PatientAppointment{}
	for rows.Next() {
		var pa model.PatientAppointment
		if err := rows.Scan(
			&pa.Patient.PatNum, &pa.Patient.FName, &pa.Patient.Preferred, &pa.Patient.LName,
			&pa.Patient.WirelessPhone, &pa.Patient.Birthdate, &pa.Patient.TxtMsgOk, &pa.Patient.PatStatus,
			&pa.Patient.PreferConfirmMethod,
			&pa.Appointment.AptNum, &pa.Appointment.PatNum, &pa.Appointment.AptDateTime,
			&pa.Appointment.Confirmed, &pa.Appointment.AptStatus,
		); err != nil {
			return nil, err
		}
		pairs = append(pairs, pa)
	}
	return pairs, rows.Err()
}

// dueForReminderQuery builds the window's reminder query with positional args.
// Patients whose preferred confirmation method is something other than text
// (mail, phone call, email) are excluded even when texting them is allowed.
func dueForReminderQuery(window model.ReminderWindow, defs *model.ConfirmationDefs, now time.Time) (string, []interface{}) {
	args := []interface{}{}
	argPos := 1

	leadClauses := []string{}
	for _, days := range window.LeadDays(now) {
		leadClauses = append(leadClauses, fmt.Sprintf("a.apt_datetime::date = CURRENT_DATE + $%d", argPos))
		args = append(args, days)
		argPos++
	}

	statusPlaceholders := []string{}
	for _, status := range window.AllowedStatuses(defs) {
		statusPlaceholders = append(statusPlaceholders, fmt.Sprintf("$%d", argPos))
		args = append(args, status)
		argPos++
	}

	query := `
        SELECT p.pat_num, p.f_name, p.preferred, p.l_name, p.wireless_phone, p.birthdate, p.txt_msg_ok, p.pat_status, p.prefer_confirm_method,
               a.apt_num, a.pat_num, a.apt_datetime, a.confirmed, a.apt_status
        FROM patients p
        JOIN appointments a USING (pat_num)
        WHERE (` + strings.Join(leadClauses, " OR ") + `)
          AND a.confirmed IN (` + strings.Join(statusPlaceholders, ", ") + `)
          AND p.txt_msg_ok < ` + fmt.Sprintf("%d", model.TxtMsgRefused) + `
          AND p.prefer_confirm_method IN (` + fmt.Sprintf("%d, %d, %d",
		model.ConfirmMethodNone, model.ConfirmMethodWireless, model.ConfirmMethodText) + `)
          AND LENGTH(regexp_replace(COALESCE(p.wireless_phone,''), '[^0-9]', '', 'g')) > 7
          AND NOT EXISTS (
              SELECT 1 FROM appointments a2
              WHERE a2.pat_num = a.pat_num
                AND a2.apt_datetime > NOW()
                AND a2.apt_datetime < a.apt_datetime
          )
          AND a.apt_status = ` + fmt.Sprintf("%d", model.AptStatusScheduled) + `
        ORDER BY a.apt_datetime
    `
	return query, args
}
