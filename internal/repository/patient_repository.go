// internal/repository/patient_repository.go
package repository

import (
	"database/sql"

	"github.com/practiceops/smsbridge-backend/internal/model"
)

type PatientRepositoryInterface interface {
	FindByMobile(localDigits string) ([]model.Patient, error)
	BirthdaysToday() ([]model.Patient, error)
}

type PatientRepository struct {
	DB *sql.DB
}

const patientColumns = `pat_num, f_name, preferred, l_name, wireless_phone, birthdate, txt_msg_ok, pat_status, prefer_confirm_method`

// FindByMobile returns every patient whose mobile number ends with the given
// local digits (country code and punctuation stripped on both sides). A number
// shared by a family can legitimately match several patients.
func (r *PatientRepository) FindByMobile(localDigits string) ([]model.Patient, error) {
	query := `
        SELECT ` + patientColumns + `
        FROM patients
        WHERE regexp_replace(COALESCE(wireless_phone,''), '[^0-9]', '', 'g') LIKE '%' || $1
    `
	rows, err := r.DB.Query(query, localDigits)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPatients(rows)
}

// BirthdaysToday returns active, textable patients with a birthday today who
// have not already been sent a birthday message in the last 3 days.
func (r *PatientRepository) BirthdaysToday() ([]model.Patient, error) {
	query := `
        SELECT ` + patientColumns + `
        FROM patients p
        WHERE p.pat_status = $1
          AND p.txt_msg_ok < $2
          AND p.birthdate IS NOT NULL
          AND EXTRACT(MONTH FROM p.birthdate) = EXTRACT(MONTH FROM CURRENT_DATE)
          AND EXTRACT(DAY FROM p.birthdate) = EXTRACT(DAY FROM CURRENT_DATE)
          AND LENGTH(regexp_replace(COALESCE(p.wireless_phone,''), '[^0-9]', '', 'g')) > 7
          AND NOT EXISTS (
              SELECT 1 FROM commlogs m
              WHERE m.pat_num = p.pat_num
                AND m.note LIKE '%Birthday%'
                AND m.comm_datetime > NOW() - INTERVAL '3 days'
          )
    `
	rows, err := r.DB.Query(query, model.PatStatusActive, model.TxtMsgRefused)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPatients(rows)
}

func scanPatients(rows *sql.Rows) ([]model.Patient, error) {
	patients := []model.Patient{}
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(
			&p.PatNum, &p.FName, &p.Preferred, &p.LName,
			&p.WirelessPhone, &p.Birthdate, &p.TxtMsgOk, &p.PatStatus,
			&p.PreferConfirmMethod,
		); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}
