// internal/repository/commlog_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/practiceops/smsbridge-backend/internal/model"
)

type CommlogRepositoryInterface interface {
	Insert(log *model.Commlog) error
	LatestReminderAwaitingYes(patNums []int64, since time.Time) (*model.Commlog, error)
}

type CommlogRepository struct {
	DB *sql.DB
}

// Insert writes one communication-log entry and fills in its id.
func (r *CommlogRepository) Insert(log *model.Commlog) error {
	if log.CommDateTime.IsZero() {
		log.CommDateTime = time.Now()
	}
	query := `
        INSERT INTO commlogs (pat_num, note, mode, comm_datetime, sent_or_received, user_num)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING commlog_num
    `
	return r.DB.QueryRow(
		query,
		log.PatNum, log.Note, log.Mode, log.CommDateTime, log.SentOrReceived, log.UserNum,
	).Scan(&log.CommlogNum)
}

// LatestReminderAwaitingYes finds the most recent outbound reminder for any of
// the candidate patients that asked for a YES reply, within the trailing
// window. Returns nil without error when there is none.
func (r *CommlogRepository) LatestReminderAwaitingYes(patNums []int64, since time.Time) (*model.Commlog, error) {
	if len(patNums) == 0 {
		return nil, nil
	}

	placeholders := []string{}
	args := []interface{}{}
	for i, n := range patNums {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, n)
	}
	args = append(args, since)

	query := `
        SELECT commlog_num, pat_num, note, mode, comm_datetime, sent_or_received, user_num
        FROM commlogs
        WHERE pat_num IN (` + strings.Join(placeholders, ", ") + `)
          AND note ~ 'Text message sent.*(reply|respond).*YES'
          AND comm_datetime >= $` + fmt.Sprintf("%d", len(patNums)+1) + `
        ORDER BY comm_datetime DESC
        LIMIT 1
    `
	var c model.Commlog
	err := r.DB.QueryRow(query, args...).Scan(
		&c.CommlogNum, &c.PatNum, &c.Note, &c.Mode, &c.CommDateTime, &c.SentOrReceived, &c.UserNum,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
