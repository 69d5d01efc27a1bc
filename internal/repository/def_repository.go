// internal/repository/def_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"strings"

	appErrors "github.com/practiceops/smsbridge-backend/internal/errors"
	"github.com/practiceops/smsbridge-backend/internal/model"
)

// Category id of the appointment-confirmation definitions in the store.
const defCatApptConfirmed = 2

type DefRepositoryInterface interface {
	LoadConfirmationDefs() (*model.ConfirmationDefs, error)
}

type DefRepository struct {
	DB *sql.DB
}

// LoadConfirmationDefs resolves the nine confirmation-status codes by item
// name, once at startup. A missing or duplicated code is a fatal configuration
// error: sending with a wrong code would mislabel appointments.
func (r *DefRepository) LoadConfirmationDefs() (*model.ConfirmationDefs, error) {
	query := `SELECT def_num, item_name FROM definitions WHERE category = $1`
	rows, err := r.DB.Query(query, defCatApptConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]int64{}
	for rows.Next() {
		var defNum int64
		var itemName string
		if err := rows.Scan(&defNum, &itemName); err != nil {
			return nil, err
		}
		byName[strings.ToLower(itemName)] = defNum
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lookup := func(itemName string) (int64, error) {
		defNum, ok := byName[strings.ToLower(itemName)]
		if !ok || defNum == 0 {
			return 0, appErrors.NewConfiguration("definitions",
				fmt.Sprintf("the %q appointment status was not found", itemName))
		}
		return defNum, nil
	}

	defs := &model.ConfirmationDefs{}
	fields := []struct {
		name string
		dst  *int64
	}{
		{"texted", &defs.Texted},
		{"2 week sent", &defs.TwoWeekSent},
		{"1 week sent", &defs.OneWeekSent},
		{"2 week confirmed", &defs.TwoWeekConfirmed},
		{"1 week confirmed", &defs.OneWeekConfirmed},
		{"Appointment Confirmed", &defs.Confirmed},
		{"not called", &defs.NotCalled},
		{"unconfirmed", &defs.Unconfirmed},
		{"Created from Web Sched", &defs.WebSched},
	}
	for _, f := range fields {
		n, err := lookup(f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = n
	}

	if !defs.SanityCheck() {
		return nil, appErrors.NewConfiguration("definitions",
			"two appointment confirmation statuses share one code")
	}
	return defs, nil
}
