// internal/dispatch/normalize.go
package dispatch

import (
	"strings"

	appErrors "github.com/practiceops/smsbridge-backend/internal/errors"
)

// NormalizeNumber prepares a destination for the tether agent: a leading
// international "+" is stripped (exactly one, nothing else), a leading
// national "0" is replaced with the configured country code. Empty input is a
// caller error.
func NormalizeNumber(raw, countryCode string) (string, error) {
	number := strings.TrimSpace(raw)
	if number == "" {
		return "", appErrors.NewBadNumber(raw)
	}
	switch number[0] {
	case '+':
		number = number[1:]
	case '0':
		number = countryCode + number[1:]
	}
	if number == "" {
		return "", appErrors.NewBadNumber(raw)
	}
	return number, nil
}
