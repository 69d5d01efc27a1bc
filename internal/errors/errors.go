// internal/errors/errors.go
package appErrors

import "fmt"

// ErrConfiguration is fatal: the process must not start sending with a broken
// configuration.
type ErrConfiguration struct {
	Setting string
	Reason  string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// Helper constructor
func NewConfiguration(setting, reason string) error {
	return &ErrConfiguration{Setting: setting, Reason: reason}
}

// ErrBadNumber is a caller error: the destination number cannot be normalized.
type ErrBadNumber struct {
	Number string
}

func (e *ErrBadNumber) Error() string {
	return fmt.Sprintf("invalid destination number %q", e.Number)
}

func NewBadNumber(number string) error {
	return &ErrBadNumber{Number: number}
}

// ErrDuplicateMessage marks a dedup hit; dropped silently at low severity.
type ErrDuplicateMessage struct {
	Fingerprint string
}

func (e *ErrDuplicateMessage) Error() string {
	return fmt.Sprintf("message %s already processed", e.Fingerprint)
}

func NewDuplicateMessage(fingerprint string) error {
	return &ErrDuplicateMessage{Fingerprint: fingerprint}
}

// ErrAmbiguousMatch: too many patients share a number to act automatically.
type ErrAmbiguousMatch struct {
	Number  string
	Matches int
}

func (e *ErrAmbiguousMatch) Error() string {
	return fmt.Sprintf("%d patients match %s, refusing to guess", e.Matches, e.Number)
}

func NewAmbiguousMatch(number string, matches int) error {
	return &ErrAmbiguousMatch{Number: number, Matches: matches}
}
