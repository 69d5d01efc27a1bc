// internal/model/render.go
package model

import "strings"

// Layouts used when rendering [date] and [time] into reminder texts. The
// YES-confirmation automation parses these back out of the communication log,
// so they are fixed here rather than configurable.
const (
	AptDateLayout = "Monday, 2 January 2006"
	AptTimeLayout = "3:04 pm"
)

// RenderMessage fills a message template for one patient and, when given, one
// appointment. Unknown placeholders pass through untouched.
func RenderMessage(template string, p *Patient, a *Appointment) string {
	name := p.NameFirstOrPreferred()
	s := template
	s = strings.ReplaceAll(s, "[NamePreferredOrFirst]", name)
	s = strings.ReplaceAll(s, "?NamePreferredOrFirst", name)
	s = strings.ReplaceAll(s, "[FName]", p.FName)
	s = strings.ReplaceAll(s, "?FName", p.FName)
	if a != nil {
		s = strings.ReplaceAll(s, "[date]", a.AptDateTime.Format(AptDateLayout))
		s = strings.ReplaceAll(s, "[time]", a.AptDateTime.Format(AptTimeLayout))
	}
	return s
}
