// Package redact scrubs obvious personal data from essay text before it is sent to a model.
//
// The name rule is a crude "Firstname Lastname" heuristic: any two adjacent capitalized
// words are replaced, so "United States" is redacted too, while single names, lowercase
// names and non-Western name orders pass through untouched. Keep it that way unless the
// redaction contract itself changes.
package redact

import "regexp"

const (
	// EmailToken replaces every detected email address.
	EmailToken = "〈REDACTED_EMAIL〉"
	// NameToken replaces every detected two-word capitalized name.
	NameToken = "〈REDACTED_NAME〉"
)

var (
	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	reName  = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)
)

// Text returns s with email addresses and two-word capitalized names replaced.
// Emails are replaced first so their parts are never seen by the name rule.
func Text(s string) string {
	s = reEmail.ReplaceAllLiteralString(s, EmailToken)
	return reName.ReplaceAllLiteralString(s, NameToken)
}
