package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe  = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe  = regexp.MustCompile(`\+?\d[\d\s\-]{7,}\d`)
	bearerRe = regexp.MustCompile(`(?i)bearer\s+[a-z0-9._\-]+`)
)

// SetEnabled toggles PII redaction.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text redacts emails, phone numbers and bearer tokens when enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := bearerRe.ReplaceAllString(in, "Bearer [REDACTED_TOKEN]")
	out = emailRe.ReplaceAllString(out, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out
}

// Caller masks all but the last three digits of a phone number.
// It is applied regardless of the global switch because caller ids
// only ever end up in logs.
func Caller(number string) string {
	number = strings.TrimSpace(number)
	if len(number) <= 3 {
		return number
	}
	return strings.Repeat("*", len(number)-3) + number[len(number)-3:]
}
