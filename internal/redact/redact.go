// Package redact removes credentials and other sensitive details from
// strings before they are logged or returned to clients. Model and
// repository errors can carry API keys, database URLs, file paths and SQL.
package redact

import (
	"log/slog"
	"regexp"
)

// Placeholders
const (
	Placeholder           = "[REDACTED]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	PathPlaceholder       = "[REDACTED_PATH]"
	EmailPlaceholder      = "[REDACTED_EMAIL]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	StackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules are applied in order.
var rules = []rule{
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*`), StackPlaceholder},
	{regexp.MustCompile(`(?i)\b(postgres(?:ql)?|mysql|redis)://[^\s@/]+@`), "${1}://" + CredentialPlaceholder + "@"},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|key|token|secret|password|passwd)(\s*[=:]\s*)["']?[^"'&\s]{4,}`), "${1}${2}" + Placeholder},
	{regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`), KeyPlaceholder},
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=\-]+`), "Bearer " + Placeholder},
	{regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), EmailPlaceholder},
	{regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b[\s\S]*?\b(?:FROM|INTO|SET)\b[^;\n]*`), "${1} " + SQLPlaceholder},
	{regexp.MustCompile(`(?:/[\w.\-]+){3,}`), PathPlaceholder},
}

// String redacts sensitive information from s.
func String(s string) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// Error redacts the message of err. A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Attr returns the redacted error as an "error" log attribute.
func Attr(err error) slog.Attr {
	return slog.String("error", Error(err))
}
