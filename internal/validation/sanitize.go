package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Same entity set as the PHP pages that wrote the existing data files,
// so stored text keeps its exact bytes.
var entityReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape trims s and HTML-entity-encodes it.
func Escape(s string) string {
	return entityReplacer.Replace(strings.TrimSpace(s))
}

// StripSlashes removes backslash escapes: `\x` becomes `x` and a trailing
// lone backslash is dropped.
func StripSlashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			if i < len(s) {
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Sanitize prepares untrusted text for logs and email bodies.
func Sanitize(s string) string {
	return Escape(StripSlashes(strings.TrimSpace(s)))
}

// FormatPhone reflows the digits of s as "XXX XXX-XXXX" while typing.
// It is a display aid only; validation runs on what the visitor submitted.
func FormatPhone(s string) string {
	digits := make([]byte, 0, 10)
	for _, r := range s {
		if r < utf8.RuneSelf && unicode.IsDigit(r) {
			digits = append(digits, byte(r))
		}
	}
	switch n := len(digits); {
	case n > 6:
		if n > 10 {
			digits = digits[:10]
		}
		return string(digits[:3]) + " " + string(digits[3:6]) + "-" + string(digits[6:])
	case n > 3:
		return string(digits[:3]) + " " + string(digits[3:])
	default:
		return string(digits)
	}
}
