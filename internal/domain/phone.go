package domain

import "strings"

// maxPhoneDigits caps phone numbers at the national format length
// (e.g. "0532 555 95 90"). Digits typed beyond the cap are dropped.
const maxPhoneDigits = 11

// FormatPhone strips non-digit characters and regroups the digits as
// 4-3-2-2 ("0532 555 95 90"). Partial input is grouped as far as it
// reaches, so the formatter can run on every keystroke.
func FormatPhone(s string) string {
	var b strings.Builder
	for i := 0; i < len(s) && b.Len() < maxPhoneDigits; i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	d := b.String()

	var formatted string
	switch {
	case len(d) < 4:
		return d
	case len(d) < 7:
		formatted = d[:4] + " " + d[4:]
	case len(d) < 9:
		formatted = d[:4] + " " + d[4:7] + " " + d[7:]
	default:
		formatted = d[:4] + " " + d[4:7] + " " + d[7:9] + " " + d[9:]
	}
	return strings.TrimSpace(formatted)
}
